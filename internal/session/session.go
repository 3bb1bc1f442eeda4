// Package session holds the authentication state of one client: either
// Anonymous or Authenticated with a stored token. All methods are safe for
// concurrent use.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/server/services"
)

// Authenticator issues sessions. *services.UserService satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Register(ctx context.Context, email, password, name string) (*services.Session, error)
}

// State is the session state.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// ErrAnonymous is returned by UserID when nobody is logged in.
var ErrAnonymous = errors.New("not logged in")

type Session struct {
	mu    sync.Mutex
	auth  Authenticator
	store TokenStore
	now   func() time.Time
}

func New(auth Authenticator, store TokenStore) *Session {
	return &Session{auth: auth, store: store, now: time.Now}
}

// Login authenticates and stores the new token.
func (s *Session) Login(ctx context.Context, email, password string) (*services.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Register creates an account and stores the resulting token.
func (s *Session) Register(ctx context.Context, email, password, name string) (*services.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.auth.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// IsAuthenticated reports whether a stored token exists and has not
// expired. An expired token is cleared as a side effect.
func (s *Session) IsAuthenticated(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.current(ctx)
	return sess != nil, err
}

// State returns the current state, clearing an expired token.
func (s *Session) State(ctx context.Context) (State, error) {
	ok, err := s.IsAuthenticated(ctx)
	if err != nil || !ok {
		return Anonymous, err
	}
	return Authenticated, nil
}

// Current returns the live session, or nil when anonymous.
func (s *Session) Current(ctx context.Context) (*services.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(ctx)
}

// UserID returns the logged-in user or ErrAnonymous.
func (s *Session) UserID(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrAnonymous
	}
	return sess.UserID, nil
}

// Logout clears the token. Logging out twice is fine.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clear(ctx)
}

// current must be called with mu held.
func (s *Session) current(ctx context.Context) (*services.Session, error) {
	sess, err := s.store.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return sess, nil
}
