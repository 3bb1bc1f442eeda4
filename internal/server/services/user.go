// Package services contains the business logic shared by the HTTP server
// and the journal CLI. This file implements UserService: registration,
// login, session tokens, password reset and profile changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/auth"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Session is an issued session token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthConfig holds the token parameters of UserService.
type AuthConfig struct {
	SecretKey          []byte
	SessionDuration    time.Duration
	ResetTokenDuration time.Duration
}

// ProfileUpdate is a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Settings *models.Settings
}

// ResetNotifier delivers password reset tokens to their owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, u *models.User, token string, expiresAt time.Time) error
}

// LogResetNotifier writes the reset token to the log instead of mailing it.
type LogResetNotifier struct {
	Log logging.Logger
}

func (n LogResetNotifier) NotifyPasswordReset(ctx context.Context, u *models.User, token string, expiresAt time.Time) error {
	n.Log.Info(ctx, "password reset requested", "user_id", u.ID, "email", u.Email,
		"token", token, "expires_at", expiresAt.Format(time.RFC3339))
	return nil
}

type UserService struct {
	users    users.Repository
	notifier ResetNotifier
	log      logging.Logger
	cfg      AuthConfig
	now      func() time.Time
}

// NewUserService builds a UserService. Zero durations fall back to the
// package defaults.
func NewUserService(repo users.Repository, cfg AuthConfig, notifier ResetNotifier, log logging.Logger) *UserService {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = common.SessionDuration
	}
	if cfg.ResetTokenDuration <= 0 {
		cfg.ResetTokenDuration = common.ResetTokenDuration
	}
	if notifier == nil {
		notifier = LogResetNotifier{Log: log}
	}
	return &UserService{users: repo, notifier: notifier, log: log, cfg: cfg, now: time.Now}
}

// Register validates input, stores the user and logs them in.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	u := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Settings:     models.DefaultSettings(),
	}
	if _, err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			return nil, fmt.Errorf("email already registered: %w", common.ErrDuplicateKey)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return s.Login(ctx, email, password)
}

// Login checks credentials and issues a session token. An unknown email
// yields common.ErrNotFound, a wrong password common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}

	now := s.now()
	token, expiresAt, err := auth.GenerateToken(u.ID, s.cfg.SecretKey, s.cfg.SessionDuration, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	if err := s.users.TouchLastLogin(ctx, u.ID, now.UTC()); err != nil {
		s.log.Warn(ctx, "failed to record last login", "user_id", u.ID, "error", err)
	}

	return &Session{Token: token, UserID: u.ID, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a session token to its user id. The user must
// still exist.
func (s *UserService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := auth.ParseToken(token, s.cfg.SecretKey)
	if err != nil {
		return "", err
	}
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("error loading user: %w", err)
	}
	return claims.UserID, nil
}

// RequestPasswordReset never reveals whether email belongs to an account:
// it returns nil for unknown addresses and absorbs storage failures.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "password reset lookup failed", "error", err)
		}
		return nil
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.cfg.ResetTokenDuration).UTC()

	upd := models.UserUpdate{ResetToken: &token, ResetTokenExpiry: &expiresAt}
	if err := s.users.Update(ctx, u.ID, upd); err != nil {
		s.log.Warn(ctx, "failed to store reset token", "user_id", u.ID, "error", err)
		return nil
	}

	if err := s.notifier.NotifyPasswordReset(ctx, u, token, expiresAt); err != nil {
		s.log.Warn(ctx, "failed to deliver reset token", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword redeems a reset token once and sets a new password.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	u, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrInvalidToken
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if u.ResetTokenExpiry == nil || !s.now().Before(*u.ResetTokenExpiry) {
		return common.ErrTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	upd := models.UserUpdate{PasswordHash: &hash, ClearResetToken: true}
	if err := s.users.Update(ctx, u.ID, upd); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.log.Info(ctx, "password reset", "user_id", u.ID)
	return nil
}

// UpdateProfile applies a partial change, re-validating email and password
// when present.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, p ProfileUpdate) (*models.User, error) {
	var upd models.UserUpdate

	if p.Email != nil {
		if err := auth.ValidateEmail(*p.Email); err != nil {
			return nil, err
		}
		upd.Email = p.Email
	}
	if p.Password != nil {
		if err := auth.ValidatePassword(*p.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
		}
		upd.PasswordHash = &hash
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		upd.Name = &name
	}
	if p.Settings != nil {
		if err := p.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		upd.Settings = p.Settings
	}

	if err := s.users.Update(ctx, userID, upd); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// DeleteUser removes the account and, by cascade, everything it owns.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info(ctx, "user deleted", "user_id", userID)
	return nil
}
