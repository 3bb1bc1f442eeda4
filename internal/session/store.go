package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/captainslog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
)

// TokenStore persists at most one session token.
type TokenStore interface {
	// Load returns (nil, nil) when no token is stored.
	Load(ctx context.Context) (*services.Session, error)
	Save(ctx context.Context, s *services.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	sess *services.Session
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (*services.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	c := *m.sess
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, s *services.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.sess = &c
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	return nil
}

// MetadataStore keeps the token in the CLI's local metadata table.
type MetadataStore struct {
	repo metadata.Repository
}

func NewMetadataStore(repo metadata.Repository) *MetadataStore {
	return &MetadataStore{repo: repo}
}

func (m *MetadataStore) Load(ctx context.Context) (*services.Session, error) {
	var s services.Session
	ok, err := metadata.GetJSON(ctx, m.repo, metadata.KeySession, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (m *MetadataStore) Save(ctx context.Context, s *services.Session) error {
	return metadata.SetJSON(ctx, m.repo, metadata.KeySession, s)
}

func (m *MetadataStore) Clear(ctx context.Context) error {
	return m.repo.Delete(ctx, metadata.KeySession)
}
