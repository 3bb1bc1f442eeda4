package repomanager

import (
	"context"

	"github.com/dmitrijs2005/captainslog/internal/server/repositories/memory"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/tags"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
)

// MemoryRepositoryManager vends repositories over one memory.Store.
// WithTx gives no isolation or rollback.
type MemoryRepositoryManager struct {
	store *memory.Store
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: memory.NewStore()}
}

func (m *MemoryRepositoryManager) Users() users.Repository { return m.store.Users() }

func (m *MemoryRepositoryManager) Recordings() recordings.Repository { return m.store.Recordings() }

func (m *MemoryRepositoryManager) Transcriptions() transcriptions.Repository {
	return m.store.Transcriptions()
}

func (m *MemoryRepositoryManager) Tags() tags.Repository { return m.store.Tags() }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return fn(ctx, Repos{
		Users:          m.Users(),
		Recordings:     m.Recordings(),
		Transcriptions: m.Transcriptions(),
		Tags:           m.Tags(),
	})
}

func (m *MemoryRepositoryManager) Ping(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Backend() string { return "memory" }

func (m *MemoryRepositoryManager) Close() error { return nil }
