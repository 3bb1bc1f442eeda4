// Package repomanager opens a storage backend from a DSN and vends the
// repositories bound to it, optionally inside a transaction.
package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/tags"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
)

// Repos is a set of repositories bound to the same handle.
type Repos struct {
	Users          users.Repository
	Recordings     recordings.Repository
	Transcriptions transcriptions.Repository
	Tags           tags.Repository
}

type RepositoryManager interface {
	Users() users.Repository
	Recordings() recordings.Repository
	Transcriptions() transcriptions.Repository
	Tags() tags.Repository

	// RunMigrations brings the schema up to date. No-op for memory.
	RunMigrations(ctx context.Context) error
	// WithTx runs fn with repositories sharing one transaction where the
	// backend supports it.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Backend names the storage in use, for logs.
	Backend() string
	Close() error
}

// Open picks a backend from the DSN scheme:
//
//	memory://                  in-process maps
//	sqlite://path, file:...    embedded SQLite
//	postgres://, postgresql:// PostgreSQL via pgx
//
// A bare path ending in .db or .sqlite is treated as SQLite.
func Open(dsn string) (RepositoryManager, error) {
	switch {
	case dsn == "" || dsn == "memory" || strings.HasPrefix(dsn, "memory://"):
		return NewMemoryRepositoryManager(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return OpenSQLite(dsn)
	}
	return nil, fmt.Errorf("unsupported database url %q", redact(dsn))
}

// redact hides credentials in a DSN for error messages.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
