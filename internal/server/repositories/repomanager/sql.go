package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/server/migrations"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/tags"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends SQL-backed repositories for one dialect and
// exposes a schema migration hook.
type SQLRepositoryManager struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// NewSQLRepositoryManager wraps an already opened database.
func NewSQLRepositoryManager(db *sql.DB, dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{db: db, dialect: dialect}
}

// OpenPostgres connects through pgx's database/sql driver.
func OpenPostgres(dsn string) (*SQLRepositoryManager, error) {
	db, err := sql.Open(dbx.Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQLRepositoryManager(db, dbx.Postgres), nil
}

// OpenSQLite opens an embedded database with foreign keys enforced.
// Writes are serialized through a single connection.
func OpenSQLite(dsn string) (*SQLRepositoryManager, error) {
	db, err := sql.Open(dbx.SQLite.Driver, SQLiteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLRepositoryManager(db, dbx.SQLite), nil
}

// SQLiteDSN adds the pragmas the schema relies on unless already present.
func SQLiteDSN(dsn string) string {
	var pragmas []string
	if !strings.Contains(dsn, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)")
	}
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func (m *SQLRepositoryManager) bind(db dbx.DBTX) Repos {
	return Repos{
		Users:          users.NewSQLRepository(db, m.dialect),
		Recordings:     recordings.NewSQLRepository(db, m.dialect),
		Transcriptions: transcriptions.NewSQLRepository(db, m.dialect),
		Tags:           tags.NewSQLRepository(db, m.dialect),
	}
}

func (m *SQLRepositoryManager) Users() users.Repository {
	return users.NewSQLRepository(m.db, m.dialect)
}

func (m *SQLRepositoryManager) Recordings() recordings.Repository {
	return recordings.NewSQLRepository(m.db, m.dialect)
}

func (m *SQLRepositoryManager) Transcriptions() transcriptions.Repository {
	return transcriptions.NewSQLRepository(m.db, m.dialect)
}

func (m *SQLRepositoryManager) Tags() tags.Repository {
	return tags.NewSQLRepository(m.db, m.dialect)
}

// DB exposes the underlying handle, e.g. for health checks.
func (m *SQLRepositoryManager) DB() *sql.DB { return m.db }

// gooseUp is a seam for testing the goose provider.
var gooseUp = func(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context) error {
	fsys, err := fs.Sub(migrations.Migrations, m.dialect.Name)
	if err != nil {
		return err
	}
	if err := gooseUp(ctx, m.db, goose.Dialect(m.dialect.Name), fsys); err != nil {
		return fmt.Errorf("migrate %s: %w", m.dialect.Name, err)
	}
	return nil
}

func (m *SQLRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, m.bind(tx))
	})
}

func (m *SQLRepositoryManager) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }

func (m *SQLRepositoryManager) Backend() string { return m.dialect.Name }

func (m *SQLRepositoryManager) Close() error { return m.db.Close() }
