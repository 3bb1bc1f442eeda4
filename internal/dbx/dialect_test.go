package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, `SELECT * FROM users WHERE id = ? AND email = ?`, `SELECT * FROM users WHERE id = ? AND email = ?`},
		{"postgres numbered", Postgres, `UPDATE users SET name = ? WHERE id = ?`, `UPDATE users SET name = $1 WHERE id = $2`},
		{"quoted literal kept", Postgres, `SELECT '?' FROM t WHERE a = ?`, `SELECT '?' FROM t WHERE a = $1`},
		{"no placeholders", Postgres, `SELECT 1`, `SELECT 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.in))
		})
	}
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	err := fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))

	fk := &pgconn.PgError{Code: "23503"}
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))

	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestConstraintViolations_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE p (id TEXT PRIMARY KEY, name TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE c (id TEXT PRIMARY KEY, p_id TEXT NOT NULL REFERENCES p(id))`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO p (id, name) VALUES ('1', 'a')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `INSERT INTO p (id, name) VALUES ('2', 'a')`)
	assert.True(t, IsUniqueViolation(err), "unique: %v", err)

	_, err = db.ExecContext(ctx, `INSERT INTO p (id, name) VALUES ('1', 'b')`)
	assert.True(t, IsUniqueViolation(err), "primary key: %v", err)

	_, err = db.ExecContext(ctx, `INSERT INTO c (id, p_id) VALUES ('x', 'missing')`)
	assert.True(t, IsForeignKeyViolation(err), "foreign key: %v", err)
}

func TestLower(t *testing.T) {
	assert.Equal(t, "LOWER(t.content)", Postgres.Lower("t.content"))
	assert.Equal(t, "unicode_lower(?)", SQLite.Lower("?"))

	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var got string
	require.NoError(t, db.QueryRow(`SELECT `+SQLite.Lower("?"), "Ночь над ÉNTERPRISE").Scan(&got))
	assert.Equal(t, "ночь над énterprise", got)

	var null sql.NullString
	require.NoError(t, db.QueryRow(`SELECT `+SQLite.Lower("NULL")).Scan(&null))
	assert.False(t, null.Valid)
}
