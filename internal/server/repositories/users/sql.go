package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/google/uuid"
)

const selectUser = `SELECT id, email, name, password_hash, settings, reset_token,
       reset_token_expiry, last_login_at, created_at, updated_at
  FROM users`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, u *models.User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Settings.AudioQuality == "" {
		u.Settings = models.DefaultSettings()
	}

	settings, err := models.MarshalSettings(u.Settings)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}

	now := dbx.Now()
	query := `INSERT INTO users (id, email, name, password_hash, settings, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		u.ID, u.Email, u.Name, u.PasswordHash, settings, now, now)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return "", fmt.Errorf("user %q: %w", u.Email, common.ErrDuplicateKey)
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	u.CreatedAt, u.UpdatedAt = now, now
	return u.ID, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = ?`, id)
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = ?`, NormalizeEmail(email))
}

func (r *SQLRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE reset_token = ?`, token)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	var set dbx.Assignments

	if upd.Email != nil {
		set.Set("email", NormalizeEmail(*upd.Email))
	}
	if upd.Name != nil {
		set.Set("name", *upd.Name)
	}
	if upd.PasswordHash != nil {
		set.Set("password_hash", *upd.PasswordHash)
	}
	if upd.Settings != nil {
		s, err := models.MarshalSettings(*upd.Settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		set.Set("settings", s)
	}
	switch {
	case upd.ClearResetToken:
		set.Set("reset_token", nil)
		set.Set("reset_token_expiry", nil)
	default:
		if upd.ResetToken != nil {
			set.Set("reset_token", *upd.ResetToken)
		}
		if upd.ResetTokenExpiry != nil {
			set.Set("reset_token_expiry", upd.ResetTokenExpiry.UTC())
		}
	}
	if upd.LastLoginAt != nil {
		set.Set("last_login_at", upd.LastLoginAt.UTC())
	}
	set.Set("updated_at", dbx.Now())

	query, args := set.Build("users", "id = ?", id)
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", id, common.ErrDuplicateKey)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *SQLRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.Update(ctx, id, models.UserUpdate{LastLoginAt: &at})
}

// Delete relies on ON DELETE CASCADE for recordings and their children.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u           models.User
		settings    []byte
		resetToken  sql.NullString
		resetExpiry sql.NullTime
		lastLogin   sql.NullTime
	)

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &settings,
		&resetToken, &resetExpiry, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if u.Settings, err = models.UnmarshalSettings(settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	u.ResetToken = dbx.NullString(resetToken)
	u.ResetTokenExpiry = dbx.NullTime(resetExpiry)
	u.LastLoginAt = dbx.NullTime(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// NormalizeEmail is the canonical stored form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
