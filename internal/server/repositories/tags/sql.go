package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/google/uuid"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// NormalizeName trims a tag name and rejects empty ones.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty tag name: %w", common.ErrValidation)
	}
	return name, nil
}

func (r *SQLRepository) Create(ctx context.Context, t *models.Tag) (string, error) {
	name, err := NormalizeName(t.Name)
	if err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Name = name
	now := dbx.Now()

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)`),
		t.ID, t.Name, now)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return "", fmt.Errorf("tag %q: %w", t.Name, common.ErrDuplicateKey)
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	t.CreatedAt = now
	return t.ID, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Tag, error) {
	return r.getOne(ctx, `SELECT id, name, created_at FROM tags WHERE id = ?`, id)
}

func (r *SQLRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	return r.getOne(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, strings.TrimSpace(name))
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.Tag, error) {
	var t models.Tag
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r *SQLRepository) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	t, err := r.GetByName(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	t = &models.Tag{Name: name}
	if _, err := r.Create(ctx, t); err != nil {
		// Lost a race against another writer; the row exists now.
		if errors.Is(err, common.ErrDuplicateKey) {
			return r.GetByName(ctx, name)
		}
		return nil, err
	}
	return t, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.Tag, error) {
	return r.list(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
}

func (r *SQLRepository) GetByRecording(ctx context.Context, recordingID string) ([]*models.Tag, error) {
	query := `SELECT t.id, t.name, t.created_at
	            FROM tags t
	            JOIN recording_tags rt ON rt.tag_id = t.id
	           WHERE rt.recording_id = ?
	           ORDER BY t.name`
	return r.list(ctx, query, recordingID)
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]*models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Delete relies on ON DELETE CASCADE for recording_tags.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM tags WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLRepository) TagRecording(ctx context.Context, recordingID, name string) (*models.Tag, error) {
	t, err := r.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO recording_tags (recording_id, tag_id) VALUES (?, ?)
	          ON CONFLICT (recording_id, tag_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), recordingID, t.ID); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("recording %s: %w", recordingID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) UntagRecording(ctx context.Context, recordingID, name string) error {
	query := `DELETE FROM recording_tags
	           WHERE recording_id = ?
	             AND tag_id IN (SELECT id FROM tags WHERE name = ?)`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), recordingID, strings.TrimSpace(name)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetRecordingsByTag(ctx context.Context, userID, name string) ([]*models.Recording, error) {
	query := `SELECT r.id, r.user_id, r.filename, r.duration_ms, r.file_path, r.recorded_at, r.created_at, r.updated_at
	            FROM recordings r
	            JOIN recording_tags rt ON rt.recording_id = r.id
	            JOIN tags t ON t.id = rt.tag_id
	           WHERE r.user_id = ? AND t.name = ?
	           ORDER BY r.recorded_at DESC, r.created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), userID, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Recording, 0)
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Filename, &rec.DurationMs, &rec.FilePath,
			&rec.RecordedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.RecordedAt = rec.RecordedAt.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
