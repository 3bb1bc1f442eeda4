package recordings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *SQLRepository) Create(ctx context.Context, rec *models.Recording) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := dbx.Now()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}

	query := `INSERT INTO recordings (id, user_id, filename, duration_ms, audio_data, file_path, recorded_at, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		rec.ID, rec.UserID, rec.Filename, rec.DurationMs, rec.AudioData, rec.FilePath,
		rec.RecordedAt.UTC(), now, now)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return "", fmt.Errorf("recording %s: %w", rec.ID, common.ErrDuplicateKey)
		case dbx.IsForeignKeyViolation(err):
			return "", fmt.Errorf("owner %s: %w", rec.UserID, common.ErrNotFound)
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	rec.CreatedAt, rec.UpdatedAt = now, now
	return rec.ID, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	query := `SELECT id, user_id, filename, duration_ms, audio_data, file_path, recorded_at, created_at, updated_at
	            FROM recordings
	           WHERE id = ?`

	var rec models.Recording
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id).Scan(
		&rec.ID, &rec.UserID, &rec.Filename, &rec.DurationMs, &rec.AudioData, &rec.FilePath,
		&rec.RecordedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	normalize(&rec)
	return &rec, nil
}

func (r *SQLRepository) GetByOwner(ctx context.Context, userID string) ([]*models.Recording, error) {
	query := `SELECT id, user_id, filename, duration_ms, audio_data, file_path, recorded_at, created_at, updated_at
	            FROM recordings
	           WHERE user_id = ?
	           ORDER BY recorded_at DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Recording, 0)
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Filename, &rec.DurationMs, &rec.AudioData,
			&rec.FilePath, &rec.RecordedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		normalize(&rec)
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Update(ctx context.Context, id string, upd models.RecordingUpdate) error {
	var set dbx.Assignments

	if upd.Filename != nil {
		set.Set("filename", *upd.Filename)
	}
	if upd.DurationMs != nil {
		set.Set("duration_ms", *upd.DurationMs)
	}
	if upd.AudioData != nil {
		set.Set("audio_data", upd.AudioData)
	}
	if upd.FilePath != nil {
		set.Set("file_path", *upd.FilePath)
	}
	set.Set("updated_at", dbx.Now())

	query, args := set.Build("recordings", "id = ?", id)
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

// Delete relies on ON DELETE CASCADE for transcriptions and recording_tags.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM recordings WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func normalize(rec *models.Recording) {
	rec.RecordedAt = rec.RecordedAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
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
