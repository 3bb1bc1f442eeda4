package transcriptions

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

const selectTranscription = `SELECT id, recording_id, content, metadata, created_at, updated_at
  FROM transcriptions`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, t *models.Transcription) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Metadata.Status == "" {
		t.Metadata.Status = models.StatusPending
	}
	meta, err := models.MarshalMetadata(t.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	now := dbx.Now()
	query := `INSERT INTO transcriptions (id, recording_id, content, metadata, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query), t.ID, t.RecordingID, t.Content, meta, now, now)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return "", fmt.Errorf("transcription %s: %w", t.ID, common.ErrDuplicateKey)
		case dbx.IsForeignKeyViolation(err):
			return "", fmt.Errorf("recording %s: %w", t.RecordingID, common.ErrNotFound)
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	t.CreatedAt, t.UpdatedAt = now, now
	return t.ID, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Transcription, error) {
	return r.getOne(ctx, selectTranscription+` WHERE id = ?`, id)
}

func (r *SQLRepository) GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcription, error) {
	return r.getOne(ctx, selectTranscription+` WHERE recording_id = ? ORDER BY created_at DESC LIMIT 1`, recordingID)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.Transcription, error) {
	t, err := scanTranscription(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *SQLRepository) GetByOwner(ctx context.Context, recordingID string) ([]*models.Transcription, error) {
	rows, err := r.db.QueryContext(ctx,
		r.dialect.Rebind(selectTranscription+` WHERE recording_id = ? ORDER BY created_at DESC`), recordingID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Transcription, 0)
	for rows.Next() {
		t, err := scanTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) Update(ctx context.Context, id string, upd models.TranscriptionUpdate) error {
	return r.update(ctx, "id = ?", id, upd)
}

func (r *SQLRepository) UpdateByRecordingID(ctx context.Context, recordingID string, upd models.TranscriptionUpdate) error {
	return r.update(ctx, "recording_id = ?", recordingID, upd)
}

func (r *SQLRepository) update(ctx context.Context, where string, arg any, upd models.TranscriptionUpdate) error {
	var set dbx.Assignments

	if upd.Content != nil {
		set.Set("content", *upd.Content)
	}
	if upd.Metadata != nil {
		meta, err := models.MarshalMetadata(*upd.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		set.Set("metadata", meta)
	}
	set.Set("updated_at", dbx.Now())

	query, args := set.Build("transcriptions", where, arg)
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
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

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM transcriptions WHERE id = ?`), id)
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

func (r *SQLRepository) Search(ctx context.Context, userID, substr string) ([]*models.SearchResult, error) {
	query := `SELECT t.id, t.recording_id, t.content, t.metadata, t.created_at, t.updated_at,
	                 r.user_id, r.filename, r.duration_ms, r.recorded_at
	            FROM transcriptions t
	            JOIN recordings r ON r.id = t.recording_id
	           WHERE r.user_id = ?
	             AND ` + r.dialect.Lower("t.content") + ` LIKE ` + r.dialect.Lower("?") + ` ESCAPE '\'
	           ORDER BY r.recorded_at DESC, r.created_at DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), userID, dbx.ContainsPattern(substr))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.SearchResult, 0)
	for rows.Next() {
		var (
			sr   models.SearchResult
			meta []byte
		)
		if err := rows.Scan(&sr.ID, &sr.RecordingID, &sr.Content, &meta, &sr.CreatedAt, &sr.UpdatedAt,
			&sr.UserID, &sr.Filename, &sr.DurationMs, &sr.RecordedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if sr.Metadata, err = models.UnmarshalMetadata(meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		sr.CreatedAt = sr.CreatedAt.UTC()
		sr.UpdatedAt = sr.UpdatedAt.UTC()
		sr.RecordedAt = sr.RecordedAt.UTC()
		result = append(result, &sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscription(s scanner) (*models.Transcription, error) {
	var (
		t    models.Transcription
		meta []byte
	)
	if err := s.Scan(&t.ID, &t.RecordingID, &t.Content, &meta, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if t.Metadata, err = models.UnmarshalMetadata(meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}
