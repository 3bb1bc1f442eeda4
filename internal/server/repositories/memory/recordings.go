package memory

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/google/uuid"
)

type RecordingRepository struct {
	s *Store
}

var _ recordings.Repository = (*RecordingRepository)(nil)

func (r *RecordingRepository) Create(_ context.Context, rec *models.Recording) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, ok := r.s.recordings[rec.ID]; ok {
		return "", fmt.Errorf("recording %s: %w", rec.ID, common.ErrDuplicateKey)
	}
	if _, ok := r.s.users[rec.UserID]; !ok {
		return "", fmt.Errorf("owner %s: %w", rec.UserID, common.ErrNotFound)
	}

	now := r.s.now()
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = now
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now

	r.s.recordings[rec.ID] = cloneRecording(rec)
	r.s.track(rec.ID)
	return rec.ID, nil
}

func (r *RecordingRepository) GetByID(_ context.Context, id string) (*models.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.recordings[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneRecording(rec), nil
}

func (r *RecordingRepository) GetByOwner(_ context.Context, userID string) ([]*models.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*models.Recording, 0)
	for _, rec := range r.s.recordings {
		if rec.UserID == userID {
			result = append(result, cloneRecording(rec))
		}
	}
	r.s.newestFirst(result)
	return result, nil
}

func (r *RecordingRepository) Update(_ context.Context, id string, upd models.RecordingUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.recordings[id]
	if !ok {
		return common.ErrNotFound
	}
	rec := cloneRecording(cur)

	if upd.Filename != nil {
		rec.Filename = *upd.Filename
	}
	if upd.DurationMs != nil {
		rec.DurationMs = *upd.DurationMs
	}
	if upd.AudioData != nil {
		rec.AudioData = append([]byte(nil), upd.AudioData...)
	}
	if upd.FilePath != nil {
		rec.FilePath = *upd.FilePath
	}
	rec.UpdatedAt = r.s.now()

	r.s.recordings[id] = rec
	return nil
}

func (r *RecordingRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.recordings[id]; !ok {
		return common.ErrNotFound
	}
	r.s.deleteRecording(id)
	return nil
}
