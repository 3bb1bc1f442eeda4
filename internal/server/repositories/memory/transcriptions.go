package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
	"github.com/google/uuid"
)

type TranscriptionRepository struct {
	s *Store
}

var _ transcriptions.Repository = (*TranscriptionRepository)(nil)

func (r *TranscriptionRepository) Create(_ context.Context, t *models.Transcription) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Metadata.Status == "" {
		t.Metadata.Status = models.StatusPending
	}
	if _, ok := r.s.transcriptions[t.ID]; ok {
		return "", fmt.Errorf("transcription %s: %w", t.ID, common.ErrDuplicateKey)
	}
	if _, ok := r.s.recordings[t.RecordingID]; !ok {
		return "", fmt.Errorf("recording %s: %w", t.RecordingID, common.ErrNotFound)
	}

	now := r.s.now()
	t.CreatedAt, t.UpdatedAt = now, now

	r.s.transcriptions[t.ID] = cloneTranscription(t)
	r.s.track(t.ID)
	return t.ID, nil
}

func (r *TranscriptionRepository) GetByID(_ context.Context, id string) (*models.Transcription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transcriptions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneTranscription(t), nil
}

// byRecording must be called with mu held.
func (r *TranscriptionRepository) byRecording(recordingID string) []*models.Transcription {
	var result []*models.Transcription
	for _, t := range r.s.transcriptions {
		if t.RecordingID == recordingID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.s.order[a.ID] > r.s.order[b.ID]
	})
	return result
}

func (r *TranscriptionRepository) GetByOwner(_ context.Context, recordingID string) ([]*models.Transcription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*models.Transcription, 0)
	for _, t := range r.byRecording(recordingID) {
		result = append(result, cloneTranscription(t))
	}
	return result, nil
}

func (r *TranscriptionRepository) GetByRecordingID(_ context.Context, recordingID string) (*models.Transcription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := r.byRecording(recordingID)
	if len(list) == 0 {
		return nil, common.ErrNotFound
	}
	return cloneTranscription(list[0]), nil
}

func (r *TranscriptionRepository) Update(_ context.Context, id string, upd models.TranscriptionUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.transcriptions[id]
	if !ok {
		return common.ErrNotFound
	}
	r.apply(t, upd)
	return nil
}

func (r *TranscriptionRepository) UpdateByRecordingID(_ context.Context, recordingID string, upd models.TranscriptionUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := r.byRecording(recordingID)
	if len(list) == 0 {
		return common.ErrNotFound
	}
	for _, t := range list {
		r.apply(t, upd)
	}
	return nil
}

// apply must be called with mu held for writing.
func (r *TranscriptionRepository) apply(t *models.Transcription, upd models.TranscriptionUpdate) {
	next := cloneTranscription(t)
	if upd.Content != nil {
		next.Content = *upd.Content
	}
	if upd.Metadata != nil {
		next.Metadata = cloneTranscription(&models.Transcription{Metadata: *upd.Metadata}).Metadata
	}
	next.UpdatedAt = r.s.now()
	r.s.transcriptions[t.ID] = next
}

func (r *TranscriptionRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.transcriptions[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.transcriptions, id)
	delete(r.s.order, id)
	return nil
}

func (r *TranscriptionRepository) Search(_ context.Context, userID, substr string) ([]*models.SearchResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	needle := strings.ToLower(substr)

	var owned []*models.Recording
	for _, rec := range r.s.recordings {
		if rec.UserID == userID {
			owned = append(owned, rec)
		}
	}
	r.s.newestFirst(owned)

	result := make([]*models.SearchResult, 0)
	for _, rec := range owned {
		for _, t := range r.byRecording(rec.ID) {
			if !strings.Contains(strings.ToLower(t.Content), needle) {
				continue
			}
			result = append(result, &models.SearchResult{
				Transcription: *cloneTranscription(t),
				UserID:        rec.UserID,
				Filename:      rec.Filename,
				DurationMs:    rec.DurationMs,
				RecordedAt:    rec.RecordedAt,
			})
		}
	}
	return result, nil
}
