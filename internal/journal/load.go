package journal

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
)

// EntryFrom builds the displayed entry for a recording and its latest
// transcription, which may be nil.
func EntryFrom(rec *models.Recording, tr *models.Transcription) Entry {
	e := Entry{
		ID:         rec.ID,
		Date:       rec.RecordedAt,
		DurationMs: rec.DurationMs,
		HasAudio:   rec.HasAudio(),
		Status:     models.StatusPending,
		Transcript: models.PendingTranscript,
	}
	if tr != nil {
		e.Transcript = tr.Content
		e.Status = statusOf(string(tr.Metadata.Status))
	}
	return e
}

// LoadFromRepository rebuilds a user's list from storage, newest first.
func LoadFromRepository(ctx context.Context, recs recordings.Repository, trs transcriptions.Repository, userID string) ([]Entry, error) {
	list, err := recs.GetByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(list))
	for _, rec := range list {
		tr, err := trs.GetByRecordingID(ctx, rec.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		out = append(out, EntryFrom(rec, tr))
	}
	return out, nil
}

func statusOf(s string) models.TranscriptionStatus {
	switch st := models.TranscriptionStatus(s); st {
	case models.StatusCompleted, models.StatusError:
		return st
	}
	return models.StatusPending
}

// Deleter removes a recording with its transcriptions and tags.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// DeleteEntry removes id from storage and from l. The entry leaves the list
// even when storage fails; that failure is returned alongside.
func DeleteEntry(ctx context.Context, l *Log, repo Deleter, id string) (removed bool, err error) {
	if repo != nil {
		if derr := repo.Delete(ctx, id); derr != nil && !errors.Is(derr, common.ErrNotFound) {
			err = derr
		}
	}
	return l.Remove(id), err
}
