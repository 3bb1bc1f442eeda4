// Package transcriptions persists the text derived from recordings and
// implements transcript search.
package transcriptions

import (
	"context"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Repository is the storage contract for transcriptions.
type Repository interface {
	// Create inserts t and returns its id. A missing recording yields
	// common.ErrNotFound.
	Create(ctx context.Context, t *models.Transcription) (string, error)
	GetByID(ctx context.Context, id string) (*models.Transcription, error)
	// GetByOwner lists the transcriptions of a recording, newest first.
	GetByOwner(ctx context.Context, recordingID string) ([]*models.Transcription, error)
	// GetByRecordingID returns the newest transcription of a recording.
	GetByRecordingID(ctx context.Context, recordingID string) (*models.Transcription, error)
	Update(ctx context.Context, id string, upd models.TranscriptionUpdate) error
	UpdateByRecordingID(ctx context.Context, recordingID string, upd models.TranscriptionUpdate) error
	Delete(ctx context.Context, id string) error
	// Search matches transcript content case-insensitively within one
	// user's recordings, newest recording first. No match is an empty
	// slice, not an error.
	Search(ctx context.Context, userID, substr string) ([]*models.SearchResult, error)
}
