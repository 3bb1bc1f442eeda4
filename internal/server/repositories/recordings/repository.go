// Package recordings persists recording rows and their audio payload
// or payload location.
package recordings

import (
	"context"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Repository is the storage contract for recordings.
type Repository interface {
	// Create inserts rec and returns its id. A caller-supplied rec.ID is
	// kept; a missing owner yields common.ErrNotFound.
	Create(ctx context.Context, rec *models.Recording) (string, error)
	GetByID(ctx context.Context, id string) (*models.Recording, error)
	// GetByOwner lists a user's recordings, most recent first.
	GetByOwner(ctx context.Context, userID string) ([]*models.Recording, error)
	Update(ctx context.Context, id string, upd models.RecordingUpdate) error
	// Delete removes the recording, its transcriptions and its tag links.
	Delete(ctx context.Context, id string) error
}
