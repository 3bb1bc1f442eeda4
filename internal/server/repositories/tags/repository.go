// Package tags persists global tag names and their links to recordings.
package tags

import (
	"context"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Repository is the storage contract for tags and recording_tags.
type Repository interface {
	// Create inserts a tag; a taken name yields common.ErrDuplicateKey.
	Create(ctx context.Context, t *models.Tag) (string, error)
	GetByID(ctx context.Context, id string) (*models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	// GetOrCreate returns the tag named name, creating it on first use.
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)
	// List returns all tags ordered by name.
	List(ctx context.Context) ([]*models.Tag, error)
	Delete(ctx context.Context, id string) error

	// TagRecording links a recording to the tag named name. Linking twice
	// is a no-op.
	TagRecording(ctx context.Context, recordingID, name string) (*models.Tag, error)
	// UntagRecording removes the link; an unknown tag name is a no-op.
	UntagRecording(ctx context.Context, recordingID, name string) error
	// GetByRecording lists a recording's tags ordered by name.
	GetByRecording(ctx context.Context, recordingID string) ([]*models.Tag, error)
	// GetRecordingsByTag lists a user's recordings carrying the tag, most
	// recent first.
	GetRecordingsByTag(ctx context.Context, userID, name string) ([]*models.Recording, error)
}
