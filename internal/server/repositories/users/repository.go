// Package users persists user accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Repository is the storage contract for users. Emails are compared
// case-insensitively; implementations store them lower-cased.
type Repository interface {
	// Create inserts u and returns its id. A caller-supplied u.ID is kept.
	Create(ctx context.Context, u *models.User) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// Delete removes the user together with everything it owns.
	Delete(ctx context.Context, id string) error
}
