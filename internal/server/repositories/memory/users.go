package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
	"github.com/google/uuid"
)

type UserRepository struct {
	s *Store
}

var _ users.Repository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, u *models.User) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = users.NormalizeEmail(u.Email)
	if u.Settings.AudioQuality == "" {
		u.Settings = models.DefaultSettings()
	}

	if _, ok := r.s.users[u.ID]; ok {
		return "", fmt.Errorf("user %s: %w", u.ID, common.ErrDuplicateKey)
	}
	if r.findByEmail(u.Email) != nil {
		return "", fmt.Errorf("user %q: %w", u.Email, common.ErrDuplicateKey)
	}

	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	u.ResetToken, u.ResetTokenExpiry, u.LastLoginAt = nil, nil, nil

	r.s.users[u.ID] = cloneUser(u)
	r.s.track(u.ID)
	return u.ID, nil
}

func (r *UserRepository) findByEmail(email string) *models.User {
	for _, u := range r.s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u := r.findByEmail(users.NormalizeEmail(email))
	if u == nil {
		return nil, common.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByResetToken(_ context.Context, token string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.ResetToken != nil && *u.ResetToken == token {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *UserRepository) Update(_ context.Context, id string, upd models.UserUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u := cloneUser(cur)

	if upd.Email != nil {
		email := users.NormalizeEmail(*upd.Email)
		if other := r.findByEmail(email); other != nil && other.ID != id {
			return fmt.Errorf("user %s: %w", id, common.ErrDuplicateKey)
		}
		u.Email = email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Settings != nil {
		u.Settings = *upd.Settings
	}
	if upd.ClearResetToken {
		u.ResetToken, u.ResetTokenExpiry = nil, nil
	} else {
		if upd.ResetToken != nil {
			for _, other := range r.s.users {
				if other.ID != id && other.ResetToken != nil && *other.ResetToken == *upd.ResetToken {
					return fmt.Errorf("reset token: %w", common.ErrDuplicateKey)
				}
			}
			v := *upd.ResetToken
			u.ResetToken = &v
		}
		if upd.ResetTokenExpiry != nil {
			v := upd.ResetTokenExpiry.UTC()
			u.ResetTokenExpiry = &v
		}
	}
	if upd.LastLoginAt != nil {
		v := upd.LastLoginAt.UTC()
		u.LastLoginAt = &v
	}
	u.UpdatedAt = r.s.now()

	r.s.users[id] = u
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.Update(ctx, id, models.UserUpdate{LastLoginAt: &at})
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.order, id)
	for rid, rec := range r.s.recordings {
		if rec.UserID == id {
			r.s.deleteRecording(rid)
		}
	}
	return nil
}
