package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/tags"
	"github.com/google/uuid"
)

type TagRepository struct {
	s *Store
}

var _ tags.Repository = (*TagRepository)(nil)

func (r *TagRepository) Create(_ context.Context, t *models.Tag) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.create(t)
}

// create must be called with mu held for writing.
func (r *TagRepository) create(t *models.Tag) (string, error) {
	name, err := tags.NormalizeName(t.Name)
	if err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Name = name

	if _, ok := r.s.tags[t.ID]; ok {
		return "", fmt.Errorf("tag %s: %w", t.ID, common.ErrDuplicateKey)
	}
	if r.findByName(name) != nil {
		return "", fmt.Errorf("tag %q: %w", name, common.ErrDuplicateKey)
	}

	t.CreatedAt = r.s.now()
	r.s.tags[t.ID] = cloneTag(t)
	r.s.track(t.ID)
	return t.ID, nil
}

func (r *TagRepository) findByName(name string) *models.Tag {
	for _, t := range r.s.tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (r *TagRepository) GetByID(_ context.Context, id string) (*models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tags[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneTag(t), nil
}

func (r *TagRepository) GetByName(_ context.Context, name string) (*models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t := r.findByName(strings.TrimSpace(name))
	if t == nil {
		return nil, common.ErrNotFound
	}
	return cloneTag(t), nil
}

func (r *TagRepository) GetOrCreate(_ context.Context, name string) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.getOrCreate(name)
}

// getOrCreate must be called with mu held for writing.
func (r *TagRepository) getOrCreate(name string) (*models.Tag, error) {
	name, err := tags.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if t := r.findByName(name); t != nil {
		return cloneTag(t), nil
	}
	t := &models.Tag{Name: name}
	if _, err := r.create(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TagRepository) List(_ context.Context) ([]*models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*models.Tag, 0, len(r.s.tags))
	for _, t := range r.s.tags {
		result = append(result, cloneTag(t))
	}
	sortByName(result)
	return result, nil
}

func (r *TagRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tags[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.tags, id)
	delete(r.s.order, id)
	for l := range r.s.links {
		if l.tagID == id {
			delete(r.s.links, l)
		}
	}
	return nil
}

func (r *TagRepository) TagRecording(_ context.Context, recordingID, name string) (*models.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, err := r.getOrCreate(name)
	if err != nil {
		return nil, err
	}
	if _, ok := r.s.recordings[recordingID]; !ok {
		return nil, fmt.Errorf("recording %s: %w", recordingID, common.ErrNotFound)
	}
	r.s.links[recordingTag{recordingID: recordingID, tagID: t.ID}] = struct{}{}
	return t, nil
}

func (r *TagRepository) UntagRecording(_ context.Context, recordingID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.findByName(strings.TrimSpace(name))
	if t == nil {
		return nil
	}
	delete(r.s.links, recordingTag{recordingID: recordingID, tagID: t.ID})
	return nil
}

func (r *TagRepository) GetByRecording(_ context.Context, recordingID string) ([]*models.Tag, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*models.Tag, 0)
	for l := range r.s.links {
		if l.recordingID == recordingID {
			if t, ok := r.s.tags[l.tagID]; ok {
				result = append(result, cloneTag(t))
			}
		}
	}
	sortByName(result)
	return result, nil
}

func (r *TagRepository) GetRecordingsByTag(_ context.Context, userID, name string) ([]*models.Recording, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*models.Recording, 0)
	t := r.findByName(strings.TrimSpace(name))
	if t == nil {
		return result, nil
	}
	for l := range r.s.links {
		if l.tagID != t.ID {
			continue
		}
		if rec, ok := r.s.recordings[l.recordingID]; ok && rec.UserID == userID {
			c := cloneRecording(rec)
			c.AudioData = nil
			result = append(result, c)
		}
	}
	r.s.newestFirst(result)
	return result, nil
}

func sortByName(list []*models.Tag) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

