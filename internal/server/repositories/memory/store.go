// Package memory implements the repository interfaces over mutex-guarded
// maps. It follows the same uniqueness and cascade rules as the SQL
// schema and is meant for tests and throwaway sessions.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/models"
)

type recordingTag struct {
	recordingID string
	tagID       string
}

// Store owns all entity maps. Repositories vended by it share one lock so
// cascades stay consistent.
type Store struct {
	mu  sync.RWMutex
	seq int64

	users          map[string]*models.User
	recordings     map[string]*models.Recording
	transcriptions map[string]*models.Transcription
	tags           map[string]*models.Tag
	links          map[recordingTag]struct{}

	// insertion order, used as a tie-break for equal timestamps
	order map[string]int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:          make(map[string]*models.User),
		recordings:     make(map[string]*models.Recording),
		transcriptions: make(map[string]*models.Transcription),
		tags:           make(map[string]*models.Tag),
		links:          make(map[recordingTag]struct{}),
		order:          make(map[string]int64),
		now:            dbx.Now,
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (s *Store) Recordings() *RecordingRepository { return &RecordingRepository{s: s} }

func (s *Store) Transcriptions() *TranscriptionRepository { return &TranscriptionRepository{s: s} }

func (s *Store) Tags() *TagRepository { return &TagRepository{s: s} }

// track must be called with mu held for writing.
func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

// deleteRecording must be called with mu held for writing.
func (s *Store) deleteRecording(id string) {
	delete(s.recordings, id)
	delete(s.order, id)
	for tid, t := range s.transcriptions {
		if t.RecordingID == id {
			delete(s.transcriptions, tid)
			delete(s.order, tid)
		}
	}
	for l := range s.links {
		if l.recordingID == id {
			delete(s.links, l)
		}
	}
}

// newestFirst sorts recordings by recorded_at then created_at, newest first.
func (s *Store) newestFirst(recs []*models.Recording) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.After(b.RecordedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.order[a.ID] > s.order[b.ID]
	})
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.ResetToken != nil {
		v := *u.ResetToken
		c.ResetToken = &v
	}
	if u.ResetTokenExpiry != nil {
		v := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &v
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		c.LastLoginAt = &v
	}
	return &c
}

func cloneRecording(r *models.Recording) *models.Recording {
	c := *r
	if r.AudioData != nil {
		c.AudioData = append([]byte(nil), r.AudioData...)
	}
	return &c
}

func cloneTranscription(t *models.Transcription) *models.Transcription {
	c := *t
	if t.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]any, len(t.Metadata.Extra))
		for k, v := range t.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return &c
}

func cloneTag(t *models.Tag) *models.Tag {
	c := *t
	return &c
}
