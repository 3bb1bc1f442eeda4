// Package journal keeps the ordered list of log entries shown to the user,
// newest first.
package journal

import (
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/models"
)

// Entry is one displayed log item.
type Entry struct {
	ID            string                     `json:"id"`
	Date          time.Time                  `json:"date"`
	DurationMs    int64                      `json:"durationMs"`
	Transcript    string                     `json:"transcript"`
	Status        models.TranscriptionStatus `json:"status"`
	StorageFailed bool                       `json:"storageFailed,omitempty"`
	HasAudio      bool                       `json:"hasAudio"`
}

// Duration renders DurationMs as HH:MM:SS.
func (e Entry) Duration() string { return models.FormatDuration(e.DurationMs) }

func (e Entry) Pending() bool { return e.Status == models.StatusPending }

// ChangeKind says what happened to the list.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Removed
	Replaced
)

type Change struct {
	Kind  ChangeKind
	Entry Entry
}

// Log is a mutex-guarded list of entries. Subscribers are called
// synchronously after the lock is released.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	subs    map[int]func(Change)
	nextSub int
}

func NewLog(entries ...Entry) *Log {
	return &Log{entries: append([]Entry(nil), entries...), subs: map[int]func(Change){}}
}

// Add prepends e so the newest entry comes first.
func (l *Log) Add(e Entry) {
	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	l.mu.Unlock()
	l.notify(Change{Kind: Added, Entry: e})
}

// Update applies fn to the entry with the given id. It reports false when
// no such entry exists.
func (l *Log) Update(id string, fn func(*Entry)) bool {
	l.mu.Lock()
	idx := l.index(id)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	fn(&l.entries[idx])
	e := l.entries[idx]
	l.mu.Unlock()
	l.notify(Change{Kind: Updated, Entry: e})
	return true
}

func (l *Log) Remove(id string) bool {
	l.mu.Lock()
	idx := l.index(id)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	e := l.entries[idx]
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	l.mu.Unlock()
	l.notify(Change{Kind: Removed, Entry: e})
	return true
}

// Replace swaps the whole list, e.g. after reloading from storage.
func (l *Log) Replace(entries []Entry) {
	l.mu.Lock()
	l.entries = append([]Entry(nil), entries...)
	l.mu.Unlock()
	l.notify(Change{Kind: Replaced})
}

func (l *Log) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx := l.index(id); idx >= 0 {
		return l.entries[idx], true
	}
	return Entry{}, false
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the list.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry{}, l.entries...)
}

// Filter returns entries whose transcript contains substr, ignoring case.
// A blank query matches everything.
func (l *Log) Filter(substr string) []Entry {
	q := strings.ToLower(strings.TrimSpace(substr))
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Entry{}
	for _, e := range l.entries {
		if q == "" || strings.Contains(strings.ToLower(e.Transcript), q) {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe registers fn for change notifications and returns a func that
// unregisters it.
func (l *Log) Subscribe(fn func(Change)) (cancel func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Log) notify(c Change) {
	l.mu.RLock()
	fns := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// index must be called with mu held.
func (l *Log) index(id string) int {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i
		}
	}
	return -1
}
