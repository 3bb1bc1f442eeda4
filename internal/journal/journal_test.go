package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/client/localdb"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, transcript string, at time.Time) Entry {
	return Entry{ID: id, Date: at, DurationMs: 1000, Transcript: transcript, Status: models.StatusCompleted}
}

func ids(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestLog_AddPrependsAndUpdates(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLog()
	l.Add(entry("a", "first", base))
	l.Add(entry("b", "second", base.Add(time.Minute)))

	assert.Equal(t, []string{"b", "a"}, ids(l.Snapshot()))

	ok := l.Update("a", func(e *Entry) {
		e.Transcript = "changed"
		e.Status = models.StatusError
	})
	require.True(t, ok)
	got, _ := l.Get("a")
	assert.Equal(t, "changed", got.Transcript)
	assert.Equal(t, models.StatusError, got.Status)

	assert.False(t, l.Update("missing", func(*Entry) {}))
	assert.True(t, l.Remove("b"))
	assert.False(t, l.Remove("b"))
	assert.Equal(t, 1, l.Len())
}

func TestLog_SnapshotIsCopy(t *testing.T) {
	l := NewLog(entry("a", "x", time.Now()))
	snap := l.Snapshot()
	snap[0].Transcript = "mutated"
	got, _ := l.Get("a")
	assert.Equal(t, "x", got.Transcript)
}

func TestLog_Filter(t *testing.T) {
	now := time.Now()
	l := NewLog(
		entry("1", "Engaged the WARP drive", now),
		entry("2", "shore leave", now),
		entry("3", "warp core breach", now),
	)
	assert.Equal(t, []string{"1", "3"}, ids(l.Filter("warp")))
	assert.Equal(t, []string{"1", "2", "3"}, ids(l.Filter("  ")))
	assert.Empty(t, l.Filter("klingon"))
	assert.NotNil(t, l.Filter("klingon"))
}

func TestLog_Subscribe(t *testing.T) {
	l := NewLog()
	var (
		mu    sync.Mutex
		kinds []ChangeKind
	)
	cancel := l.Subscribe(func(c Change) {
		mu.Lock()
		kinds = append(kinds, c.Kind)
		mu.Unlock()
	})

	l.Add(entry("a", "", time.Now()))
	l.Update("a", func(e *Entry) { e.Transcript = "t" })
	l.Replace(nil)
	l.Add(entry("b", "", time.Now()))
	l.Remove("b")
	cancel()
	l.Add(entry("c", "", time.Now()))

	assert.Equal(t, []ChangeKind{Added, Updated, Replaced, Added, Removed}, kinds)
}

func TestLog_ConcurrentUpdates(t *testing.T) {
	l := NewLog()
	for i := 0; i < 50; i++ {
		l.Add(Entry{ID: string(rune('A' + i))})
	}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.Update(id, func(e *Entry) { e.Status = models.StatusCompleted })
		}(string(rune('A' + i)))
	}
	wg.Wait()
	for _, e := range l.Snapshot() {
		assert.Equal(t, models.StatusCompleted, e.Status)
	}
}

func TestCache_SaveLoad(t *testing.T) {
	ctx := context.Background()
	repos, err := localdb.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	defer repos.Close()

	c := NewCache(repos.DB)
	empty, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	want := []Entry{
		{ID: "b", Date: at.Add(time.Hour), DurationMs: 5000, Transcript: models.PendingTranscript, Status: models.StatusPending, StorageFailed: true, HasAudio: true},
		{ID: "a", Date: at, DurationMs: 65000, Transcript: "done", Status: models.StatusCompleted, HasAudio: true},
	}
	require.NoError(t, c.Save(ctx, want))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, c.Save(ctx, want[1:]))
	got, err = c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestCache_Attach(t *testing.T) {
	ctx := context.Background()
	repos, err := localdb.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	defer repos.Close()

	c := NewCache(repos.DB)
	l := NewLog()
	cancel := c.Attach(ctx, l, func(err error) { t.Errorf("cache save: %v", err) })
	defer cancel()

	l.Add(entry("x", "hello", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(got))
}

func TestCache_AttachConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repos, err := localdb.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	defer repos.Close()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLog()
	for i := range 20 {
		e := entry(string(rune('a'+i)), models.PendingTranscript, at.Add(time.Duration(i)*time.Minute))
		e.Status = models.StatusPending
		l.Add(e)
	}

	c := NewCache(repos.DB)
	cancel := c.Attach(ctx, l, func(err error) { t.Errorf("cache save: %v", err) })
	defer cancel()

	// transcriptions finishing on many goroutines at once
	var wg sync.WaitGroup
	for _, e := range l.Snapshot() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.Update(id, func(e *Entry) {
				e.Transcript = "done " + id
				e.Status = models.StatusCompleted
			})
		}(e.ID)
	}
	wg.Wait()

	got, err := c.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(l.Snapshot(), got); diff != "" {
		t.Fatalf("cache lags behind the log (-want +got):\n%s", diff)
	}
	for _, e := range got {
		assert.Equal(t, models.StatusCompleted, e.Status, e.ID)
	}
}

func TestLoadFromRepository(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users, recs, trs := store.Users(), store.Recordings(), store.Transcriptions()

	uid, err := users.Create(ctx, &models.User{Email: "kirk@enterprise.org", PasswordHash: "x"})
	require.NoError(t, err)

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = recs.Create(ctx, &models.Recording{ID: "old", UserID: uid, Filename: "a.webm", DurationMs: 1000, AudioData: []byte("a"), RecordedAt: t0})
	require.NoError(t, err)
	_, err = recs.Create(ctx, &models.Recording{ID: "new", UserID: uid, Filename: "b.webm", DurationMs: 2000, RecordedAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, err = trs.Create(ctx, &models.Transcription{RecordingID: "old", Content: "log entry", Metadata: models.TranscriptionMetadata{Status: models.StatusCompleted}})
	require.NoError(t, err)

	got, err := LoadFromRepository(ctx, recs, trs, uid)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, models.StatusPending, got[0].Status)
	assert.Equal(t, models.PendingTranscript, got[0].Transcript)
	assert.False(t, got[0].HasAudio)

	assert.Equal(t, "old", got[1].ID)
	assert.Equal(t, "log entry", got[1].Transcript)
	assert.Equal(t, models.StatusCompleted, got[1].Status)
	assert.True(t, got[1].HasAudio)
	assert.Equal(t, "00:00:01", got[1].Duration())
}

type failingDeleter struct{ err error }

func (f failingDeleter) Delete(context.Context, string) error { return f.err }

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uid, err := store.Users().Create(ctx, &models.User{Email: "a@b.co", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = store.Recordings().Create(ctx, &models.Recording{ID: "r", UserID: uid, Filename: "f"})
	require.NoError(t, err)

	l := NewLog(entry("r", "x", time.Now()), entry("s", "y", time.Now()))

	removed, err := DeleteEntry(ctx, l, store.Recordings(), "r")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = store.Recordings().GetByID(ctx, "r")
	assert.ErrorIs(t, err, common.ErrNotFound)

	removed, err = DeleteEntry(ctx, l, failingDeleter{err: common.ErrStorageFailure}, "s")
	assert.True(t, removed, "list entry goes even when storage fails")
	assert.ErrorIs(t, err, common.ErrStorageFailure)

	removed, err = DeleteEntry(ctx, l, store.Recordings(), "missing")
	assert.NoError(t, err)
	assert.False(t, removed)
}
