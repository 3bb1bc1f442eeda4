// Package repotest holds a backend-independent contract suite run against
// every repository implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/tags"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/transcriptions"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Repos is one backend's set of repositories.
type Repos struct {
	Users          users.Repository
	Recordings     recordings.Repository
	Transcriptions transcriptions.Repository
	Tags           tags.Repository
}

// Factory returns a fresh, empty backend for each call.
type Factory func(t *testing.T) Repos

// Run executes the contract suite.
func Run(t *testing.T, newRepos Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newRepos(t)) })
	t.Run("UserUpdate", func(t *testing.T) { testUserUpdate(t, newRepos(t)) })
	t.Run("Recordings", func(t *testing.T) { testRecordings(t, newRepos(t)) })
	t.Run("Transcriptions", func(t *testing.T) { testTranscriptions(t, newRepos(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newRepos(t)) })
	t.Run("SearchUnicode", func(t *testing.T) { testSearchUnicode(t, newRepos(t)) })
	t.Run("Tags", func(t *testing.T) { testTags(t, newRepos(t)) })
	t.Run("Cascade", func(t *testing.T) { testCascade(t, newRepos(t)) })
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, r Repos, email string) string {
	t.Helper()
	id, err := r.Users.Create(context.Background(), &models.User{Email: email, Name: "n", PasswordHash: "h"})
	require.NoError(t, err)
	return id
}

func mustRecording(t *testing.T, r Repos, userID string, at time.Time, transcript string) string {
	t.Helper()
	ctx := context.Background()
	rec := &models.Recording{UserID: userID, Filename: models.RecordingFilename(at),
		DurationMs: 1500, AudioData: []byte("webm"), RecordedAt: at}
	id, err := r.Recordings.Create(ctx, rec)
	require.NoError(t, err)

	_, err = r.Transcriptions.Create(ctx, &models.Transcription{RecordingID: id, Content: transcript,
		Metadata: models.TranscriptionMetadata{Status: models.StatusCompleted}})
	require.NoError(t, err)
	return id
}

func testUsers(t *testing.T, r Repos) {
	ctx := context.Background()

	u := &models.User{ID: "user-1", Email: "Kirk@Enterprise.org", Name: "Jim", PasswordHash: "hash"}
	id, err := r.Users.Create(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	got, err := r.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kirk@enterprise.org", got.Email)
	assert.Equal(t, "Jim", got.Name)
	assert.Equal(t, models.DefaultSettings(), got.Settings)
	assert.Nil(t, got.ResetToken)
	assert.Nil(t, got.LastLoginAt)

	byEmail, err := r.Users.GetByEmail(ctx, "KIRK@enterprise.ORG")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	_, err = r.Users.Create(ctx, &models.User{Email: "kirk@ENTERPRISE.org", Name: "Other", PasswordHash: "x"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)

	again, err := r.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jim", again.Name, "duplicate create must not alter the existing row")
	assert.Equal(t, "hash", again.PasswordHash)

	_, err = r.Users.Create(ctx, &models.User{ID: "user-1", Email: "spock@vulcan.org", PasswordHash: "x"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)

	gen, err := r.Users.Create(ctx, &models.User{Email: "bones@enterprise.org", PasswordHash: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, gen)
	assert.NotEqual(t, id, gen)

	_, err = r.Users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = r.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, r.Users.Delete(ctx, "missing"), common.ErrNotFound)
}

func testUserUpdate(t *testing.T, r Repos) {
	ctx := context.Background()
	id := mustUser(t, r, "a@example.com")
	other := mustUser(t, r, "b@example.com")

	before, err := r.Users.GetByID(ctx, id)
	require.NoError(t, err)

	name := "Renamed"
	require.NoError(t, r.Users.Update(ctx, id, models.UserUpdate{Name: &name}))

	after, err := r.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", after.Name)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))

	settings := models.Settings{AudioQuality: models.AudioQualityLow, SilenceThreshold: 5}
	require.NoError(t, r.Users.Update(ctx, id, models.UserUpdate{Settings: &settings}))
	after, err = r.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, settings, after.Settings)

	taken := "B@example.com"
	assert.ErrorIs(t, r.Users.Update(ctx, id, models.UserUpdate{Email: &taken}), common.ErrDuplicateKey)

	token := "reset-token"
	expiry := base.Add(24 * time.Hour)
	require.NoError(t, r.Users.Update(ctx, other, models.UserUpdate{ResetToken: &token, ResetTokenExpiry: &expiry}))

	holder, err := r.Users.GetByResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, other, holder.ID)
	require.NotNil(t, holder.ResetTokenExpiry)
	assert.True(t, holder.ResetTokenExpiry.Equal(expiry))

	require.NoError(t, r.Users.Update(ctx, other, models.UserUpdate{ClearResetToken: true}))
	_, err = r.Users.GetByResetToken(ctx, token)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.Users.TouchLastLogin(ctx, id, base))
	after, err = r.Users.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, after.LastLoginAt)
	assert.True(t, after.LastLoginAt.Equal(base))

	assert.ErrorIs(t, r.Users.Update(ctx, "missing", models.UserUpdate{Name: &name}), common.ErrNotFound)
}

func testRecordings(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "owner@example.com")
	other := mustUser(t, r, "other@example.com")

	_, err := r.Recordings.Create(ctx, &models.Recording{UserID: "missing", Filename: "x"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	oldest := &models.Recording{ID: "rec-old", UserID: owner, Filename: "old", DurationMs: 1000,
		AudioData: []byte{1, 2, 3}, RecordedAt: base}
	_, err = r.Recordings.Create(ctx, oldest)
	require.NoError(t, err)

	newest := &models.Recording{UserID: owner, Filename: "new", DurationMs: 2000,
		FilePath: "new.webm", RecordedAt: base.Add(time.Hour)}
	newestID, err := r.Recordings.Create(ctx, newest)
	require.NoError(t, err)

	_, err = r.Recordings.Create(ctx, &models.Recording{UserID: other, Filename: "theirs", RecordedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	_, err = r.Recordings.Create(ctx, &models.Recording{ID: "rec-old", UserID: owner, Filename: "dup"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)

	got, err := r.Recordings.GetByID(ctx, "rec-old")
	require.NoError(t, err)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, int64(1000), got.DurationMs)
	assert.Equal(t, []byte{1, 2, 3}, got.AudioData)
	assert.True(t, got.RecordedAt.Equal(base))

	list, err := r.Recordings.GetByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newestID, list[0].ID)
	assert.Equal(t, "rec-old", list[1].ID)
	for _, rec := range list {
		assert.True(t, rec.HasAudio(), rec.ID)
	}

	empty, err := r.Recordings.GetByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	path := "rec-old.webm"
	require.NoError(t, r.Recordings.Update(ctx, "rec-old", models.RecordingUpdate{FilePath: &path}))
	got, err = r.Recordings.GetByID(ctx, "rec-old")
	require.NoError(t, err)
	assert.Equal(t, path, got.FilePath)
	assert.Equal(t, "old", got.Filename)
	assert.Equal(t, []byte{1, 2, 3}, got.AudioData)

	assert.ErrorIs(t, r.Recordings.Update(ctx, "missing", models.RecordingUpdate{FilePath: &path}), common.ErrNotFound)

	require.NoError(t, r.Recordings.Delete(ctx, "rec-old"))
	_, err = r.Recordings.GetByID(ctx, "rec-old")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, r.Recordings.Delete(ctx, "rec-old"), common.ErrNotFound)
}

func testTranscriptions(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "t@example.com")
	recID, err := r.Recordings.Create(ctx, &models.Recording{UserID: owner, Filename: "f", RecordedAt: base})
	require.NoError(t, err)

	_, err = r.Transcriptions.Create(ctx, &models.Transcription{RecordingID: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	tr := &models.Transcription{RecordingID: recID, Content: models.PendingTranscript}
	trID, err := r.Transcriptions.Create(ctx, tr)
	require.NoError(t, err)

	got, err := r.Transcriptions.GetByRecordingID(ctx, recID)
	require.NoError(t, err)
	assert.Equal(t, trID, got.ID)
	assert.Equal(t, models.StatusPending, got.Metadata.Status)
	assert.Equal(t, models.PendingTranscript, got.Content)

	content := "Captain's log, stardate unknown."
	meta := models.TranscriptionMetadata{Status: models.StatusCompleted, Model: "whisper-1", ProcessingTimeMs: 120}
	require.NoError(t, r.Transcriptions.UpdateByRecordingID(ctx, recID, models.TranscriptionUpdate{Content: &content, Metadata: &meta}))

	got, err = r.Transcriptions.GetByID(ctx, trID)
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
	assert.Equal(t, meta, got.Metadata)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	failed := models.TranscriptionMetadata{Status: models.StatusError, Message: "boom"}
	require.NoError(t, r.Transcriptions.Update(ctx, trID, models.TranscriptionUpdate{Metadata: &failed}))
	got, err = r.Transcriptions.GetByID(ctx, trID)
	require.NoError(t, err)
	assert.Equal(t, content, got.Content, "content untouched by a metadata-only update")
	assert.Equal(t, models.StatusError, got.Metadata.Status)

	list, err := r.Transcriptions.GetByOwner(ctx, recID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, r.Transcriptions.UpdateByRecordingID(ctx, "missing", models.TranscriptionUpdate{Content: &content}), common.ErrNotFound)
	_, err = r.Transcriptions.GetByRecordingID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.Transcriptions.Delete(ctx, trID))
	assert.ErrorIs(t, r.Transcriptions.Delete(ctx, trID), common.ErrNotFound)
}

func testSearch(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "s@example.com")
	stranger := mustUser(t, r, "x@example.com")

	warp := mustRecording(t, r, owner, base, "Engage the WARP drive")
	shields := mustRecording(t, r, owner, base.Add(time.Hour), "Raise shields, 100% power")
	mustRecording(t, r, stranger, base.Add(2*time.Hour), "warp speed for strangers")

	res, err := r.Transcriptions.Search(ctx, owner, "warp")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, warp, res[0].RecordingID)
	assert.Equal(t, owner, res[0].UserID)
	assert.Equal(t, int64(1500), res[0].DurationMs)
	assert.True(t, res[0].RecordedAt.Equal(base))

	res, err = r.Transcriptions.Search(ctx, owner, "100%")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, shields, res[0].RecordingID)

	res, err = r.Transcriptions.Search(ctx, owner, "_")
	require.NoError(t, err)
	assert.Empty(t, res, "underscore is literal")

	res, err = r.Transcriptions.Search(ctx, owner, "klingon")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	res, err = r.Transcriptions.Search(ctx, owner, "e")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, shields, res[0].RecordingID, "newest recording first")
	assert.Equal(t, warp, res[1].RecordingID)
}

func testSearchUnicode(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "u@example.com")
	night := mustRecording(t, r, owner, base, "Ночь над Énterprise")

	for _, q := range []string{"НОЧЬ", "ночь", "énterprise", "ÉNTERPRISE", "над É"} {
		res, err := r.Transcriptions.Search(ctx, owner, q)
		require.NoError(t, err, q)
		require.Len(t, res, 1, q)
		assert.Equal(t, night, res[0].RecordingID, q)
	}

	res, err := r.Transcriptions.Search(ctx, owner, "день")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func testTags(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "tag@example.com")
	rec1 := mustRecording(t, r, owner, base, "one")
	rec2 := mustRecording(t, r, owner, base.Add(time.Hour), "two")

	a, err := r.Tags.GetOrCreate(ctx, "mission")
	require.NoError(t, err)
	b, err := r.Tags.GetOrCreate(ctx, " mission ")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID, "get-or-create never duplicates")

	_, err = r.Tags.Create(ctx, &models.Tag{Name: "mission"})
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
	_, err = r.Tags.GetOrCreate(ctx, "  ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = r.Tags.TagRecording(ctx, rec1, "mission")
	require.NoError(t, err)
	_, err = r.Tags.TagRecording(ctx, rec1, "mission")
	require.NoError(t, err, "linking twice is a no-op")
	_, err = r.Tags.TagRecording(ctx, rec1, "alpha")
	require.NoError(t, err)
	_, err = r.Tags.TagRecording(ctx, rec2, "mission")
	require.NoError(t, err)

	_, err = r.Tags.TagRecording(ctx, "missing", "mission")
	assert.ErrorIs(t, err, common.ErrNotFound)

	onRec1, err := r.Tags.GetByRecording(ctx, rec1)
	require.NoError(t, err)
	require.Len(t, onRec1, 2)
	assert.Equal(t, "alpha", onRec1[0].Name)
	assert.Equal(t, "mission", onRec1[1].Name)

	tagged, err := r.Tags.GetRecordingsByTag(ctx, owner, "mission")
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.Equal(t, rec2, tagged[0].ID)
	assert.Equal(t, rec1, tagged[1].ID)

	require.NoError(t, r.Tags.UntagRecording(ctx, rec1, "mission"))
	require.NoError(t, r.Tags.UntagRecording(ctx, rec1, "never-existed"))
	onRec1, err = r.Tags.GetByRecording(ctx, rec1)
	require.NoError(t, err)
	require.Len(t, onRec1, 1)
	assert.Equal(t, "alpha", onRec1[0].Name)

	all, err := r.Tags.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	alpha, err := r.Tags.GetByName(ctx, "alpha")
	require.NoError(t, err)
	require.NoError(t, r.Tags.Delete(ctx, alpha.ID))
	onRec1, err = r.Tags.GetByRecording(ctx, rec1)
	require.NoError(t, err)
	assert.Empty(t, onRec1)
	_, err = r.Tags.GetByID(ctx, alpha.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func testCascade(t *testing.T, r Repos) {
	ctx := context.Background()
	owner := mustUser(t, r, "c@example.com")
	keep := mustRecording(t, r, owner, base, "keep me")
	drop := mustRecording(t, r, owner, base.Add(time.Minute), "drop me")

	_, err := r.Tags.TagRecording(ctx, drop, "doomed")
	require.NoError(t, err)
	_, err = r.Tags.TagRecording(ctx, keep, "doomed")
	require.NoError(t, err)

	require.NoError(t, r.Recordings.Delete(ctx, drop))

	_, err = r.Transcriptions.GetByRecordingID(ctx, drop)
	assert.ErrorIs(t, err, common.ErrNotFound)
	dropTags, err := r.Tags.GetByRecording(ctx, drop)
	require.NoError(t, err)
	assert.Empty(t, dropTags)

	tagged, err := r.Tags.GetRecordingsByTag(ctx, owner, "doomed")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, keep, tagged[0].ID)

	_, err = r.Tags.GetByName(ctx, "doomed")
	require.NoError(t, err, "tags are global and survive recording deletion")

	require.NoError(t, r.Users.Delete(ctx, owner))
	left, err := r.Recordings.GetByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, left)
	_, err = r.Transcriptions.GetByRecordingID(ctx, keep)
	assert.ErrorIs(t, err, common.ErrNotFound)
	res, err := r.Transcriptions.Search(ctx, owner, "keep")
	require.NoError(t, err)
	assert.Empty(t, res)
}
