package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/capture"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/captainslog/internal/transcribe"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, tr transcribe.Client, d Dispatcher) (*Pipeline, *repomanager.MemoryRepositoryManager, string) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	uid, err := rm.Users().Create(context.Background(), &models.User{Email: "picard@enterprise.org", PasswordHash: "x"})
	require.NoError(t, err)

	p := New(Config{Repos: rm, Transcriber: tr, Dispatcher: d})
	p.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 123000000, time.UTC) }
	return p, rm, uid
}

func ok(text string) transcribe.Client {
	return transcribe.Func(func(context.Context, []byte, string) transcribe.Result {
		return transcribe.Result{Text: text, Kind: transcribe.FailureNone, Metadata: models.TranscriptionMetadata{Status: models.StatusCompleted, Model: "whisper-1"}}
	})
}

func sample() capture.Capture {
	return capture.Capture{Chunks: [][]byte{[]byte("ab"), []byte("cd")}, Duration: 65 * time.Second}
}

func TestProcess_Success(t *testing.T) {
	ctx := context.Background()
	var gotAudio []byte
	var gotName string
	tr := transcribe.Func(func(_ context.Context, audio []byte, name string) transcribe.Result {
		gotAudio, gotName = audio, name
		return transcribe.Result{Text: "Captain's log.", Metadata: models.TranscriptionMetadata{Status: models.StatusCompleted}}
	})

	var changed []journal.Entry
	p, rm, uid := setup(t, tr, nil)
	p.onChange = func(e journal.Entry) { changed = append(changed, e) }

	e, err := p.Process(ctx, uid, sample())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, e.Status)
	assert.Equal(t, models.PendingTranscript, e.Transcript)
	assert.Equal(t, int64(65000), e.DurationMs)
	assert.False(t, e.StorageFailed)

	p.Wait()

	assert.Equal(t, []byte("abcd"), gotAudio)
	assert.Equal(t, "recording-2024-03-09T14-05-07-123Z.webm", gotName)

	rec, err := rm.Recordings().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), rec.AudioData)
	assert.Equal(t, gotName, rec.Filename)

	tr2, err := rm.Transcriptions().GetByRecordingID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Captain's log.", tr2.Content)
	assert.Equal(t, models.StatusCompleted, tr2.Metadata.Status)

	got, found := p.Log().Get(e.ID)
	require.True(t, found)
	assert.Equal(t, "Captain's log.", got.Transcript)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.Len(t, changed, 1)
	assert.Equal(t, e.ID, changed[0].ID)
}

func TestProcess_EmptyCapture(t *testing.T) {
	p, _, uid := setup(t, ok("x"), nil)
	_, err := p.Process(context.Background(), uid, capture.Capture{})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.ErrorIs(t, err, capture.ErrEmptyCapture)
	assert.Equal(t, 0, p.Log().Len())
}

func TestProcess_StorageFailureContinues(t *testing.T) {
	ctx := context.Background()
	p, rm, _ := setup(t, ok("still transcribed"), nil)

	e, err := p.Process(ctx, "no-such-user", sample())
	require.NoError(t, err)
	assert.True(t, e.StorageFailed)

	p.Wait()

	_, err = rm.Recordings().GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, _ := p.Log().Get(e.ID)
	assert.True(t, got.StorageFailed)
	assert.Equal(t, "still transcribed", got.Transcript)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestProcess_TranscriptionFailureKeepsRecording(t *testing.T) {
	ctx := context.Background()
	fail := transcribe.Func(func(context.Context, []byte, string) transcribe.Result {
		return transcribe.Failed(transcribe.FailureMissingCredentials, "whisper-1", transcribe.ErrMissingAPIKey)
	})
	p, rm, uid := setup(t, fail, InlineDispatcher{})

	e, err := p.Process(ctx, uid, sample())
	require.NoError(t, err)

	rec, err := rm.Recordings().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.AudioData)

	tr, err := rm.Transcriptions().GetByRecordingID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, transcribe.MissingKeyText, tr.Content)
	assert.Equal(t, models.StatusError, tr.Metadata.Status)
	assert.Equal(t, "API key not configured", tr.Metadata.Message)
}

func TestProcess_TranscriberPanics(t *testing.T) {
	ctx := context.Background()
	boom := transcribe.Func(func(context.Context, []byte, string) transcribe.Result {
		panic("decoder exploded")
	})
	p, rm, uid := setup(t, boom, nil)

	e, err := p.Process(ctx, uid, sample())
	require.NoError(t, err)
	p.Wait()

	tr, err := rm.Transcriptions().GetByRecordingID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, FallbackText, tr.Content)
	assert.Equal(t, models.StatusError, tr.Metadata.Status)
	assert.Contains(t, tr.Metadata.Message, "decoder exploded")

	_, err = rm.Recordings().GetByID(ctx, e.ID)
	assert.NoError(t, err)
}

func TestProcess_ErrorWithoutStatusIsNormalized(t *testing.T) {
	ctx := context.Background()
	bad := transcribe.Func(func(context.Context, []byte, string) transcribe.Result {
		return transcribe.Result{Err: errors.New("odd")}
	})
	p, _, uid := setup(t, bad, InlineDispatcher{})

	e, err := p.Process(ctx, uid, sample())
	require.NoError(t, err)
	got, _ := p.Log().Get(e.ID)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, transcribe.FailedText, got.Transcript)
}

func TestProcessWithID_KeepsCallerID(t *testing.T) {
	p, _, uid := setup(t, ok("x"), InlineDispatcher{})
	e, err := p.ProcessWithID(context.Background(), "my-id", uid, sample())
	require.NoError(t, err)
	assert.Equal(t, "my-id", e.ID)
}

func TestProcess_NewestFirstInLog(t *testing.T) {
	p, _, uid := setup(t, ok("x"), InlineDispatcher{})
	a, _ := p.Process(context.Background(), uid, sample())
	b, _ := p.Process(context.Background(), uid, sample())
	snap := p.Log().Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, b.ID, snap[0].ID)
	assert.Equal(t, a.ID, snap[1].ID)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestAsynqDispatcher_EnqueuesAndWorkerCompletes(t *testing.T) {
	ctx := context.Background()
	q := &fakeEnqueuer{}
	p, rm, uid := setup(t, ok("queued text"), NewAsynqDispatcher(q, "transcriptions"))

	e, err := p.Process(ctx, uid, sample())
	require.NoError(t, err)
	p.Wait()

	require.Len(t, q.tasks, 1)
	task := q.tasks[0]
	assert.Equal(t, TranscribeTask, task.Type())

	var job Job
	require.NoError(t, json.Unmarshal(task.Payload(), &job))
	assert.Equal(t, e.ID, job.RecordingID)
	assert.Nil(t, job.Audio, "audio is loaded by the worker")

	pending, err := rm.Transcriptions().GetByRecordingID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, pending.Metadata.Status)

	require.NoError(t, p.handleTranscribe(ctx, task))

	done, err := rm.Transcriptions().GetByRecordingID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "queued text", done.Content)
	assert.Equal(t, models.StatusCompleted, done.Metadata.Status)
}

func TestAsynqDispatcher_UnpersistedRunsLocally(t *testing.T) {
	q := &fakeEnqueuer{}
	p, _, _ := setup(t, ok("local"), NewAsynqDispatcher(q, ""))

	e, err := p.Process(context.Background(), "ghost", sample())
	require.NoError(t, err)
	p.Wait()

	assert.Empty(t, q.tasks)
	got, _ := p.Log().Get(e.ID)
	assert.Equal(t, "local", got.Transcript)
}

func TestAsynqDispatcher_EnqueueErrorFallsBack(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis down")}
	p, _, uid := setup(t, ok("fallback"), NewAsynqDispatcher(q, ""))

	e, err := p.Process(context.Background(), uid, sample())
	require.NoError(t, err)
	p.Wait()

	got, _ := p.Log().Get(e.ID)
	assert.Equal(t, "fallback", got.Transcript)
}

func TestHandleTranscribe_BadPayloadSkipsRetry(t *testing.T) {
	p, _, _ := setup(t, ok("x"), nil)
	err := p.handleTranscribe(context.Background(), asynq.NewTask(TranscribeTask, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleTranscribe_MissingRecordingIsDropped(t *testing.T) {
	p, _, _ := setup(t, ok("x"), nil)
	payload, _ := json.Marshal(Job{RecordingID: "gone", Persisted: true})
	assert.NoError(t, p.handleTranscribe(context.Background(), asynq.NewTask(TranscribeTask, payload)))
}

func TestHandleTranscribe_LoadsExternalAudio(t *testing.T) {
	ctx := context.Background()
	var got []byte
	tr := transcribe.Func(func(_ context.Context, audio []byte, _ string) transcribe.Result {
		got = audio
		return transcribe.Result{Text: "ok"}
	})
	p, rm, uid := setup(t, tr, nil)
	p.loadAudio = func(context.Context, *models.Recording) ([]byte, error) { return []byte("from-blob"), nil }

	_, err := rm.Recordings().Create(ctx, &models.Recording{ID: "r1", UserID: uid, Filename: "f.webm", FilePath: "r1.webm", RecordedAt: time.Now()})
	require.NoError(t, err)
	_, err = rm.Transcriptions().Create(ctx, &models.Transcription{RecordingID: "r1", Content: models.PendingTranscript})
	require.NoError(t, err)

	payload, _ := json.Marshal(Job{RecordingID: "r1", Persisted: true})
	require.NoError(t, p.handleTranscribe(ctx, asynq.NewTask(TranscribeTask, payload)))
	assert.Equal(t, []byte("from-blob"), got)

	tr2, err := rm.Transcriptions().GetByRecordingID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tr2.Metadata.Status)
}
