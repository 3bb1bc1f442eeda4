package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/hibiken/asynq"
)

// TranscribeTask is enqueued for each persisted recording.
const TranscribeTask = "recording:transcribe"

// Enqueuer is the part of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqDispatcher hands persisted jobs to a Redis-backed queue. Jobs whose
// recording could not be saved carry their audio in memory only, so they
// run in process.
type AsynqDispatcher struct {
	client Enqueuer
	queue  string
	local  *GoDispatcher
}

func NewAsynqDispatcher(client Enqueuer, queue string) *AsynqDispatcher {
	return &AsynqDispatcher{client: client, queue: queue, local: NewGoDispatcher()}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, job Job, run Runner) error {
	if !job.Persisted {
		return d.local.Dispatch(ctx, job, run)
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if d.queue != "" {
		opts = append(opts, asynq.Queue(d.queue))
	}
	if _, err := d.client.EnqueueContext(ctx, asynq.NewTask(TranscribeTask, data), opts...); err != nil {
		return fmt.Errorf("enqueue transcribe task: %w", err)
	}
	return nil
}

func (d *AsynqDispatcher) Wait() { d.local.Wait() }

// Handler registers the transcription worker on an asynq mux.
func (p *Pipeline) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TranscribeTask, p.handleTranscribe)
	return mux
}

// handleTranscribe never asks asynq to retry; a failed transcription is
// recorded as an error status instead.
func (p *Pipeline) handleTranscribe(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	rec, err := p.repos.Recordings().GetByID(ctx, job.RecordingID)
	if errors.Is(err, common.ErrNotFound) {
		p.logger.Warn(ctx, "recording gone before transcription", "recording_id", job.RecordingID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load recording %s: %v: %w", job.RecordingID, err, asynq.SkipRetry)
	}

	job.Audio = rec.AudioData
	if len(job.Audio) == 0 && p.loadAudio != nil {
		if job.Audio, err = p.loadAudio(ctx, rec); err != nil {
			p.logger.Error(ctx, "failed to load audio", "recording_id", job.RecordingID, "error", err)
		}
	}
	if job.Filename == "" {
		job.Filename = rec.Filename
	}

	p.Transcribe(ctx, job)
	return nil
}
