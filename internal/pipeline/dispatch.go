package pipeline

import (
	"context"
	"sync"
)

// Job is the unit of transcription work.
type Job struct {
	RecordingID string `json:"recording_id"`
	UserID      string `json:"user_id"`
	Filename    string `json:"file_name"`
	Audio       []byte `json:"-"`
	// Persisted says whether the recording row exists.
	Persisted bool `json:"persisted"`
}

// Runner executes a job in the current goroutine.
type Runner func(ctx context.Context, job Job)

// Dispatcher schedules run for job. It must not block on the transcription.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job, run Runner) error
}

// GoDispatcher runs each job on its own goroutine.
type GoDispatcher struct {
	wg sync.WaitGroup
}

func NewGoDispatcher() *GoDispatcher { return &GoDispatcher{} }

func (d *GoDispatcher) Dispatch(ctx context.Context, job Job, run Runner) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		run(ctx, job)
	}()
	return nil
}

func (d *GoDispatcher) Wait() { d.wg.Wait() }

// InlineDispatcher runs the job before returning.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(ctx context.Context, job Job, run Runner) error {
	run(ctx, job)
	return nil
}
