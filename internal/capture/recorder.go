package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

const defaultChunkSize = 32 * 1024

// Recorder accumulates chunks from a source between Start and Stop.
// Duration is the wall-clock time between the two calls.
type Recorder struct {
	mu        sync.Mutex
	now       func() time.Time
	chunkSize int

	stream  Stream
	started time.Time
	done    chan struct{}
	chunks  [][]byte
	readErr error
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now, chunkSize: defaultChunkSize}
}

// WithClock replaces the wall clock.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Start opens the source and begins collecting chunks in the background.
func (r *Recorder) Start(ctx context.Context, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return ErrAlreadyRecording
	}
	stream, err := src.Open(ctx)
	if err != nil {
		return err
	}

	r.stream = stream
	r.started = r.now()
	r.chunks = nil
	r.readErr = nil
	r.done = make(chan struct{})

	go r.collect(stream, r.done)
	return nil
}

func (r *Recorder) collect(stream Stream, done chan struct{}) {
	defer close(done)
	for {
		buf := make([]byte, r.chunkSize)
		n, err := stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.chunks = append(r.chunks, buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.mu.Lock()
				r.readErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop ends the recording and returns what was captured. A capture with no
// audio yields ErrEmptyCapture joined with any source error.
func (r *Recorder) Stop() (Capture, error) {
	r.mu.Lock()
	stream, done, started := r.stream, r.done, r.started
	if stream == nil {
		r.mu.Unlock()
		return Capture{}, ErrNotRecording
	}
	stopped := r.now()
	r.mu.Unlock()

	stopErr := stream.Stop()
	<-done
	_ = stream.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	c := Capture{Chunks: r.chunks, StartedAt: started, Duration: stopped.Sub(started)}
	readErr := r.readErr
	r.stream, r.done, r.chunks, r.readErr = nil, nil, nil, nil

	if c.Empty() {
		if err := errors.Join(readErr, stopErr); err != nil {
			return Capture{}, errors.Join(ErrEmptyCapture, err)
		}
		return Capture{}, ErrEmptyCapture
	}
	// A read error after some audio arrived keeps the partial capture.
	return c, nil
}
