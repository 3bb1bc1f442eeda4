// Package capture records audio from a chunked source until stopped.
package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrEmptyCapture     = errors.New("no audio captured")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Stream produces audio bytes. Stop asks the producer to finish; reads
// then drain what is left and return io.EOF.
type Stream interface {
	io.ReadCloser
	Stop() error
}

// Source opens a new audio stream for one recording.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Capture is a finished recording before it is assembled into a file.
type Capture struct {
	Chunks    [][]byte
	StartedAt time.Time
	Duration  time.Duration
}

// Assemble concatenates the chunks in arrival order.
func (c Capture) Assemble() []byte {
	return bytes.Join(c.Chunks, nil)
}

func (c Capture) Size() int {
	n := 0
	for _, ch := range c.Chunks {
		n += len(ch)
	}
	return n
}

func (c Capture) Empty() bool { return c.Size() == 0 }

// FromBytes wraps already captured audio.
func FromBytes(audio []byte, startedAt time.Time, d time.Duration) Capture {
	return Capture{Chunks: [][]byte{audio}, StartedAt: startedAt, Duration: d}
}
