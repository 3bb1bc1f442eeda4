// Package transcribe turns recorded audio into text through a hosted
// speech-to-text service.
package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
)

// FailureKind classifies why a transcription did not complete.
type FailureKind string

const (
	FailureNone               FailureKind = "none"
	FailureMissingCredentials FailureKind = "missing_credentials"
	FailureTransport          FailureKind = "transport"
	FailureService            FailureKind = "service"
)

const (
	MissingKeyText = "Transcription unavailable - Please add your OpenAI API key in Settings."
	FailedText     = "Transcription failed. This is a placeholder text until the actual transcription can be processed."
)

var ErrMissingAPIKey = errors.New("API key not configured")

// Result is the outcome of one transcription attempt. On failure Text holds
// a placeholder suitable for display and Err describes the cause.
type Result struct {
	Text     string
	Metadata models.TranscriptionMetadata
	Err      error
	Kind     FailureKind
}

// OK reports whether the transcription succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Client transcribes a single audio payload. Implementations never retry.
type Client interface {
	Transcribe(ctx context.Context, audio []byte, filename string) Result
}

// Func adapts a function to Client.
type Func func(ctx context.Context, audio []byte, filename string) Result

func (f Func) Transcribe(ctx context.Context, audio []byte, filename string) Result {
	return f(ctx, audio, filename)
}

// Failed builds an error result with the standard placeholder text.
func Failed(kind FailureKind, model string, err error) Result {
	text := FailedText
	if kind == FailureMissingCredentials {
		text = MissingKeyText
	}
	return Result{
		Text: text,
		Err:  fmt.Errorf("%w: %w", common.ErrTranscriptionFailure, err),
		Kind: kind,
		Metadata: models.TranscriptionMetadata{
			Status:  models.StatusError,
			Model:   model,
			Message: err.Error(),
		},
	}
}
