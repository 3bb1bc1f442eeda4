// Package pipeline turns a finished capture into a stored recording and a
// transcription. Process returns as soon as the entry is visible; the
// transcription runs later through a Dispatcher.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/capture"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/dbx"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/captainslog/internal/transcribe"
	"github.com/google/uuid"
)

// FallbackText replaces the transcript when transcription crashed.
const FallbackText = "Transcription failed. The audio was recorded successfully and can still be played back."

// AudioLoader fetches audio for a recording whose payload is not inline.
type AudioLoader func(ctx context.Context, rec *models.Recording) ([]byte, error)

type Config struct {
	Repos       repomanager.RepositoryManager
	Transcriber transcribe.Client
	// Log receives entries; a new empty log is used when nil.
	Log        *journal.Log
	Dispatcher Dispatcher
	Logger     logging.Logger
	// OnChange is called after an entry got its final transcript.
	OnChange func(journal.Entry)
	// LoadAudio is used by the queue worker when audio is not stored inline.
	LoadAudio AudioLoader
}

type Pipeline struct {
	repos       repomanager.RepositoryManager
	transcriber transcribe.Client
	log         *journal.Log
	dispatcher  Dispatcher
	fallback    *GoDispatcher
	logger      logging.Logger
	onChange    func(journal.Entry)
	loadAudio   AudioLoader

	now   func() time.Time
	newID func() string
}

func New(cfg Config) *Pipeline {
	p := &Pipeline{
		repos:       cfg.Repos,
		transcriber: cfg.Transcriber,
		log:         cfg.Log,
		dispatcher:  cfg.Dispatcher,
		fallback:    NewGoDispatcher(),
		logger:      cfg.Logger,
		onChange:    cfg.OnChange,
		loadAudio:   cfg.LoadAudio,
		now:         dbx.Now,
		newID:       uuid.NewString,
	}
	if p.log == nil {
		p.log = journal.NewLog()
	}
	if p.dispatcher == nil {
		p.dispatcher = p.fallback
	}
	if p.logger == nil {
		p.logger = logging.Nop()
	}
	return p
}

// Log is the list the pipeline writes to.
func (p *Pipeline) Log() *journal.Log { return p.log }

// Process stores c for userID under a fresh id.
func (p *Pipeline) Process(ctx context.Context, userID string, c capture.Capture) (journal.Entry, error) {
	return p.ProcessWithID(ctx, "", userID, c)
}

// ProcessWithID is Process with a caller-chosen recording id; an empty id
// gets a new uuid.
//
// Only an empty capture is an error. A failed save is logged, flagged on the
// entry and the transcription still runs.
func (p *Pipeline) ProcessWithID(ctx context.Context, id, userID string, c capture.Capture) (journal.Entry, error) {
	if c.Empty() {
		return journal.Entry{}, fmt.Errorf("%w: %w", common.ErrValidation, capture.ErrEmptyCapture)
	}
	if id == "" {
		id = p.newID()
	}

	audio := c.Assemble()
	recordedAt := p.now()
	filename := models.RecordingFilename(recordedAt)

	entry := journal.Entry{
		ID:         id,
		Date:       recordedAt,
		DurationMs: c.Duration.Milliseconds(),
		Transcript: models.PendingTranscript,
		Status:     models.StatusPending,
		HasAudio:   true,
	}
	p.log.Add(entry)

	log := p.logger.With("recording_id", id, "user_id", userID)

	persisted := true
	if err := p.persist(ctx, entry, userID, filename, audio); err != nil {
		persisted = false
		log.Error(ctx, "failed to save recording", "error", err)
		entry.StorageFailed = true
		p.log.Update(id, func(e *journal.Entry) { e.StorageFailed = true })
	}

	job := Job{
		RecordingID: id,
		UserID:      userID,
		Filename:    filename,
		Audio:       audio,
		Persisted:   persisted,
	}
	bg := context.WithoutCancel(ctx)
	if err := p.dispatcher.Dispatch(bg, job, p.Transcribe); err != nil {
		log.Warn(ctx, "dispatch failed, transcribing in process", "error", err)
		_ = p.fallback.Dispatch(bg, job, p.Transcribe)
	}

	log.Info(ctx, "recording captured", "bytes", len(audio), "duration_ms", entry.DurationMs)
	return entry, nil
}

func (p *Pipeline) persist(ctx context.Context, e journal.Entry, userID, filename string, audio []byte) error {
	return p.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repos) error {
		if _, err := r.Recordings.Create(ctx, &models.Recording{
			ID:         e.ID,
			UserID:     userID,
			Filename:   filename,
			DurationMs: e.DurationMs,
			AudioData:  audio,
			RecordedAt: e.Date,
		}); err != nil {
			return fmt.Errorf("create recording: %w", err)
		}
		if _, err := r.Transcriptions.Create(ctx, &models.Transcription{
			RecordingID: e.ID,
			Content:     models.PendingTranscript,
			Metadata:    models.TranscriptionMetadata{Status: models.StatusPending},
		}); err != nil {
			return fmt.Errorf("create transcription: %w", err)
		}
		return nil
	})
}

// Transcribe runs the transcription for job exactly once and records the
// outcome. It never fails: errors and panics become an error status. The
// recording itself is never removed.
func (p *Pipeline) Transcribe(ctx context.Context, job Job) {
	log := p.logger.With("recording_id", job.RecordingID)

	res := p.transcribeOnce(ctx, job)
	if res.Err != nil {
		log.Warn(ctx, "transcription failed", "kind", string(res.Kind), "error", res.Err)
	}

	if job.Persisted {
		upd := models.TranscriptionUpdate{Content: &res.Text, Metadata: &res.Metadata}
		if err := p.repos.Transcriptions().UpdateByRecordingID(ctx, job.RecordingID, upd); err != nil {
			log.Error(ctx, "failed to save transcription", "error", err)
		}
	}

	var final journal.Entry
	found := p.log.Update(job.RecordingID, func(e *journal.Entry) {
		e.Transcript = res.Text
		e.Status = res.Metadata.Status
		final = *e
	})
	if found && p.onChange != nil {
		p.onChange(final)
	}
}

func (p *Pipeline) transcribeOnce(ctx context.Context, job Job) (res transcribe.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = crashed(fmt.Errorf("transcriber panic: %v", r))
		}
	}()
	if p.transcriber == nil {
		return crashed(errors.New("no transcriber configured"))
	}
	res = p.transcriber.Transcribe(ctx, job.Audio, job.Filename)
	if res.Err != nil && res.Metadata.Status != models.StatusError {
		res.Metadata.Status = models.StatusError
		if res.Metadata.Message == "" {
			res.Metadata.Message = res.Err.Error()
		}
	}
	if res.Err != nil && res.Text == "" {
		res.Text = transcribe.FailedText
	}
	if res.Err == nil && res.Metadata.Status == "" {
		res.Metadata.Status = models.StatusCompleted
	}
	return res
}

func crashed(err error) transcribe.Result {
	return transcribe.Result{
		Text: FallbackText,
		Err:  fmt.Errorf("%w: %w", common.ErrTranscriptionFailure, err),
		Kind: transcribe.FailureService,
		Metadata: models.TranscriptionMetadata{
			Status:  models.StatusError,
			Message: err.Error(),
		},
	}
}

// Wait blocks until in-process transcriptions have finished.
func (p *Pipeline) Wait() {
	if w, ok := p.dispatcher.(interface{ Wait() }); ok {
		w.Wait()
	}
	if p.dispatcher != Dispatcher(p.fallback) {
		p.fallback.Wait()
	}
}
