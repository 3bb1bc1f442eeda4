package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/blobstore"
	"github.com/dmitrijs2005/captainslog/internal/capture"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/logging"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/pipeline"
	"github.com/dmitrijs2005/captainslog/internal/server/repositories/repomanager"
)

// ErrNotSupported is returned when the storage backend lacks a feature.
var ErrNotSupported = errors.New("not supported by storage backend")

// RecordingSummary is a recording with the state of its transcription.
type RecordingSummary struct {
	*models.Recording
	Status     models.TranscriptionStatus `json:"status"`
	Transcript string                     `json:"transcript"`
	Duration   string                     `json:"duration"`
}

// UploadResult describes a stored audio file.
type UploadResult struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

type RecordingService struct {
	repos    repomanager.RepositoryManager
	blobs    blobstore.Store
	pipeline *pipeline.Pipeline
	log      logging.Logger
}

func NewRecordingService(repos repomanager.RepositoryManager, blobs blobstore.Store, p *pipeline.Pipeline, log logging.Logger) *RecordingService {
	return &RecordingService{repos: repos, blobs: blobs, pipeline: p, log: log}
}

// LoadAudio reads audio that lives in the blob store. It is meant as the
// pipeline's AudioLoader.
func LoadAudio(blobs blobstore.Store) pipeline.AudioLoader {
	return func(ctx context.Context, rec *models.Recording) ([]byte, error) {
		return blobstore.ReadAll(ctx, blobs, blobstore.RecordingKey(rec.ID))
	}
}

// owned returns the recording when it belongs to userID; anything else is
// reported as not found.
func (s *RecordingService) owned(ctx context.Context, userID, id string) (*models.Recording, error) {
	rec, err := s.repos.Recordings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("recording %s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

func (s *RecordingService) List(ctx context.Context, userID string) ([]RecordingSummary, error) {
	recs, err := s.repos.Recordings().GetByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]RecordingSummary, 0, len(recs))
	for _, rec := range recs {
		tr, err := s.repos.Transcriptions().GetByRecordingID(ctx, rec.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		e := journal.EntryFrom(rec, tr)
		out = append(out, RecordingSummary{
			Recording:  rec,
			Status:     e.Status,
			Transcript: e.Transcript,
			Duration:   e.Duration(),
		})
	}
	return out, nil
}

// Create runs the recording pipeline for uploaded audio. The transcription
// completes in the background.
func (s *RecordingService) Create(ctx context.Context, userID, id string, audio []byte, durationMs int64) (journal.Entry, error) {
	if durationMs < 0 {
		return journal.Entry{}, fmt.Errorf("%w: negative duration", common.ErrValidation)
	}
	c := capture.FromBytes(audio, time.Now(), time.Duration(durationMs)*time.Millisecond)
	return s.pipeline.ProcessWithID(ctx, id, userID, c)
}

func (s *RecordingService) Get(ctx context.Context, userID, id string) (*models.Recording, error) {
	return s.owned(ctx, userID, id)
}

func (s *RecordingService) Transcription(ctx context.Context, userID, id string) (*models.Transcription, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repos.Transcriptions().GetByRecordingID(ctx, id)
}

// Delete removes the stored audio and the recording with everything that
// hangs off it.
func (s *RecordingService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	s.deleteBlob(ctx, id)
	return s.repos.Recordings().Delete(ctx, id)
}

// PurgeUser deletes the stored audio of every recording a user owns. Rows go
// with the user through the cascade.
func (s *RecordingService) PurgeUser(ctx context.Context, userID string) error {
	recs, err := s.repos.Recordings().GetByOwner(ctx, userID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		s.deleteBlob(ctx, rec.ID)
	}
	return nil
}

func (s *RecordingService) deleteBlob(ctx context.Context, id string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, blobstore.RecordingKey(id)); err != nil {
		s.log.Warn(ctx, "failed to delete audio blob", "recording_id", id, "error", err)
	}
}

// Upload stores audio for id as <id>.webm and, when the recording exists,
// points its file_path at the stored object. Audio of an existing recording
// is only accepted from its owner; userID is empty for anonymous callers.
func (s *RecordingService) Upload(ctx context.Context, userID, id string, r io.Reader, size int64) (*UploadResult, error) {
	rec, err := s.repos.Recordings().GetByID(ctx, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return nil, err
	case userID == "":
		return nil, fmt.Errorf("recording %s: %w", id, common.ErrUnauthorized)
	case rec.UserID != userID:
		return nil, fmt.Errorf("recording %s: %w", id, common.ErrNotFound)
	}

	key := blobstore.RecordingKey(id)
	loc, err := s.blobs.Put(ctx, key, r, size, common.AudioContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	if rec == nil {
		return &UploadResult{FilePath: loc, FileName: key, Size: size}, nil
	}
	err = s.repos.Recordings().Update(ctx, id, models.RecordingUpdate{FilePath: &loc})
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		s.log.Warn(ctx, "failed to record file path", "recording_id", id, "error", err)
	}

	return &UploadResult{FilePath: loc, FileName: key, Size: size}, nil
}

// OpenAudio returns a recording's audio, from the blob store first and the
// inline payload second.
func (s *RecordingService) OpenAudio(ctx context.Context, id string) (*blobstore.Object, error) {
	if s.blobs != nil {
		obj, err := s.blobs.Get(ctx, blobstore.RecordingKey(id))
		if err == nil {
			return obj, nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "blob read failed, trying inline audio", "recording_id", id, "error", err)
		}
	}

	rec, err := s.repos.Recordings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.HasAudio() {
		return nil, fmt.Errorf("audio of %s: %w", id, common.ErrNotFound)
	}
	return &blobstore.Object{
		Body:        io.NopCloser(bytes.NewReader(rec.AudioData)),
		Size:        int64(len(rec.AudioData)),
		ContentType: common.AudioContentType,
	}, nil
}

// AudioURL presigns a direct download link for id.
func (s *RecordingService) AudioURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	p, ok := s.blobs.(blobstore.Presigner)
	if !ok {
		return "", ErrNotSupported
	}
	return p.PresignGet(ctx, blobstore.RecordingKey(id), ttl)
}

func (s *RecordingService) Tag(ctx context.Context, userID, id, name string) (*models.Tag, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repos.Tags().TagRecording(ctx, id, name)
}

func (s *RecordingService) Untag(ctx context.Context, userID, id, name string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repos.Tags().UntagRecording(ctx, id, name)
}

func (s *RecordingService) Tags(ctx context.Context, userID, id string) ([]*models.Tag, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.repos.Tags().GetByRecording(ctx, id)
}

func (s *RecordingService) ByTag(ctx context.Context, userID, name string) ([]*models.Recording, error) {
	return s.repos.Tags().GetRecordingsByTag(ctx, userID, name)
}

// Search never fails on an empty match; it returns an empty slice.
func (s *RecordingService) Search(ctx context.Context, userID, query string) ([]*models.SearchResult, error) {
	return s.repos.Transcriptions().Search(ctx, userID, query)
}
