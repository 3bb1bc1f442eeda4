package models

import (
	"encoding/json"
	"time"
)

// TranscriptionStatus is the lifecycle state of a transcription row.
type TranscriptionStatus string

const (
	StatusPending   TranscriptionStatus = "pending"
	StatusCompleted TranscriptionStatus = "completed"
	StatusError     TranscriptionStatus = "error"
)

// PendingTranscript is the placeholder content of a pending transcription.
const PendingTranscript = "Transcription in progress..."

// TranscriptionMetadata is stored as JSON next to the content.
type TranscriptionMetadata struct {
	Status           TranscriptionStatus `json:"status"`
	Model            string              `json:"model,omitempty"`
	Message          string              `json:"message,omitempty"`
	ProcessingTimeMs int64               `json:"processingTimeMs,omitempty"`
	Language         string              `json:"language,omitempty"`
	Extra            map[string]any      `json:"extra,omitempty"`
}

// Transcription is the text derived from a recording.
type Transcription struct {
	ID          string                `json:"id"`
	RecordingID string                `json:"recordingId"`
	Content     string                `json:"content"`
	Metadata    TranscriptionMetadata `json:"metadata"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// TranscriptionUpdate is a partial update; nil fields keep their stored value.
type TranscriptionUpdate struct {
	Content  *string
	Metadata *TranscriptionMetadata
}

// MarshalMetadata encodes metadata for the metadata column.
func MarshalMetadata(m TranscriptionMetadata) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalMetadata decodes the metadata column. Empty input means pending.
func UnmarshalMetadata(b []byte) (TranscriptionMetadata, error) {
	m := TranscriptionMetadata{Status: StatusPending}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return TranscriptionMetadata{}, err
	}
	return m, nil
}

// SearchResult is a transcription joined with its parent recording.
type SearchResult struct {
	Transcription
	UserID     string    `json:"userId"`
	Filename   string    `json:"filename"`
	DurationMs int64     `json:"durationMs"`
	RecordedAt time.Time `json:"recordedAt"`
}
