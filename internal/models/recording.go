package models

import (
	"fmt"
	"strings"
	"time"
)

// Recording is a captured audio note. The payload lives either inline in
// AudioData or in a blob store under FilePath.
type Recording struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Filename   string    `json:"filename"`
	DurationMs int64     `json:"durationMs"`
	AudioData  []byte    `json:"-"`
	FilePath   string    `json:"filePath,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasAudio reports whether the recording can be played back.
func (r *Recording) HasAudio() bool {
	return len(r.AudioData) > 0 || r.FilePath != ""
}

// RecordingUpdate is a partial update; nil fields keep their stored value.
type RecordingUpdate struct {
	Filename   *string
	DurationMs *int64
	AudioData  []byte
	FilePath   *string
}

// FormatDuration renders milliseconds as HH:MM:SS.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// RecordingFilename builds the conventional file name for a capture taken at t.
func RecordingFilename(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return "recording-" + strings.NewReplacer(":", "-", ".", "-").Replace(ts) + ".webm"
}
