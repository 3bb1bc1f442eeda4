package models

import "time"

// Tag is a global label. Names are unique.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordingTag links a recording to a tag; it has no identity of its own.
type RecordingTag struct {
	RecordingID string `json:"recordingId"`
	TagID       string `json:"tagId"`
}
