// Package models defines the entities persisted by the repositories and
// passed between services, the recording pipeline and the HTTP API.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AudioQuality is the capture quality preference stored in user settings.
type AudioQuality string

const (
	AudioQualityLow    AudioQuality = "low"
	AudioQualityMedium AudioQuality = "medium"
	AudioQualityHigh   AudioQuality = "high"
)

// Valid reports whether q is one of the known qualities.
func (q AudioQuality) Valid() bool {
	switch q {
	case AudioQualityLow, AudioQualityMedium, AudioQualityHigh:
		return true
	}
	return false
}

// Bitrate returns the opus bitrate used by the capture sources for q.
func (q AudioQuality) Bitrate() string {
	switch q {
	case AudioQualityLow:
		return "24k"
	case AudioQualityHigh:
		return "96k"
	default:
		return "48k"
	}
}

// Settings are per-user recording preferences, persisted as JSON.
type Settings struct {
	AudioQuality     AudioQuality `json:"audioQuality"`
	SilenceThreshold float64      `json:"silenceThreshold"`
}

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings() Settings {
	return Settings{AudioQuality: AudioQualityMedium, SilenceThreshold: 30}
}

// Validate checks the settings values.
func (s Settings) Validate() error {
	if !s.AudioQuality.Valid() {
		return fmt.Errorf("unknown audio quality %q", s.AudioQuality)
	}
	if s.SilenceThreshold < 0 || s.SilenceThreshold > 100 {
		return fmt.Errorf("silence threshold %v out of range [0,100]", s.SilenceThreshold)
	}
	return nil
}

// MarshalSettings encodes settings for the settings column.
func MarshalSettings(s Settings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalSettings decodes the settings column. Empty input yields defaults.
func UnmarshalSettings(b []byte) (Settings, error) {
	s := DefaultSettings()
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// User is an account. PasswordHash is a bcrypt hash and never leaves the server.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	PasswordHash     string     `json:"-"`
	Settings         Settings   `json:"settings"`
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// UserUpdate is a partial update; nil fields keep their stored value.
// ClearResetToken wipes both reset columns and wins over ResetToken.
type UserUpdate struct {
	Email            *string
	Name             *string
	PasswordHash     *string
	Settings         *Settings
	ResetToken       *string
	ResetTokenExpiry *time.Time
	ClearResetToken  bool
	LastLoginAt      *time.Time
}
