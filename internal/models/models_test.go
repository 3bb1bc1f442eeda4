package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00"},
		{999, "00:00:00"},
		{1500, "00:00:01"},
		{61_000, "00:01:01"},
		{3_723_000, "01:02:03"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.ms), "ms=%d", tt.ms)
	}
}

func TestRecordingFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)
	assert.Equal(t, "recording-2024-03-09T14-05-07-123Z.webm", RecordingFilename(at))
}

func TestSettings_RoundTripAndDefaults(t *testing.T) {
	s, err := UnmarshalSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	s, err = UnmarshalSettings([]byte(`{"audioQuality":"high"}`))
	require.NoError(t, err)
	assert.Equal(t, AudioQualityHigh, s.AudioQuality)
	assert.Equal(t, float64(30), s.SilenceThreshold, "missing fields keep defaults")

	_, err = UnmarshalSettings([]byte(`{`))
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	assert.Error(t, Settings{AudioQuality: "ultra", SilenceThreshold: 10}.Validate())
	assert.Error(t, Settings{AudioQuality: AudioQualityLow, SilenceThreshold: 101}.Validate())
}

func TestMetadata_EmptyIsPending(t *testing.T) {
	m, err := UnmarshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, m.Status)

	m, err = UnmarshalMetadata([]byte(`{"status":"error","message":"boom"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusError, m.Status)
	assert.Equal(t, "boom", m.Message)
}

func TestRecording_HasAudio(t *testing.T) {
	assert.False(t, (&Recording{}).HasAudio())
	assert.True(t, (&Recording{AudioData: []byte{1}}).HasAudio())
	assert.True(t, (&Recording{FilePath: "r1.webm"}).HasAudio())
}
