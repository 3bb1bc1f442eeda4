// Package metadata is the journal CLI's key/value store for local state:
// the current session, the session signing secret and the transcription
// API key.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySession = "session"
	KeyAPIKey  = "openai_api_key"
	KeySecret  = "jwt_secret"
)

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
