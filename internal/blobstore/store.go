// Package blobstore keeps recording audio outside the database: on local
// disk, in S3 or in MinIO.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Object is an opened blob. The caller closes Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

type Store interface {
	// Put writes r under key and returns where it was stored.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Get returns common.ErrNotFound when key does not exist.
	Get(ctx context.Context, key string) (*Object, error)
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out direct download
// links.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DefaultPresignTTL bounds the lifetime of presigned links.
const DefaultPresignTTL = 15 * time.Minute

// RecordingKey is the object key of a recording's audio.
func RecordingKey(id string) string { return id + ".webm" }

// ReadAll fetches key fully into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	obj, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if k == "" || k != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return k, nil
}
