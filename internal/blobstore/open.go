package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is "fs" (default), "s3" or "minio".
	Backend   string
	Path      string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "fs", "file", "local":
		return NewFSStore(cfg.Path)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			PathStyle: cfg.Endpoint != "",
		})
	case "minio":
		host, secure, err := splitEndpoint(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		s, err := NewMinioStore(MinioConfig{
			Endpoint:  host,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    secure,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// splitEndpoint accepts "host:port" or a URL; https means TLS.
func splitEndpoint(ep string) (string, bool, error) {
	if !strings.Contains(ep, "://") {
		return ep, false, nil
	}
	u, err := url.Parse(ep)
	if err != nil {
		return "", false, fmt.Errorf("storage endpoint: %w", err)
	}
	return u.Host, u.Scheme == "https", nil
}
