// Package config handles configuration for the server component. Values
// are layered: defaults, then .env files and environment, then an optional
// JSON file (-c/-config), then command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
)

// Config holds runtime settings for the Captain's Log server.
//
// Fields:
//   - HTTPAddr: bind address of the HTTP API and SPA.
//   - GRPCAddr: bind address of the gRPC health endpoint; empty disables it.
//   - DatabaseURL: memory://, sqlite://path or postgres:// DSN.
//   - SecretKey: HMAC secret for session JWTs. Empty means a random key per run.
//   - Storage*: where uploaded audio is kept (fs, s3 or minio).
//   - OpenAI*: transcription service credentials and endpoint.
//   - Redis*: asynq queue for transcriptions; empty address keeps them in process.
type Config struct {
	HTTPAddr           string
	GRPCAddr           string
	DatabaseURL        string
	SecretKey          string
	SessionDuration    time.Duration
	ResetTokenDuration time.Duration
	StaticDir          string
	MaxUploadBytes     int64

	StorageBackend string
	StoragePath    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	RedisAddr         string
	RedisPassword     string
	QueueName         string
	WorkerConcurrency int64

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":3000"
	c.DatabaseURL = "memory://"
	c.SessionDuration = common.SessionDuration
	c.ResetTokenDuration = common.ResetTokenDuration
	c.StaticDir = "./dist"
	c.MaxUploadBytes = 50 << 20
	c.StorageBackend = "fs"
	c.StoragePath = "./uploads"
	c.S3Bucket = "captainslog"
	c.S3Region = "us-east-1"
	c.OpenAIBaseURL = "https://api.openai.com"
	c.OpenAIModel = "whisper-1"
	c.QueueName = "transcriptions"
	c.WorkerConcurrency = 4
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config from defaults, .env files, environment, an
// optional JSON file and finally args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, ".env", ".env.local"); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
