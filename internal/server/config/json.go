package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/captainslog/internal/flagx"
	"github.com/dmitrijs2005/captainslog/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// either "168h" style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	GRPCAddr           string         `json:"grpc_addr"`
	DatabaseURL        string         `json:"database_url"`
	SecretKey          string         `json:"secret_key"`
	SessionDuration    timex.Duration `json:"session_duration"`
	ResetTokenDuration timex.Duration `json:"reset_token_duration"`
	StaticDir          string         `json:"static_dir"`
	MaxUploadBytes     int64          `json:"max_upload_bytes"`

	StorageBackend string `json:"storage_backend"`
	StoragePath    string `json:"storage_path"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3Endpoint     string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`

	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	RedisAddr         string `json:"redis_addr"`
	RedisPassword     string `json:"redis_password"`
	QueueName         string `json:"queue_name"`
	WorkerConcurrency int64  `json:"worker_concurrency"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// parseJson overlays the file named by -c/-config. Absent keys keep their
// current value.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseURL, c.DatabaseURL)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionDuration.Duration > 0 {
		config.SessionDuration = c.SessionDuration.Duration
	}
	if c.ResetTokenDuration.Duration > 0 {
		config.ResetTokenDuration = c.ResetTokenDuration.Duration
	}
	setString(&config.StaticDir, c.StaticDir)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}

	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StoragePath, c.StoragePath)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)

	setString(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	setString(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	setString(&config.OpenAIModel, c.OpenAIModel)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.QueueName, c.QueueName)
	if c.WorkerConcurrency > 0 {
		config.WorkerConcurrency = c.WorkerConcurrency
	}

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
