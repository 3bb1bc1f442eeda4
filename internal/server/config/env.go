package config

import (
	"os"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/envx"
)

// parseEnv loads dotenv files and overlays environment variables. PORT is
// honored for hosting platforms that only set a port number.
func parseEnv(c *Config, files ...string) error {
	if err := envx.Load(files...); err != nil {
		return err
	}

	if port := os.Getenv("PORT"); port != "" {
		c.HTTPAddr = ":" + strings.TrimPrefix(port, ":")
	}
	envx.String(&c.HTTPAddr, "HTTP_ADDR")
	envx.String(&c.GRPCAddr, "GRPC_ADDR")
	envx.String(&c.DatabaseURL, "DATABASE_URL")
	envx.String(&c.SecretKey, "JWT_SECRET")
	envx.Duration(&c.SessionDuration, "SESSION_DURATION")
	envx.Duration(&c.ResetTokenDuration, "RESET_TOKEN_DURATION")
	envx.String(&c.StaticDir, "STATIC_DIR")
	envx.Int64(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES")

	envx.String(&c.StorageBackend, "STORAGE_BACKEND")
	envx.String(&c.StoragePath, "STORAGE_PATH")
	envx.String(&c.S3Bucket, "S3_BUCKET")
	envx.String(&c.S3Region, "S3_REGION")
	envx.String(&c.S3Endpoint, "S3_ENDPOINT")
	envx.String(&c.S3AccessKey, "S3_ACCESS_KEY")
	envx.String(&c.S3SecretKey, "S3_SECRET_KEY")

	envx.String(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	envx.String(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	envx.String(&c.OpenAIModel, "OPENAI_MODEL")

	envx.String(&c.RedisAddr, "REDIS_ADDR")
	envx.String(&c.RedisPassword, "REDIS_PASSWORD")
	envx.String(&c.QueueName, "QUEUE_NAME")
	envx.Int64(&c.WorkerConcurrency, "WORKER_CONCURRENCY")

	envx.String(&c.LogLevel, "LOG_LEVEL")
	envx.String(&c.LogFormat, "LOG_FORMAT")
	return nil
}
