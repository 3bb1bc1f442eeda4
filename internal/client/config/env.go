package config

import "github.com/dmitrijs2005/captainslog/internal/envx"

func parseEnv(c *Config) {
	envx.String(&c.DataDir, "CAPTAINSLOG_DATA_DIR")
	envx.String(&c.DatabaseURL, "DATABASE_URL")
	envx.String(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	envx.String(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	envx.String(&c.OpenAIModel, "OPENAI_MODEL")
	envx.String(&c.FFmpegPath, "FFMPEG_PATH")
	envx.String(&c.InputFormat, "AUDIO_INPUT_FORMAT")
	envx.String(&c.InputDevice, "AUDIO_INPUT_DEVICE")
	envx.Duration(&c.SearchDebounce, "SEARCH_DEBOUNCE")
	envx.String(&c.LogLevel, "LOG_LEVEL")
}
