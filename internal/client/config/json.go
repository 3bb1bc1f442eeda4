package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/captainslog/internal/flagx"
	"github.com/dmitrijs2005/captainslog/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	DataDir        string         `json:"data_dir"`
	DatabaseURL    string         `json:"database_url"`
	OpenAIAPIKey   string         `json:"openai_api_key"`
	OpenAIBaseURL  string         `json:"openai_base_url"`
	OpenAIModel    string         `json:"openai_model"`
	FFmpegPath     string         `json:"ffmpeg_path"`
	InputFormat    string         `json:"input_format"`
	InputDevice    string         `json:"input_device"`
	SearchDebounce timex.Duration `json:"search_debounce"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays Config with the file named by -c/--config. Keys that
// are absent or empty keep their current value.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabaseURL, jc.DatabaseURL)
	setString(&cfg.OpenAIAPIKey, jc.OpenAIAPIKey)
	setString(&cfg.OpenAIBaseURL, jc.OpenAIBaseURL)
	setString(&cfg.OpenAIModel, jc.OpenAIModel)
	setString(&cfg.FFmpegPath, jc.FFmpegPath)
	setString(&cfg.InputFormat, jc.InputFormat)
	setString(&cfg.InputDevice, jc.InputDevice)
	if jc.SearchDebounce.Duration > 0 {
		cfg.SearchDebounce = jc.SearchDebounce.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
