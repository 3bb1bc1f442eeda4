package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/common"
)

// Config holds runtime settings for the journal CLI.
//
// Fields:
//   - DataDir: directory of the local state database and, by default, the
//     journal database.
//   - DatabaseURL: where recordings live; empty means SQLite inside DataDir.
//     A postgres:// URL shares the server's database.
//   - OpenAI*: transcription endpoint. The API key may also be stored with
//     the "apikey" command.
//   - FFmpegPath, InputFormat, InputDevice: microphone capture.
//   - SearchDebounce: quiescence before an interactive search runs.
type Config struct {
	DataDir        string
	DatabaseURL    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	FFmpegPath     string
	InputFormat    string
	InputDevice    string
	SearchDebounce time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.OpenAIBaseURL = "https://api.openai.com"
	c.OpenAIModel = "whisper-1"
	c.FFmpegPath = "ffmpeg"
	c.SearchDebounce = common.SearchDebounce
	c.LogLevel = "warn"
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "captainslog")
	}
	return ".captainslog"
}

// LoadConfig builds a Config from defaults, the environment and the JSON
// file named in args. Flags are applied later by the caller.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LocalStatePath is the SQLite file with session, settings and log cache.
func (c *Config) LocalStatePath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// JournalURL is the database holding users, recordings and transcriptions.
func (c *Config) JournalURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "sqlite://" + filepath.Join(c.DataDir, "journal.db")
}
