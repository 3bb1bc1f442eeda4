// Package config loads runtime configuration for the journal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables (CAPTAINSLOG_DATA_DIR, DATABASE_URL,
//     OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_MODEL, FFMPEG_PATH,
//     AUDIO_INPUT_FORMAT, AUDIO_INPUT_DEVICE, LOG_LEVEL).
//  3. Optional JSON file selected with -c / --config.
//  4. Command-line flags, registered by the cli package on its cobra root
//     command, override everything else.
//
// # JSON schema
//
//	{
//	  "data_dir": "/home/me/.config/captainslog",
//	  "database_url": "sqlite:///home/me/.config/captainslog/journal.db",
//	  "openai_base_url": "https://api.openai.com",
//	  "openai_model": "whisper-1",
//	  "ffmpeg_path": "ffmpeg",
//	  "search_debounce": "300ms",
//	  "log_level": "warn"
//	}
package config
