package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/captainslog/internal/flagx"
)

// parseFlags overlays command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (":3000")
//	-g string     gRPC health bind address, empty disables
//	-d string     database URL
//	-s string     JWT secret
//	-t duration   session lifetime ("168h")
//	-f string     storage path for uploaded audio
//	-k string     OpenAI API key
//	-r string     Redis address for the transcription queue
//	-w string     static directory served as the SPA
//	-l string     log level
//
// args are filtered with flagx.FilterArgs first so unrelated flags do not
// cause parse errors.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-f", "-k", "-r", "-w", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address")
	fs.StringVar(&config.DatabaseURL, "d", config.DatabaseURL, "database URL")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionDuration, "t", config.SessionDuration, "session duration")
	fs.StringVar(&config.StoragePath, "f", config.StoragePath, "audio storage path")
	fs.StringVar(&config.OpenAIAPIKey, "k", config.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.StaticDir, "w", config.StaticDir, "static files directory")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
