package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/captainslog/internal/client/config"
	"github.com/spf13/cobra"
)

// runner holds what the commands of one invocation share. In the shell,
// every line gets a fresh command tree over the same open App.
type runner struct {
	cfg  *config.Config
	opts Options
	app  *App
	// shared apps belong to the shell, which closes them itself.
	shared bool
}

// Execute runs the journal command line in args. cfg already holds
// defaults, environment and the JSON file; flags override it. The journal
// is closed afterwards even when the command failed.
func Execute(ctx context.Context, cfg *config.Config, opts Options, args []string) error {
	r := &runner{cfg: cfg, opts: opts.withDefaults()}
	cmd := r.root()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, r.close(context.WithoutCancel(ctx)))
}

func (r *runner) root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Captain's Log voice journal",
		Long: `journal records spoken log entries, transcribes them and keeps them
searchable. Run 'journal shell' for an interactive session.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.open,
	}
	cmd.SetIn(r.opts.In)
	cmd.SetOut(r.opts.Out)
	cmd.SetErr(r.opts.Err)

	// -c/--config is applied by config.LoadConfig before cobra parses
	var configFile string
	f := cmd.PersistentFlags()
	f.StringVarP(&configFile, "config", "c", "", "path to JSON config file")
	f.StringVar(&r.cfg.DataDir, "data-dir", r.cfg.DataDir, "directory for local state")
	f.StringVar(&r.cfg.DatabaseURL, "database-url", r.cfg.DatabaseURL, "journal database (default: SQLite in data dir)")
	f.StringVar(&r.cfg.OpenAIBaseURL, "openai-base-url", r.cfg.OpenAIBaseURL, "transcription service base URL")
	f.StringVar(&r.cfg.OpenAIModel, "openai-model", r.cfg.OpenAIModel, "transcription model")
	f.StringVar(&r.cfg.FFmpegPath, "ffmpeg", r.cfg.FFmpegPath, "ffmpeg binary used for microphone capture")
	f.StringVar(&r.cfg.InputFormat, "input-format", r.cfg.InputFormat, "ffmpeg input format (default per OS)")
	f.StringVar(&r.cfg.InputDevice, "input-device", r.cfg.InputDevice, "ffmpeg input device (default per OS)")
	f.StringVar(&r.cfg.LogLevel, "log-level", r.cfg.LogLevel, "debug, info, warn or error")

	cmd.AddCommand(
		r.newRegisterCmd(),
		r.newLoginCmd(),
		r.newLogoutCmd(),
		r.newWhoamiCmd(),
		r.newPasswordResetCmd(),
		r.newRecordCmd(),
		r.newListCmd(),
		r.newShowCmd(),
		r.newSearchCmd(),
		r.newDeleteCmd(),
		r.newExportCmd(),
		r.newTagCmd(),
		r.newUntagCmd(),
		r.newSettingsCmd(),
		r.newAPIKeyCmd(),
		r.newShellCmd(),
	)
	return cmd
}

func (r *runner) open(cmd *cobra.Command, _ []string) error {
	if r.app != nil {
		return nil
	}
	app, err := NewApp(cmd.Context(), r.cfg, r.opts)
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *runner) close(ctx context.Context) error {
	if r.shared || r.app == nil {
		return nil
	}
	err := r.app.Close(ctx)
	r.app = nil
	return err
}
