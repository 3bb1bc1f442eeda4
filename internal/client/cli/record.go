package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/captainslog/internal/capture"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/spf13/cobra"
)

func (r *runner) newRecordCmd() *cobra.Command {
	var (
		file     string
		stdin    bool
		duration time.Duration
		wait     bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a log entry from the microphone, a file or stdin",
		Long: `record captures audio until Enter is pressed (microphone) or the input
ends (--file, --stdin), stores it and transcribes it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}

			var src capture.Source
			switch {
			case file != "":
				src = capture.FileSource{Path: file}
			case stdin:
				src = capture.ReaderSource{R: a.reader}
			default:
				src = capture.FFmpegSource{
					Binary:  a.cfg.FFmpegPath,
					Format:  a.cfg.InputFormat,
					Device:  a.cfg.InputDevice,
					Quality: a.quality(ctx, userID),
					Stderr:  cmd.ErrOrStderr(),
				}
			}

			live := file == "" && !stdin
			c, err := a.capture(ctx, src, live)
			if err != nil {
				return err
			}
			switch {
			case duration > 0:
				c.Duration = duration
			case !live:
				a.printf("Warning: no --duration given, the entry length is the time spent reading the input\n")
			}

			e, err := a.pipeline.Process(ctx, userID, c)
			if err != nil {
				return err
			}
			if e.StorageFailed {
				a.printf("Warning: the recording could not be saved, it is kept for this session only\n")
			}
			a.printf("Recorded %s (%s), transcribing...\n", e.ID, e.Duration())

			if !wait {
				return nil
			}
			a.pipeline.Wait()
			if done, ok := a.log.Get(e.ID); ok {
				printEntry(a, done)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a WebM/Opus recording from this file")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the recording from stdin")
	cmd.Flags().DurationVar(&duration, "duration", 0, "recording length; needed with --file and --stdin, where read time is not the audio length")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the transcript")
	return cmd
}

// capture runs one recording. Live sources stop when the user presses
// Enter; file sources run to EOF.
func (a *App) capture(ctx context.Context, src capture.Source, live bool) (capture.Capture, error) {
	rec := capture.NewRecorder()
	if err := rec.Start(ctx, src); err != nil {
		return capture.Capture{}, err
	}
	if live {
		a.printf("Recording... press Enter to stop\n")
		_, _ = a.reader.ReadString('\n')
	}
	return rec.Stop()
}

// quality is the user's capture setting, or the default when it cannot be
// loaded.
func (a *App) quality(ctx context.Context, userID string) models.AudioQuality {
	u, err := a.users.GetUser(ctx, userID)
	if err != nil {
		a.logger.Warn(ctx, "using default audio quality", "error", err)
		return models.DefaultSettings().AudioQuality
	}
	return u.Settings.AudioQuality
}

func printEntry(a *App, e journal.Entry) {
	a.printf("%s  %s  %s  [%s]\n", e.ID, e.Date.Local().Format("2006-01-02 15:04"), e.Duration(), e.Status)
	if e.StorageFailed {
		a.printf("  (not saved)\n")
	}
	a.printf("  %s\n", e.Transcript)
}
