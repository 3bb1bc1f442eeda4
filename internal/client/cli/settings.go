package cli

import (
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/models"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/spf13/cobra"
)

func (r *runner) newSettingsCmd() *cobra.Command {
	var (
		quality string
		silence float64
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change recording settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			u, err := a.users.GetUser(ctx, userID)
			if err != nil {
				return err
			}

			s := u.Settings
			changed := false
			if cmd.Flags().Changed("quality") {
				s.AudioQuality = models.AudioQuality(strings.ToLower(quality))
				changed = true
			}
			if cmd.Flags().Changed("silence") {
				s.SilenceThreshold = silence
				changed = true
			}
			if changed {
				if u, err = a.users.UpdateProfile(ctx, userID, services.ProfileUpdate{Settings: &s}); err != nil {
					return err
				}
				a.printf("Settings saved\n")
			}

			a.printf("Audio quality:     %s (%s)\n", u.Settings.AudioQuality, u.Settings.AudioQuality.Bitrate())
			a.printf("Silence threshold: %g\n", u.Settings.SilenceThreshold)
			return nil
		},
	}
	cmd.Flags().StringVar(&quality, "quality", "", "audio quality: low, medium or high")
	cmd.Flags().Float64Var(&silence, "silence", 0, "silence threshold, 0 to 100")
	return cmd
}

// newAPIKeyCmd stores the transcription API key in local state. Without an
// argument the key is read without echo.
func (r *runner) newAPIKeyCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "apikey [key]",
		Short: "Store or clear the OpenAI API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			if remove {
				if err := a.local.Metadata.Delete(ctx, metadata.KeyAPIKey); err != nil {
					return err
				}
				a.printf("API key removed\n")
				return nil
			}

			var key []byte
			if len(args) == 1 {
				key = []byte(args[0])
			} else {
				var err error
				if key, err = GetPassword(a.reader, a.fd, "Enter API key", a.out); err != nil {
					return err
				}
			}
			defer common.WipeByteArray(key)

			trimmed := strings.TrimSpace(string(key))
			if trimmed == "" {
				return common.ErrValidation
			}
			if err := a.local.Metadata.Set(ctx, metadata.KeyAPIKey, []byte(trimmed)); err != nil {
				return err
			}
			a.printf("API key saved (%s)\n", maskKey(trimmed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "clear", false, "remove the stored key")
	return cmd
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:3] + strings.Repeat("*", len(k)-7) + k[len(k)-4:]
}
