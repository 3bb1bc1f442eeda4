package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/spf13/cobra"
)

// credentials prompts for email and password. The password should be wiped
// by the caller.
func (a *App) credentials() (string, []byte, error) {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := GetPassword(a.reader, a.fd, "Enter password", a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (r *runner) newRegisterCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			email, password, err := a.credentials()
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			sess, err := a.session.Register(cmd.Context(), email, string(password), name)
			if err != nil {
				return err
			}
			a.printf("Welcome aboard. Session valid until %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return a.refresh(cmd.Context(), sess.UserID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func (r *runner) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			email, password, err := a.credentials()
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			sess, err := a.session.Login(cmd.Context(), email, string(password))
			if err != nil {
				if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrInvalidCredentials) {
					return common.ErrInvalidCredentials
				}
				return err
			}
			a.printf("Login successful\n")
			if err := a.refresh(cmd.Context(), sess.UserID); err != nil {
				a.printf("Showing cached entries\n")
			}
			return nil
		},
	}
}

func (r *runner) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.log.Replace(nil)
			a.printf("Logged out\n")
			return nil
		},
	}
}

func (r *runner) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			userID, err := a.userID(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.users.GetUser(cmd.Context(), userID)
			if err != nil {
				return err
			}
			name := u.Name
			if name == "" {
				name = "-"
			}
			a.printf("%s (%s)\n", u.Email, name)
			a.printf("Audio quality: %s, silence threshold: %g\n", u.Settings.AudioQuality, u.Settings.SilenceThreshold)
			return nil
		},
	}
}

// newPasswordResetCmd requests a token for an email, or redeems one with
// --token.
func (r *runner) newPasswordResetCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "password-reset [email]",
		Short: "Request or redeem a password reset token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()

			if token == "" {
				if len(args) == 0 {
					return fmt.Errorf("%w: email or --token required", common.ErrValidation)
				}
				if err := a.users.RequestPasswordReset(ctx, args[0]); err != nil {
					return err
				}
				a.printf("If the account exists, a reset token was issued\n")
				return nil
			}

			password, err := GetPassword(a.reader, a.fd, "Enter new password", a.out)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := a.users.ResetPassword(ctx, token, string(password)); err != nil {
				return err
			}
			a.printf("Password changed, please log in\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token to redeem")
	return cmd
}
