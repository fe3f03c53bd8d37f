package cli

import (
	"errors"
	"fmt"
	"os"

	"glucare/internal/adapter/remote"
	"glucare/internal/app"
	"glucare/internal/logger"

	"github.com/spf13/cobra"
)

// passwordEnv supplies the password when --password is omitted.
const passwordEnv = "GLUCARE_PASSWORD"

func passwordFlag(cmd *cobra.Command) (string, error) {
	pw, _ := cmd.Flags().GetString("password")
	if pw == "" {
		pw = os.Getenv(passwordEnv)
	}
	if pw == "" {
		return "", fmt.Errorf("password required: pass --password or set $%s", passwordEnv)
	}
	return pw, nil
}

func newSignUpCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			confirm, _ := cmd.Flags().GetString("confirm")
			password, err := passwordFlag(cmd)
			if err != nil {
				return err
			}
			if confirm == "" {
				confirm = password
			}

			p, err := o.openPrefs()
			if err != nil {
				return err
			}
			c, err := o.client(p)
			if err != nil {
				return err
			}
			user, err := c.SignUp(cmd.Context(), app.SignUpInput{
				Name:            name,
				Email:           email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return describe(err)
			}
			if err := p.SetSessionToken(c.Token()); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), user, fmt.Sprintf("Signed in as %s <%s>", user.Name, user.Email))
		},
	}
	cmd.Flags().String("name", "", "Display name")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password (default: $"+passwordEnv+")")
	cmd.Flags().String("confirm", "", "Password confirmation (default: same as --password)")
	return cmd
}

func newLoginCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, err := passwordFlag(cmd)
			if err != nil {
				return err
			}

			p, err := o.openPrefs()
			if err != nil {
				return err
			}
			c, err := o.client(p)
			if err != nil {
				return err
			}
			if err := c.Login(cmd.Context(), email, password); err != nil {
				return describe(err)
			}
			if err := p.SetSessionToken(c.Token()); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), map[string]string{"status": "ok"}, "Signed in")
		},
	}
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password (default: $"+passwordEnv+")")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := o.openPrefs()
			if err != nil {
				return err
			}
			c, err := o.client(p)
			if err != nil {
				return err
			}
			if c.Token() != "" {
				if err := c.Logout(cmd.Context()); err != nil {
					o.log.Warn(cmd.Context(), "server logout failed; forgetting the session locally", logger.Error(err))
				}
			}
			if err := p.ClearSession(); err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), map[string]string{"status": "ok"}, "Signed out")
		},
	}
}

// describe turns an API error into its server message.
func describe(err error) error {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return errors.New(apiErr.Message)
	}
	return err
}
