package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"flipnote.app/cli/internal/application/services"
	"flipnote.app/cli/internal/core/domain"
)

// newAuthCommand creates the auth subcommand
func newAuthCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage your flipnote session",
		Long:  `Log in, register and inspect the session stored on this machine.`,
	}

	cmd.AddCommand(newAuthLoginCommand(container))
	cmd.AddCommand(newAuthRegisterCommand(container))
	cmd.AddCommand(newAuthLogoutCommand(container))
	cmd.AddCommand(newAuthStatusCommand(container))
	cmd.AddCommand(newAuthProfileCommand(container))

	return cmd
}

// newAuthLoginCommand creates the auth login subcommand
func newAuthLoginCommand(container *CLIContainer) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Example: `  fq auth login --email ada@example.com
  echo "$PASSWORD" | fq auth login --email ada@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(container.In, cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}

			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := app.AuthService.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return render(container.Out, container.Output, profile, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Logged in as %s\n", profile.DisplayName())
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// newAuthRegisterCommand creates the auth register subcommand
func newAuthRegisterCommand(container *CLIContainer) *cobra.Command {
	var reg services.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Password == "" {
				var err error
				if reg.Password, err = readSecret(container.In, cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}
			if reg.PasswordConfirm == "" {
				reg.PasswordConfirm = reg.Password
			}

			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := app.AuthService.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}

			return render(container.Out, container.Output, profile, func(w io.Writer) {
				fmt.Fprintf(w, "✅ Welcome, %s\n", profile.DisplayName())
			})
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Password (read from stdin when omitted)")
	cmd.Flags().StringVar(&reg.PasswordConfirm, "password-confirm", "", "Password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// newAuthLogoutCommand creates the auth logout subcommand
func newAuthLogoutCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.AuthService.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(container.Out, "✅ Logged out")
			return nil
		},
	}
}

type statusView struct {
	Authenticated bool                `json:"authenticated" yaml:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty" yaml:"user,omitempty"`
	Backend       string              `json:"backend" yaml:"backend"`
	AccessToken   string              `json:"access_token,omitempty" yaml:"access_token,omitempty"`
}

// newAuthStatusCommand creates the auth status subcommand
func newAuthStatusCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}

			session := app.AuthService.Status()
			view := statusView{
				Authenticated: session.Authenticated(),
				User:          session.User,
				Backend:       app.Client.Endpoint().BaseURL,
			}
			if view.Authenticated {
				view.AccessToken = domain.RedactToken(session.AccessToken())
			}

			return render(container.Out, container.Output, view, func(w io.Writer) {
				if !view.Authenticated {
					fmt.Fprintln(w, "❌ Not logged in")
					fmt.Fprintln(w, mutedStyle.Render("   Run 'fq auth login --email YOU' to log in"))
					return
				}
				fmt.Fprintf(w, "🔑 Logged in as %s\n", view.User.DisplayName())
				fmt.Fprintf(w, "🌐 Backend: %s\n", view.Backend)
				fmt.Fprintf(w, "   Access token: %s\n", view.AccessToken)
			})
		},
	}
}

// newAuthProfileCommand creates the auth profile subcommand
func newAuthProfileCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch your profile from the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := container.App(cmd.Context())
			if err != nil {
				return err
			}
			profile, err := app.AuthService.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return render(container.Out, container.Output, profile, func(w io.Writer) {
				printProfile(w, *profile)
			})
		},
	}
}

// readSecret reads one line from in, prompting on prompt
func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("password is required")
	}
	return secret, nil
}
