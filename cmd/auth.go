package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	authUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the chat service",
	Long: `Sign in with your email and password. The session cookie is kept in the
data directory so later commands stay signed in.

Missing credentials are asked for interactively; the password is never echoed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		lines := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout(), "")
		defer lines.Close()

		creds, err := askCredentials(lines, false)
		if err != nil {
			return err
		}
		id, err := a.gate.Login(cmd.Context(), creds)
		if err != nil {
			return fmt.Errorf("login failed: %s", internal.ErrorDetail(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged in as "+id.Username))
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		lines := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout(), "")
		defer lines.Close()

		creds, err := askCredentials(lines, true)
		if err != nil {
			return err
		}
		id, err := a.gate.Signup(cmd.Context(), creds)
		if err != nil {
			return fmt.Errorf("signup failed: %s", internal.ErrorDetail(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Welcome, "+id.Username))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.gate.Logout(cmd.Context()); err != nil {
			internal.PrintWarning(fmt.Sprintf("Server logout failed: %v", err))
		}
		if err := a.cookies.Clear(a.base.Hostname()); err != nil {
			return fmt.Errorf("failed to clear cookies: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Logged out"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.identify(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if id == nil {
			fmt.Fprintln(out, warningStyle.Render("Not logged in"))
			fmt.Fprintln(out, hintStyle.Render("💡 Tip: Use 'tchat login' to sign in"))
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render(id.Username), dateStyle.Render("<"+id.Email+">"))
		return nil
	},
}

// askCredentials fills in whatever the flags left out
func askCredentials(lines lineReader, withUsername bool) (internal.Credentials, error) {
	creds := internal.Credentials{
		Username: strings.TrimSpace(authUsername),
		Email:    strings.TrimSpace(authEmail),
		Password: authPassword,
	}

	var err error
	if withUsername && creds.Username == "" {
		if creds.Username, err = lines.Prompt("Username: "); err != nil {
			return creds, fmt.Errorf("failed to read username: %w", err)
		}
		creds.Username = strings.TrimSpace(creds.Username)
	}
	if creds.Email == "" {
		if creds.Email, err = lines.Prompt("Email: "); err != nil {
			return creds, fmt.Errorf("failed to read email: %w", err)
		}
		creds.Email = strings.TrimSpace(creds.Email)
	}
	if creds.Password == "" {
		if creds.Password, err = lines.PasswordPrompt("Password: "); err != nil {
			return creds, fmt.Errorf("failed to read password: %w", err)
		}
	}

	if creds.Email == "" || creds.Password == "" || (withUsername && creds.Username == "") {
		return creds, fmt.Errorf("email and password are required")
	}
	return creds, nil
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd)

	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
	}
	signupCmd.Flags().StringVar(&authUsername, "username", "", "Display name")
}
