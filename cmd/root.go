package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	serverURL  string
	configPath string
	dataDir    string
	modeFlag   string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// cfg is the layered configuration the running command sees
var cfg = internal.DefaultConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tchat",
	Short: "Chat with the response service from your terminal",
	Long: `A terminal client for the tchat conversation service.

Talk to the bot in one of three modes, pick up saved sessions where you
left off and share your best exchanges with the community feed.

Features:
  • Interactive chat with default, affinity and contrarian modes
  • Saved sessions that can be listed, resumed, exported and deleted
  • Community feed with search, likes and comments
  • Cookie-based login that survives between invocations

Quick Start:
  tchat login                        # Sign in
  tchat chat "hello there"           # Start a conversation
  tchat sessions list                # See your saved sessions
  tchat community list --popular     # Browse the popular feed

Settings are read from ~/.tchat/config.toml, a .env file and TCHAT_*
environment variables; flags win over all of them.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		internal.SetVerbose(verbose)
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// loadConfig layers defaults, the TOML file, .env, TCHAT_* variables and flags
func loadConfig() (internal.Config, error) {
	c := internal.DefaultConfig()

	path, required := configPath, configPath != ""
	if path == "" {
		paths, err := internal.DetectDataPaths(dataDir)
		if err != nil {
			return c, fmt.Errorf("failed to detect data directory: %w", err)
		}
		path = paths.ConfigFile
	}
	if err := internal.LoadConfigFile(&c, path, required); err != nil {
		return c, err
	}
	if err := internal.LoadDotEnv(""); err != nil {
		return c, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}

	if serverURL != "" {
		c.ServerURL = serverURL
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
	if modeFlag != "" {
		c.DefaultMode = modeFlag
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	internal.LogDebug("Using server %s", c.ServerURL)
	return c, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if internal.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "Run 'tchat login' to sign in.")
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Chat service URL (default "+internal.DefaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.tchat/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the cookie database (default ~/.tchat)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Response mode: default, affinity or contrarian")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
