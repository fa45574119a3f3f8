package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	healthcheckVerbose bool
)

// errHealthcheckFailed is returned when a required check fails
var errHealthcheckFailed = errors.New("health check failed")

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that tchat can reach the service and keep you signed in",
	Long: `Check the health of tchat by verifying:
  • Configuration and data directory
  • Cookie database accessibility
  • Chat service reachability
  • Login state

This command is useful for debugging connection and login issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 tchat Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		paths, err := internal.DetectDataPaths(cfg.DataDir)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to detect data directory:"), err)
			return errHealthcheckFailed
		}
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if paths.ConfigFileExists() || configPath != "" {
			fmt.Fprintf(out, "   Config file: %s\n", orDefault(configPath, paths.ConfigFile))
		} else if healthcheckVerbose {
			fmt.Fprintf(out, "   No config file at %s, using defaults\n", paths.ConfigFile)
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Server: %s\n", cfg.ServerURL)
			fmt.Fprintf(out, "   Mode: %s\n", cfg.Mode().Label())
			fmt.Fprintf(out, "   Timeout: %s\n", cfg.RequestTimeout)
		}
		fmt.Fprintln(out)

		// Step 2: Cookie database
		fmt.Fprintln(out, infoStyle.Render("Step 2: Opening cookie database..."))
		a, err := newApp(cfg)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open cookie database"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Error details:")
			fmt.Fprintln(out, err)
			return errHealthcheckFailed
		}
		defer a.Close()
		stored, err := a.cookies.Count(a.base.Hostname())
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Cookie database unreadable:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Cookie database ready (%s stored)", plural(stored, "cookie"))))
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Database: %s\n", a.paths.CookieDB)
		}
		fmt.Fprintln(out)

		// Steps 3 and 4 run together
		var (
			posts    []internal.SharedPost
			feedErr  error
			identity *internal.Identity
			authErr  error
			feedTime time.Duration
		)
		ctx := cmd.Context()
		var g errgroup.Group
		g.Go(func() error {
			start := time.Now()
			posts, feedErr = a.client.Feed(ctx, internal.FeedRecent)
			feedTime = time.Since(start)
			return feedErr
		})
		g.Go(func() error {
			identity, authErr = a.gate.Refresh(ctx)
			return authErr
		})
		_ = g.Wait()

		fmt.Fprintln(out, infoStyle.Render("Step 3: Reaching the chat service..."))
		serverOK := feedErr == nil
		if serverOK {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Service reachable (%s)", feedTime.Round(time.Millisecond))))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   URL: %s\n", cfg.ServerURL)
				fmt.Fprintf(out, "   Community feed: %s\n", plural(len(posts), "post"))
			}
		} else {
			fmt.Fprintln(out, errorStyle.Render("❌ Service unreachable:"), internal.ErrorDetail(feedErr))
			fmt.Fprintf(out, "   URL: %s\n", cfg.ServerURL)
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking login..."))
		switch {
		case authErr != nil:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Login check failed:"), internal.ErrorDetail(authErr))
		case identity == nil:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Not logged in"))
			if stored > 0 {
				fmt.Fprintln(out, "   The stored session cookie has expired or was revoked")
			}
		default:
			fmt.Fprintln(out, successStyle.Render("✅ Logged in as "+identity.Username))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Email: %s\n", identity.Email)
			}
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if !serverOK {
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(out, "   • Check --server or server_url in the config file")
			fmt.Fprintln(out, "   • Make sure the chat service is running")
			return errHealthcheckFailed
		}
		if identity == nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Health check passed with warnings"))
			fmt.Fprintln(out, "   • Service: Reachable")
			fmt.Fprintln(out, "   • Login: Run 'tchat login' to chat and save sessions")
			return nil
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		fmt.Fprintln(out, successStyle.Render("   • Service: Reachable"))
		fmt.Fprintln(out, successStyle.Render("   • Login: "+identity.Username))
		return nil
	},
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
