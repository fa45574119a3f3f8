package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectFormat string

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect raw session records and local state",
	Long: `Inspect what the client sees underneath the chat view.

This command provides detailed information about:
  • The raw records the server stores for a session
  • The transcript rebuilt from them and the history sent with the next message
  • The cookies kept in the local cookie database

Examples:
  tchat inspect session 42                 # Records, transcript and history as JSON
  tchat inspect session 42 --format yaml
  tchat inspect cookies                    # Stored cookies for the configured server`,
}

var inspectSessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "Show the raw records of a session with the derived transcript and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSessionID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.requireLogin(ctx, "inspect a session"); err != nil {
			return err
		}
		detail, err := a.client.GetSession(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", id, err)
		}
		return writeInspection(cmd.OutOrStdout(), inspectFormat, inspectDetail(detail))
	},
}

var inspectCookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "List the cookies stored for the configured server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		host := a.base.Hostname()
		now := time.Now()
		cookies, err := a.cookies.Load(host, now)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📊 Cookie database: %s\n", a.paths.CookieDB)
		fmt.Fprintf(out, "   Host: %s\n\n", host)
		if len(cookies) == 0 {
			fmt.Fprintln(out, hintStyle.Render("No cookies stored. Use 'tchat login' to sign in."))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tPATH\tEXPIRES\tSECURE\tVALUE")
		for _, c := range cookies {
			expires := "session"
			if !c.Expires.IsZero() {
				expires = humanize.RelTime(c.Expires, now, "ago", "from now")
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", c.Name, c.Path, expires, c.Secure, maskValue(c.Value))
		}
		return w.Flush()
	},
}

// inspection is the debugging view of one saved session
type inspection struct {
	ID         internal.SessionID       `json:"id" yaml:"id"`
	Title      string                   `json:"title" yaml:"title"`
	Mode       internal.Mode            `json:"mode" yaml:"mode"`
	Records    []internal.SessionRecord `json:"records" yaml:"records"`
	Transcript []internal.Turn          `json:"transcript" yaml:"transcript"`
	History    []internal.HistoryEntry  `json:"history" yaml:"history"`
	Stats      inspectionStats          `json:"stats" yaml:"stats"`
}

type inspectionStats struct {
	Records        int `json:"records" yaml:"records"`
	Turns          int `json:"turns" yaml:"turns"`
	HistoryEntries int `json:"history_entries" yaml:"history_entries"`
	EmptyResponses int `json:"empty_responses" yaml:"empty_responses"`
	UntimedRecords int `json:"untimed_records" yaml:"untimed_records"`
}

func inspectDetail(detail *internal.SessionDetail) inspection {
	transcript := internal.LoadFromServerRecords(detail.Messages)
	history := internal.DeriveHistory(transcript)

	stats := inspectionStats{
		Records:        len(detail.Messages),
		Turns:          len(transcript),
		HistoryEntries: len(history),
	}
	for _, rec := range detail.Messages {
		if strings.TrimSpace(rec.BotResponse) == "" {
			stats.EmptyResponses++
		}
		if internal.ParseServerTime(rec.CreatedAt).IsZero() {
			stats.UntimedRecords++
		}
	}

	return inspection{
		ID:         detail.ID,
		Title:      detail.Title,
		Mode:       detail.Mode,
		Records:    detail.Messages,
		Transcript: transcript,
		History:    history,
		Stats:      stats,
	}
}

func writeInspection(w io.Writer, format string, v inspection) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", format)
	}
}

// maskValue keeps the first few characters of a credential
func maskValue(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", 8)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.AddCommand(inspectSessionCmd, inspectCookiesCmd)
	inspectSessionCmd.Flags().StringVar(&inspectFormat, "format", "json", "Output format (json, yaml)")
}
