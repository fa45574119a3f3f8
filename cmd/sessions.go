package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit   int
	deleteForce bool
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage your saved sessions",
	Long:    `List, view and delete the conversations the server saved for your account.`,
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved sessions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.requireLogin(ctx, "list your sessions"); err != nil {
			return err
		}
		var sessions []internal.SessionSummary
		err = internal.ShowProgress(ctx, "Loading sessions", func() error {
			var loadErr error
			sessions, loadErr = a.client.ListSessions(ctx)
			return loadErr
		})
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		displaySessions(cmd.OutOrStdout(), sessions, time.Now())
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a saved session",
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
		if _, err := a.requireLogin(ctx, "open a saved session"); err != nil {
			return err
		}
		detail, err := a.client.GetSession(ctx, id)
		if err != nil {
			if internal.IsNotFound(err) {
				return fmt.Errorf("session not found: %d", id)
			}
			return fmt.Errorf("failed to load session %d: %w", id, err)
		}

		out := cmd.OutOrStdout()
		transcript := internal.LoadFromServerRecords(detail.Messages)
		displaySessionHeader(out, detail, len(transcript))

		total := len(transcript)
		shown := transcript
		if showLimit > 0 && showLimit < total {
			shown = transcript[:showLimit]
		}
		render := newReplyRenderer(out, cfg.Render)
		for i, turn := range shown {
			displayTurn(out, render, i+1, total, turn)
		}
		if len(shown) < total {
			fmt.Fprintln(out, hintStyle.Render(fmt.Sprintf("... (%d more message(s))", total-len(shown))))
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved session",
	Args:    cobra.ExactArgs(1),
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
		if _, err := a.requireLogin(ctx, "delete a session"); err != nil {
			return err
		}

		lines := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout(), "")
		defer lines.Close()
		if !confirmFunc(lines, deleteForce)(fmt.Sprintf("Delete session %d?", id)) {
			return internal.ErrNotConfirmed
		}

		if err := a.client.DeleteSession(ctx, id); err != nil {
			if internal.IsNotFound(err) {
				return fmt.Errorf("session not found: %d", id)
			}
			return fmt.Errorf("failed to delete session %d: %w", id, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Deleted session %d", id)))
		return nil
	},
}

func parseSessionID(s string) (internal.SessionID, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n <= 0 {
		return internal.NoSession, fmt.Errorf("invalid session id: %s", s)
	}
	return internal.SessionID(n), nil
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		fmt.Fprintln(out, hintStyle.Render("💡 Tip: Use 'tchat chat' to start one"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Mode")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Last message"))
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			idStyle.Render(strconv.FormatInt(int64(s.ID), 10)),
			lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(truncate(s.DisplayTitle(), titleWidth)),
			tagStyle.Render(s.Mode.Label()),
			countStyle.Render(strconv.Itoa(s.MessageCount)),
			dateStyle.Render(relativeTime(s.UpdatedAt, now)),
			truncate(s.LastMessage, previewWidth),
		)
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, hintStyle.Render("💡 Tip: Use 'tchat chat --session <id>' to continue a session"))
}

func displaySessionHeader(out io.Writer, detail *internal.SessionDetail, turns int) {
	title := detail.Title
	if strings.TrimSpace(title) == "" {
		title = internal.DefaultSessionTitle
	}
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", title)))

	metaParts := []string{fmt.Sprintf("Session: %d", detail.ID), "Mode: " + detail.Mode.Label()}
	if detail.CreatedAt != "" {
		metaParts = append(metaParts, "Created: "+relativeTime(detail.CreatedAt, time.Now()))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", turns))
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

// displayTurn prints one transcript turn with its position and time
func displayTurn(out io.Writer, render *replyRenderer, index, total int, turn internal.Turn) {
	actor := userMessageStyle.Render("👤 You")
	if turn.IsBot() {
		actor = botMessageStyle.Render("🤖 Bot")
	}
	header := actor + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !turn.Timestamp.IsZero() {
		header += " " + timestampStyle.Render(turn.Timestamp.Local().Format("15:04:05"))
	}
	fmt.Fprintln(out, header)

	content := strings.TrimSpace(turn.Text)
	switch {
	case content == "":
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	case turn.IsBot():
		fmt.Fprintln(out, render.Render(content))
	default:
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, replyWrapWidth)))
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)

	sessionsShowCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Limit number of messages to show")
	sessionsDeleteCmd.Flags().BoolVarP(&deleteForce, "yes", "y", false, "Delete without asking")
}
