package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
)

var chatSessionID int64

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the bot.

An optional prompt is sent right away in a fresh session. Use --session to
pick up a saved session instead (see 'tchat sessions list').

Inside the conversation:
  /mode [name]          Show or switch the response mode
  /history              Show the transcript so far
  /share [title] [#tag] Share the last exchange with the community
  /new                  Start a new conversation
  /login                Sign in without leaving the chat
  /quit                 Leave (Ctrl-D works too)`,
	Example: `  tchat chat
  tchat chat "what should I cook tonight?"
  tchat chat --mode contrarian "tabs or spaces?"
  tchat chat --session 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.TrimSpace(strings.Join(args, " "))
		if chatSessionID != 0 && prompt != "" {
			return fmt.Errorf("--session and an initial prompt cannot be combined")
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		lines := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout(), a.paths.Dir)
		defer lines.Close()

		r := newChatREPL(a, cmd.OutOrStdout(), lines)
		return r.run(cmd.Context(), internal.Activation{
			SessionID:     internal.SessionID(chatSessionID),
			InitialPrompt: prompt,
		})
	},
}

// chatREPL is the terminal view over one conversation controller at a time
type chatREPL struct {
	app       *app
	out       io.Writer
	lines     lineReader
	render    *replyRenderer
	conv      *internal.Conversation
	community *internal.Community

	loginRequests chan struct{}
}

func newChatREPL(a *app, out io.Writer, lines lineReader) *chatREPL {
	r := &chatREPL{
		app:           a,
		out:           out,
		lines:         lines,
		render:        newReplyRenderer(out, a.cfg.Render),
		community:     internal.NewCommunity(a.client, a.gate),
		loginRequests: make(chan struct{}, 1),
	}
	r.conv = r.newConversation(a.cfg.Mode())
	return r
}

func (r *chatREPL) newConversation(mode internal.Mode) *internal.Conversation {
	return r.app.newConversation(mode, internal.NavigatorFunc(r.requestLogin))
}

// requestLogin is the dispatcher's redirect target; it never blocks
func (r *chatREPL) requestLogin() {
	select {
	case r.loginRequests <- struct{}{}:
	default:
	}
}

func (r *chatREPL) run(ctx context.Context, act internal.Activation) error {
	if act.InitialPrompt != "" {
		r.printUser(act.InitialPrompt)
	}
	res, err := internal.Await(ctx, "Connecting...", func() activation {
		res, err := r.conv.Activate(ctx, act)
		return activation{res, err}
	}).unpack()
	if err != nil {
		return err
	}

	r.banner()
	if act.SessionID != internal.NoSession {
		r.printTranscript()
	}
	if res != nil {
		r.printResult(ctx, *res)
	}

	for {
		line, err := r.lines.Prompt(r.prompt())
		if err != nil {
			r.conv.Deactivate()
			if isAbort(err) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.lines.AppendHistory(line)

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printError(err)
			}
			if quit {
				r.conv.Deactivate()
				return nil
			}
			continue
		}

		r.send(ctx, line)
		if ctx.Err() != nil {
			r.conv.Deactivate()
			return nil
		}
	}
}

// activation carries Activate's two results through Await
type activation struct {
	res *internal.Result
	err error
}

func (a activation) unpack() (*internal.Result, error) { return a.res, a.err }

func (r *chatREPL) send(ctx context.Context, text string) {
	res := internal.Await(ctx, "Thinking...", func() internal.Result {
		return r.conv.Send(ctx, text)
	})
	r.printResult(ctx, res)
}

func (r *chatREPL) printResult(ctx context.Context, res internal.Result) {
	switch res.Outcome {
	case internal.OutcomeSuccess:
		fmt.Fprintln(r.out, botMessageStyle.Render("🤖 Bot"))
		fmt.Fprintln(r.out, r.render.Render(res.Reply))
		fmt.Fprintln(r.out)
		if res.Bound {
			fmt.Fprintln(r.out, hintStyle.Render(fmt.Sprintf("Saved as session %d", r.conv.Store().ID())))
		}
	case internal.OutcomeAuthFailure:
		fmt.Fprintln(r.out, warningStyle.Render(res.Reply))
		r.awaitLoginRedirect(ctx)
	case internal.OutcomeFailure:
		fmt.Fprintln(r.out, errorStyle.Render(res.Reply))
		if res.Err != nil {
			fmt.Fprintln(r.out, hintStyle.Render(internal.ErrorDetail(res.Err)))
		}
	case internal.OutcomeBusy:
		fmt.Fprintln(r.out, warningStyle.Render("Still waiting for the previous reply"))
	}
}

// awaitLoginRedirect waits out the grace period and opens the login prompt
// once the dispatcher asks for it
func (r *chatREPL) awaitLoginRedirect(ctx context.Context) {
	timer := time.NewTimer(r.app.cfg.RedirectDelay + time.Second)
	defer timer.Stop()
	select {
	case <-r.loginRequests:
		r.login(ctx)
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (r *chatREPL) login(ctx context.Context) {
	fmt.Fprintln(r.out, sectionStyle.Render("🔐 Login"))
	email, err := r.lines.Prompt("Email (blank to skip): ")
	email = strings.TrimSpace(email)
	if err != nil || email == "" {
		fmt.Fprintln(r.out, hintStyle.Render("Skipped. Use /login when you are ready."))
		return
	}
	password, err := r.lines.PasswordPrompt("Password: ")
	if err != nil {
		return
	}
	id, err := r.app.gate.Login(ctx, internal.Credentials{Email: email, Password: password})
	if err != nil {
		fmt.Fprintln(r.out, errorStyle.Render("✗ Login failed: "+internal.ErrorDetail(err)))
		return
	}
	fmt.Fprintln(r.out, successStyle.Render("✓ Logged in as "+id.Username))
}

// command runs a slash command and reports whether the REPL should exit
func (r *chatREPL) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help", "/?":
		r.help()
	case "/mode":
		return false, r.switchMode(arg)
	case "/history":
		r.printTranscript()
	case "/new":
		mode := r.conv.Store().Mode()
		r.conv.Deactivate()
		r.conv = r.newConversation(mode)
		if _, err := r.conv.Activate(ctx, internal.Activation{}); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, infoStyle.Render("Started a new conversation"))
	case "/share":
		return false, r.share(ctx, arg)
	case "/login":
		r.login(ctx)
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (r *chatREPL) switchMode(arg string) error {
	if arg == "" {
		current := r.conv.Store().Mode()
		for _, m := range internal.Modes {
			marker := "  "
			if m == current {
				marker = "▸ "
			}
			fmt.Fprintln(r.out, marker+m.Label())
		}
		return nil
	}
	mode, err := internal.ParseMode(arg)
	if err != nil {
		return err
	}
	r.conv.SetMode(mode)
	fmt.Fprintln(r.out, successStyle.Render("✓ Mode set to "+mode.Label()))
	return nil
}

// share publishes the last exchange. Words starting with # become tags,
// the rest the title.
func (r *chatREPL) share(ctx context.Context, arg string) error {
	exchange, ok := r.conv.Store().LastExchange()
	if !ok {
		return fmt.Errorf("nothing to share yet")
	}
	title, tags := splitTitleTags(arg)
	if title == "" {
		title = truncate(exchange.UserMessage, titleWidth)
	}
	post, err := r.community.Share(ctx, internal.ShareRequest{
		Title:       title,
		Tags:        tags,
		UserMessage: exchange.UserMessage,
		BotResponse: exchange.BotResponse,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, successStyle.Render(fmt.Sprintf("✓ Shared as post %d", post.ID)))
	return nil
}

// splitTitleTags separates #tags from the other words of s
func splitTitleTags(s string) (title, tags string) {
	var words, hashtags []string
	for _, tok := range strings.Fields(s) {
		if strings.HasPrefix(tok, "#") && len(tok) > 1 {
			hashtags = append(hashtags, tok)
		} else {
			words = append(words, tok)
		}
	}
	return strings.Join(words, " "), strings.Join(hashtags, " ")
}

func (r *chatREPL) banner() {
	status := "not logged in"
	if id := r.app.gate.Current(); id != nil {
		status = "logged in as " + id.Username
	}
	fmt.Fprintln(r.out, headerStyle.Render("💬 tchat"))
	fmt.Fprintln(r.out, sessionMetaStyle.Render(fmt.Sprintf("Mode: %s • %s • /help for commands", r.conv.Store().Mode().Label(), status)))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) help() {
	fmt.Fprintln(r.out, `Commands:
  /mode [name]          Show or switch the response mode
  /history              Show the transcript so far
  /share [title] [#tag] Share the last exchange with the community
  /new                  Start a new conversation
  /login                Sign in
  /quit                 Leave`)
}

func (r *chatREPL) prompt() string {
	return fmt.Sprintf("[%s] > ", r.conv.Store().Mode().Label())
}

func (r *chatREPL) printUser(text string) {
	fmt.Fprintln(r.out, userMessageStyle.Render("👤 You"))
	fmt.Fprintln(r.out, messageContentStyle.Render(text))
	fmt.Fprintln(r.out)
}

func (r *chatREPL) printTranscript() {
	transcript := r.conv.Store().Current().Transcript
	if len(transcript) == 0 {
		fmt.Fprintln(r.out, hintStyle.Render("No messages yet"))
		return
	}
	for i, turn := range transcript {
		displayTurn(r.out, r.render, i+1, len(transcript), turn)
	}
}

func (r *chatREPL) printError(err error) {
	fmt.Fprintln(r.out, errorStyle.Render("✗ "+internal.ErrorDetail(err)))
	if internal.IsAuthError(err) {
		fmt.Fprintln(r.out, hintStyle.Render("Use /login to sign in"))
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Int64VarP(&chatSessionID, "session", "s", 0, "Resume a saved session")
}
