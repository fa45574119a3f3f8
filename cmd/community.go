package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/tchat/internal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	feedPopular   bool
	uncommentYes  bool
	shareTitle    string
	shareTags     string
	shareExchange int
)

var communityCmd = &cobra.Command{
	Use:     "community",
	Aliases: []string{"feed"},
	Short:   "Browse and interact with the community feed",
	Long: `Browse conversations other users shared, search them by title, content or
#tag, like them and join the discussion in the comments.

Reading the feed works without an account; liking, commenting and sharing
require 'tchat login'.`,
}

var communityListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recent or popular posts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		kind := internal.FeedRecent
		if feedPopular {
			kind = internal.FeedPopular
		}
		community := internal.NewCommunity(a.client, a.gate)
		posts, err := community.Load(cmd.Context(), kind)
		if err != nil {
			return err
		}
		displayPosts(cmd.OutOrStdout(), fmt.Sprintf("%s posts", kind), posts, time.Now())
		return nil
	},
}

var communitySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search posts by title, content or #tag",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		query := strings.Join(args, " ")
		community := internal.NewCommunity(a.client, a.gate)
		posts, err := community.Search(cmd.Context(), query)
		if err != nil {
			return err
		}
		displayPosts(cmd.OutOrStdout(), fmt.Sprintf("results for %q", query), posts, time.Now())
		return nil
	},
}

var communityMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the posts you shared",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.identify(ctx); err != nil {
			return err
		}
		community := internal.NewCommunity(a.client, a.gate)
		posts, err := community.Mine(ctx)
		if err != nil {
			return err
		}
		displayPosts(cmd.OutOrStdout(), "of your posts", posts, time.Now())
		return nil
	},
}

var communityShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post with its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// The service has no single-post endpoint; look in both feeds while
		// the comments load.
		var recent, popular []internal.SharedPost
		community := internal.NewCommunity(a.client, a.gate)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var err error
			recent, err = a.client.Feed(ctx, internal.FeedRecent)
			return err
		})
		g.Go(func() error {
			var err error
			popular, err = a.client.Feed(ctx, internal.FeedPopular)
			return err
		})
		g.Go(func() error {
			_, err := community.LoadComments(ctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to load post %d: %w", id, err)
		}

		post, ok := findPost(id, recent, popular)
		if !ok {
			return fmt.Errorf("post not found: %d", id)
		}
		out := cmd.OutOrStdout()
		displayPost(out, newReplyRenderer(out, cfg.Render), post, time.Now())
		displayComments(out, community.Comments(id), time.Now())
		return nil
	},
}

var communityLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or take your like back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.identify(ctx); err != nil {
			return err
		}
		community := internal.NewCommunity(a.client, a.gate)
		state, err := community.Like(ctx, id)
		if err != nil {
			return err
		}
		verb := "Unliked"
		if state.LikedByViewer {
			verb = "Liked"
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ %s post %d (%s)", verb, id, plural(state.Likes, "like"))))
		return nil
	},
}

var communityCommentCmd = &cobra.Command{
	Use:   "comment <post-id> <text>",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.identify(ctx); err != nil {
			return err
		}
		community := internal.NewCommunity(a.client, a.gate)
		comment, err := community.AddComment(ctx, id, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Added comment %d to post %d", comment.ID, id)))
		return nil
	},
}

var communityUncommentCmd = &cobra.Command{
	Use:   "uncomment <post-id> <comment-id>",
	Short: "Delete one of your comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		postID, err := parsePostID(args[0])
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid comment id: %s", args[1])
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.identify(ctx); err != nil {
			return err
		}
		lines := newLineReader(cmd.InOrStdin(), cmd.OutOrStdout(), "")
		defer lines.Close()

		community := internal.NewCommunity(a.client, a.gate)
		if err := community.DeleteComment(ctx, postID, internal.CommentID(n), confirmFunc(lines, uncommentYes)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Deleted comment %d from post %d", n, postID)))
		return nil
	},
}

var communityShareCmd = &cobra.Command{
	Use:   "share <session-id>",
	Short: "Share an exchange of a saved session",
	Long: `Share one question and answer of a saved session with the community.
The last exchange is shared unless --exchange picks another one (1 is the first).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.requireLogin(ctx, "share a conversation"); err != nil {
			return err
		}
		detail, err := a.client.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}
		history := internal.DeriveHistory(internal.LoadFromServerRecords(detail.Messages))
		if len(history) == 0 {
			return fmt.Errorf("session %d has no completed exchange", sessionID)
		}
		pick := len(history)
		if shareExchange != 0 {
			pick = shareExchange
		}
		if pick < 1 || pick > len(history) {
			return fmt.Errorf("exchange %d out of range (session has %d)", pick, len(history))
		}
		exchange := history[pick-1]

		title := strings.TrimSpace(shareTitle)
		if title == "" {
			title = truncate(exchange.UserMessage, titleWidth)
		}
		community := internal.NewCommunity(a.client, a.gate)
		post, err := community.Share(ctx, internal.ShareRequest{
			Title:       title,
			Tags:        shareTags,
			UserMessage: exchange.UserMessage,
			BotResponse: exchange.BotResponse,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Shared as post %d", post.ID)))
		return nil
	},
}

func parsePostID(s string) (internal.PostID, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid post id: %s", s)
	}
	return internal.PostID(n), nil
}

func findPost(id internal.PostID, feeds ...[]internal.SharedPost) (internal.SharedPost, bool) {
	for _, feed := range feeds {
		for _, p := range feed {
			if p.ID == id {
				return p, true
			}
		}
	}
	return internal.SharedPost{}, false
}

func displayPosts(out io.Writer, what string, posts []internal.SharedPost, now time.Time) {
	if len(posts) == 0 {
		fmt.Fprintln(out, headerStyle.Render("🌐 No posts found"))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🌐 %d %s", len(posts), what)))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Author")+"\t"+titleStyle.Render("Likes")+"\t"+titleStyle.Render("Comments")+"\t"+titleStyle.Render("Shared")+"\t"+titleStyle.Render("Tags"))
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))
	for _, p := range posts {
		likes := strconv.Itoa(p.Likes)
		if p.LikedByViewer {
			likes = "♥ " + likes
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			idStyle.Render(strconv.FormatInt(int64(p.ID), 10)),
			truncate(p.Title, titleWidth),
			p.Author,
			countStyle.Render(likes),
			strconv.Itoa(p.CommentCount),
			dateStyle.Render(relativeTime(p.CreatedAt, now)),
			tagStyle.Render(strings.Join(p.Hashtags(), " ")),
		)
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, hintStyle.Render("💡 Tip: Use 'tchat community show <id>' to read a post and its comments"))
}

func displayPost(out io.Writer, render *replyRenderer, p internal.SharedPost, now time.Time) {
	fmt.Fprintln(out, sessionHeaderStyle.Render("🌐 "+p.Title))
	meta := []string{
		"by " + p.Author,
		relativeTime(p.CreatedAt, now),
		plural(p.Likes, "like"),
		plural(p.CommentCount, "comment"),
	}
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(meta, " • ")))
	if tags := p.Hashtags(); len(tags) > 0 {
		fmt.Fprintln(out, tagStyle.Render(strings.Join(tags, " ")))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, userMessageStyle.Render("👤 Question"))
	fmt.Fprintln(out, messageContentStyle.Render(wrapText(p.UserMessage, replyWrapWidth)))
	fmt.Fprintln(out)
	fmt.Fprintln(out, botMessageStyle.Render("🤖 Answer"))
	fmt.Fprintln(out, render.Render(p.BotResponse))
	fmt.Fprintln(out)
}

func displayComments(out io.Writer, comments []internal.Comment, now time.Time) {
	fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("Comments (%d)", len(comments))))
	if len(comments) == 0 {
		fmt.Fprintln(out, hintStyle.Render("No comments yet"))
		return
	}
	for _, c := range comments {
		fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render(c.Author), dateStyle.Render(relativeTime(c.CreatedAt, now)), idStyle.Render(fmt.Sprintf("#%d", c.ID)))
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(c.Content, replyWrapWidth)))
	}
}

func init() {
	rootCmd.AddCommand(communityCmd)
	communityCmd.AddCommand(
		communityListCmd,
		communitySearchCmd,
		communityMineCmd,
		communityShowCmd,
		communityLikeCmd,
		communityCommentCmd,
		communityUncommentCmd,
		communityShareCmd,
	)

	communityListCmd.Flags().BoolVar(&feedPopular, "popular", false, "Order by likes instead of recency")
	communityUncommentCmd.Flags().BoolVarP(&uncommentYes, "yes", "y", false, "Delete without asking")
	communityShareCmd.Flags().StringVar(&shareTitle, "title", "", "Post title (default: the question)")
	communityShareCmd.Flags().StringVar(&shareTags, "tags", "", "Space-separated tags, e.g. \"#go #cli\"")
	communityShareCmd.Flags().IntVar(&shareExchange, "exchange", 0, "Exchange to share, 1 is the first (default: the last)")
}
