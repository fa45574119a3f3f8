package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// ConfirmFunc asks the user to approve a destructive action
type ConfirmFunc func(prompt string) bool

// Community keeps the local view of the shared feed consistent with the
// server. Like counters are only ever replaced from a server response;
// nothing is applied locally before the server confirms.
type Community struct {
	api  CommunityAPI
	gate *AuthGate

	mu       sync.Mutex
	order    []PostID
	posts    map[PostID]*SharedPost
	comments map[PostID][]Comment
}

// NewCommunity creates an empty feed view
func NewCommunity(api CommunityAPI, gate *AuthGate) *Community {
	return &Community{
		api:      api,
		gate:     gate,
		posts:    make(map[PostID]*SharedPost),
		comments: make(map[PostID][]Comment),
	}
}

// Load replaces the feed with the recent or popular listing
func (c *Community) Load(ctx context.Context, kind FeedKind) ([]SharedPost, error) {
	posts, err := c.api.Feed(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s feed: %w", kind, err)
	}
	c.replace(posts)
	return c.Posts(), nil
}

// Search replaces the feed with the posts matching query. A blank query loads the recent feed.
func (c *Community) Search(ctx context.Context, query string) ([]SharedPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.Load(ctx, FeedRecent)
	}
	posts, err := c.api.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search feed: %w", err)
	}
	c.replace(posts)
	return c.Posts(), nil
}

// Mine replaces the feed with the signed-in user's posts
func (c *Community) Mine(ctx context.Context) ([]SharedPost, error) {
	if err := c.require("list your shared posts"); err != nil {
		return nil, err
	}
	posts, err := c.api.MyPosts(ctx)
	if err != nil {
		return nil, c.authAware("list your shared posts", err)
	}
	c.replace(posts)
	return c.Posts(), nil
}

// Posts returns the feed in server order
func (c *Community) Posts() []SharedPost {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SharedPost, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.posts[id])
	}
	return out
}

// Post returns one post of the feed
func (c *Community) Post(id PostID) (SharedPost, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.posts[id]
	if !ok {
		return SharedPost{}, false
	}
	return *p, true
}

// Share publishes one completed exchange and adds it at the head of the feed
func (c *Community) Share(ctx context.Context, req ShareRequest) (SharedPost, error) {
	if err := c.require("share a conversation"); err != nil {
		return SharedPost{}, err
	}
	if strings.TrimSpace(req.UserMessage) == "" || strings.TrimSpace(req.BotResponse) == "" {
		return SharedPost{}, ErrEmptyMessage
	}
	post, err := c.api.Share(ctx, req)
	if err != nil {
		return SharedPost{}, c.authAware("share a conversation", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.posts[post.ID]; !exists {
		c.order = append([]PostID{post.ID}, c.order...)
	}
	cp := *post
	c.posts[post.ID] = &cp
	return cp, nil
}

// Like toggles the viewer's like; the server decides the direction. The
// stored counters are overwritten with whatever the server returns.
func (c *Community) Like(ctx context.Context, id PostID) (LikeState, error) {
	if err := c.require("like a post"); err != nil {
		return LikeState{}, err
	}
	state, err := c.api.ToggleLike(ctx, id)
	if err != nil {
		return LikeState{}, c.authAware("like a post", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.posts[id]; ok {
		p.Likes = state.Likes
		p.LikedByViewer = state.LikedByViewer
	}
	return *state, nil
}

// LoadComments fetches the comments of a post
func (c *Community) LoadComments(ctx context.Context, id PostID) ([]Comment, error) {
	comments, err := c.api.Comments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments of post %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.comments[id] = append([]Comment(nil), comments...)
	return append([]Comment(nil), comments...), nil
}

// Comments returns the locally known comments of a post, newest first
func (c *Community) Comments(id PostID) []Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Comment(nil), c.comments[id]...)
}

// AddComment posts a comment. Blank content is rejected without a network call.
func (c *Community) AddComment(ctx context.Context, id PostID, content string) (Comment, error) {
	if strings.TrimSpace(content) == "" {
		return Comment{}, ErrEmptyComment
	}
	if err := c.require("comment"); err != nil {
		return Comment{}, err
	}
	comment, err := c.api.AddComment(ctx, id, content)
	if err != nil {
		return Comment{}, c.authAware("comment", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.comments[id] = append([]Comment{*comment}, c.comments[id]...)
	if p, ok := c.posts[id]; ok {
		p.CommentCount++
	}
	return *comment, nil
}

// DeleteComment removes comment id of post postID once confirm approves.
// On success the comment leaves the local list and the post's count drops
// by exactly one, whether or not its comments were loaded.
func (c *Community) DeleteComment(ctx context.Context, postID PostID, id CommentID, confirm ConfirmFunc) error {
	if confirm == nil || !confirm("Delete this comment?") {
		return ErrNotConfirmed
	}
	if err := c.require("delete a comment"); err != nil {
		return err
	}
	if err := c.api.DeleteComment(ctx, id); err != nil {
		return c.authAware("delete a comment", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := c.comments[postID]; ok {
		kept := list[:0]
		for _, cm := range list {
			if cm.ID != id {
				kept = append(kept, cm)
			}
		}
		c.comments[postID] = kept
	}
	if p, ok := c.posts[postID]; ok && p.CommentCount > 0 {
		p.CommentCount--
	}
	return nil
}

func (c *Community) replace(posts []SharedPost) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = make([]PostID, 0, len(posts))
	c.posts = make(map[PostID]*SharedPost, len(posts))
	for i := range posts {
		p := posts[i]
		if _, dup := c.posts[p.ID]; !dup {
			c.order = append(c.order, p.ID)
		}
		c.posts[p.ID] = &p
	}
}

func (c *Community) require(action string) error {
	if c.gate == nil {
		return nil
	}
	return c.gate.RequireAuth(action)
}

// authAware turns a 401 into an AuthError and forgets the identity
func (c *Community) authAware(action string, err error) error {
	if IsAuthError(err) {
		if c.gate != nil {
			c.gate.Invalidate()
		}
		return &AuthError{Action: action, Err: err}
	}
	return err
}
