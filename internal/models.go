package internal

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the behavioral variant applied to future bot responses
type Mode string

const (
	ModeDefault    Mode = "default"
	ModeAffinity   Mode = "love"
	ModeContrarian Mode = "tbrainwash"
)

// Modes lists every supported mode in display order
var Modes = []Mode{ModeDefault, ModeAffinity, ModeContrarian}

// ParseMode accepts either the descriptive name or the wire value of a mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ModeDefault, nil
	case "affinity", "love":
		return ModeAffinity, nil
	case "contrarian", "tbrainwash":
		return ModeContrarian, nil
	default:
		return "", fmt.Errorf("unknown mode: %s (supported: default, affinity, contrarian)", s)
	}
}

// Label returns the descriptive name of the mode
func (m Mode) Label() string {
	switch m {
	case ModeAffinity:
		return "affinity"
	case ModeContrarian:
		return "contrarian"
	default:
		return "default"
	}
}

// SessionID identifies a server-persisted session. NoSession marks an unsaved one.
type SessionID int64

// NoSession is the identifier of a session the server has not persisted yet
const NoSession SessionID = 0

// TurnID identifies a turn within one session transcript
type TurnID uint64

// Role tells who authored a turn
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one message in a conversation transcript
type Turn struct {
	ID        TurnID    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// IsUser reports whether the turn was written by the user
func (t Turn) IsUser() bool { return t.Role == RoleUser }

// IsBot reports whether the turn was produced by the response service
func (t Turn) IsBot() bool { return t.Role == RoleBot }

// Session is the client-side view of a conversation
type Session struct {
	ID         SessionID `json:"id" yaml:"id"`
	Mode       Mode      `json:"mode" yaml:"mode"`
	Transcript []Turn    `json:"transcript" yaml:"transcript"`
}

// Saved reports whether the server has persisted the session
func (s Session) Saved() bool { return s.ID != NoSession }

// HistoryEntry is one paired exchange sent to the service for context
type HistoryEntry struct {
	UserMessage string `json:"userMessage" yaml:"user_message"`
	BotResponse string `json:"botResponse" yaml:"bot_response"`
}

// SessionRecord is one persisted exchange as the server returns it
type SessionRecord struct {
	ID          int64  `json:"id"`
	UserMessage string `json:"userMessage"`
	BotResponse string `json:"botResponse"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// SessionSummary is a row of the saved-session list
type SessionSummary struct {
	ID           SessionID `json:"id"`
	Title        string    `json:"title"`
	Mode         Mode      `json:"mode"`
	UpdatedAt    string    `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	LastMessage  string    `json:"lastMessage"`
}

// DefaultSessionTitle is shown for sessions the server left untitled
const DefaultSessionTitle = "New conversation"

// DisplayTitle returns the title or the placeholder for untitled sessions
func (s SessionSummary) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return DefaultSessionTitle
	}
	return s.Title
}

// SessionDetail is a saved session with its paired records
type SessionDetail struct {
	ID        SessionID       `json:"id"`
	Title     string          `json:"title"`
	Mode      Mode            `json:"mode"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Messages  []SessionRecord `json:"messages"`
}

// Identity is the authenticated user as reported by the server
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// PostID identifies a shared post
type PostID int64

// CommentID identifies a comment
type CommentID int64

// SharedPost is a frozen snapshot of one exchange published to the community feed
type SharedPost struct {
	ID            PostID `json:"id"`
	AuthorID      string `json:"userId,omitempty"`
	Author        string `json:"username"`
	Title         string `json:"title"`
	Tags          string `json:"tags"`
	UserMessage   string `json:"userMessage"`
	BotResponse   string `json:"botResponse"`
	CreatedAt     string `json:"createdAt,omitempty"`
	Likes         int    `json:"likes"`
	CommentCount  int    `json:"commentCount"`
	LikedByViewer bool   `json:"isLikedByCurrentUser"`
}

// Hashtags returns the searchable tag tokens, those beginning with '#'
func (p SharedPost) Hashtags() []string {
	var tags []string
	for _, tok := range strings.Fields(p.Tags) {
		if strings.HasPrefix(tok, "#") && len(tok) > 1 {
			tags = append(tags, tok)
		}
	}
	return tags
}

// LikeState is the server-confirmed like status of a post
type LikeState struct {
	Likes         int  `json:"likes"`
	LikedByViewer bool `json:"isLikedByCurrentUser"`
}

// Comment belongs to exactly one shared post
type Comment struct {
	ID        CommentID `json:"id"`
	PostID    PostID    `json:"sharedChatId"`
	AuthorID  string    `json:"userId,omitempty"`
	Author    string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt string    `json:"createdAt,omitempty"`
}

// ShareRequest publishes one exchange to the community feed
type ShareRequest struct {
	Title       string `json:"title"`
	Tags        string `json:"tags"`
	UserMessage string `json:"userMessage"`
	BotResponse string `json:"botResponse"`
}

// Credentials are submitted to the login and signup endpoints
type Credentials struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
