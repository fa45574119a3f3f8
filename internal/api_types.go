package internal

import "context"

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	Message             string         `json:"message"`
	Mode                Mode           `json:"mode"`
	SessionID           *SessionID     `json:"sessionId"`
	ConversationHistory []HistoryEntry `json:"conversationHistory"`
}

// ChatResponse is the reply of POST /api/chat
type ChatResponse struct {
	Message   string    `json:"message"`
	SessionID SessionID `json:"sessionId"`
}

// FeedKind selects which community listing to fetch
type FeedKind string

const (
	FeedRecent  FeedKind = "recent"
	FeedPopular FeedKind = "popular"
)

// commentRequest is the body of POST /api/community/{id}/comments
type commentRequest struct {
	Content string `json:"content"`
}

// errorBody covers both error shapes the server sends
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ChatAPI sends a message to the response service
type ChatAPI interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// SessionAPI manages server-persisted sessions
type SessionAPI interface {
	ListSessions(ctx context.Context) ([]SessionSummary, error)
	GetSession(ctx context.Context, id SessionID) (*SessionDetail, error)
	DeleteSession(ctx context.Context, id SessionID) error
}

// AuthAPI covers the credential endpoints
type AuthAPI interface {
	CheckAuth(ctx context.Context) (*Identity, error)
	Login(ctx context.Context, creds Credentials) (*Identity, error)
	Signup(ctx context.Context, creds Credentials) (*Identity, error)
	Logout(ctx context.Context) error
}

// CommunityAPI covers the shared feed endpoints
type CommunityAPI interface {
	Feed(ctx context.Context, kind FeedKind) ([]SharedPost, error)
	Search(ctx context.Context, query string) ([]SharedPost, error)
	MyPosts(ctx context.Context) ([]SharedPost, error)
	Share(ctx context.Context, req ShareRequest) (*SharedPost, error)
	ToggleLike(ctx context.Context, id PostID) (*LikeState, error)
	Comments(ctx context.Context, id PostID) ([]Comment, error)
	AddComment(ctx context.Context, id PostID, content string) (*Comment, error)
	DeleteComment(ctx context.Context, id CommentID) error
}

// API is everything the client side of the contract offers
type API interface {
	ChatAPI
	SessionAPI
	AuthAPI
	CommunityAPI
}
