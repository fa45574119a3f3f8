package internal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNotStubbed = errors.New("not stubbed")

// fakeAPI implements API with per-endpoint stubs and call counters
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	chatReqs []ChatRequest

	chat          func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	check         func(ctx context.Context) (*Identity, error)
	getSession    func(ctx context.Context, id SessionID) (*SessionDetail, error)
	feed          func(ctx context.Context, kind FeedKind) ([]SharedPost, error)
	search        func(ctx context.Context, q string) ([]SharedPost, error)
	share         func(ctx context.Context, req ShareRequest) (*SharedPost, error)
	toggleLike    func(ctx context.Context, id PostID) (*LikeState, error)
	comments      func(ctx context.Context, id PostID) ([]Comment, error)
	addComment    func(ctx context.Context, id PostID, content string) (*Comment, error)
	deleteComment func(ctx context.Context, id CommentID) error
}

var _ API = (*fakeAPI)(nil)

func (f *fakeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) requests() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChatRequest(nil), f.chatReqs...)
}

func (f *fakeAPI) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	f.hit("chat")
	f.mu.Lock()
	f.chatReqs = append(f.chatReqs, req)
	f.mu.Unlock()
	if f.chat == nil {
		return nil, errNotStubbed
	}
	return f.chat(ctx, req)
}

func (f *fakeAPI) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	f.hit("list")
	return nil, errNotStubbed
}

func (f *fakeAPI) GetSession(ctx context.Context, id SessionID) (*SessionDetail, error) {
	f.hit("get")
	if f.getSession == nil {
		return nil, errNotStubbed
	}
	return f.getSession(ctx, id)
}

func (f *fakeAPI) DeleteSession(ctx context.Context, id SessionID) error {
	f.hit("delete")
	return errNotStubbed
}

func (f *fakeAPI) CheckAuth(ctx context.Context) (*Identity, error) {
	f.hit("check")
	if f.check == nil {
		return nil, unauthorized()
	}
	return f.check(ctx)
}

func (f *fakeAPI) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	f.hit("login")
	return &Identity{Username: creds.Username, Email: creds.Email}, nil
}

func (f *fakeAPI) Signup(ctx context.Context, creds Credentials) (*Identity, error) {
	f.hit("signup")
	return &Identity{Username: creds.Username, Email: creds.Email}, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.hit("logout")
	return nil
}

func (f *fakeAPI) Feed(ctx context.Context, kind FeedKind) ([]SharedPost, error) {
	f.hit("feed:" + string(kind))
	if f.feed == nil {
		return nil, errNotStubbed
	}
	return f.feed(ctx, kind)
}

func (f *fakeAPI) Search(ctx context.Context, q string) ([]SharedPost, error) {
	f.hit("search")
	if f.search == nil {
		return nil, errNotStubbed
	}
	return f.search(ctx, q)
}

func (f *fakeAPI) MyPosts(ctx context.Context) ([]SharedPost, error) {
	f.hit("mine")
	return nil, nil
}

func (f *fakeAPI) Share(ctx context.Context, req ShareRequest) (*SharedPost, error) {
	f.hit("share")
	if f.share == nil {
		return nil, errNotStubbed
	}
	return f.share(ctx, req)
}

func (f *fakeAPI) ToggleLike(ctx context.Context, id PostID) (*LikeState, error) {
	f.hit("like")
	if f.toggleLike == nil {
		return nil, errNotStubbed
	}
	return f.toggleLike(ctx, id)
}

func (f *fakeAPI) Comments(ctx context.Context, id PostID) ([]Comment, error) {
	f.hit("comments")
	if f.comments == nil {
		return nil, errNotStubbed
	}
	return f.comments(ctx, id)
}

func (f *fakeAPI) AddComment(ctx context.Context, id PostID, content string) (*Comment, error) {
	f.hit("comment:add")
	if f.addComment == nil {
		return nil, errNotStubbed
	}
	return f.addComment(ctx, id, content)
}

func (f *fakeAPI) DeleteComment(ctx context.Context, id CommentID) error {
	f.hit("comment:delete")
	if f.deleteComment == nil {
		return errNotStubbed
	}
	return f.deleteComment(ctx, id)
}

func unauthorized() error {
	return &APIError{Method: http.MethodGet, Path: "/api/test", Status: http.StatusUnauthorized, Message: "Unauthorized"}
}

// signedIn makes api report alice as logged in and returns a refreshed gate
func signedIn(t *testing.T, api *fakeAPI) *AuthGate {
	t.Helper()
	api.check = func(ctx context.Context) (*Identity, error) {
		return &Identity{Username: "alice", Email: "alice@example.com"}, nil
	}
	gate := NewAuthGate(api)
	id, err := gate.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, id)
	return gate
}

// anonymous returns a refreshed gate with no identity
func anonymous(t *testing.T, api *fakeAPI) *AuthGate {
	t.Helper()
	gate := NewAuthGate(api)
	id, err := gate.Refresh(context.Background())
	require.NoError(t, err)
	require.Nil(t, id)
	return gate
}
