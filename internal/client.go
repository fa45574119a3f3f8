package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// DefaultServerURL is where the chat service listens in development
	DefaultServerURL = "http://localhost:8080"

	// DefaultTimeout bounds a single request, including a slow bot reply
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps how much of a response body is read
	MaxResponseSize = 10 * 1024 * 1024

	// RequestIDHeader carries a correlation id on every request
	RequestIDHeader = "X-Request-ID"
)

// ClientOptions configures a Client
type ClientOptions struct {
	Timeout   time.Duration
	Jar       http.CookieJar // ambient credential; an in-memory jar when nil
	RateLimit float64        // requests per second, 0 disables throttling
	RateBurst int
	UserAgent string
	Transport http.RoundTripper
}

// Client talks to the chat service over its fixed HTTP+JSON contract.
// Credentials travel only as cookies held by the jar.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

var _ API = (*Client)(nil)

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	jar := opts.Jar
	if jar == nil {
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "tchat"
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Jar:       jar,
			Timeout:   timeout,
			Transport: opts.Transport,
		},
		limiter:   limiter,
		userAgent: userAgent,
	}, nil
}

// BaseURL returns the service root
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Chat sends one message with its conversation history
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []HistoryEntry{}
	}
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions returns the user's saved sessions
func (c *Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	var sessions []SessionSummary
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession returns one saved session with its records
func (c *Client) GetSession(ctx context.Context, id SessionID) (*SessionDetail, error) {
	var detail SessionDetail
	path := "/api/sessions/" + strconv.FormatInt(int64(id), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	if detail.ID == NoSession {
		detail.ID = id
	}
	return &detail, nil
}

// DeleteSession removes a saved session
func (c *Client) DeleteSession(ctx context.Context, id SessionID) error {
	path := "/api/sessions/" + strconv.FormatInt(int64(id), 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// CheckAuth probes the ambient session cookie
func (c *Client) CheckAuth(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Login authenticates; the server answers with a session cookie
func (c *Client) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, creds, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Signup creates an account and signs it in
func (c *Client) Signup(ctx context.Context, creds Credentials) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, creds, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Logout invalidates the server session
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// Feed returns the recent or popular community listing
func (c *Client) Feed(ctx context.Context, kind FeedKind) ([]SharedPost, error) {
	path := "/api/community"
	if kind == FeedPopular {
		path = "/api/community/popular"
	}
	var posts []SharedPost
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Search matches titles, contents and tags on the server
func (c *Client) Search(ctx context.Context, query string) ([]SharedPost, error) {
	var posts []SharedPost
	q := url.Values{"q": []string{query}}
	if err := c.do(ctx, http.MethodGet, "/api/community/search", q, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// MyPosts returns the posts the signed-in user shared
func (c *Client) MyPosts(ctx context.Context) ([]SharedPost, error) {
	var posts []SharedPost
	if err := c.do(ctx, http.MethodGet, "/api/community/my", nil, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Share publishes one exchange
func (c *Client) Share(ctx context.Context, req ShareRequest) (*SharedPost, error) {
	var post SharedPost
	if err := c.do(ctx, http.MethodPost, "/api/community/share", nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ToggleLike likes or unlikes a post; the server picks the direction
func (c *Client) ToggleLike(ctx context.Context, id PostID) (*LikeState, error) {
	var state LikeState
	path := "/api/community/" + strconv.FormatInt(int64(id), 10) + "/like"
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Comments lists the comments of a post
func (c *Client) Comments(ctx context.Context, id PostID) ([]Comment, error) {
	var comments []Comment
	path := "/api/community/" + strconv.FormatInt(int64(id), 10) + "/comments"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// AddComment posts a comment on a post
func (c *Client) AddComment(ctx context.Context, id PostID, content string) (*Comment, error) {
	var comment Comment
	path := "/api/community/" + strconv.FormatInt(int64(id), 10) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, nil, commentRequest{Content: content}, &comment); err != nil {
		return nil, err
	}
	if comment.PostID == 0 {
		comment.PostID = id
	}
	return &comment, nil
}

// DeleteComment removes a comment; only its author may do so
func (c *Client) DeleteComment(ctx context.Context, id CommentID) error {
	path := "/api/community/comments/" + strconv.FormatInt(int64(id), 10)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do performs one JSON round trip. out may be nil for no-content endpoints.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}
	LogDebug("%s %s -> %d in %s (request %s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond), requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func newAPIError(method, path string, status int, data []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Error
		}
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 {
		apiErr.Message = text
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the service
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
