package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// LoginRequiredNotice is the bot turn appended when credentials are missing or expired
	LoginRequiredNotice = "Login is required. Taking you to the login page..."

	// FailureNotice is the bot turn appended on any other failure
	FailureNotice = "Sorry, something went wrong while talking to the server."

	// DefaultRedirectDelay is the grace period before navigating to login
	DefaultRedirectDelay = 1500 * time.Millisecond
)

// Outcome is the single result a send applies to the store
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAuthFailure
	OutcomeFailure
	OutcomeBusy
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthFailure:
		return "auth-failure"
	case OutcomeFailure:
		return "failure"
	case OutcomeBusy:
		return "busy"
	case OutcomeIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes what a send did
type Result struct {
	Outcome  Outcome
	UserTurn TurnID // zero for busy and ignored
	BotTurn  TurnID // zero for busy and ignored
	Reply    string // the bot turn text
	Bound    bool   // the session id was bound by this send
	Err      error  // cause of auth-failure and failure
}

// Navigator leads the user to the login surface
type Navigator interface {
	NavigateToLogin()
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func()

// NavigateToLogin calls f
func (f NavigatorFunc) NavigateToLogin() { f() }

// Dispatcher owns the request lifecycle of sending a message
type Dispatcher struct {
	api           ChatAPI
	gate          *AuthGate
	navigator     Navigator
	redirectDelay time.Duration
	schedule      func(d time.Duration, f func())

	mu        sync.Mutex
	redirects int
}

// DispatcherOption customizes a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithRedirectDelay sets the grace period before the login redirect
func WithRedirectDelay(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.redirectDelay = d }
}

// WithScheduler replaces time.AfterFunc, mostly for tests
func WithScheduler(schedule func(d time.Duration, f func())) DispatcherOption {
	return func(disp *Dispatcher) { disp.schedule = schedule }
}

// NewDispatcher creates a dispatcher. navigator may be nil when no redirect is wanted.
func NewDispatcher(api ChatAPI, gate *AuthGate, navigator Navigator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		api:           api,
		gate:          gate,
		navigator:     navigator,
		redirectDelay: DefaultRedirectDelay,
		schedule: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send submits text in the store's current mode. While a send for the same
// store is outstanding a second one is dropped with OutcomeBusy. Blank text
// is ignored. Otherwise exactly one of success, auth-failure or failure is
// applied, and the store returns to Idle on every path.
func (d *Dispatcher) Send(ctx context.Context, store *Store, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeIgnored, Err: ErrEmptyMessage}
	}
	if !store.beginSend() {
		LogDebug("Dropping send: session %d is busy", store.ID())
		return Result{Outcome: OutcomeBusy}
	}
	defer store.endSend()

	before := store.Current()
	history := DeriveHistory(before.Transcript)
	userTurn := store.AppendUserTurn(text)

	if d.gate != nil {
		if err := d.gate.RequireAuth("send a message"); err != nil {
			return d.authFailure(store, userTurn, err)
		}
	}

	req := ChatRequest{
		Message:             text,
		Mode:                before.Mode,
		ConversationHistory: history,
	}
	if before.Saved() {
		id := before.ID
		req.SessionID = &id
	}

	LogDebug("Sending message in mode %s (session %d, %d history entries)", req.Mode, before.ID, len(history))
	resp, err := d.api.Chat(ctx, req)
	if err != nil {
		if IsAuthError(err) {
			return d.authFailure(store, userTurn, &AuthError{Action: "send a message", Err: err})
		}
		LogWarn("Send failed: %v", err)
		reply := failureText(err)
		return Result{
			Outcome:  OutcomeFailure,
			UserTurn: userTurn,
			BotTurn:  store.AppendBotTurn(reply),
			Reply:    reply,
			Err:      err,
		}
	}

	res := Result{
		Outcome:  OutcomeSuccess,
		UserTurn: userTurn,
		BotTurn:  store.AppendBotTurn(resp.Message),
		Reply:    resp.Message,
	}
	if !before.Saved() && resp.SessionID != NoSession {
		res.Bound = store.BindSessionID(resp.SessionID)
		if res.Bound {
			LogDebug("Session bound to id %d", resp.SessionID)
		}
	}
	return res
}

// Redirects returns how many login redirects were scheduled
func (d *Dispatcher) Redirects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.redirects
}

func (d *Dispatcher) authFailure(store *Store, userTurn TurnID, err error) Result {
	if d.gate != nil {
		d.gate.Invalidate()
	}
	res := Result{
		Outcome:  OutcomeAuthFailure,
		UserTurn: userTurn,
		BotTurn:  store.AppendBotTurn(LoginRequiredNotice),
		Reply:    LoginRequiredNotice,
		Err:      err,
	}
	if d.navigator != nil {
		d.mu.Lock()
		d.redirects++
		d.mu.Unlock()
		d.schedule(d.redirectDelay, d.navigator.NavigateToLogin)
	}
	return res
}

func failureText(err error) string {
	detail := ErrorDetail(err)
	if detail == "" {
		return FailureNotice
	}
	return fmt.Sprintf("%s (%s)", FailureNotice, detail)
}
