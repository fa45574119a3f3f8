package internal

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Activation describes how a conversation view is entered
type Activation struct {
	SessionID     SessionID // resume a saved session
	InitialPrompt string    // auto-send once in a fresh session
}

// Conversation is the session controller behind one conversation view.
// It owns the store, sends through the dispatcher and reconciles with the
// server on load.
type Conversation struct {
	store      *Store
	dispatcher *Dispatcher
	sessions   SessionAPI
	gate       *AuthGate

	activated atomic.Bool
}

// NewConversation creates a controller around a fresh, unsaved store
func NewConversation(store *Store, dispatcher *Dispatcher, sessions SessionAPI, gate *AuthGate) *Conversation {
	return &Conversation{
		store:      store,
		dispatcher: dispatcher,
		sessions:   sessions,
		gate:       gate,
	}
}

// Store returns the session store the view renders
func (c *Conversation) Store() *Store {
	return c.store
}

// Activate runs the view's entry point. It probes identity once, then
// either loads a saved session or auto-sends the initial prompt; never
// both, and at most once per controller.
func (c *Conversation) Activate(ctx context.Context, act Activation) (*Result, error) {
	if !c.activated.CompareAndSwap(false, true) {
		return nil, ErrAlreadyActivated
	}

	if c.gate != nil {
		if _, err := c.gate.Refresh(ctx); err != nil {
			LogWarn("Continuing without identity: %v", err)
		}
	}

	switch {
	case act.SessionID != NoSession:
		if err := c.load(ctx, act.SessionID); err != nil {
			return nil, err
		}
		return nil, nil
	case strings.TrimSpace(act.InitialPrompt) != "":
		res := c.dispatcher.Send(ctx, c.store, act.InitialPrompt)
		return &res, nil
	default:
		return nil, nil
	}
}

// Send submits a message in the current mode
func (c *Conversation) Send(ctx context.Context, text string) Result {
	return c.dispatcher.Send(ctx, c.store, text)
}

// SetMode switches the mode for subsequent sends
func (c *Conversation) SetMode(mode Mode) {
	c.store.SetMode(mode)
}

// Deactivate abandons the view; late request callbacks become no-ops
func (c *Conversation) Deactivate() {
	c.store.Detach()
}

func (c *Conversation) load(ctx context.Context, id SessionID) error {
	if c.gate != nil {
		if err := c.gate.RequireAuth("open a saved session"); err != nil {
			return err
		}
	}
	detail, err := c.sessions.GetSession(ctx, id)
	if err != nil {
		if IsAuthError(err) {
			if c.gate != nil {
				c.gate.Invalidate()
			}
			return &AuthError{Action: "open a saved session", Err: err}
		}
		return fmt.Errorf("failed to load session %d: %w", id, err)
	}
	transcript := LoadFromServerRecords(detail.Messages)
	c.store.Replace(id, detail.Mode, transcript)
	LogDebug("Loaded session %d with %d turn(s)", id, len(transcript))
	return nil
}
