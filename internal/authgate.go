package internal

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AuthGate is the identity capability every mutating interaction consults.
// The identity is re-derived by a check probe on each activation and never
// cached across runs. The gate blocks; it never navigates.
type AuthGate struct {
	api AuthAPI

	mu       sync.RWMutex
	identity *Identity
	probed   bool

	probe singleflight.Group
}

// NewAuthGate creates a gate with no known identity
func NewAuthGate(api AuthAPI) *AuthGate {
	return &AuthGate{api: api}
}

// Refresh issues the session-check probe. Concurrent callers share one
// request, which runs detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done. A 401 means anonymous and
// is not an error.
func (g *AuthGate) Refresh(ctx context.Context) (*Identity, error) {
	probeCtx := context.WithoutCancel(ctx)
	ch := g.probe.DoChan("check", func() (interface{}, error) {
		id, err := g.api.CheckAuth(probeCtx)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Unauthorized() {
				g.set(nil)
				return (*Identity)(nil), nil
			}
			return nil, err
		}
		if id != nil && id.Username == "" && id.Email == "" {
			id = nil
		}
		g.set(id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			LogWarn("Session check failed: %v", res.Err)
			return nil, res.Err
		}
		return res.Val.(*Identity), nil
	}
}

// Current returns the identity from the last probe or login, nil if none
func (g *AuthGate) Current() *Identity {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.identity == nil {
		return nil
	}
	id := *g.identity
	return &id
}

// Probed reports whether a check has completed since creation
func (g *AuthGate) Probed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.probed
}

// RequireAuth lets the action proceed only with an authenticated identity
func (g *AuthGate) RequireAuth(action string) error {
	if g.Current() == nil {
		return &AuthError{Action: action}
	}
	return nil
}

// Login submits credentials and adopts the returned identity
func (g *AuthGate) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	id, err := g.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	g.set(id)
	LogInfo("Logged in as %s", id.Username)
	return g.Current(), nil
}

// Signup creates an account and adopts the returned identity
func (g *AuthGate) Signup(ctx context.Context, creds Credentials) (*Identity, error) {
	id, err := g.api.Signup(ctx, creds)
	if err != nil {
		return nil, err
	}
	g.set(id)
	LogInfo("Signed up as %s", id.Username)
	return g.Current(), nil
}

// Logout ends the server session and forgets the identity
func (g *AuthGate) Logout(ctx context.Context) error {
	err := g.api.Logout(ctx)
	g.set(nil)
	return err
}

// Invalidate forgets the identity after the server rejected the credentials
func (g *AuthGate) Invalidate() {
	g.set(nil)
}

func (g *AuthGate) set(id *Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probed = true
	if id == nil {
		g.identity = nil
		return
	}
	cp := *id
	g.identity = &cp
}
