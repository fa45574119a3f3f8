package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/iksnae/tchat/internal"
)

// app bundles the pieces a command needs to talk to the service
type app struct {
	cfg     internal.Config
	paths   internal.DataPaths
	db      *sql.DB
	cookies *internal.CookieStore
	client  *internal.Client
	gate    *internal.AuthGate
	base    *url.URL
}

// newApp opens the cookie database and builds a client that carries its cookies
func newApp(c internal.Config) (*app, error) {
	paths, err := internal.DetectDataPaths(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to detect data directory: %w", err)
	}

	base, err := url.Parse(c.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", c.ServerURL, err)
	}

	db, err := internal.OpenDatabase(paths.CookieDB)
	if err != nil {
		return nil, err
	}
	cookies := internal.NewCookieStore(db, paths.CookieDB)
	jar, err := internal.NewPersistentJar(cookies, base)
	if err != nil {
		db.Close()
		return nil, err
	}

	opts := c.ClientOptions()
	opts.Jar = jar
	opts.UserAgent = "tchat/" + version
	client, err := internal.NewClient(c.ServerURL, opts)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:     c,
		paths:   paths,
		db:      db,
		cookies: cookies,
		client:  client,
		gate:    internal.NewAuthGate(client),
		base:    base,
	}, nil
}

// identify probes the server once for the signed-in user
func (a *app) identify(ctx context.Context) (*internal.Identity, error) {
	id, err := a.gate.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check login: %w", err)
	}
	return id, nil
}

// requireLogin probes the identity and fails with an AuthError when signed out
func (a *app) requireLogin(ctx context.Context, action string) (*internal.Identity, error) {
	id, err := a.identify(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, &internal.AuthError{Action: action}
	}
	return id, nil
}

// newConversation wires a fresh session controller. navigator may be nil.
func (a *app) newConversation(mode internal.Mode, navigator internal.Navigator) *internal.Conversation {
	dispatcher := internal.NewDispatcher(a.client, a.gate, navigator,
		internal.WithRedirectDelay(a.cfg.RedirectDelay))
	return internal.NewConversation(internal.NewStore(mode), dispatcher, a.client, a.gate)
}

func (a *app) Close() error {
	return a.db.Close()
}
