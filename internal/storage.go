package internal

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// CookieStore persists the service's session cookie between runs. The
// client never edits cookies itself; it only records what the server set.
type CookieStore struct {
	db   *sql.DB
	path string
}

// NewCookieStore creates a store over an opened database
func NewCookieStore(db *sql.DB, path string) *CookieStore {
	return &CookieStore{db: db, path: path}
}

// Load returns the unexpired cookies recorded for host
func (s *CookieStore) Load(host string, now time.Time) ([]*http.Cookie, error) {
	rows, err := s.db.Query(
		"SELECT name, path, value, expires, secure, http_only FROM cookies WHERE host = ? AND (expires = 0 OR expires > ?)",
		host, now.Unix(),
	)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "load", Err: err}
	}
	defer rows.Close()

	var cookies []*http.Cookie
	for rows.Next() {
		var (
			c                http.Cookie
			expires          int64
			secure, httpOnly bool
		)
		if err := rows.Scan(&c.Name, &c.Path, &c.Value, &expires, &secure, &httpOnly); err != nil {
			return nil, &StorageError{Path: s.path, Op: "load", Err: fmt.Errorf("scan failed: %w", err)}
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
		}
		c.Secure = secure
		c.HttpOnly = httpOnly
		cookies = append(cookies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Path: s.path, Op: "load", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return cookies, nil
}

// Save records cookies the server set for host. Deleting cookies
// (negative MaxAge or past expiry) remove the stored row.
func (s *CookieStore) Save(host string, cookies []*http.Cookie, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		var expires int64
		switch {
		case c.MaxAge > 0:
			expires = now.Add(time.Duration(c.MaxAge) * time.Second).Unix()
		case !c.Expires.IsZero():
			expires = c.Expires.Unix()
		}

		if c.MaxAge < 0 || (expires > 0 && expires <= now.Unix()) {
			if _, err := tx.Exec("DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?", host, c.Name, path); err != nil {
				return &StorageError{Path: s.path, Op: "save", Err: err}
			}
			continue
		}

		_, err := tx.Exec(`INSERT INTO cookies (host, name, path, value, expires, secure, http_only, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (host, name, path) DO UPDATE SET
				value = excluded.value, expires = excluded.expires, secure = excluded.secure,
				http_only = excluded.http_only, updated_at = excluded.updated_at`,
			host, c.Name, path, c.Value, expires, c.Secure, c.HttpOnly, now.Unix())
		if err != nil {
			return &StorageError{Path: s.path, Op: "save", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// Clear forgets every cookie of host
func (s *CookieStore) Clear(host string) error {
	if _, err := s.db.Exec("DELETE FROM cookies WHERE host = ?", host); err != nil {
		return &StorageError{Path: s.path, Op: "save", Err: err}
	}
	return nil
}

// Count returns how many cookies are stored for host
func (s *CookieStore) Count(host string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM cookies WHERE host = ?", host).Scan(&n); err != nil {
		return 0, &StorageError{Path: s.path, Op: "load", Err: err}
	}
	return n, nil
}

// PersistentJar is an http.CookieJar that mirrors the server's cookies
// into a CookieStore so the session survives between invocations.
type PersistentJar struct {
	mu    sync.Mutex
	jar   *cookiejar.Jar
	store *CookieStore
	now   func() time.Time
}

var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar creates a jar preloaded with the stored cookies of base
func NewPersistentJar(store *CookieStore, base *url.URL) (*PersistentJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	pj := &PersistentJar{jar: jar, store: store, now: time.Now}

	cookies, err := store.Load(base.Hostname(), pj.now())
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 {
		jar.SetCookies(base, cookies)
		LogDebug("Restored %d cookie(s) for %s", len(cookies), base.Hostname())
	}
	return pj, nil
}

// SetCookies stores the cookies in memory and on disk
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
	if err := j.store.Save(u.Hostname(), cookies, j.now()); err != nil {
		LogWarn("Failed to persist cookies: %v", err)
	}
}

// Cookies returns the cookies to send to u
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}
