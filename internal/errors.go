package internal

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyMessage is returned for a message that is blank after trimming
	ErrEmptyMessage = errors.New("message is empty")

	// ErrEmptyComment is returned for a comment that is blank after trimming
	ErrEmptyComment = errors.New("comment is empty")

	// ErrNotConfirmed is returned when the caller declined a destructive action
	ErrNotConfirmed = errors.New("action not confirmed")

	// ErrAlreadyActivated is returned when a conversation is activated twice
	ErrAlreadyActivated = errors.New("conversation already activated")

	// ErrTurnNotFound is returned when a turn id is not in the transcript
	ErrTurnNotFound = errors.New("turn not found")
)

// APIError represents a non-2xx response from the chat service
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: %s %s (HTTP %d): %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api error: %s %s (HTTP %d)", e.Method, e.Path, e.Status)
}

// Unauthorized reports whether the server rejected the ambient credentials
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// AuthError represents an action blocked for lack of an authenticated identity
type AuthError struct {
	Action string
	Err    error // the 401 response, nil when the gate blocked locally
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login required to %s: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("login required to %s", e.Action)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// StorageError represents errors accessing the local cookie database
type StorageError struct {
	Path string
	Op   string // "open", "migrate", "load", "save"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConfigError represents errors loading configuration
type ConfigError struct {
	Source string // file path or "env"
	Key    string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error [%s] %s: %v", e.Source, e.Key, e.Err)
	}
	return fmt.Sprintf("config error [%s]: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err means the user has to log in
func IsAuthError(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// ErrorDetail returns the most useful human-readable detail of err
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("HTTP %d", apiErr.Status)
	}
	return err.Error()
}
