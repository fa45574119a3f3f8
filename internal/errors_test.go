package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestStorageError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &StorageError{
		Path: "/test/cookies.db",
		Op:   "open",
		Err:  originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/test/cookies.db") {
		t.Errorf("StorageError.Error() should contain path, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		want     []string
		unauth   bool
		notFound bool
		detail   string
	}{
		{
			name:   "unauthorized with message",
			err:    &APIError{Method: http.MethodPost, Path: "/api/chat", Status: 401, Message: "Unauthorized"},
			want:   []string{"POST", "/api/chat", "HTTP 401", "Unauthorized"},
			unauth: true,
			detail: "Unauthorized",
		},
		{
			name:     "not found without message",
			err:      &APIError{Method: http.MethodGet, Path: "/api/sessions/9", Status: 404},
			want:     []string{"GET", "HTTP 404"},
			notFound: true,
			detail:   "HTTP 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("APIError.Error() should contain %q, got: %q", w, msg)
				}
			}
			if got := tt.err.Unauthorized(); got != tt.unauth {
				t.Errorf("Unauthorized() = %v, want %v", got, tt.unauth)
			}
			wrapped := fmt.Errorf("loading: %w", tt.err)
			if got := IsAuthError(wrapped); got != tt.unauth {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.unauth)
			}
			if got := IsNotFound(wrapped); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := ErrorDetail(wrapped); got != tt.detail {
				t.Errorf("ErrorDetail() = %q, want %q", got, tt.detail)
			}
		})
	}
}

func TestAuthError(t *testing.T) {
	local := &AuthError{Action: "comment"}
	if got := local.Error(); got != "login required to comment" {
		t.Errorf("AuthError.Error() = %q", got)
	}
	if local.Unwrap() != nil {
		t.Error("a locally blocked action has no cause")
	}

	cause := &APIError{Status: http.StatusUnauthorized}
	remote := &AuthError{Action: "comment", Err: cause}
	var apiErr *APIError
	if !errors.As(remote, &apiErr) || apiErr != cause {
		t.Error("AuthError should unwrap to the 401 response")
	}
	if !IsAuthError(local) || !IsAuthError(remote) {
		t.Error("IsAuthError() should accept both forms")
	}
	if IsAuthError(errors.New("boom")) {
		t.Error("IsAuthError() should reject plain errors")
	}
}

func TestConfigError(t *testing.T) {
	originalErr := errors.New("bad value")
	err := &ConfigError{Source: "env", Key: "TCHAT_TIMEOUT", Err: originalErr}
	if !strings.Contains(err.Error(), "TCHAT_TIMEOUT") {
		t.Errorf("ConfigError.Error() should contain key, got: %q", err.Error())
	}
	if !errors.Is(err, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
	noKey := &ConfigError{Source: "/etc/tchat.toml", Err: originalErr}
	if !strings.Contains(noKey.Error(), "/etc/tchat.toml") {
		t.Errorf("ConfigError.Error() should contain source, got: %q", noKey.Error())
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{
		Format: "jsonl",
		Path:   "/output/file.jsonl",
		Err:    originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "jsonl") {
		t.Errorf("ExportError.Error() should contain format, got: %q", errorMsg)
	}

	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestErrorDetail(t *testing.T) {
	if got := ErrorDetail(nil); got != "" {
		t.Errorf("ErrorDetail(nil) = %q, want empty", got)
	}
	if got := ErrorDetail(errors.New("dial tcp: refused")); got != "dial tcp: refused" {
		t.Errorf("ErrorDetail() = %q", got)
	}
}
