package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "successful function",
			message: "Testing",
			fn: func() error {
				return nil
			},
		},
		{
			name:    "function with error",
			message: "Testing error",
			fn: func() error {
				return errors.New("test error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShowProgress_Terminal(t *testing.T) {
	var buf bytes.Buffer
	err := showProgress(context.Background(), &buf, true, "Loading sessions", func() error {
		time.Sleep(150 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("showProgress() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Loading sessions") || !strings.Contains(out, "✓") {
		t.Errorf("showProgress() output = %q", out)
	}
}

func TestShowProgress_PlainLogsMessageVerbatim(t *testing.T) {
	var logs bytes.Buffer
	SetLogOutput(&logs)
	SetLogLevel(LogLevelInfo)
	defer SetLogOutput(os.Stderr)

	var buf bytes.Buffer
	err := showProgress(context.Background(), &buf, false, "Exporting 100% of sessions", func() error { return nil })
	if err != nil {
		t.Fatalf("showProgress() error = %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "Exporting 100% of sessions") || strings.Contains(out, "%!") {
		t.Errorf("log output = %q", out)
	}
}

func TestShowProgress_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	release := make(chan struct{})
	defer close(release)
	err := showProgress(ctx, &buf, true, "Waiting", func() error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("showProgress() error = %v, want deadline exceeded", err)
	}
}

func TestAwait(t *testing.T) {
	got := Await(context.Background(), "Thinking", func() int { return 42 })
	if got != 42 {
		t.Errorf("Await() = %d, want 42", got)
	}
}

func TestIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	if IsTerminal(&buf) {
		t.Error("a buffer is not a terminal")
	}
}
