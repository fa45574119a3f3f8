package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/tchat/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		want       []string
		notWant    []string
	}{
		{
			name:       "basic transcript",
			transcript: internal.CreateTestTranscript(1),
			want: []string{
				"# Test Conversation",
				"**Session:** 1",
				"**Mode:** default",
				"**Messages:** 2",
				"**You:**",
				"Hello, how are you?",
				"**Bot:**",
			},
		},
		{
			name: "message with timestamp",
			transcript: internal.CreateTestTranscriptWithMessages(2, []internal.TranscriptMessage{
				{Actor: "user", Content: "Hello", Timestamp: "2023-01-01T00:00:00Z"},
			}),
			want: []string{"**You:** (2023-01-01T00:00:00Z)"},
		},
		{
			name:       "unsaved transcript",
			transcript: internal.CreateTestTranscriptWithMessages(0, []internal.TranscriptMessage{}),
			want: []string{
				"# New conversation",
				"**Messages:** 0",
			},
			notWant: []string{"**Session:**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &MarkdownExporter{}

			if err := exporter.Export(tt.transcript, &buf); err != nil {
				t.Fatalf("MarkdownExporter.Export() error = %v", err)
			}

			output := buf.String()
			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(output, notWantStr) {
					t.Errorf("Output should not contain %q, got:\n%s", notWantStr, output)
				}
			}
		})
	}
}

func TestMarkdownExporter_RulesBetweenExchanges(t *testing.T) {
	transcript := internal.CreateTestTranscriptWithMessages(1, []internal.TranscriptMessage{
		{Actor: "user", Content: "q1"},
		{Actor: "bot", Content: "a1"},
		{Actor: "user", Content: "q2"},
		{Actor: "bot", Content: "a2"},
	})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(transcript, &buf); err != nil {
		t.Fatalf("MarkdownExporter.Export() error = %v", err)
	}

	// one rule under the header, one between the two exchanges
	if got := strings.Count(buf.String(), "---\n"); got != 2 {
		t.Errorf("got %d rules, want 2:\n%s", got, buf.String())
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	exporter := &MarkdownExporter{}
	if got := exporter.Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		notWant []string
	}{
		{
			name:  "basic text",
			input: "Hello world",
			want:  []string{"Hello world"},
		},
		{
			name:    "markdown bold",
			input:   "This is **bold** text",
			want:    []string{"\\*\\*bold\\*\\*"},
			notWant: []string{" **bold**"},
		},
		{
			name:    "markdown underline",
			input:   "This is __underlined__ text",
			want:    []string{"\\_\\_underlined\\_\\_"},
			notWant: []string{" __underlined__"},
		},
		{
			name:  "code block preserved",
			input: "```go\nx := **p\n```",
			want:  []string{"```go", "x := **p", "```"},
		},
		{
			name:  "korean text untouched",
			input: "안녕하세요",
			want:  []string{"안녕하세요"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := escapeMarkdown(tt.input)
			for _, wantStr := range tt.want {
				if !strings.Contains(got, wantStr) {
					t.Errorf("escapeMarkdown() should contain %q, got: %s", wantStr, got)
				}
			}
			for _, notWantStr := range tt.notWant {
				if strings.Contains(got, notWantStr) {
					t.Errorf("escapeMarkdown() should not contain %q, got: %s", notWantStr, got)
				}
			}
		})
	}
}
