package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/tchat/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", transcript.Title)

	if transcript.SessionID != 0 {
		_, _ = fmt.Fprintf(w, "**Session:** %d  \n", transcript.SessionID)
	}
	_, _ = fmt.Fprintf(w, "**Mode:** %s  \n", transcript.Mode)
	if transcript.CreatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", transcript.CreatedAt)
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range transcript.Messages {
		timestamp := ""
		if msg.Timestamp != "" {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp)
		}

		content := escapeMarkdown(msg.Content)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", actorLabel(msg.Actor), timestamp, content)

		// Rule between exchanges, after each bot turn
		if msg.Actor == string(internal.RoleBot) && i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func actorLabel(actor string) string {
	switch actor {
	case string(internal.RoleUser):
		return "You"
	case string(internal.RoleBot):
		return "Bot"
	default:
		return actor
	}
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
