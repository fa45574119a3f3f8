package cmd

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/iksnae/tchat/internal"
)

const replyWrapWidth = 80

// replyRenderer turns bot replies into terminal output
type replyRenderer struct {
	md *glamour.TermRenderer // nil prints replies verbatim
}

// newReplyRenderer renders markdown when enabled and w is a terminal
func newReplyRenderer(w io.Writer, enabled bool) *replyRenderer {
	if !enabled || !internal.IsTerminal(w) {
		return &replyRenderer{}
	}
	r, err := newMarkdownRenderer("", replyWrapWidth)
	if err != nil {
		internal.LogDebug("Markdown rendering disabled: %v", err)
		return &replyRenderer{}
	}
	return &replyRenderer{md: r}
}

// newMarkdownRenderer builds a glamour renderer. An empty style picks one
// matching the terminal background.
func newMarkdownRenderer(style string, width int) (*glamour.TermRenderer, error) {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	return glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
}

func (r *replyRenderer) Render(text string) string {
	if r == nil || r.md == nil {
		return wrapText(strings.TrimSpace(text), replyWrapWidth)
	}
	out, err := r.md.Render(text)
	if err != nil {
		internal.LogDebug("Failed to render reply: %v", err)
		return text
	}
	return strings.Trim(out, "\n")
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
				}
				currentLine = word
				continue
			}
			if currentLine == "" {
				currentLine = word
			} else {
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}
