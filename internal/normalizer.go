package internal

import (
	"fmt"
	"time"
)

// Transcript is the export form of a session
type Transcript struct {
	SessionID int64               `json:"session_id" yaml:"session_id"`
	Title     string              `json:"title" yaml:"title"`
	Mode      string              `json:"mode" yaml:"mode"`
	Source    string              `json:"source" yaml:"source"`
	CreatedAt string              `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string              `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Messages  []TranscriptMessage `json:"messages" yaml:"messages"`
}

// TranscriptMessage is one exported turn
type TranscriptMessage struct {
	Actor     string `json:"actor" yaml:"actor"`
	Content   string `json:"content" yaml:"content"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

const (
	SourceServer = "server"
	SourceLive   = "live"
)

// Normalizer converts sessions to the export form
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeDetail converts a session fetched from the server
func (n *Normalizer) NormalizeDetail(detail *SessionDetail) (*Transcript, error) {
	if detail == nil {
		return nil, fmt.Errorf("session is nil")
	}
	sess := Session{
		ID:         detail.ID,
		Mode:       detail.Mode,
		Transcript: LoadFromServerRecords(detail.Messages),
	}
	t := n.NormalizeSession(sess, detail.Title)
	t.Source = SourceServer
	t.CreatedAt = normalizeServerTime(detail.CreatedAt)
	t.UpdatedAt = normalizeServerTime(detail.UpdatedAt)
	return t, nil
}

// NormalizeSession converts an in-memory session
func (n *Normalizer) NormalizeSession(sess Session, title string) *Transcript {
	if title == "" {
		title = DefaultSessionTitle
	}
	messages := make([]TranscriptMessage, 0, len(sess.Transcript))
	for _, turn := range sess.Transcript {
		messages = append(messages, n.normalizeTurn(turn))
	}
	return &Transcript{
		SessionID: int64(sess.ID),
		Title:     title,
		Mode:      string(sess.Mode),
		Source:    SourceLive,
		Messages:  messages,
	}
}

func (n *Normalizer) normalizeTurn(turn Turn) TranscriptMessage {
	msg := TranscriptMessage{
		Actor:   string(turn.Role),
		Content: turn.Text,
	}
	if !turn.Timestamp.IsZero() {
		msg.Timestamp = turn.Timestamp.UTC().Format(time.RFC3339)
	}
	return msg
}

// normalizeServerTime rewrites a server timestamp as RFC3339, keeping unparseable values
func normalizeServerTime(ts string) string {
	t := ParseServerTime(ts)
	if t.IsZero() {
		return ts
	}
	return t.UTC().Format(time.RFC3339)
}
