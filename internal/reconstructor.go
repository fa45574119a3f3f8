package internal

import (
	"time"
)

// LoadFromServerRecords converts the server's flat list of stored exchanges
// into an ordered transcript. Each record becomes a user turn followed by a
// bot turn. Turn ids are derived from the record position (2i+1, 2i+2), so a
// store that continues counting after them never collides.
func LoadFromServerRecords(records []SessionRecord) []Turn {
	turns := make([]Turn, 0, 2*len(records))
	for i, rec := range records {
		ts := ParseServerTime(rec.CreatedAt)
		turns = append(turns,
			Turn{
				ID:        TurnID(2*i + 1),
				Role:      RoleUser,
				Text:      rec.UserMessage,
				Timestamp: ts,
			},
			Turn{
				ID:        TurnID(2*i + 2),
				Role:      RoleBot,
				Text:      rec.BotResponse,
				Timestamp: ts,
			},
		)
	}
	return turns
}

// DeriveHistory pairs consecutive (user, bot) turns walking from index 0.
// Unpaired turns, such as a trailing unanswered user turn or a stray bot
// turn, are skipped. It never fails.
func DeriveHistory(transcript []Turn) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(transcript)/2)
	for i := 0; i < len(transcript); {
		if i+1 < len(transcript) && transcript[i].IsUser() && transcript[i+1].IsBot() {
			history = append(history, HistoryEntry{
				UserMessage: transcript[i].Text,
				BotResponse: transcript[i+1].Text,
			})
			i += 2
			continue
		}
		if !transcript[i].IsUser() && !transcript[i].IsBot() {
			LogDebug("Skipping turn %d with unknown role %q", transcript[i].ID, transcript[i].Role)
		}
		i++
	}
	return history
}

// serverTimeLayouts are the timestamp shapes the server is known to emit
var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseServerTime parses a server timestamp, returning the zero time when absent or malformed
func ParseServerTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
