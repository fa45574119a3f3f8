package internal

import (
	"fmt"
	"time"
)

// CreateTestTranscript creates a test transcript with one exchange
func CreateTestTranscript(id int64) *Transcript {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Transcript{
		SessionID: id,
		Title:     "Test Conversation",
		Mode:      string(ModeDefault),
		Source:    SourceServer,
		CreatedAt: now,
		Messages: []TranscriptMessage{
			{
				Actor:     string(RoleUser),
				Content:   "Hello, how are you?",
				Timestamp: now,
			},
			{
				Actor:     string(RoleBot),
				Content:   "I'm doing well, thank you!",
				Timestamp: now,
			},
		},
	}
}

// CreateTestTranscriptWithMessages creates a test transcript with custom messages
func CreateTestTranscriptWithMessages(id int64, messages []TranscriptMessage) *Transcript {
	return &Transcript{
		SessionID: id,
		Title:     DefaultSessionTitle,
		Mode:      string(ModeDefault),
		Source:    SourceLive,
		Messages:  messages,
	}
}

// CreateTestRecords creates n stored exchanges numbered from 1
func CreateTestRecords(n int) []SessionRecord {
	records := make([]SessionRecord, 0, n)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		records = append(records, SessionRecord{
			ID:          int64(i + 1),
			UserMessage: fmt.Sprintf("question %d", i+1),
			BotResponse: fmt.Sprintf("answer %d", i+1),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	return records
}

// CreateTestDetail creates a saved session holding n exchanges
func CreateTestDetail(id SessionID, n int) *SessionDetail {
	return &SessionDetail{
		ID:        id,
		Title:     fmt.Sprintf("Session %d", id),
		Mode:      ModeDefault,
		CreatedAt: "2024-01-01T09:00:00Z",
		UpdatedAt: "2024-01-01T10:00:00Z",
		Messages:  CreateTestRecords(n),
	}
}
