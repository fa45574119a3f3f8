package testutil

import (
	"fmt"
	"net/http"
)

// Identity is the body of a successful auth response
func Identity(username string) map[string]string {
	return map[string]string{"username": username, "email": username + "@example.com"}
}

// SessionRecords builds n stored exchanges as the service returns them
func SessionRecords(n int) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, map[string]interface{}{
			"id":          i,
			"userMessage": fmt.Sprintf("question %d", i),
			"botResponse": fmt.Sprintf("answer %d", i),
			"createdAt":   fmt.Sprintf("2024-01-01T09:%02d:00", i),
		})
	}
	return records
}

// SessionDetail builds the body of GET /api/sessions/{id}
func SessionDetail(id int64, mode string, n int) map[string]interface{} {
	return map[string]interface{}{
		"id":        id,
		"title":     "question 1",
		"mode":      mode,
		"createdAt": "2024-01-01T09:00:00",
		"updatedAt": "2024-01-01T10:00:00",
		"messages":  SessionRecords(n),
	}
}

// SharedPost builds one community post
func SharedPost(id int64, author string, likes, comments int) map[string]interface{} {
	return map[string]interface{}{
		"id":                   id,
		"userId":               author + "-id",
		"username":             author,
		"title":                fmt.Sprintf("post %d", id),
		"tags":                 "#go #chat",
		"userMessage":          "what is a goroutine?",
		"botResponse":          "a lightweight thread",
		"createdAt":            "2024-01-02T12:00:00",
		"likes":                likes,
		"commentCount":         comments,
		"isLikedByCurrentUser": false,
	}
}

// Comment builds one comment of a post
func Comment(id, postID int64, author, content string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"sharedChatId": postID,
		"userId":       author + "-id",
		"username":     author,
		"content":      content,
		"createdAt":    "2024-01-02T12:30:00",
	}
}

// LoggedIn wires the auth endpoints for username: login issues the
// session cookie, check and logout honor it.
func LoggedIn(f *FakeServer, username string) {
	f.Handle(http.MethodPost, "/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		SetSession(w, "session-"+username)
		WriteJSON(w, http.StatusOK, Identity(username))
	})
	f.Authenticated(http.MethodGet, "/api/auth/check", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, Identity(username))
	})
	f.Handle(http.MethodPost, "/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		ClearSession(w)
		w.WriteHeader(http.StatusOK)
	})
}
