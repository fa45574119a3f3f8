package cmd

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/iksnae/tchat/internal"
	"github.com/iksnae/tchat/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "export with invalid format",
			args:    []string{"export", "--format", "invalid"},
			wantErr: true,
		},
		{
			name:    "stdout without id",
			args:    []string{"export", "--stdout"},
			wantErr: true,
		},
		{
			name:    "bad session id",
			args:    []string{"export", "abc"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			_, err := c.run("", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("exportCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func serveSessions(c *cli, ids ...int64) {
	summaries := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, map[string]interface{}{"id": id, "title": "question 1"})
		c.srv.Authenticated(http.MethodGet, "/api/sessions/"+strconv.FormatInt(id, 10), func(w http.ResponseWriter, r *http.Request) {
			testutil.WriteJSON(w, http.StatusOK, testutil.SessionDetail(id, "love", 2))
		})
	}
	c.srv.Authenticated(http.MethodGet, "/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, http.StatusOK, summaries)
	})
}

func TestExport_AllSessionsToDirectory(t *testing.T) {
	c := newCLI(t)
	c.login("alice")
	serveSessions(c, 1, 2, 3)
	outDir := filepath.Join(c.dir, "exports")

	c.mustRun("", "export", "--format", "md", "--out", outDir)

	for _, id := range []string{"1", "2", "3"} {
		data, err := os.ReadFile(filepath.Join(outDir, "session_"+id+".md"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "question 2")
		assert.Contains(t, string(data), "answer 2")
	}
}

func TestExport_SingleSessionToStdout(t *testing.T) {
	c := newCLI(t)
	c.login("alice")
	serveSessions(c, 4)

	out := c.mustRun("", "export", "4", "--format", "json", "--stdout")

	var tr internal.Transcript
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, int64(4), tr.SessionID)
	assert.Equal(t, "love", tr.Mode)
	assert.Equal(t, internal.SourceServer, tr.Source)
	require.Len(t, tr.Messages, 4)
	assert.Equal(t, "question 1", tr.Messages[0].Content)
	assert.Equal(t, "2024-01-01T09:01:00Z", tr.Messages[0].Timestamp)
}

func TestExport_MissingSession(t *testing.T) {
	c := newCLI(t)
	c.login("alice")

	_, err := c.run("", "export", "77", "--out", filepath.Join(c.dir, "exports"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found: 77")
}

func TestExport_RequiresLogin(t *testing.T) {
	c := newCLI(t)
	testutil.LoggedIn(c.srv, "alice")

	_, err := c.run("", "export", "1")
	require.Error(t, err)
	assert.True(t, internal.IsAuthError(err))
}
