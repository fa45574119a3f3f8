package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/tchat/internal"
	"github.com/iksnae/tchat/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// cli runs commands against one fake service with one data directory
type cli struct {
	t   *testing.T
	srv *testutil.FakeServer
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	for _, key := range []string{"SERVER_URL", "MODE", "DATA_DIR", "TIMEOUT", "RATE_LIMIT", "RATE_BURST", "RENDER"} {
		t.Setenv(internal.EnvPrefix+key, "")
	}
	t.Setenv(internal.EnvPrefix+"REDIRECT_DELAY", "10ms")
	return &cli{t: t, srv: testutil.NewFakeServer(t), dir: testutil.CreateTempDir(t)}
}

// run executes args with stdin and returns everything written to stdout and stderr
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)
	cfg = internal.DefaultConfig()

	var out bytes.Buffer
	rootCmd.SetArgs(append([]string{"--server", c.srv.URL, "--data-dir", c.dir}, args...))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun fails the test when the command errors
func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, out)
	return out
}

// login signs in as username through the login command so the cookie lands in the data dir
func (c *cli) login(username string) {
	c.t.Helper()
	testutil.LoggedIn(c.srv, username)
	c.mustRun("", "login", "--email", username+"@example.com", "--password", "secret")
}

// chatReplies answers every chat message and binds new sessions to sessionID
func (c *cli) chatReplies(sessionID int64) {
	c.srv.Authenticated(http.MethodPost, "/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req internal.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message":   "reply to " + req.Message,
			"sessionId": sessionID,
		})
	})
}

// chatRequests decodes every chat request the service received
func (c *cli) chatRequests() []internal.ChatRequest {
	c.t.Helper()
	var reqs []internal.ChatRequest
	for _, r := range c.srv.Requests() {
		if r.Method != http.MethodPost || r.Path != "/api/chat" {
			continue
		}
		var req internal.ChatRequest
		require.NoError(c.t, json.Unmarshal(r.Body, &req))
		reqs = append(reqs, req)
	}
	return reqs
}

// resetFlags puts every flag of the command tree back to its default
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
