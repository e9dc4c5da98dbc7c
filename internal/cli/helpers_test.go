package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newHiveServer starts a websocket server that hands each accepted
// connection to serve.
func newHiveServer(t *testing.T, serve func(conn *websocket.Conn, r *http.Request)) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn, r)
	}))
	t.Cleanup(srv.Close)

	return srv.URL + "/api/v1"
}

func writeTestConfig(t *testing.T, baseURL string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hive.json")
	content := fmt.Sprintf(`{
		"realtime": {"base_url": %q, "token": "test-token", "handshake_timeout": "2s"},
		"logging": {"level": "debug", "pretty": false}
	}`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := GetRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
