package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adda-Baaj/handshake/internal/config"
	"github.com/Adda-Baaj/handshake/internal/storage"
	"github.com/Adda-Baaj/handshake/pkg/sinks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func handshakeServer(t *testing.T, finalStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handshakeHandler(finalStatus))
}

func handshakeHandler(finalStatus int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/next":
			_, _ = w.Write([]byte(`{"part2":"-XYZ"}`))
		case r.Method == http.MethodPost:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if code, ok := body["code"]; ok {
				w.WriteHeader(finalStatus)
				_, _ = w.Write([]byte(`{"message":"welcome ` + code + `"}`))
				return
			}
			_, _ = w.Write([]byte(`{"part1":"ABC","next":"next"}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func testConfig(endpoint, historyPath string) *config.Config {
	cfg := &config.Config{
		Endpoint:               endpoint,
		Msg:                    "hello",
		URI:                    "/unused",
		TimeoutSeconds:         2,
		Timeout:                2 * time.Second,
		HistoryType:            "none",
		HistoryTTL:             time.Hour,
		HistoryCleanupInterval: time.Hour,
	}
	if historyPath != "" {
		cfg.HistoryType = "bbolt"
		cfg.HistoryPath = historyPath
	}
	return cfg
}

func TestRunnerSuccessRecordsAndDelivers(t *testing.T) {
	srv := handshakeServer(t, http.StatusOK)
	defer srv.Close()

	var out, errOut bytes.Buffer
	cfg := testConfig(srv.URL+"/api/interview.php", filepath.Join(t.TempDir(), "history.db"))
	runner, err := NewRunner(context.Background(), cfg, nil, WithSinks(sinks.NewConsole(&out, &errOut, true)))
	require.NoError(t, err)
	defer runner.Close()

	run := runner.Run(context.Background(), cfg, "cli")
	require.True(t, run.Success, run.Error)
	assert.Equal(t, "welcome ABC-XYZ", run.Message)
	assert.Equal(t, "ABC-XYZ", run.Code)
	assert.Equal(t, srv.URL+"/api/next", run.NextURL)
	assert.Equal(t, "done", run.Stage)
	assert.NotEmpty(t, run.ID)

	assert.Equal(t, "\n✅ Final message:\nwelcome ABC-XYZ\n", out.String())
	assert.Empty(t, errOut.String())

	require.NoError(t, runner.Close())
	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storage.Options{})
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRunnerFailureGoesToErrorSink(t *testing.T) {
	srv := handshakeServer(t, http.StatusInternalServerError)
	defer srv.Close()

	var out, errOut bytes.Buffer
	cfg := testConfig(srv.URL+"/api/interview.php", "")
	runner, err := NewRunner(context.Background(), cfg, nil, WithSinks(sinks.NewConsole(&out, &errOut, true)))
	require.NoError(t, err)
	defer runner.Close()

	run := runner.Run(context.Background(), cfg, "cli")
	assert.False(t, run.Success)
	assert.Contains(t, run.Error, "Final POST failed with HTTP 500")
	assert.Equal(t, "final_request_sent", run.Stage)
	assert.True(t, strings.HasPrefix(errOut.String(), "\n❌ Error: Final POST failed with HTTP 500"))
	assert.Empty(t, out.String())
}

func TestRunnerVerboseWritesTraces(t *testing.T) {
	srv := handshakeServer(t, http.StatusOK)
	defer srv.Close()

	var trace bytes.Buffer
	cfg := testConfig(srv.URL+"/api/interview.php", "")
	cfg.Verbose = true
	runner, err := NewRunner(context.Background(), cfg, nil, WithTraceWriter(&trace))
	require.NoError(t, err)
	defer runner.Close()

	run := runner.Run(context.Background(), cfg, "server")
	require.True(t, run.Success, run.Error)
	assert.Equal(t, 3, strings.Count(trace.String(), "HTTP 200"))
	assert.Contains(t, trace.String(), "GET "+srv.URL+"/api/next\n")
	assert.Contains(t, trace.String(), `Payload: {"code":"ABC-XYZ"}`)
}

func TestRunnerSinkFailureKeepsSuccess(t *testing.T) {
	srv := handshakeServer(t, http.StatusOK)
	defer srv.Close()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer hook.Close()

	sinksFile := filepath.Join(t.TempDir(), "sinks.yaml")
	require.NoError(t, os.WriteFile(sinksFile, []byte("sinks:\n  - id: hook\n    type: http\n    http:\n      url: "+hook.URL+"\n"), 0o644))

	cfg := testConfig(srv.URL+"/api/interview.php", "")
	cfg.SinksFile = sinksFile
	runner, err := NewRunner(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer runner.Close()

	run := runner.Run(context.Background(), cfg, "cli")
	assert.True(t, run.Success)
}

func TestNewRunnerRejectsBadInputs(t *testing.T) {
	_, err := NewRunner(context.Background(), nil, nil)
	assert.Error(t, err)

	cfg := testConfig("http://localhost/x", "")
	cfg.HistoryType = "redis"
	_, err = NewRunner(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = testConfig("http://localhost/x", "")
	cfg.SinksFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewRunner(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRunnerLockedHistoryStillRunsHandshake(t *testing.T) {
	srv := handshakeServer(t, http.StatusOK)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "history.db")
	held, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	defer held.Close()

	var out, errOut bytes.Buffer
	cfg := testConfig(srv.URL+"/api/interview.php", path)
	runner, err := NewRunner(context.Background(), cfg, nil, WithSinks(sinks.NewConsole(&out, &errOut, true)))
	require.NoError(t, err)
	defer runner.Close()

	run := runner.Run(context.Background(), cfg, "cli")
	require.True(t, run.Success, run.Error)
	assert.Contains(t, out.String(), "welcome ABC-XYZ")
}

func TestRunnerReusesConnectionsAcrossRuns(t *testing.T) {
	srv := httptest.NewUnstartedServer(handshakeHandler(http.StatusOK))
	var opened, closed atomic.Int64
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			opened.Add(1)
		case http.StateClosed, http.StateHijacked:
			closed.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	cfg := testConfig(srv.URL+"/api/interview.php", "")
	runner, err := NewRunner(context.Background(), cfg, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		run := runner.Run(context.Background(), cfg, "server")
		require.True(t, run.Success, run.Error)
	}
	assert.LessOrEqual(t, opened.Load(), int64(2))

	require.NoError(t, runner.Close())
	assert.Eventually(t, func() bool {
		return opened.Load() == closed.Load()
	}, 2*time.Second, 20*time.Millisecond)
}
