package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSroseX/blocking-api-server/internal/api"
	"github.com/CSroseX/blocking-api-server/internal/config"
	"github.com/CSroseX/blocking-api-server/internal/middleware"
)

func newTestServer(t *testing.T) (*httptest.Server, *config.Store) {
	t.Helper()
	return newLoggingTestServer(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newLoggingTestServer(t *testing.T, logger *slog.Logger) (*httptest.Server, *config.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Blocking.MinBlockPeriodMs = 20
	cfg.Blocking.MaxBlockPeriodMs = 40
	cfg.Blocking.ScratchDir = t.TempDir()
	store := config.NewStore(cfg)

	srv := httptest.NewServer(newHandler(deps{
		store:    store,
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestServer_BlockingUsesLiveDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/rest/blocking")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SLEEP", resp.Header.Get(api.OperationHeader))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var body api.SimpleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/blocking", body.PathString)
}

func TestServer_AdminUpdateChangesNextRequest(t *testing.T) {
	srv, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/blocking", "application/json",
		strings.NewReader(`{"operation_type":"file_io","min_block_period_ms":30,"max_block_period_ms":30}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "file_io", store.BlockingDefaults().OperationType)

	start := time.Now()
	resp, err = http.Get(srv.URL + "/rest/blocking")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "FILE_IO", resp.Header.Get(api.OperationHeader))
	assert.Equal(t, "30ms", resp.Header.Get(api.LatencyHeader))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	resp, err = http.Get(srv.URL + "/admin/blocking")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st config.BlockingStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "admin", st.Source)
}

func TestServer_MetricsExposeBlockingAndHTTP(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/rest/simple", "/rest/blocking?max-block-period-ms=0&min-block-period-ms=0", "/nope"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Contains(t, body, `http_requests_total{route="/rest/simple",status="200"} 1`)
	assert.Contains(t, body, `http_requests_total{route="unmatched",status="404"} 1`)
	assert.Contains(t, body, `blocking_operations_total{executed="SLEEP",requested="SLEEP",result="completed"} 1`)
}

func TestServer_AnalyticsRouteAbsentWithoutRedis(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/admin/analytics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_AdminRejectsBoundAboveLimit(t *testing.T) {
	srv, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/blocking", "application/json",
		strings.NewReader(`{"max_block_period_ms":9223372036854775807}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 40, store.BlockingDefaults().MaxBlockPeriodMs)

	resp, err = http.Get(srv.URL + "/rest/blocking")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_EmptyOperationTypeFallsBackToSleep(t *testing.T) {
	srv, store := newTestServer(t)
	_, err := store.Update("test", func(c *config.Config) { c.Blocking.OperationType = "file_io" })
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/rest/blocking?operation-type=")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SLEEP", resp.Header.Get(api.OperationHeader))

	resp, err = http.Get(srv.URL + "/rest/blocking")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "FILE_IO", resp.Header.Get(api.OperationHeader))
}

func TestServer_LogsCarryRequestIDAndScratchDir(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(middleware.NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	srv, store := newLoggingTestServer(t, logger)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/rest/blocking", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.RequestIDHeader, "trace-me")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var sawScratch, sawBlocking bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		switch rec["msg"] {
		case "file I/O scratch store":
			sawScratch = true
			assert.Equal(t, store.Get().Blocking.ScratchDir, rec["scratch_dir"])
		case "performing blocking operation":
			sawBlocking = true
			assert.Equal(t, "trace-me", rec["request_id"])
		}
	}
	assert.True(t, sawScratch)
	assert.True(t, sawBlocking)
}

// syncBuffer is a bytes.Buffer safe for the server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
