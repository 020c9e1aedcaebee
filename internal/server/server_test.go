package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/internal/testutil"
	"github.com/sportsorca/nba-proxy/pkg/client"
)

func testConfig(mock *testutil.MockUpstream) config.Config {
	return config.Config{
		Port:              "0",
		APIKey:            "test-key",
		BaseURL:           mock.URL(),
		Env:               config.EnvDevelopment,
		TierCheckInterval: time.Hour,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()

	upstream := client.New(client.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
	noWait := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	upstream.Fetcher().SetSleep(noWait)

	srv := New(cfg, upstream, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	srv.Games().SetSleep(noWait)
	return srv
}

// warmServer runs the tier check against the mock's healthy default answer
// so later requests do not probe.
func warmServer(t *testing.T, mock *testutil.MockUpstream) (*Server, http.Handler) {
	t.Helper()
	srv := newTestServer(t, testConfig(mock))
	srv.CheckTier(context.Background())
	return srv, srv.Handler()
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: decode %q: %v", target, rec.Body.String(), err)
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.APIKey = ""
	srv := newTestServer(t, cfg)
	srv.SetClock(func() time.Time { return time.Date(2025, 10, 10, 15, 0, 0, 0, time.UTC) })

	rec, body := get(t, srv.Handler(), "/api/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["success"] != true || body["message"] != HealthMessage {
		t.Errorf("body = %v", body)
	}
	if body["timestamp"] != "2025-10-10T15:00:00.000Z" {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
	if body["api_url"] != mock.URL() {
		t.Errorf("api_url = %v", body["api_url"])
	}
	if mock.GetRequestCount() != 0 {
		t.Error("health should not call the upstream")
	}
}

func TestMissingAPIKey(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.APIKey = ""
	h := newTestServer(t, cfg).Handler()

	for _, path := range []string{"/api/games/upcoming", "/api/teams", "/api/players/1", "/api/rate-limits"} {
		t.Run(path, func(t *testing.T) {
			rec, body := get(t, h, path)
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			if body["success"] != false || body["error"] != "Server configuration error" || body["message"] != "API key not configured" {
				t.Errorf("body = %v", body)
			}
		})
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("upstream called %d times without a key", mock.GetRequestCount())
	}
}

func TestRequestID(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	h := newTestServer(t, testConfig(mock)).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("missing generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want the caller's id", got)
	}
}

func TestNotFound(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	rec, body := get(t, newTestServer(t, testConfig(mock)).Handler(), "/api/nope")
	if rec.Code != http.StatusNotFound || body["error"] != "not_found" {
		t.Errorf("status = %d body = %v", rec.Code, body)
	}
}

func TestRecoverPanics(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	srv := newTestServer(t, testConfig(mock))

	h := srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec, body := get(t, h, "/api/teams")
	if rec.Code != http.StatusInternalServerError || body["success"] != false {
		t.Errorf("status = %d body = %v", rec.Code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	h := newTestServer(t, testConfig(mock)).Handler()

	get(t, h, "/api/health")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
