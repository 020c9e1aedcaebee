package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/internal/testutil"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		Port:              "0",
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Env:               config.EnvDevelopment,
		UpstreamTimeout:   5 * time.Second,
		TierCheckInterval: time.Hour,
	}
}

func TestHealthEndpoint(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	h := newServer(testConfig(mock.URL())).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		APIURL  string `json:"api_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.APIURL != mock.URL() {
		t.Errorf("body = %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	h := newServer(testConfig(mock.URL())).Handler()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/teams", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	// The teams request probed the tier, so the quota gauge is populated.
	if !strings.Contains(body, "nba_rate_limit_remaining") {
		t.Error("Expected metrics output to contain nba_rate_limit_remaining")
	}
}

func TestNewHTTPServer(t *testing.T) {
	srv := newHTTPServer(":5000", http.NotFoundHandler())

	if srv.Addr != ":5000" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 || srv.WriteTimeout < time.Minute {
		t.Errorf("timeouts = %v / %v", srv.ReadHeaderTimeout, srv.WriteTimeout)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()

	cfg := testConfig(mock.URL())
	cfg.Port = "0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
