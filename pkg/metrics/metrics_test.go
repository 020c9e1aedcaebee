package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/teams", "200"))

	ObserveRequest("/api/teams", http.StatusOK, 120*time.Millisecond)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/teams", "200"))
	if after-before != 1 {
		t.Errorf("counter moved by %v, want 1", after-before)
	}
}

func TestHandler(t *testing.T) {
	ObserveRequest("/api/health", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "nba_http_requests_total") {
		t.Error("exposition is missing nba_http_requests_total")
	}
}
