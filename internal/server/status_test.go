package server

import (
	"net/http"
	"testing"

	"github.com/sportsorca/nba-proxy/internal/testutil"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func TestRateLimits(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetSequence("/games",
		testutil.MockResponse{StatusCode: http.StatusOK, Body: `{"data": []}`, Headers: testutil.QuotaHeaders(600, 450, "ALL-STAR")},
		testutil.NewRateLimitResponse(30),
	)

	h := newTestServer(t, testConfig(mock)).Handler()

	rec, body := get(t, h, "/api/rate-limits")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	limits, _ := body["rate_limit"].(map[string]any)
	if limits["limit"] != float64(600) || limits["remaining"] != float64(450) || limits["tier"] != "paid-unknown" {
		t.Errorf("rate_limit = %v", limits)
	}
	if body["usage_percentage"] != float64(25) {
		t.Errorf("usage_percentage = %v, want 25", body["usage_percentage"])
	}

	// Every call forces a probe; a rate-limited probe answers 429.
	rec, body = get(t, h, "/api/rate-limits")
	if rec.Code != http.StatusTooManyRequests || body["error"] != nba.ErrorRateLimitExceeded {
		t.Errorf("status = %d body = %v", rec.Code, body)
	}
	if n := len(mock.RequestsTo("/games")); n != 2 {
		t.Errorf("probes = %d, want 2", n)
	}
}
