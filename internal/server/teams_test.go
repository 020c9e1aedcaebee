package server

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/internal/testutil"
	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func TestTeams_CachedListFilteredLocally(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/teams", testutil.NewListResponse(nba.Roster))

	_, h := warmServer(t, mock)

	tests := []struct {
		query  string
		want   int
		cached bool
	}{
		{"", 30, false},
		{"?conference=East", 15, true},
		{"?conference=west&division=Pacific", 5, true},
		{"?division=Atlantic", 5, true},
	}

	for _, tt := range tests {
		rec, body := get(t, h, "/api/teams"+tt.query)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.query, rec.Code)
		}
		data, _ := body["data"].([]any)
		if len(data) != tt.want {
			t.Errorf("%s: %d teams, want %d", tt.query, len(data), tt.want)
		}
		if cached := body["cached"] == true; cached != tt.cached {
			t.Errorf("%s: cached = %v, want %v", tt.query, cached, tt.cached)
		}
	}

	if n := len(mock.RequestsTo("/teams")); n != 1 {
		t.Errorf("upstream /teams called %d times, want 1", n)
	}
}

func TestTeams_RateLimitedServesRoster(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/teams", testutil.NewRateLimitResponse(7))

	_, h := warmServer(t, mock)
	rec, body := get(t, h, "/api/teams?conference=East")

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if body["fallback"] != true || body["error"] != nba.ErrorRateLimitExceeded {
		t.Errorf("body = %v", body)
	}
	if body["retry_after"] != float64(7) || rec.Header().Get("Retry-After") != "7" {
		t.Errorf("retry_after = %v header = %q", body["retry_after"], rec.Header().Get("Retry-After"))
	}
	if data, _ := body["data"].([]any); len(data) != 15 {
		t.Errorf("fallback teams = %d, want 15 eastern teams", len(data))
	}
	// initial attempt plus two retries
	if n := len(mock.RequestsTo("/teams")); n != 3 {
		t.Errorf("upstream /teams called %d times, want 3", n)
	}
}

func TestTeams_ProductionHidesErrorDetail(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/teams", testutil.NewServerErrorResponse())

	for _, env := range []string{config.EnvDevelopment, config.EnvProduction} {
		t.Run(env, func(t *testing.T) {
			cfg := testConfig(mock)
			cfg.Env = env
			srv := newTestServer(t, cfg)

			rec, body := get(t, srv.Handler(), "/api/teams")
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want upstream 500 passthrough", rec.Code)
			}
			if body["error"] != "Failed to fetch teams" {
				t.Errorf("error = %v", body["error"])
			}
			generic := body["message"] == teamsGeneric
			if generic != (env == config.EnvProduction) {
				t.Errorf("message = %v", body["message"])
			}
		})
	}
}

func TestTeam(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/teams", testutil.NewListResponse(nba.Roster))
	mock.SetResponse("/teams/99", testutil.NewNotFoundResponse())
	mock.SetResponse("/teams/14", testutil.NewItemResponse(nba.Roster[13]))

	_, h := warmServer(t, mock)

	// Before the list is cached the single team comes from the upstream.
	rec, body := get(t, h, "/api/teams/14")
	if rec.Code != http.StatusOK || body["cached"] == true {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if n := len(mock.RequestsTo("/teams/14")); n != 1 {
		t.Errorf("upstream /teams/14 called %d times", n)
	}

	rec, _ = get(t, h, "/api/teams/99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown team status = %d, want 404", rec.Code)
	}

	rec, body = get(t, h, "/api/teams/abc")
	if rec.Code != http.StatusBadRequest || body["error"] != nba.ErrorInvalidParameter {
		t.Errorf("invalid id: status = %d body = %v", rec.Code, body)
	}

	get(t, h, "/api/teams")
	rec, body = get(t, h, "/api/teams/14")
	if rec.Code != http.StatusOK || body["cached"] != true {
		t.Errorf("cached team: status = %d body = %v", rec.Code, body)
	}
	data, _ := body["data"].(map[string]any)
	if data["abbreviation"] != "LAL" {
		t.Errorf("team = %v", data)
	}
	if n := len(mock.RequestsTo("/teams/14")); n != 1 {
		t.Errorf("cached list should serve the team, upstream called %d times", n)
	}
}

func TestTeam_CriticalQuotaStaysOffUpstream(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	critical := testutil.QuotaHeaders(60, 1, "")
	mock.SetResponse("/games", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data": [], "meta": {}}`,
		Headers:    critical,
	})
	teams := testutil.NewListResponse(nba.Roster[:2])
	teams.Headers = critical
	mock.SetResponse("/teams", teams)
	mock.SetResponse("/teams/29", testutil.NewItemResponse(nba.Roster[28]))

	srv, h := warmServer(t, mock)
	if rec, _ := get(t, h, "/api/teams"); rec.Code != http.StatusOK {
		t.Fatalf("teams status = %d", rec.Code)
	}
	if !srv.Tiers().State().IsCritical() || !srv.Responses().IsValid(cache.KeyTeams) {
		t.Fatalf("want critical quota with a cached team list, state = %+v", srv.Tiers().State())
	}

	rec, body := get(t, h, "/api/teams/"+strconv.Itoa(nba.Roster[0].ID))
	if rec.Code != http.StatusOK || body["cached"] != true {
		t.Errorf("cached team: status = %d body = %v", rec.Code, body)
	}

	rec, body = get(t, h, "/api/teams/29")
	if rec.Code != http.StatusTooManyRequests || body["error"] != nba.ErrorRateLimitCritical {
		t.Errorf("uncached team: status = %d body = %v", rec.Code, body)
	}
	if n := len(mock.RequestsTo("/teams/29")); n != 0 {
		t.Errorf("upstream /teams/29 called %d times under critical quota", n)
	}
}
