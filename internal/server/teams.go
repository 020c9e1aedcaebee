package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

const teamsGeneric = "Unable to retrieve team information at this time"

// cachedTeams returns the full team list from the response cache.
func (s *Server) cachedTeams() ([]nba.Team, bool) {
	data, ok := s.responses.Get(cache.KeyTeams)
	if !ok {
		return nil, false
	}
	var teams []nba.Team
	if err := json.Unmarshal(data, &teams); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding unreadable cached teams")
		return nil, false
	}
	return teams, true
}

// allTeams serves the full list from cache or fetches and caches it. The
// list is cached unfiltered; filters are applied per request.
func (s *Server) allTeams(ctx context.Context) (teams []nba.Team, cached bool, err error) {
	if teams, ok := s.cachedTeams(); ok {
		s.logger.Debug().Msg("Serving teams from cache")
		return teams, true, nil
	}

	teams, err = s.upstream.Teams(ctx)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(teams); err == nil {
		s.responses.Set(cache.KeyTeams, data, s.ttls.Current().Teams)
	}
	return teams, false, nil
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	conference := strings.TrimSpace(r.URL.Query().Get("conference"))
	division := strings.TrimSpace(r.URL.Query().Get("division"))

	teams, cached, err := s.allTeams(r.Context())
	if err != nil {
		if client.IsRateLimited(err) {
			s.teamsFallback(w, r, err, conference, division)
			return
		}
		s.upstreamFailure(w, r, err, failure{label: "Failed to fetch teams", generic: teamsGeneric})
		return
	}

	writeJSON(w, http.StatusOK, nba.Envelope[[]nba.Team]{
		Success: true,
		Data:    nba.FilterTeams(teams, conference, division),
		Cached:  cached,
		APIURL:  s.upstream.BaseURL(),
	})
}

// teamsFallback answers a rate-limited teams request with the built-in
// roster so clients can still render team lists.
func (s *Server) teamsFallback(w http.ResponseWriter, r *http.Request, err error, conference, division string) {
	upErr, _ := client.AsUpstream(err)
	retryAfter := s.retryAfter(upErr)

	s.logger.Warn().Err(err).Int("retry_after", retryAfter).Msg("Teams rate limited, serving built-in roster")

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, nba.Envelope[[]nba.Team]{
		Success:    false,
		Data:       nba.FilterTeams(nba.Roster, conference, division),
		Error:      nba.ErrorRateLimitExceeded,
		Message:    "Rate limit exceeded. Showing fallback team data.",
		Fallback:   true,
		RetryAfter: retryAfter,
	})
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		invalidID(w, raw)
		return
	}

	if teams, ok := s.cachedTeams(); ok {
		for _, t := range teams {
			if t.ID == id {
				writeJSON(w, http.StatusOK, nba.Envelope[nba.Team]{Success: true, Data: t, Cached: true})
				return
			}
		}
	}

	// The gate let this through on the cached list; the upstream stays off limits.
	if s.tiers.State().IsCritical() {
		s.tiers.Reject(w, "team")
		return
	}

	team, err := s.upstream.Team(r.Context(), id)
	if err != nil {
		s.upstreamFailure(w, r, err, failure{label: "Failed to fetch team", generic: teamsGeneric})
		return
	}
	writeJSON(w, http.StatusOK, nba.Envelope[nba.Team]{Success: true, Data: team})
}
