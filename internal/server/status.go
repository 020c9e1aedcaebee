package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sportsorca/nba-proxy/pkg/nba"
	"github.com/sportsorca/nba-proxy/pkg/ratelimit"
)

type rateLimitBody struct {
	Limit     int            `json:"limit"`
	Remaining int            `json:"remaining"`
	Reset     int64          `json:"reset"`
	Tier      ratelimit.Tier `json:"tier"`
}

type rateLimitsResponse struct {
	Success         bool          `json:"success"`
	RateLimit       rateLimitBody `json:"rate_limit"`
	UsagePercentage float64       `json:"usage_percentage"`
	LastCheckedAt   time.Time     `json:"last_checked_at"`
}

// handleRateLimits forces a tier probe and reports the resulting quota.
func (s *Server) handleRateLimits(w http.ResponseWriter, r *http.Request) {
	state, err := s.tiers.Refresh(r.Context())
	if err != nil {
		retryAfter := s.tiers.RetryAfter()
		s.logger.Warn().Err(err).Msg("Rate limit check failed")
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, nba.Envelope[any]{
			Error:      nba.ErrorRateLimitExceeded,
			Message:    s.detail(err, "Unable to check rate limits at this time"),
			RetryAfter: retryAfter,
		})
		return
	}

	writeJSON(w, http.StatusOK, rateLimitsResponse{
		Success: true,
		RateLimit: rateLimitBody{
			Limit:     state.RateLimit.Limit,
			Remaining: state.RateLimit.Remaining,
			Reset:     state.RateLimit.Reset,
			Tier:      state.Tier,
		},
		UsagePercentage: state.UsagePercentage(),
		LastCheckedAt:   state.LastCheckedAt,
	})
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	APIURL    string `json:"api_url"`
}

// handleHealth needs no API key and never calls the upstream.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Message:   HealthMessage,
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		APIURL:    s.upstream.BaseURL(),
	})
}
