package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// detail is the message sent with an error: the error text, or the generic
// message in production.
func (s *Server) detail(err error, generic string) string {
	if s.cfg.IsProduction() {
		return generic
	}
	return err.Error()
}

// failure describes how an upstream error is answered.
type failure struct {
	// label is the envelope error for failures without a dedicated code
	label string

	// generic replaces the error text in production
	generic string

	// premium routes answer 401 with subscription_required
	premium bool
}

// upstreamFailure maps an upstream error onto the response status and envelope.
// The upstream status is passed through; anything without one is a 500.
func (s *Server) upstreamFailure(w http.ResponseWriter, r *http.Request, err error, f failure) {
	status := http.StatusInternalServerError
	env := nba.Envelope[any]{Error: f.label, Message: s.detail(err, f.generic)}

	upErr, isUpstream := client.AsUpstream(err)
	switch {
	case errors.Is(err, client.ErrMissingAPIKey):
		env.Error = "Server configuration error"
		env.Message = "API key not configured"
	case client.IsRateLimited(err):
		status = http.StatusTooManyRequests
		env.Error = nba.ErrorRateLimitExceeded
		env.Message = "Upstream rate limit reached. Please try again shortly."
		env.RetryAfter = s.retryAfter(upErr)
		w.Header().Set("Retry-After", strconv.Itoa(env.RetryAfter))
	case f.premium && client.IsUnauthorized(err):
		status = http.StatusUnauthorized
		env.Error = nba.ErrorSubscriptionRequired
		env.Message = "This data requires a paid upstream subscription"
	case isUpstream && upErr.StatusCode == http.StatusNotFound:
		status = http.StatusNotFound
		env.Error = nba.ErrorNotFound
	case isUpstream && upErr.StatusCode > 0:
		status = upErr.StatusCode
	}

	event := s.logger.Error()
	if status < http.StatusInternalServerError {
		event = s.logger.Warn()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg(f.label)

	writeJSON(w, status, env)
}

// retryAfter prefers the upstream's own retry-after and falls back to the
// quota window reported by the tier manager.
func (s *Server) retryAfter(upErr *client.UpstreamError) int {
	if upErr != nil && upErr.HasRetryAfter && upErr.RetryAfter > 0 {
		return max(1, int(upErr.RetryAfter.Seconds()))
	}
	return s.tiers.RetryAfter()
}

// invalidID answers a malformed path id.
func invalidID(w http.ResponseWriter, raw string) {
	writeJSON(w, http.StatusBadRequest, nba.Envelope[any]{
		Error:   nba.ErrorInvalidParameter,
		Message: "Invalid id: " + strconv.Quote(raw),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, nba.Envelope[any]{
		Error:   nba.ErrorNotFound,
		Message: "No route for " + r.Method + " " + r.URL.Path,
	})
}
