package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// upstreamPage is an upstream list body kept undecoded.
type upstreamPage struct {
	Data json.RawMessage `json:"data"`
	Meta *nba.Meta       `json:"meta,omitempty"`
}

// proxyPremium forwards a tier-gated request and wraps the upstream data in
// the standard envelope. Premium responses are never cached.
func (s *Server) proxyPremium(w http.ResponseWriter, r *http.Request, path string, query url.Values, label string) {
	body, err := s.upstream.Raw(r.Context(), path, query)
	if err != nil {
		s.upstreamFailure(w, r, err, failure{
			label:   label,
			generic: "Unable to retrieve this data at this time",
			premium: true,
		})
		return
	}

	var page upstreamPage
	if err := json.Unmarshal(body, &page); err != nil {
		s.upstreamFailure(w, r, fmt.Errorf("decode %s: %w", path, err), failure{
			label:   label,
			generic: "Unable to retrieve this data at this time",
		})
		return
	}

	writeJSON(w, http.StatusOK, nba.RawEnvelope{
		Success: true,
		Data:    page.Data,
		Meta:    page.Meta,
	})
}

func (s *Server) handleSeasonAverages(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := seasonAveragesQuery{Season: values.Get("season"), PlayerID: values.Get("player_id")}
	if !validate(w, q) {
		return
	}
	s.proxyPremium(w, r, "/season_averages", url.Values{
		"season":    {q.Season},
		"player_id": {q.PlayerID},
	}, "Failed to fetch season averages")
}
