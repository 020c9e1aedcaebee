package server

import (
	"net/http"
	"net/url"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// upcomingResponse always carries count, demo_mode and message, even when zero.
type upcomingResponse struct {
	Success  bool       `json:"success"`
	Data     []nba.Game `json:"data"`
	Count    int        `json:"count"`
	DemoMode bool       `json:"demo_mode"`
	Message  string     `json:"message"`
	Cached   bool       `json:"cached,omitempty"`
	APIURL   string     `json:"api_url"`
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	res, err := s.games.Upcoming(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching upcoming games")
		writeJSON(w, http.StatusInternalServerError, nba.Envelope[any]{
			Error:   "Failed to fetch upcoming games",
			Message: s.detail(err, "An unexpected error occurred while fetching game data"),
		})
		return
	}

	writeJSON(w, http.StatusOK, upcomingResponse{
		Success:  true,
		Data:     res.Games,
		Count:    len(res.Games),
		DemoMode: res.DemoMode,
		Message:  res.Message,
		Cached:   res.Cached,
		APIURL:   s.upstream.BaseURL(),
	})
}

func (s *Server) handleLiveGames(w http.ResponseWriter, r *http.Request) {
	s.proxyPremium(w, r, "/box_scores/live", nil, "Failed to fetch live games")
}

func (s *Server) handleBoxScores(w http.ResponseWriter, r *http.Request) {
	q := boxScoresQuery{Date: r.URL.Query().Get("date")}
	if !validate(w, q) {
		return
	}
	s.proxyPremium(w, r, "/box_scores", url.Values{"date": {q.Date}}, "Failed to fetch box scores")
}

func (s *Server) handleGameStats(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := statsQuery{
		GameIDs:   values["game_ids[]"],
		PlayerIDs: values["player_ids[]"],
		Dates:     values["dates[]"],
	}
	if !validate(w, q) {
		return
	}

	query := url.Values{}
	for _, name := range []string{"game_ids[]", "player_ids[]", "dates[]"} {
		if v := values[name]; len(v) > 0 {
			query[name] = v
		}
	}
	for _, name := range []string{"per_page", "cursor"} {
		if v := values.Get(name); v != "" {
			query.Set(name, v)
		}
	}
	s.proxyPremium(w, r, "/stats", query, "Failed to fetch game stats")
}
