package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

const playersGeneric = "Unable to retrieve player information at this time"

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	q := parsePlayersQuery(r)
	if !validate(w, q) {
		return
	}
	query := q.upstream()
	key := cache.Key{Name: cache.KeyPlayers, Params: query}.String()

	if data, ok := s.responses.Get(key); ok {
		var page nba.ListResponse[nba.Player]
		if err := json.Unmarshal(data, &page); err == nil {
			writeJSON(w, http.StatusOK, nba.Envelope[[]nba.Player]{Success: true, Data: page.Data, Meta: &page.Meta, Cached: true})
			return
		}
	}

	page, err := s.upstream.Players(r.Context(), query)
	if err != nil {
		s.upstreamFailure(w, r, err, failure{label: "Failed to fetch players", generic: playersGeneric})
		return
	}
	if page.Data == nil {
		page.Data = []nba.Player{}
	}
	if data, err := json.Marshal(page); err == nil {
		s.responses.Set(key, data, s.ttls.Current().Players)
	}

	writeJSON(w, http.StatusOK, nba.Envelope[[]nba.Player]{Success: true, Data: page.Data, Meta: &page.Meta})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		invalidID(w, raw)
		return
	}
	key := cache.ResourceKey("player", id)

	if data, ok := s.responses.Get(key); ok {
		var player nba.Player
		if err := json.Unmarshal(data, &player); err == nil {
			writeJSON(w, http.StatusOK, nba.Envelope[nba.Player]{Success: true, Data: player, Cached: true})
			return
		}
	}

	player, err := s.upstream.Player(r.Context(), id)
	if err != nil {
		s.upstreamFailure(w, r, err, failure{label: "Failed to fetch player", generic: playersGeneric})
		return
	}
	if data, err := json.Marshal(player); err == nil {
		s.responses.Set(key, data, s.ttls.Current().Players)
	}
	writeJSON(w, http.StatusOK, nba.Envelope[nba.Player]{Success: true, Data: player})
}
