// Package server is the backend HTTP surface: the /api route table, JSON
// envelopes and the middleware wrapped around every route.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportsorca/nba-proxy/internal/config"
	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/games"
	"github.com/sportsorca/nba-proxy/pkg/metrics"
	"github.com/sportsorca/nba-proxy/pkg/ratelimit"
)

// HealthMessage is returned by /api/health.
const HealthMessage = "SportsOrca NBA API Server is running"

// Server owns the shared response cache, TTL policy and tier manager, and
// serves the backend routes.
type Server struct {
	cfg       config.Config
	upstream  *client.Client
	responses *cache.Manager
	ttls      *cache.TTLs
	tiers     *ratelimit.Manager
	games     *games.Aggregator
	logger    zerolog.Logger
	now       func() time.Time
}

// New wires the server components around upstream. The tier manager is
// registered as the upstream's response observer.
func New(cfg config.Config, upstream *client.Client, logger zerolog.Logger) *Server {
	responses := cache.NewManager()
	ttls := cache.NewTTLs(cache.DefaultPolicy)

	tiers := ratelimit.NewManager(upstream, ttls, responses, logger.With().Str("component", "tier-manager").Logger())
	tiers.SetMaxAge(cfg.TierCheckInterval)
	upstream.SetObserver(tiers)

	gamesCfg := games.DefaultConfig()
	gamesCfg.Spacing = cfg.RequestSpacing
	aggregator := games.NewAggregator(upstream, responses, ttls, nil, gamesCfg,
		logger.With().Str("component", "game-aggregator").Logger())

	return &Server{
		cfg:       cfg,
		upstream:  upstream,
		responses: responses,
		ttls:      ttls,
		tiers:     tiers,
		games:     aggregator,
		logger:    logger,
		now:       time.Now,
	}
}

// Tiers returns the tier manager.
func (s *Server) Tiers() *ratelimit.Manager {
	return s.tiers
}

// Games returns the upcoming-games aggregator.
func (s *Server) Games() *games.Aggregator {
	return s.games
}

// Responses returns the shared response cache.
func (s *Server) Responses() *cache.Manager {
	return s.responses
}

// SetClock replaces the time source of the server and its components (for testing).
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.responses.SetClock(now)
	s.tiers.SetClock(now)
	s.games.SetClock(now)
}

// CheckTier runs the startup tier check. Without an API key it is skipped;
// gated routes answer 500 until one is configured.
func (s *Server) CheckTier(ctx context.Context) {
	if s.cfg.APIKey == "" {
		return
	}
	state := s.tiers.Ensure(ctx)
	s.logger.Info().
		Str("tier", string(state.Tier)).
		Int("remaining", state.RateLimit.Remaining).
		Msg("Initial tier check complete")
}

// Handler returns the full route table wrapped in request logging and panic
// recovery.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/api/games/upcoming", ratelimit.Route{
		Name: "games_upcoming", Essential: true, CacheKey: fixedKey(cache.KeyUpcomingGames),
	}, s.handleUpcoming)
	s.route(mux, "/api/teams", ratelimit.Route{
		Name: "teams", Essential: true, CacheKey: fixedKey(cache.KeyTeams),
	}, s.handleTeams)
	s.route(mux, "/api/teams/{id}", ratelimit.Route{
		Name: "team", CacheKey: fixedKey(cache.KeyTeams),
	}, s.handleTeam)
	s.route(mux, "/api/players", ratelimit.Route{
		Name: "players", CacheKey: playersKey,
	}, s.handlePlayers)
	s.route(mux, "/api/players/{id}", ratelimit.Route{
		Name: "player", CacheKey: playerKey,
	}, s.handlePlayer)

	// Premium data is never cached, so it is rejected while quota is critical.
	s.route(mux, "/api/games/live", ratelimit.Route{Name: "games_live"}, s.handleLiveGames)
	s.route(mux, "/api/games/box_scores", ratelimit.Route{Name: "box_scores"}, s.handleBoxScores)
	s.route(mux, "/api/games/stats", ratelimit.Route{Name: "game_stats"}, s.handleGameStats)
	s.route(mux, "/api/players/season_averages", ratelimit.Route{Name: "season_averages"}, s.handleSeasonAverages)

	mux.Handle("GET /api/rate-limits", s.requireAPIKey(http.HandlerFunc(s.handleRateLimits)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/", s.handleNotFound)

	return s.logRequests(s.recoverPanics(mux))
}

// route registers a gated GET route behind the API key guard.
func (s *Server) route(mux *http.ServeMux, path string, route ratelimit.Route, h http.HandlerFunc) {
	mux.Handle("GET "+path, s.requireAPIKey(s.tiers.Gate(route)(h)))
}

func fixedKey(key string) func(*http.Request) string {
	return func(*http.Request) string { return key }
}
