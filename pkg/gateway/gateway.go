// Package gateway is the consumer-side counterpart of the backend: it calls the
// backend routes with the same cache-then-fetch and rate-limit retry behaviour
// and hands callers uniform response envelopes.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// DefaultBaseURL is the backend API root used when none is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultRetryAfter is suggested when a rate-limit response names no wait.
const DefaultRetryAfter = 60

// Client-side cache keys.
const (
	keyUpcomingGames = "upcoming_games"
	keyTeams         = "all_teams"
	keyTeam          = "team"
	keyPlayers       = "players"
	keyPlayer        = "player"
)

// ErrRateLimitExhausted is wrapped by errors from calls that stayed rate
// limited after every retry.
var ErrRateLimitExhausted = errors.New("rate limit exceeded after retries")

// Error is a failed backend call.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds the gateway configuration.
type Config struct {
	BaseURL string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Retry on 429
	MaxRetries   int
	InitialDelay time.Duration

	// TTL for cached responses
	TTL time.Duration
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		TTL:          cache.DefaultClientTTL,
	}
}

// TeamFilter narrows the team list.
type TeamFilter struct {
	Conference string
	Division   string
}

func (f TeamFilter) values() url.Values {
	v := url.Values{}
	if f.Conference != "" {
		v.Set("conference", f.Conference)
	}
	if f.Division != "" {
		v.Set("division", f.Division)
	}
	return v
}

// PlayerQuery searches players.
type PlayerQuery struct {
	Search  string
	TeamIDs []int
	PerPage int
	Cursor  int
}

func (q PlayerQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for _, id := range q.TeamIDs {
		v.Add("team_ids[]", strconv.Itoa(id))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Cursor > 0 {
		v.Set("cursor", strconv.Itoa(q.Cursor))
	}
	return v
}

// HealthStatus is the backend health response.
type HealthStatus struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	APIURL    string    `json:"api_url"`
}

// Gateway calls the backend.
type Gateway struct {
	baseURL string
	fetcher *client.Fetcher
	cache   *cache.Tiered
	config  Config
	logger  zerolog.Logger
}

// New creates a gateway. store is the durable cache tier; nil keeps the cache
// in memory only.
func New(cfg Config, store cache.Store) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultClientTTL
	}

	logger := log.With().Str("component", "gateway").Logger()
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetcher: client.NewFetcher(httpClient, logger),
		cache:   cache.NewTiered(store, logger),
		config:  cfg,
		logger:  logger,
	}
}

// Fetcher returns the retrying fetcher (for testing).
func (g *Gateway) Fetcher() *client.Fetcher {
	return g.fetcher
}

// Cache returns the two-tier response cache.
func (g *Gateway) Cache() *cache.Tiered {
	return g.cache
}

// UpcomingGames returns the upcoming-games feed. A backend that is still rate
// limiting after every retry yields an envelope with error
// rate_limit_exceeded and a suggested wait, not an error.
func (g *Gateway) UpcomingGames(ctx context.Context) (nba.Envelope[[]nba.Game], error) {
	env, err := get[[]nba.Game](ctx, g, "fetch upcoming games", "/games/upcoming", nil, keyUpcomingGames)
	if upErr, ok := client.AsUpstream(err); ok && upErr.Class == client.ErrorClassRateLimit {
		return nba.Envelope[[]nba.Game]{
			Success:    false,
			Error:      nba.ErrorRateLimitExceeded,
			Message:    "Rate limit exceeded. Please try again later.",
			RetryAfter: suggestedWait(upErr),
		}, nil
	}
	if err != nil {
		return nba.Envelope[[]nba.Game]{}, g.fail("fetch upcoming games", err)
	}
	return env, nil
}

// Teams returns all teams, optionally filtered. A rate-limited backend yields
// the built-in roster marked as fallback.
func (g *Gateway) Teams(ctx context.Context, filter TeamFilter) (nba.Envelope[[]nba.Team], error) {
	query := filter.values()
	key := cache.Key{Name: keyTeams, Params: query}.String()

	env, err := get[[]nba.Team](ctx, g, "fetch teams", "/teams", query, key)
	if upErr, ok := client.AsUpstream(err); ok && upErr.Class == client.ErrorClassRateLimit {
		return nba.Envelope[[]nba.Team]{
			Success:    false,
			Data:       nba.FilterTeams(nba.Roster, filter.Conference, filter.Division),
			Error:      nba.ErrorRateLimitExceeded,
			Message:    "Rate limit exceeded. Showing the built-in team list.",
			Fallback:   true,
			RetryAfter: suggestedWait(upErr),
		}, nil
	}
	if err != nil {
		return nba.Envelope[[]nba.Team]{}, g.fail("fetch teams", err)
	}
	return env, nil
}

// Team returns a single team.
func (g *Gateway) Team(ctx context.Context, id int) (nba.Envelope[nba.Team], error) {
	env, err := get[nba.Team](ctx, g, "fetch team", fmt.Sprintf("/teams/%d", id), nil, cache.ResourceKey(keyTeam, id))
	if err != nil {
		return nba.Envelope[nba.Team]{}, g.fail("fetch team details", err)
	}
	return env, nil
}

// SearchPlayers searches players by name, team and page.
func (g *Gateway) SearchPlayers(ctx context.Context, q PlayerQuery) (nba.Envelope[[]nba.Player], error) {
	query := q.values()
	key := cache.Key{Name: keyPlayers, Params: query}.String()

	env, err := get[[]nba.Player](ctx, g, "search players", "/players", query, key)
	if err != nil {
		return nba.Envelope[[]nba.Player]{}, g.fail("search players", err)
	}
	return env, nil
}

// Player returns a single player.
func (g *Gateway) Player(ctx context.Context, id int) (nba.Envelope[nba.Player], error) {
	env, err := get[nba.Player](ctx, g, "fetch player", fmt.Sprintf("/players/%d", id), nil, cache.ResourceKey(keyPlayer, id))
	if err != nil {
		return nba.Envelope[nba.Player]{}, g.fail("fetch player details", err)
	}
	return env, nil
}

// LiveGames returns live game data (premium).
func (g *Gateway) LiveGames(ctx context.Context) (nba.RawEnvelope, error) {
	return g.premium(ctx, "fetch live games", "/games/live", nil)
}

// BoxScores returns the box scores for date (premium).
func (g *Gateway) BoxScores(ctx context.Context, date string) (nba.RawEnvelope, error) {
	return g.premium(ctx, "fetch box scores", "/games/box_scores", url.Values{"date": {date}})
}

// SeasonAverages returns a player's averages for season (premium).
func (g *Gateway) SeasonAverages(ctx context.Context, season, playerID int) (nba.RawEnvelope, error) {
	query := url.Values{}
	query.Set("season", strconv.Itoa(season))
	query.Set("player_id", strconv.Itoa(playerID))
	return g.premium(ctx, "fetch season averages", "/players/season_averages", query)
}

// GameStats returns per-game stats (premium). query carries game_ids[],
// player_ids[] or dates[].
func (g *Gateway) GameStats(ctx context.Context, query url.Values) (nba.RawEnvelope, error) {
	return g.premium(ctx, "fetch game stats", "/games/stats", query)
}

// premium calls a tier-gated route. 401 yields a subscription_required
// envelope.
func (g *Gateway) premium(ctx context.Context, op, path string, query url.Values) (nba.RawEnvelope, error) {
	env, err := get[json.RawMessage](ctx, g, op, path, query, "")
	if client.IsUnauthorized(err) {
		return nba.RawEnvelope{
			Success: false,
			Error:   nba.ErrorSubscriptionRequired,
			Message: "This feature requires a higher subscription tier",
		}, nil
	}
	if err != nil {
		return nba.RawEnvelope{}, g.fail(op, err)
	}
	return env, nil
}

// Health checks the backend. It is never retried or cached.
func (g *Gateway) Health(ctx context.Context) (HealthStatus, error) {
	body, err := g.fetch(ctx, "/health", nil, 0)
	if err != nil {
		return HealthStatus{}, g.fail("health check", err)
	}
	var status HealthStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return HealthStatus{}, fmt.Errorf("decode health response: %w", err)
	}
	return status, nil
}

// get serves path from the cache when key is valid, otherwise fetches it and
// caches successful envelopes. An empty key disables caching.
func get[T any](ctx context.Context, g *Gateway, op, path string, query url.Values, key string) (nba.Envelope[T], error) {
	var env nba.Envelope[T]

	if key != "" {
		if data, ok := g.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(data, &env); err == nil {
				g.logger.Debug().Str("key", key).Msg("Cache hit")
				return env, nil
			}
			g.logger.Warn().Str("key", key).Msg("Discarding unreadable cache entry")
		}
	}

	body, err := g.fetch(ctx, path, query, g.config.MaxRetries)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("%s: decode response: %w", op, err)
	}

	if key != "" && env.Success {
		g.cache.Set(ctx, key, body, g.config.TTL)
	}
	return env, nil
}

// fetch performs a GET through the retrying fetcher and returns the body.
func (g *Gateway) fetch(ctx context.Context, path string, query url.Values, maxRetries int) ([]byte, error) {
	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	g.logger.Debug().Str("path", path).Msg("API request")

	resp, err := g.fetcher.Fetch(ctx, req, maxRetries, g.config.InitialDelay)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return body, nil
}

// fail turns a fetch error into an *Error carrying the backend's message.
func (g *Gateway) fail(op string, err error) error {
	upErr, ok := client.AsUpstream(err)
	if !ok {
		return &Error{Op: op, Message: err.Error(), Err: err}
	}

	out := &Error{
		Op:         op,
		StatusCode: upErr.StatusCode,
		Message:    backendMessage(upErr.Message, "Failed to "+op),
		Err:        err,
	}
	if upErr.Class == client.ErrorClassRateLimit {
		out.Err = fmt.Errorf("%w: %w", ErrRateLimitExhausted, err)
	}

	g.logger.Error().Err(err).Str("op", op).Int("status", upErr.StatusCode).Msg("Backend request failed")
	return out
}

// backendMessage extracts the message of an error envelope, falling back to
// def when the body is not one.
func backendMessage(body, def string) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return def
	}
	if env.Message != "" {
		return env.Message
	}
	if env.Error != "" {
		return env.Error
	}
	return def
}

// suggestedWait is the retry-after the backend sent, in whole seconds, or
// DefaultRetryAfter.
func suggestedWait(upErr *client.UpstreamError) int {
	if upErr.HasRetryAfter && upErr.RetryAfter > 0 {
		return int(upErr.RetryAfter.Round(time.Second).Seconds())
	}
	var env struct {
		RetryAfter int `json:"retry_after"`
	}
	if json.Unmarshal([]byte(upErr.Message), &env) == nil && env.RetryAfter > 0 {
		return env.RetryAfter
	}
	return DefaultRetryAfter
}
