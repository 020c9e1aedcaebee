// Package client provides the upstream sports-data API client: API key
// injection, rate-limit-aware retries and typed endpoints.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

const (
	// DefaultBaseURL is the upstream API root.
	DefaultBaseURL = "https://api.balldontlie.io/v1"

	// UserAgent is sent with every upstream request.
	UserAgent = "SportsOrca/1.0"
)

// ResponseObserver receives the headers of every upstream response that
// produced data (and of rate-limited failures). The tier manager implements it.
type ResponseObserver interface {
	Observe(header http.Header)
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream API root
	BaseURL string

	// APIKey is sent as the Authorization header. Empty means every call
	// fails with ErrMissingAPIKey.
	APIKey string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Retry on 429
	MaxRetries     int
	InitialBackoff time.Duration

	// Observer is notified of response headers (optional)
	Observer ResponseObserver
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		APIKey:         apiKey,
		Timeout:        10 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 1 * time.Second,
	}
}

// Client is the upstream API client.
type Client struct {
	httpClient *http.Client
	fetcher    *Fetcher
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "upstream-client").Logger()
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Client{
		httpClient: httpClient,
		fetcher:    NewFetcher(httpClient, logger),
		config:     cfg,
		logger:     logger,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
	c.fetcher.http = client
}

// SetObserver sets the response observer.
func (c *Client) SetObserver(o ResponseObserver) {
	c.config.Observer = o
}

// Fetcher returns the retrying fetcher used by the client.
func (c *Client) Fetcher() *Fetcher {
	return c.fetcher
}

// BaseURL returns the upstream API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// HasAPIKey reports whether an API key is configured.
func (c *Client) HasAPIKey() bool {
	return c.config.APIKey != ""
}

// GamesOnDate returns the games scheduled on date (YYYY-MM-DD).
func (c *Client) GamesOnDate(ctx context.Context, date string, perPage int) ([]nba.Game, error) {
	query := url.Values{}
	query.Add("dates[]", date)
	query.Set("per_page", strconv.Itoa(perPage))

	var out nba.ListResponse[nba.Game]
	if _, err := c.get(ctx, "/games", query, c.config.MaxRetries, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GamesInRange returns up to perPage games between start and end (inclusive).
func (c *Client) GamesInRange(ctx context.Context, start, end string, perPage int) ([]nba.Game, error) {
	query := url.Values{}
	query.Set("start_date", start)
	query.Set("end_date", end)
	query.Set("per_page", strconv.Itoa(perPage))

	var out nba.ListResponse[nba.Game]
	if _, err := c.get(ctx, "/games", query, c.config.MaxRetries, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Teams returns every team.
func (c *Client) Teams(ctx context.Context) ([]nba.Team, error) {
	var out nba.ListResponse[nba.Team]
	if _, err := c.get(ctx, "/teams", nil, c.config.MaxRetries, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Team returns a single team.
func (c *Client) Team(ctx context.Context, id int) (nba.Team, error) {
	var out nba.ItemResponse[nba.Team]
	if _, err := c.get(ctx, fmt.Sprintf("/teams/%d", id), nil, c.config.MaxRetries, &out); err != nil {
		return nba.Team{}, err
	}
	return out.Data, nil
}

// Players searches players. query carries search, team_ids[], per_page and cursor.
func (c *Client) Players(ctx context.Context, query url.Values) (nba.ListResponse[nba.Player], error) {
	var out nba.ListResponse[nba.Player]
	if _, err := c.get(ctx, "/players", query, c.config.MaxRetries, &out); err != nil {
		return nba.ListResponse[nba.Player]{}, err
	}
	return out, nil
}

// Player returns a single player.
func (c *Client) Player(ctx context.Context, id int) (nba.Player, error) {
	var out nba.ItemResponse[nba.Player]
	if _, err := c.get(ctx, fmt.Sprintf("/players/%d", id), nil, c.config.MaxRetries, &out); err != nil {
		return nba.Player{}, err
	}
	return out.Data, nil
}

// Raw performs a GET and returns the undecoded JSON body. Used for endpoints
// that are passed through as-is.
func (c *Client) Raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if _, err := c.get(ctx, path, query, c.config.MaxRetries, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Probe makes the cheapest possible call and returns its headers. It never
// retries: a rate-limited probe is itself an answer.
func (c *Client) Probe(ctx context.Context) (http.Header, error) {
	query := url.Values{}
	query.Set("per_page", "1")

	var discard json.RawMessage
	return c.get(ctx, "/games", query, 0, &discard)
}

// get performs an authorized GET through the fetcher and decodes the JSON body
// into out. Rate-limit headers are handed to the observer from the response
// that was actually decoded.
func (c *Client) get(ctx context.Context, path string, query url.Values, maxRetries int, out any) (http.Header, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	c.logger.Debug().
		Str("endpoint", path).
		Str("query", query.Encode()).
		Msg("Executing upstream request")

	resp, err := c.fetcher.Fetch(ctx, req, maxRetries, c.config.InitialBackoff)
	if err != nil {
		if upErr, ok := AsUpstream(err); ok && upErr.Header != nil {
			c.observe(upErr.Header)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, err)
	}

	c.observe(resp.Header)
	return resp.Header, nil
}

func (c *Client) observe(header http.Header) {
	if c.config.Observer != nil {
		c.config.Observer.Observe(header)
	}
}
