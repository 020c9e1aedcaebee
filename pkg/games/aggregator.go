// Package games assembles the upcoming-games feed: a sequential multi-date
// fetch from the upstream, filtered and sorted, with demo data substituted when
// the season has no upcoming games or the upstream is rate limited.
package games

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/sportsorca/nba-proxy/pkg/cache"
	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// Messages returned with the feed.
const (
	MessageLive = "Live upcoming games data"
	MessageDemo = "No upcoming games in current NBA season. Showing demo data based on recent games."
)

var (
	fallbackGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nba_fallback_games_generated_total",
		Help: "Total number of synthetic games produced by the fallback generator",
	})

	historicalReschedules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nba_demo_games_rescheduled_total",
		Help: "Total number of historical games rescheduled as demo games",
	})

	upcomingFeedsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nba_upcoming_feeds_total",
		Help: "Upcoming-games feeds served, by source (live, cached, historical, generated, empty)",
	}, []string{"source"})

	dateFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nba_upcoming_date_fetch_failures_total",
		Help: "Per-date upcoming games fetches that failed and were skipped",
	})
)

// Source is the upstream the aggregator reads games from.
type Source interface {
	GamesOnDate(ctx context.Context, date string, perPage int) ([]nba.Game, error)
	GamesInRange(ctx context.Context, start, end string, perPage int) ([]nba.Game, error)
}

// Config controls the fetch plan.
type Config struct {
	// Days is the look-ahead horizon; only the first ProbeDays are queried.
	Days      int
	ProbeDays int
	PerPage   int

	// Spacing separates consecutive upstream calls
	Spacing time.Duration

	// Historical window used for demo data
	HistoricalStart   string
	HistoricalEnd     string
	HistoricalPerPage int

	// ShiftWindow bounds how far ahead demo games are rescheduled
	ShiftWindow time.Duration

	FallbackCount int
}

// DefaultConfig returns the quota-conserving fetch plan.
func DefaultConfig() Config {
	return Config{
		Days:              7,
		ProbeDays:         2,
		PerPage:           25,
		Spacing:           1 * time.Second,
		HistoricalStart:   "2025-03-01",
		HistoricalEnd:     "2025-06-30",
		HistoricalPerPage: 8,
		ShiftWindow:       7 * 24 * time.Hour,
		FallbackCount:     DefaultFallbackCount,
	}
}

// Result is the upcoming-games feed.
type Result struct {
	Games    []nba.Game `json:"games"`
	DemoMode bool       `json:"demo_mode"`
	Message  string     `json:"message"`
	Cached   bool       `json:"cached,omitempty"`
}

// Aggregator builds the upcoming-games feed.
type Aggregator struct {
	source    Source
	responses *cache.Manager
	ttls      *cache.TTLs
	generator *Generator
	config    Config
	logger    zerolog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewAggregator creates an aggregator. responses and ttls are shared with the
// rest of the server.
func NewAggregator(source Source, responses *cache.Manager, ttls *cache.TTLs, generator *Generator, cfg Config, logger zerolog.Logger) *Aggregator {
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.ProbeDays <= 0 || cfg.ProbeDays > cfg.Days {
		cfg.ProbeDays = min(2, cfg.Days)
	}
	if generator == nil {
		generator = NewGenerator(nil)
	}
	return &Aggregator{
		source:    source,
		responses: responses,
		ttls:      ttls,
		generator: generator,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
		sleep:     client.Sleep,
	}
}

// SetClock replaces the time source (for testing).
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// SetSleep replaces the wait between upstream calls (for testing).
func (a *Aggregator) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	a.sleep = sleep
}

// UpcomingDates returns the next Days calendar dates starting today.
func UpcomingDates(now time.Time, days int) []string {
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, nba.FormatDate(now.AddDate(0, 0, i)))
	}
	return dates
}

// Upcoming returns the upcoming-games feed. Per-date failures are tolerated;
// only a cancelled context is returned as an error.
func (a *Aggregator) Upcoming(ctx context.Context) (Result, error) {
	if res, ok := a.cached(); ok {
		upcomingFeedsTotal.WithLabelValues("cached").Inc()
		return res, nil
	}

	now := a.now()
	dates := UpcomingDates(now, a.config.Days)[:a.config.ProbeDays]

	var games []nba.Game
	calls := 0

	for _, date := range dates {
		if err := a.space(ctx, &calls); err != nil {
			return Result{}, err
		}

		found, err := a.source.GamesOnDate(ctx, date, a.config.PerPage)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, fmt.Errorf("fetch games for %s: %w", date, ctx.Err())
			}
			dateFetchFailures.Inc()
			a.logger.Warn().Err(err).Str("date", date).Msg("Failed to fetch games for date, continuing")
			continue
		}

		kept := upcomingOnly(found, now)
		a.logger.Debug().
			Str("date", date).
			Int("fetched", len(found)).
			Int("kept", len(kept)).
			Msg("Fetched games for date")
		games = append(games, kept...)
	}

	source := "live"
	if len(games) == 0 {
		var err error
		games, source, err = a.demoGames(ctx, &calls)
		if err != nil {
			return Result{}, err
		}
	}

	SortByEffective(games)

	res := Result{Games: games, Message: MessageLive}
	if len(games) > 0 && games[0].Demo {
		res.DemoMode = true
		res.Message = MessageDemo
	}
	if games == nil {
		res.Games = []nba.Game{}
	}

	if len(res.Games) > 0 {
		a.store(res)
	}
	upcomingFeedsTotal.WithLabelValues(source).Inc()

	a.logger.Info().
		Int("count", len(res.Games)).
		Bool("demo_mode", res.DemoMode).
		Str("source", source).
		Msg("Upcoming games assembled")

	return res, nil
}

// demoGames replaces an empty live result: rescheduled historical games, or
// generated ones when the historical call is rate limited.
func (a *Aggregator) demoGames(ctx context.Context, calls *int) ([]nba.Game, string, error) {
	a.logger.Info().Msg("No upcoming games found, fetching historical games for demo")

	if err := a.space(ctx, calls); err != nil {
		return nil, "", err
	}

	historical, err := a.source.GamesInRange(ctx, a.config.HistoricalStart, a.config.HistoricalEnd, a.config.HistoricalPerPage)
	switch {
	case err == nil:
		return a.generator.Reschedule(historical, a.config.ShiftWindow), "historical", nil
	case client.IsRateLimited(err):
		a.logger.Warn().Err(err).Msg("Historical games rate limited, generating fallback games")
		return a.generator.Generate(a.config.FallbackCount), "generated", nil
	case ctx.Err() != nil:
		return nil, "", fmt.Errorf("fetch historical games: %w", ctx.Err())
	default:
		a.logger.Error().Err(err).Msg("Failed to fetch historical games")
		return nil, "empty", nil
	}
}

// space waits Spacing before every upstream call except the first.
func (a *Aggregator) space(ctx context.Context, calls *int) error {
	defer func() { *calls++ }()
	if *calls == 0 || a.config.Spacing <= 0 {
		return nil
	}
	if err := a.sleep(ctx, a.config.Spacing); err != nil {
		return fmt.Errorf("wait between upstream calls: %w", err)
	}
	return nil
}

// cachedFeed is the cached form of a Result.
type cachedFeed struct {
	Games    []nba.Game `json:"games"`
	DemoMode bool       `json:"demo_mode"`
	Message  string     `json:"message"`
}

func (a *Aggregator) cached() (Result, bool) {
	data, ok := a.responses.Get(cache.KeyUpcomingGames)
	if !ok {
		return Result{}, false
	}
	var feed cachedFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		a.logger.Warn().Err(err).Msg("Discarding unreadable cached upcoming games")
		return Result{}, false
	}
	return Result{Games: feed.Games, DemoMode: feed.DemoMode, Message: feed.Message, Cached: true}, true
}

func (a *Aggregator) store(res Result) {
	data, err := json.Marshal(cachedFeed{Games: res.Games, DemoMode: res.DemoMode, Message: res.Message})
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to encode upcoming games for cache")
		return
	}
	a.responses.Set(cache.KeyUpcomingGames, data, a.ttls.Current().Games)
}

// upcomingOnly keeps games that have not started yet or are not finished.
func upcomingOnly(games []nba.Game, now time.Time) []nba.Game {
	kept := make([]nba.Game, 0, len(games))
	for _, g := range games {
		if !g.Effective().Before(now) || g.Status != nba.StatusFinal {
			kept = append(kept, g)
		}
	}
	return kept
}

// SortByEffective orders games by effective start time, earliest first.
func SortByEffective(games []nba.Game) {
	slices.SortStableFunc(games, func(x, y nba.Game) int {
		return x.Effective().Compare(y.Effective())
	})
}
