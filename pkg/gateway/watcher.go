package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportsorca/nba-proxy/pkg/client"
	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// State is the watcher's view of the feed.
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateRetrying State = "retrying"
	StateFailed   State = "failed"
)

// Update is delivered on every state change.
type Update struct {
	State    State
	Games    []nba.Game
	DemoMode bool
	Message  string

	// Attempt is the rate-limit retry in progress (1-based), MaxAttempts the bound
	Attempt     int
	MaxAttempts int
	RetryAfter  time.Duration

	Err error
}

// UpcomingSource provides the upcoming-games envelope. *Gateway implements it.
type UpcomingSource interface {
	UpcomingGames(ctx context.Context) (nba.Envelope[[]nba.Game], error)
}

// WatcherConfig controls polling.
type WatcherConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultWatcherConfig polls every 5 minutes and retries a rate-limited feed
// up to 3 times.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Interval:    5 * time.Minute,
		MaxAttempts: 3,
	}
}

// Watcher polls the upcoming-games feed on a fixed interval. Rate-limited
// responses are retried after the suggested wait, reported as StateRetrying,
// until MaxAttempts is exceeded.
type Watcher struct {
	source UpcomingSource
	config WatcherConfig
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu   sync.RWMutex
	last Update
}

// NewWatcher creates a watcher over source.
func NewWatcher(source UpcomingSource, cfg WatcherConfig, logger zerolog.Logger) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	return &Watcher{
		source: source,
		config: cfg,
		logger: logger,
		sleep:  client.Sleep,
		last:   Update{State: StateLoading},
	}
}

// SetSleep replaces the rate-limit wait (for testing).
func (w *Watcher) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	w.sleep = sleep
}

// Last returns the most recent update.
func (w *Watcher) Last() Update {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Run refreshes immediately and then on every interval until ctx is done.
// Polling happens on one goroutine: a tick that fires while a refresh is still
// running is dropped.
func (w *Watcher) Run(ctx context.Context, notify func(Update)) error {
	w.Refresh(ctx, notify)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Refresh(ctx, notify)
		}
	}
}

// Refresh performs one fetch cycle, including rate-limit retries, and returns
// the final update.
func (w *Watcher) Refresh(ctx context.Context, notify func(Update)) Update {
	if w.Last().State != StateReady {
		w.emit(notify, Update{State: StateLoading})
	}

	for attempt := 0; ; {
		env, err := w.source.UpcomingGames(ctx)
		switch {
		case err != nil:
			return w.emit(notify, Update{State: StateFailed, Err: err, Message: err.Error()})

		case env.Success:
			return w.emit(notify, Update{
				State:    StateReady,
				Games:    env.Data,
				DemoMode: env.DemoMode,
				Message:  env.Message,
			})

		case env.Error == nba.ErrorRateLimitExceeded:
			wait := time.Duration(env.RetryAfter) * time.Second
			if wait <= 0 {
				wait = DefaultRetryAfter * time.Second
			}
			if attempt >= w.config.MaxAttempts {
				err := fmt.Errorf("%w: maximum retry attempts reached", ErrRateLimitExhausted)
				return w.emit(notify, Update{State: StateFailed, Err: err, Message: err.Error()})
			}
			attempt++

			w.emit(notify, Update{
				State:       StateRetrying,
				Attempt:     attempt,
				MaxAttempts: w.config.MaxAttempts,
				RetryAfter:  wait,
				Message:     fmt.Sprintf("Rate limit exceeded. Retrying in %d seconds...", int(wait.Seconds())),
			})
			w.logger.Warn().Int("attempt", attempt).Dur("wait", wait).Msg("Upcoming games rate limited, retrying")

			if err := w.sleep(ctx, wait); err != nil {
				return w.emit(notify, Update{State: StateFailed, Err: err, Message: err.Error()})
			}

		default:
			msg := env.Message
			if msg == "" {
				msg = "Failed to fetch matches"
			}
			return w.emit(notify, Update{State: StateFailed, Err: errors.New(msg), Message: msg})
		}
	}
}

func (w *Watcher) emit(notify func(Update), u Update) Update {
	w.mu.Lock()
	w.last = u
	w.mu.Unlock()

	if notify != nil {
		notify(u)
	}
	return u
}
