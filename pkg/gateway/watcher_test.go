package gateway

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// scriptedSource returns envelopes in order; the last one repeats.
type scriptedSource struct {
	mu        sync.Mutex
	envelopes []nba.Envelope[[]nba.Game]
	err       error
	calls     int
}

func (s *scriptedSource) UpcomingGames(context.Context) (nba.Envelope[[]nba.Game], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.envelopes)-1)
	s.calls++
	if s.err != nil {
		return nba.Envelope[[]nba.Game]{}, s.err
	}
	return s.envelopes[i], nil
}

func rateLimitedEnvelope(retryAfter int) nba.Envelope[[]nba.Game] {
	return nba.Envelope[[]nba.Game]{Success: false, Error: nba.ErrorRateLimitExceeded, RetryAfter: retryAfter}
}

func newTestWatcher(src UpcomingSource) (*Watcher, *[]time.Duration) {
	w := NewWatcher(src, DefaultWatcherConfig(), zerolog.New(os.Stderr).Level(zerolog.Disabled))
	waits := []time.Duration{}
	w.SetSleep(func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	})
	return w, &waits
}

func collect(updates *[]Update) func(Update) {
	return func(u Update) { *updates = append(*updates, u) }
}

func TestWatcher_Ready(t *testing.T) {
	src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{upcomingEnvelope(1, 2)}}
	w, _ := newTestWatcher(src)

	var updates []Update
	final := w.Refresh(context.Background(), collect(&updates))

	if final.State != StateReady || len(final.Games) != 2 {
		t.Errorf("final = %+v", final)
	}
	if len(updates) != 2 || updates[0].State != StateLoading {
		t.Errorf("updates = %+v, want loading then ready", updates)
	}
	if w.Last().State != StateReady {
		t.Errorf("Last() = %v", w.Last().State)
	}
}

func TestWatcher_RetriesThenSucceeds(t *testing.T) {
	src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{
		rateLimitedEnvelope(20),
		rateLimitedEnvelope(0),
		upcomingEnvelope(5),
	}}
	w, waits := newTestWatcher(src)

	var updates []Update
	final := w.Refresh(context.Background(), collect(&updates))

	if final.State != StateReady {
		t.Fatalf("final = %+v", final)
	}

	var retrying []Update
	for _, u := range updates {
		if u.State == StateRetrying {
			retrying = append(retrying, u)
		}
	}
	if len(retrying) != 2 || retrying[0].Attempt != 1 || retrying[1].Attempt != 2 || retrying[0].MaxAttempts != 3 {
		t.Errorf("retrying updates = %+v", retrying)
	}

	want := []time.Duration{20 * time.Second, 60 * time.Second}
	if len(*waits) != 2 || (*waits)[0] != want[0] || (*waits)[1] != want[1] {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
}

func TestWatcher_FailsAfterMaxAttempts(t *testing.T) {
	src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{rateLimitedEnvelope(1)}}
	w, waits := newTestWatcher(src)

	final := w.Refresh(context.Background(), nil)

	if final.State != StateFailed || !errors.Is(final.Err, ErrRateLimitExhausted) {
		t.Errorf("final = %+v", final)
	}
	if src.calls != 4 || len(*waits) != 3 {
		t.Errorf("calls = %d waits = %d, want 4 and 3", src.calls, len(*waits))
	}
}

func TestWatcher_HardErrors(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		w, _ := newTestWatcher(&scriptedSource{err: errors.New("connection refused"), envelopes: []nba.Envelope[[]nba.Game]{{}}})
		if final := w.Refresh(context.Background(), nil); final.State != StateFailed {
			t.Errorf("final = %+v", final)
		}
	})

	t.Run("unsuccessful envelope", func(t *testing.T) {
		src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{{Success: false, Error: "boom"}}}
		w, waits := newTestWatcher(src)
		final := w.Refresh(context.Background(), nil)
		if final.State != StateFailed || final.Message != "Failed to fetch matches" {
			t.Errorf("final = %+v", final)
		}
		if len(*waits) != 0 {
			t.Errorf("waited %v on a hard error", *waits)
		}
	})
}

func TestWatcher_CancelledDuringRetryWait(t *testing.T) {
	src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{rateLimitedEnvelope(60)}}
	w := NewWatcher(src, DefaultWatcherConfig(), zerolog.New(os.Stderr).Level(zerolog.Disabled))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	final := w.Refresh(ctx, nil)
	if final.State != StateFailed || !errors.Is(final.Err, context.DeadlineExceeded) {
		t.Errorf("final = %+v", final)
	}
}

func TestWatcher_RunPollsOnInterval(t *testing.T) {
	src := &scriptedSource{envelopes: []nba.Envelope[[]nba.Game]{upcomingEnvelope(1)}}
	w := NewWatcher(src, WatcherConfig{Interval: 10 * time.Millisecond, MaxAttempts: 3}, zerolog.New(os.Stderr).Level(zerolog.Disabled))

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	err := w.Run(ctx, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v", err)
	}

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	if calls < 3 {
		t.Errorf("polls = %d, want at least 3", calls)
	}
}
