package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nba_upstream_retries_total",
		Help: "Total number of retries after upstream rate limiting",
	})

	retryWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nba_upstream_retry_wait_seconds",
		Help:    "Wait before retrying a rate-limited request",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nba_upstream_retry_exhausted_total",
		Help: "Total number of rate-limited requests that ran out of retries",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nba_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nba_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})
)

// maxErrorBody bounds how much of an error response body is kept as message.
const maxErrorBody = 4 << 10

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher executes a single HTTP request with bounded exponential backoff on
// 429 responses. Other failures are returned without retrying.
type Fetcher struct {
	http   HTTPDoer
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

// NewFetcher creates a Fetcher around doer.
func NewFetcher(doer HTTPDoer, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		http:   doer,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// SetSleep replaces the backoff wait (for testing).
func (f *Fetcher) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	f.sleep = sleep
}

// Fetch executes req. A 429 with retries remaining waits retry-after seconds
// when the header is present, otherwise the current backoff delay, then
// doubles the delay and tries again. A non-2xx response comes back as
// *UpstreamError with the body closed; on success the caller owns resp.Body.
func (f *Fetcher) Fetch(ctx context.Context, req *http.Request, maxRetries int, initialDelay time.Duration) (*http.Response, error) {
	delay := initialDelay
	retries := maxRetries

	for attempt := 1; ; attempt++ {
		resp, err := f.do(ctx, req)
		if err == nil {
			if attempt > 1 {
				f.logger.Info().
					Str("endpoint", req.URL.Path).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		upErr, ok := AsUpstream(err)
		if !ok || !shouldRetry(upErr.Class) {
			return nil, err
		}
		if retries <= 0 {
			if maxRetries > 0 {
				retryExhaustedTotal.Inc()
				f.logger.Warn().
					Str("endpoint", req.URL.Path).
					Int("max_retries", maxRetries).
					Msg("Retry attempts exhausted")
			}
			return nil, err
		}

		wait := delay
		if upErr.HasRetryAfter {
			wait = upErr.RetryAfter
		}

		retriesTotal.Inc()
		retryWaitSeconds.Observe(wait.Seconds())
		f.logger.Warn().
			Str("endpoint", req.URL.Path).
			Int("attempt", attempt).
			Int("retries_left", retries).
			Dur("wait", wait).
			Msg("Rate limit exceeded, retrying after backoff")

		if err := f.sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		delay *= 2
		retries--
	}
}

// do performs one attempt and converts failures into *UpstreamError.
func (f *Fetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	endpoint := req.URL.Path
	start := f.now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := f.http.Do(req.Clone(ctx))
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		f.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, &UpstreamError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode < 400 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = resp.Status
	}

	upErr := &UpstreamError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
		Message:    message,
		Header:     resp.Header.Clone(),
	}
	upErr.RetryAfter, upErr.HasRetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), f.now())

	f.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("error_class", string(upErr.Class)).
		Msg("Upstream request error")

	return nil, upErr
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep waits for d or until ctx is done. Exported for components that space
// out upstream calls.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleepContext(ctx, d)
}
