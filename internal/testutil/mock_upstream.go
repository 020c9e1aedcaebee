// Package testutil provides testing utilities for the NBA proxy.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/sportsorca/nba-proxy/pkg/nba"
)

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockUpstream is a configurable mock of the sports-data API.
type MockUpstream struct {
	server    *httptest.Server
	mu        sync.RWMutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	sequences map[string][]MockResponse

	// Tracking
	RequestCount      int
	Requests          []*http.Request
	LastRequestHeader http.Header
}

// NewMockUpstream creates a new mock upstream server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		sequences: make(map[string][]MockResponse),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.Clone(r.Context()))
		mock.LastRequestHeader = r.Header.Clone()

		if seq, ok := mock.sequences[r.URL.Path]; ok && len(seq) > 0 {
			resp := seq[0]
			if len(seq) > 1 {
				mock.sequences[r.URL.Path] = seq[1:]
			}
			mock.mu.Unlock()
			writeResponse(w, resp)
			return
		}

		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockUpstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence makes path answer with the given responses in order. The last
// response repeats once the sequence is used up.
func (m *MockUpstream) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[path] = responses
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsTo returns the recorded requests for path.
func (m *MockUpstream) RequestsTo(path string) []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*http.Request
	for _, r := range m.Requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// defaultHandler answers with an empty list and healthy rate-limit headers.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	for key, value := range QuotaHeaders(60, 59, "") {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"data": [], "meta": {"per_page": 25}}`))
}

// QuotaHeaders builds the upstream rate-limit headers. An empty tier omits
// x-subscription-tier.
func QuotaHeaders(limit, remaining int, tier string) map[string]string {
	headers := map[string]string{
		"X-Ratelimit-Limit":     strconv.Itoa(limit),
		"X-Ratelimit-Remaining": strconv.Itoa(remaining),
		"X-Ratelimit-Reset":     "60",
	}
	if tier != "" {
		headers["X-Subscription-Tier"] = tier
	}
	return headers
}

// NewListResponse creates a 200 OK list response holding data.
func NewListResponse[T any](data []T) MockResponse {
	body, err := json.Marshal(nba.ListResponse[T]{Data: data, Meta: nba.Meta{PerPage: len(data)}})
	if err != nil {
		panic(fmt.Sprintf("marshal mock list: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":          "application/json; charset=utf-8",
			"X-Ratelimit-Limit":     "60",
			"X-Ratelimit-Remaining": "59",
			"X-Ratelimit-Reset":     "60",
		},
	}
}

// NewItemResponse creates a 200 OK single-resource response.
func NewItemResponse[T any](item T) MockResponse {
	body, err := json.Marshal(nba.ItemResponse[T]{Data: item})
	if err != nil {
		panic(fmt.Sprintf("marshal mock item: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response. A negative
// retryAfter omits the retry-after header.
func NewRateLimitResponse(retryAfter int) MockResponse {
	headers := map[string]string{
		"Content-Type":          "application/json; charset=utf-8",
		"X-Ratelimit-Limit":     "5",
		"X-Ratelimit-Remaining": "0",
		"X-Ratelimit-Reset":     "60",
	}
	if retryAfter >= 0 {
		headers["Retry-After"] = strconv.Itoa(retryAfter)
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too many requests"}`,
		Headers:    headers,
	}
}

// NewUnauthorizedResponse creates a 401 response.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error": "Unauthorized"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// Game builds a game between two roster teams at the given time.
func Game(id int, at time.Time, status string, home, visitor int) nba.Game {
	return nba.Game{
		ID:          id,
		Date:        nba.FormatDate(at),
		Datetime:    at.UTC().Format(time.RFC3339),
		Status:      status,
		HomeTeam:    nba.Roster[home-1],
		VisitorTeam: nba.Roster[visitor-1],
	}
}

// NewJSONResponse creates a response with status and v encoded as the body.
// Used to stand in for the backend's own envelopes.
func NewJSONResponse(status int, v any) MockResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal mock body: %v", err))
	}
	return MockResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
