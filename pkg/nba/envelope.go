package nba

import "encoding/json"

// Error codes carried in Envelope.Error.
const (
	ErrorRateLimitExceeded    = "rate_limit_exceeded"
	ErrorRateLimitCritical    = "rate_limit_critical"
	ErrorSubscriptionRequired = "subscription_required"
	ErrorMissingParameter     = "missing_parameter"
	ErrorMissingParameters    = "missing_parameters"
	ErrorInvalidParameter     = "invalid_parameter"
	ErrorNotFound             = "not_found"
)

// Envelope is the JSON shape every backend route answers with.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitzero"`
	Meta    *Meta  `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// Upcoming games
	Count    int  `json:"count,omitempty"`
	DemoMode bool `json:"demo_mode,omitempty"`
	Cached   bool `json:"cached,omitempty"`

	// Rate limiting
	Fallback   bool `json:"fallback,omitempty"`
	RetryAfter int  `json:"retry_after,omitempty"`

	APIURL string `json:"api_url,omitempty"`
}

// RawEnvelope is an Envelope whose data is passed through undecoded.
type RawEnvelope = Envelope[json.RawMessage]
