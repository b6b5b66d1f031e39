// Package ratelimit throttles expensive and sensitive endpoints with sliding
// windows keyed by wallet address or client IP.
package ratelimit

import (
	"context"
	"time"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassConnect: wallet session creation (/wallet/connect).
	ClassConnect EndpointClass = "connect"
	// ClassSensitive: plaintext disclosure (/fhe/decrypt).
	ClassSensitive EndpointClass = "sensitive"
	// ClassWrite: registry mutations and encryption work.
	ClassWrite EndpointClass = "write"
	// ClassRead: lookups and search.
	ClassRead EndpointClass = "read"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassConnect, ClassSensitive, ClassWrite, ClassRead:
		return true
	}
	return false
}

// Policy is the number of requests allowed per window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies returns the per-class limits used when none are configured.
func DefaultPolicies() map[EndpointClass]Policy {
	return map[EndpointClass]Policy{
		ClassConnect:   {Limit: 10, Window: time.Minute},
		ClassSensitive: {Limit: 30, Window: time.Minute},
		ClassWrite:     {Limit: 50, Window: time.Minute},
		ClassRead:      {Limit: 100, Window: time.Minute},
	}
}

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the number of seconds until a request would be admitted.
	RetryAfter int
}

// BucketStore counts requests per key in a sliding window.
type BucketStore interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// ExceededResponse is the API response when a limit is hit.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// RetryAfter rounds the wait until resetAt up to whole seconds, minimum one.
func RetryAfter(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 1
	}
	return int((d + time.Second - 1) / time.Second)
}
