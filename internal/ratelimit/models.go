// Package ratelimit bounds how often one caller may mutate the ledger.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Store counts requests per key in a sliding window.
type Store interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error)
	Reset(ctx context.Context, key string) error
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

func retryAfter(now, resetAt time.Time) int {
	secs := int(resetAt.Sub(now).Seconds())
	if resetAt.Sub(now) > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
