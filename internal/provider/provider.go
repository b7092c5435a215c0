// Package provider implements the generative text providers an agent can use.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	CodeRateLimited = http.StatusTooManyRequests
	CodeInternal    = http.StatusInternalServerError
)

type Result struct {
	Text      string
	TokensIn  int
	TokensOut int
	Latency   time.Duration
}

// Adapter is one generative provider.
type Adapter interface {
	ID() domain.ProviderType
	// PricePer1K is the cost in dollars of one thousand tokens, input and output alike.
	PricePer1K() decimal.Decimal
	Generate(ctx context.Context, prompt, text string) (*Result, error)
}

// Error is a failure reported by a provider. Code 429 means rate limited.
type Error struct {
	Provider   domain.ProviderType
	Code       int
	Message    string
	RetryDelay time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Provider, e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) RateLimited() bool { return e.Code == CodeRateLimited }

// RetryAfter implements retry.RateLimited.
func (e *Error) RetryAfter() (time.Duration, bool) {
	if !e.RateLimited() {
		return 0, false
	}
	if e.RetryDelay <= 0 {
		return config.DefaultRetryAfter, true
	}
	return e.RetryDelay, true
}

func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

func rateLimited(p domain.ProviderType, delay time.Duration) *Error {
	return &Error{Provider: p, Code: CodeRateLimited, Message: "Rate limited", RetryDelay: delay}
}

func internalError(p domain.ProviderType) *Error {
	return &Error{Provider: p, Code: CodeInternal, Message: fmt.Sprintf("%s internal error", p)}
}

// apiError converts an SDK failure into a provider Error.
func apiError(p domain.ProviderType, status int, header http.Header, err error) *Error {
	if status == 0 {
		status = CodeInternal
	}
	pe := &Error{Provider: p, Code: status, Message: err.Error(), Err: err}
	if status == CodeRateLimited && header != nil {
		pe.RetryDelay = parseRetryAfter(header.Get("Retry-After"))
	}
	return pe
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// countTokens approximates tokens as space separated words.
func countTokens(parts ...string) int {
	n := 0
	for _, p := range parts {
		n += len(strings.Split(p, " "))
	}
	return n
}
