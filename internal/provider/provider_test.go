package provider

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/set-night/agentchat/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instant(failure, rateLimit float64) Options {
	return Options{
		Simulation: &Simulation{
			FailureChance:   failure,
			RateLimitChance: rateLimit,
			MinRetryAfter:   500 * time.Millisecond,
			MaxRetryAfter:   2000 * time.Millisecond,
		},
		Rand: rand.NewPCG(1, 2),
	}
}

func TestGPT35Success(t *testing.T) {
	a := NewGPT35(instant(0, 0))

	res, err := a.Generate(context.Background(), "You are helpful", "hi there")
	require.NoError(t, err)
	assert.Equal(t, 5, res.TokensIn)
	assert.GreaterOrEqual(t, len(res.Text), 20)
	assert.LessOrEqual(t, len(res.Text), 100)
	assert.Equal(t, len(strings.Split(res.Text, " ")), res.TokensOut)
	assert.True(t, a.PricePer1K().Equal(decimal.RequireFromString("0.002")))
}

func TestGPT35Failure(t *testing.T) {
	a := NewGPT35(instant(1, 0))

	_, err := a.Generate(context.Background(), "p", "m")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeInternal, pe.Code)
	assert.Equal(t, "gpt-3.5-turbo internal error", pe.Message)
	_, retryable := pe.RetryAfter()
	assert.False(t, retryable)
}

func TestGPT35RateLimit(t *testing.T) {
	a := NewGPT35(instant(0, 1))

	_, err := a.Generate(context.Background(), "p", "m")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.RateLimited())
	delay, ok := pe.RetryAfter()
	require.True(t, ok)
	assert.GreaterOrEqual(t, delay, 500*time.Millisecond)
	assert.LessOrEqual(t, delay, 2000*time.Millisecond)
}

func TestClaude35JoinsTwoChoices(t *testing.T) {
	a := NewClaude35(instant(0, 0))

	res, err := a.Generate(context.Background(), "prompt", "one two three")
	require.NoError(t, err)
	assert.Equal(t, 4, res.TokensIn)
	assert.Equal(t, len(strings.Split(res.Text, " ")), res.TokensOut)
	assert.GreaterOrEqual(t, len(res.Text), 41)
	assert.True(t, a.PricePer1K().Equal(decimal.RequireFromString("0.001")))
}

func TestClaude35IgnoresFailureChance(t *testing.T) {
	a := NewClaude35(instant(1, 0))
	_, err := a.Generate(context.Background(), "p", "m")
	assert.NoError(t, err)
}

func TestGemini15Failure(t *testing.T) {
	a, err := NewGemini15(instant(1, 1))
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), "p", "m")
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, CodeInternal, pe.Code)
	assert.Equal(t, domain.ProviderGeminiFlash, pe.Provider)
}

func TestGemini15NeverRateLimited(t *testing.T) {
	a, err := NewGemini15(instant(0, 1))
	require.NoError(t, err)

	_, err = a.Generate(context.Background(), "p", "m")
	assert.NoError(t, err)
}

func TestGenerateStopsOnCancel(t *testing.T) {
	a := NewGPT35(Options{Simulation: &Simulation{MinLatency: time.Hour, MaxLatency: time.Hour}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Generate(ctx, "p", "m")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsProviderError(err))
}

func TestDefaultSimulations(t *testing.T) {
	gpt := GPT35Simulation()
	assert.InDelta(t, 0.1, gpt.FailureChance, 1e-9)
	assert.InDelta(t, 0.15, gpt.RateLimitChance, 1e-9)
	assert.Equal(t, 800*time.Millisecond, gpt.SlowMinLatency)

	assert.Zero(t, Claude35Simulation().FailureChance)
	assert.Zero(t, Gemini15Simulation().RateLimitChance)
}

func TestRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(RegistryOptions{})
	require.NoError(t, err)

	for _, id := range domain.Providers {
		a, err := r.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, a.ID())
	}

	_, err = r.Get("llama")
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}

func TestErrorDefaultsRetryDelay(t *testing.T) {
	pe := &Error{Provider: domain.ProviderGPT35, Code: CodeRateLimited}
	delay, ok := pe.RetryAfter()
	assert.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, delay)
}
