package cli

import (
	"context"
	"testing"
	"time"

	"github.com/set-night/agentchat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := parseDate("", false)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDate("2026-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDate("2026-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC), *got)

	got, err = parseDate("2026-03-01T10:00:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *got)

	_, err = parseDate("March 1st", false)
	assert.Error(t, err)
}

func TestRegistryOptionsApplyChanceKnobs(t *testing.T) {
	opts := registryOptions(&config.Config{
		GPT35FailureChance:    0.5,
		GPT35RateLimitChance:  0.25,
		ClaudeRateLimitChance: 0,
		GeminiFailureChance:   1,
		AnthropicKey:          "sk-ant",
		GeminiBaseURL:         "http://gemini.local/",
	})

	require.NotNil(t, opts.GPT35.Simulation)
	assert.Equal(t, 0.5, opts.GPT35.Simulation.FailureChance)
	assert.Equal(t, 0.25, opts.GPT35.Simulation.RateLimitChance)
	assert.Zero(t, opts.Claude35.Simulation.RateLimitChance)
	assert.Equal(t, "sk-ant", opts.Claude35.APIKey)
	assert.Equal(t, 1.0, opts.Gemini15.Simulation.FailureChance)
	assert.Equal(t, "http://gemini.local/", opts.Gemini15.BaseURL)
	assert.Empty(t, opts.GPT35.APIKey)
}

func TestDemoOnMemoryBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("runs simulated providers with real latency")
	}
	t.Setenv("STORAGE_BACKEND", config.BackendMemory)
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(func() {
		application = nil
		closeLogFile = nil
	})

	rootCmd.SetArgs([]string{"demo", "--messages", "1"})
	require.NoError(t, Execute(context.Background()))
}
