package config

import "time"

const (
	// Agent placeholder written when a conversation is created
	GeneratingPlaceholder = "Generating Response..."

	// Final content when neither provider produced a response
	GenerationFailedMessage = "Error generating response. Please try again later...."

	// Delay used when a rate-limited provider does not say how long to wait
	DefaultRetryAfter = 500 * time.Millisecond

	// Reply polling
	ReplyPollInterval = 500 * time.Millisecond
	ReplyPollTimeout  = 30 * time.Second

	// Stale generation sweep
	StaleSweepInterval  = 60 * time.Second
	StaleSweepBatchSize = 100

	// Tenant lookups made by background jobs
	TenantCacheTTL = 30 * time.Second

	// Connection pools
	GlobalMaxConns = 20
	GlobalMinConns = 5

	// Transcript and listing page sizes
	DefaultPageSize = 50
	MaxPageSize     = 500
)
