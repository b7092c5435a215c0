package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ProviderType string

const (
	ProviderGPT35       ProviderType = "gpt-3.5-turbo"
	ProviderClaude35    ProviderType = "claude-3.5-sonnet"
	ProviderGeminiFlash ProviderType = "google-gemini-1.5"
)

// Providers lists every provider an agent may reference.
var Providers = []ProviderType{ProviderGPT35, ProviderClaude35, ProviderGeminiFlash}

func (p ProviderType) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

type Agent struct {
	ID               uuid.UUID
	Name             string
	PrimaryProvider  ProviderType
	FallbackProvider *ProviderType
	Prompt           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AgentUpdate carries a partial update; nil fields are left untouched.
// ClearFallback removes the fallback provider.
type AgentUpdate struct {
	Name             *string
	PrimaryProvider  *ProviderType
	FallbackProvider *ProviderType
	ClearFallback    bool
	Prompt           *string
}

type AgentFilter struct {
	IDs              []uuid.UUID
	Name             string
	PrimaryProvider  *ProviderType
	FallbackProvider *ProviderType
	Limit            int
	Offset           int
}

// ValidateProviders checks a primary/fallback pair.
func ValidateProviders(primary ProviderType, fallback *ProviderType) error {
	if !primary.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, primary)
	}
	if fallback == nil {
		return nil
	}
	if !fallback.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, *fallback)
	}
	if *fallback == primary {
		return ErrSameProviders
	}
	return nil
}

// Apply merges the update into a copy of the agent and validates the result
// against the stored counterpart provider.
func (u AgentUpdate) Apply(a Agent) (Agent, error) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.PrimaryProvider != nil {
		a.PrimaryProvider = *u.PrimaryProvider
	}
	if u.ClearFallback {
		a.FallbackProvider = nil
	} else if u.FallbackProvider != nil {
		fb := *u.FallbackProvider
		a.FallbackProvider = &fb
	}
	if u.Prompt != nil {
		a.Prompt = *u.Prompt
	}
	if a.Name == "" {
		return a, fmt.Errorf("%w: agent name is required", ErrValidation)
	}
	if err := ValidateProviders(a.PrimaryProvider, a.FallbackProvider); err != nil {
		return a, err
	}
	return a, nil
}
