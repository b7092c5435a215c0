package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestValidateProviders(t *testing.T) {
	assert.NoError(t, ValidateProviders(ProviderGPT35, nil))
	assert.NoError(t, ValidateProviders(ProviderGPT35, ptr(ProviderClaude35)))
	assert.ErrorIs(t, ValidateProviders("gpt-5", nil), ErrInvalidProvider)
	assert.ErrorIs(t, ValidateProviders(ProviderGPT35, ptr(ProviderType("bard"))), ErrInvalidProvider)
	assert.ErrorIs(t, ValidateProviders(ProviderGPT35, ptr(ProviderGPT35)), ErrSameProviders)
}

func TestAgentUpdateChecksStoredCounterpart(t *testing.T) {
	stored := Agent{Name: "support", PrimaryProvider: ProviderGPT35, FallbackProvider: ptr(ProviderClaude35)}

	_, err := AgentUpdate{FallbackProvider: ptr(ProviderGPT35)}.Apply(stored)
	assert.ErrorIs(t, err, ErrSameProviders)

	_, err = AgentUpdate{PrimaryProvider: ptr(ProviderClaude35)}.Apply(stored)
	assert.ErrorIs(t, err, ErrSameProviders)

	updated, err := AgentUpdate{PrimaryProvider: ptr(ProviderClaude35), ClearFallback: true}.Apply(stored)
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude35, updated.PrimaryProvider)
	assert.Nil(t, updated.FallbackProvider)
	assert.Equal(t, ProviderClaude35, *stored.FallbackProvider)
}

func TestScopesForRoles(t *testing.T) {
	assert.Contains(t, ScopesForRoles([]Role{RoleAdmin}), ScopeUsageDashboard)
	assert.NotContains(t, ScopesForRoles([]Role{RoleUser}), ScopeUsageDashboard)
	assert.Len(t, ScopesForRoles([]Role{RoleAdmin, RoleUser}), 4)
}
