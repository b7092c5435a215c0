package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentRegister(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.agents.Register(fx.adminCtx, RegisterAgentInput{Name: "a", PrimaryProvider: "gpt-5"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = fx.agents.Register(fx.adminCtx, RegisterAgentInput{
		Name:             "a",
		PrimaryProvider:  domain.ProviderGPT35,
		FallbackProvider: ptr(domain.ProviderGPT35),
	})
	assert.ErrorIs(t, err, domain.ErrSameProviders)

	_, err = fx.agents.Register(fx.adminCtx, RegisterAgentInput{PrimaryProvider: domain.ProviderGPT35})
	assert.ErrorIs(t, err, domain.ErrValidation)

	a := fx.agent(t, domain.ProviderGPT35, ptr(domain.ProviderClaude35))
	got, err := fx.agents.Get(fx.adminCtx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	require.NotNil(t, got.FallbackProvider)
	assert.Equal(t, domain.ProviderClaude35, *got.FallbackProvider)
}

func TestAgentUpdate(t *testing.T) {
	fx := newFixture(t)
	a := fx.agent(t, domain.ProviderGPT35, ptr(domain.ProviderClaude35))

	// Setting the primary to the stored fallback is rejected.
	_, err := fx.agents.Update(fx.adminCtx, a.ID, domain.AgentUpdate{PrimaryProvider: ptr(domain.ProviderClaude35)})
	assert.ErrorIs(t, err, domain.ErrSameProviders)

	updated, err := fx.agents.Update(fx.adminCtx, a.ID, domain.AgentUpdate{
		Name:          ptr("renamed"),
		ClearFallback: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Nil(t, updated.FallbackProvider)
	assert.Equal(t, domain.ProviderGPT35, updated.PrimaryProvider)

	got, err := fx.agents.Get(fx.adminCtx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Nil(t, got.FallbackProvider)

	_, err = fx.agents.Update(fx.adminCtx, uuid.New(), domain.AgentUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestAgentList(t *testing.T) {
	fx := newFixture(t)
	a := fx.agent(t, domain.ProviderGPT35, nil)
	b := fx.agent(t, domain.ProviderClaude35, nil)
	fx.agent(t, domain.ProviderGeminiFlash, nil)

	all, err := fx.agents.List(fx.adminCtx, domain.AgentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := fx.agents.List(fx.adminCtx, domain.AgentFilter{IDs: []uuid.UUID{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	claude, err := fx.agents.List(fx.adminCtx, domain.AgentFilter{PrimaryProvider: ptr(domain.ProviderClaude35)})
	require.NoError(t, err)
	require.Len(t, claude, 1)
	assert.Equal(t, b.ID, claude[0].ID)
}

func TestSessionsAreOwnedByTheirUser(t *testing.T) {
	fx := newFixture(t)
	alice := fx.userCtx(t, "alice@acme.test")
	bob := fx.userCtx(t, "bob@acme.test")
	agent := fx.agent(t, domain.ProviderGPT35, nil)

	sess := fx.session(t, alice, agent)
	got, err := fx.sessions.Get(alice, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, got.AgentID)

	_, err = fx.sessions.Get(bob, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	list, err := fx.sessions.ListByUser(bob, nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = fx.sessions.ListByUser(alice, []uuid.UUID{agent.ID}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = fx.sessions.Create(alice, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}
