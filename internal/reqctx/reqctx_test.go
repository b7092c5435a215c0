package reqctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, From(ctx))

	_, err := TenantID(ctx)
	assert.ErrorIs(t, err, domain.ErrNoTenant)
	_, err = UserID(ctx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.False(t, HasScope(ctx, domain.ScopeUserChat))
}

func TestWithAssignsRequestID(t *testing.T) {
	tenant := uuid.New()
	ctx := With(context.Background(), Request{TenantID: tenant, Scopes: []domain.Scope{domain.ScopeUsageDashboard}})

	r := From(ctx)
	require.NotNil(t, r)
	assert.NotEqual(t, uuid.Nil, r.RequestID)

	got, err := TenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, tenant, got)
	assert.True(t, HasScope(ctx, domain.ScopeUsageDashboard))
	assert.False(t, HasScope(ctx, domain.ScopeUserChat))
}
