package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/repository/memory"
	"github.com/set-night/agentchat/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records how often the router reaches the real backend.
type countingBackend struct {
	inner    repository.Backend
	connects atomic.Int32
	prepares atomic.Int32
}

func (b *countingBackend) Connect(ctx context.Context, ns string) (repository.Conn, error) {
	b.connects.Add(1)
	return b.inner.Connect(ctx, ns)
}

func (b *countingBackend) Prepare(ctx context.Context, c repository.Conn, ns string, e repository.Entity) error {
	b.prepares.Add(1)
	return b.inner.Prepare(ctx, c, ns, e)
}

func TestConcurrentResolveConnectsOnce(t *testing.T) {
	backend := &countingBackend{inner: memory.NewBackend()}
	router := repository.NewRouter(backend)
	tenant := uuid.New()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := router.Resolve(context.Background(), tenant)
			assert.NoError(t, err)
			_, err = h.Messages(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, backend.connects.Load())
	assert.EqualValues(t, 1, backend.prepares.Load())
}

func TestTenantsAreIsolated(t *testing.T) {
	router := repository.NewRouter(memory.NewBackend())
	ctx := context.Background()

	a, err := router.Resolve(ctx, uuid.New())
	require.NoError(t, err)
	b, err := router.Resolve(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, a.Namespace(), b.Namespace())

	agentsA, err := a.Agents(ctx)
	require.NoError(t, err)
	agent := &domain.Agent{ID: uuid.New(), Name: "a", PrimaryProvider: domain.ProviderGPT35}
	require.NoError(t, agentsA.Create(ctx, agent))

	agentsB, err := b.Agents(ctx)
	require.NoError(t, err)
	_, err = agentsB.Get(ctx, agent.ID)
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestGlobalBypassesTenantKeying(t *testing.T) {
	router := repository.NewRouter(memory.NewBackend())
	ctx := context.Background()

	g, err := router.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.GlobalNamespace, g.Namespace())

	again, err := router.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Namespace(), again.Namespace())
}

func TestFromContextRequiresTenant(t *testing.T) {
	router := repository.NewRouter(memory.NewBackend())

	_, err := router.FromContext(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoTenant)

	tenant := uuid.New()
	h, err := router.FromContext(reqctx.With(context.Background(), reqctx.Request{TenantID: tenant}))
	require.NoError(t, err)
	assert.Equal(t, repository.TenantNamespace(tenant), h.Namespace())
}

func TestTenantNamespaceIsIdentifierSafe(t *testing.T) {
	ns := repository.TenantNamespace(uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.Equal(t, "tenant_0f8fad5bd9cb469fa16570867728950e", ns)
}
