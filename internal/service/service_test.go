package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/provider"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/repository/memory"
	"github.com/set-night/agentchat/internal/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []worker.Job
	err  error
}

func (d *recordingDispatcher) Submit(job worker.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) Jobs() []worker.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]worker.Job(nil), d.jobs...)
}

type fakeAdapter struct {
	id    domain.ProviderType
	price decimal.Decimal
	calls atomic.Int32
	fn    func(call int) (*provider.Result, error)
}

func (a *fakeAdapter) ID() domain.ProviderType      { return a.id }
func (a *fakeAdapter) PricePer1K() decimal.Decimal { return a.price }

func (a *fakeAdapter) Generate(context.Context, string, string) (*provider.Result, error) {
	n := int(a.calls.Add(1))
	return a.fn(n)
}

func succeed(text string, in, out int) func(int) (*provider.Result, error) {
	return func(int) (*provider.Result, error) {
		return &provider.Result{Text: text, TokensIn: in, TokensOut: out}, nil
	}
}

func failInternal(p domain.ProviderType) func(int) (*provider.Result, error) {
	return func(int) (*provider.Result, error) {
		return nil, &provider.Error{Provider: p, Code: provider.CodeInternal, Message: string(p) + " internal error"}
	}
}

type fixture struct {
	router     *repository.Router
	tenants    *TenantService
	users      *UserService
	agents     *AgentService
	sessions   *SessionService
	usage      *UsageService
	conv       *ConversationService
	gen        *GenerativeService
	dispatcher *recordingDispatcher

	tenant   *domain.Tenant
	admin    *domain.User
	adminCtx context.Context
}

func newFixture(t *testing.T, adapters ...provider.Adapter) *fixture {
	t.Helper()
	ctx := context.Background()

	router := repository.NewRouter(memory.NewBackend())
	t.Cleanup(router.Close)

	tenants := NewTenantService(router)
	tenants.hashCost = bcrypt.MinCost
	usage := NewUsageService(router)
	dispatcher := &recordingDispatcher{}

	fx := &fixture{
		router:     router,
		tenants:    tenants,
		users:      NewUserService(router, tenants),
		agents:     NewAgentService(router),
		sessions:   NewSessionService(router),
		usage:      usage,
		conv:       NewConversationService(router, dispatcher, usage),
		gen:        NewGenerativeService(router, provider.NewRegistry(adapters...), usage, 3),
		dispatcher: dispatcher,
	}

	created, err := tenants.Create(ctx, CreateTenantInput{
		Name:       "Acme",
		Domain:     "acme.test",
		AdminEmail: "admin@acme.test",
	})
	require.NoError(t, err)
	fx.tenant = created.Tenant
	fx.admin = created.Admin

	fx.adminCtx, _, err = fx.users.Authenticate(ctx, fx.tenant.ID, fx.admin.ID)
	require.NoError(t, err)
	return fx
}

// userCtx creates a plain user in the fixture tenant and authenticates as them.
func (fx *fixture) userCtx(t *testing.T, email string) context.Context {
	t.Helper()
	u, err := fx.users.Create(fx.adminCtx, email, "", []domain.Role{domain.RoleUser})
	require.NoError(t, err)
	ctx, _, err := fx.users.Authenticate(context.Background(), fx.tenant.ID, u.ID)
	require.NoError(t, err)
	return ctx
}

func (fx *fixture) agent(t *testing.T, primary domain.ProviderType, fallback *domain.ProviderType) *domain.Agent {
	t.Helper()
	a, err := fx.agents.Register(fx.adminCtx, RegisterAgentInput{
		Name:             "agent-" + uuid.NewString()[:8],
		PrimaryProvider:  primary,
		FallbackProvider: fallback,
		Prompt:           "be brief",
	})
	require.NoError(t, err)
	return a
}

func (fx *fixture) session(t *testing.T, ctx context.Context, agent *domain.Agent) *domain.Session {
	t.Helper()
	sess, err := fx.sessions.Create(ctx, agent.ID)
	require.NoError(t, err)
	return sess
}

func ptr[T any](v T) *T { return &v }
