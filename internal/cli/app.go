package cli

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/set-night/agentchat"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/middleware"
	"github.com/set-night/agentchat/internal/provider"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/repository/memory"
	"github.com/set-night/agentchat/internal/repository/postgres"
	"github.com/set-night/agentchat/internal/service"
	"github.com/set-night/agentchat/internal/worker"
)

// app holds the wired services for one command invocation.
type app struct {
	router   *repository.Router
	pool     *worker.Pool
	tenants  *service.TenantService
	users    *service.UserService
	agents   *service.AgentService
	sessions *service.SessionService
	usage    *service.UsageService
	conv     *service.ConversationService
	gen      *service.GenerativeService
	sweeper  *service.StaleSweeper
}

func newApp(cfg *config.Config) (*app, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	registry, err := provider.NewDefaultRegistry(registryOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("init providers: %w", err)
	}

	router := repository.NewRouter(backend)
	tenants := service.NewTenantService(router)
	usage := service.NewUsageService(router)
	gen := service.NewGenerativeService(router, registry, usage, cfg.RetryMaxAttempts)

	pool := worker.NewPool(cfg.WorkerConcurrency, cfg.WorkerQueueSize, gen.HandleJob,
		middleware.Recover(),
		middleware.Logging(),
		middleware.TenantLoader(tenants),
		middleware.TenantConcurrency(cfg.TenantMaxGenerating),
	)

	return &app{
		router:   router,
		pool:     pool,
		tenants:  tenants,
		users:    service.NewUserService(router, tenants),
		agents:   service.NewAgentService(router),
		sessions: service.NewSessionService(router),
		usage:    usage,
		conv:     service.NewConversationService(router, pool, usage),
		gen:      gen,
		sweeper:  service.NewStaleSweeper(router, tenants, cfg.StaleGenerationTimeout),
	}, nil
}

func (a *app) start(ctx context.Context) {
	a.pool.Start(ctx)
}

// close drains queued generations before releasing storage.
func (a *app) close() {
	a.pool.Stop()
	a.router.Close()
}

func newBackend(cfg *config.Config) (repository.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return memory.NewBackend(), nil
	case config.BackendPostgres:
		migrations, err := fs.Sub(agentchat.MigrationsFS, "migrations")
		if err != nil {
			return nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		return postgres.NewBackend(cfg.DatabaseURL, migrations, cfg.TenantMaxConns), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

func registryOptions(cfg *config.Config) provider.RegistryOptions {
	gpt := provider.GPT35Simulation()
	gpt.FailureChance = cfg.GPT35FailureChance
	gpt.RateLimitChance = cfg.GPT35RateLimitChance

	claude := provider.Claude35Simulation()
	claude.RateLimitChance = cfg.ClaudeRateLimitChance

	gemini := provider.Gemini15Simulation()
	gemini.FailureChance = cfg.GeminiFailureChance

	return provider.RegistryOptions{
		GPT35:    provider.Options{APIKey: cfg.OpenAIKey, Simulation: &gpt},
		Claude35: provider.Options{APIKey: cfg.AnthropicKey, Simulation: &claude},
		Gemini15: provider.Options{APIKey: cfg.GeminiKey, BaseURL: cfg.GeminiBaseURL, Simulation: &gemini},
	}
}
