package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
)

type AgentService struct {
	router *repository.Router
}

func NewAgentService(router *repository.Router) *AgentService {
	return &AgentService{router: router}
}

type RegisterAgentInput struct {
	Name             string
	PrimaryProvider  domain.ProviderType
	FallbackProvider *domain.ProviderType
	Prompt           string
}

func (s *AgentService) Register(ctx context.Context, in RegisterAgentInput) (*domain.Agent, error) {
	if err := requireScope(ctx, domain.ScopeUserAgent); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: agent name is required", domain.ErrValidation)
	}
	if err := domain.ValidateProviders(in.PrimaryProvider, in.FallbackProvider); err != nil {
		return nil, err
	}

	agents, err := s.agents(ctx)
	if err != nil {
		return nil, err
	}
	a := &domain.Agent{
		ID:               uuid.New(),
		Name:             in.Name,
		PrimaryProvider:  in.PrimaryProvider,
		FallbackProvider: in.FallbackProvider,
		Prompt:           in.Prompt,
	}
	if err := agents.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return a, nil
}

// Update applies a partial update, validating providers against the stored values.
func (s *AgentService) Update(ctx context.Context, id uuid.UUID, upd domain.AgentUpdate) (*domain.Agent, error) {
	if err := requireScope(ctx, domain.ScopeUserAgent); err != nil {
		return nil, err
	}
	agents, err := s.agents(ctx)
	if err != nil {
		return nil, err
	}
	current, err := agents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := upd.Apply(*current)
	if err != nil {
		return nil, err
	}
	if err := agents.Update(ctx, &next); err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return &next, nil
}

func (s *AgentService) Get(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	agents, err := s.agents(ctx)
	if err != nil {
		return nil, err
	}
	return agents.Get(ctx, id)
}

func (s *AgentService) List(ctx context.Context, f domain.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents(ctx)
	if err != nil {
		return nil, err
	}
	f.Limit = clampPage(f.Limit)
	return agents.List(ctx, f)
}

func (s *AgentService) agents(ctx context.Context) (domain.AgentStore, error) {
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return h.Agents(ctx)
}

func clampPage(limit int) int {
	if limit <= 0 {
		return config.DefaultPageSize
	}
	return min(limit, config.MaxPageSize)
}
