package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/reqctx"
)

type UserService struct {
	router  *repository.Router
	tenants *TenantService
}

func NewUserService(router *repository.Router, tenants *TenantService) *UserService {
	return &UserService{router: router, tenants: tenants}
}

// Create adds a user to the context's tenant. It requires the user dashboard scope.
func (s *UserService) Create(ctx context.Context, email, name string, roles []domain.Role) (*domain.User, error) {
	if err := requireScope(ctx, domain.ScopeUserDashboard); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleUser}
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, r)
		}
	}

	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.Users(ctx)
	if err != nil {
		return nil, err
	}
	u := &domain.User{ID: uuid.New(), Email: email, Name: name, Roles: roles}
	if err := users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.Users(ctx)
	if err != nil {
		return nil, err
	}
	return users.Get(ctx, id)
}

// Authenticate loads a tenant's user and returns a context carrying their identity and scopes.
func (s *UserService) Authenticate(ctx context.Context, tenantID, userID uuid.UUID) (context.Context, *domain.User, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return nil, nil, err
	}
	h, err := s.router.Resolve(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	users, err := h.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	u, err := users.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	var requestID uuid.UUID
	if r := reqctx.From(ctx); r != nil {
		requestID = r.RequestID
	}
	ctx = reqctx.With(ctx, reqctx.Request{
		RequestID: requestID,
		TenantID:  tenantID,
		UserID:    u.ID,
		Scopes:    u.Scopes(),
	})
	return ctx, u, nil
}
