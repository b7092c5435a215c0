package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/reqctx"
	"golang.org/x/crypto/bcrypt"
)

type TenantService struct {
	router   *repository.Router
	cache    *TenantCache
	hashCost int
}

func NewTenantService(router *repository.Router) *TenantService {
	return &TenantService{
		router:   router,
		cache:    NewTenantCache(config.TenantCacheTTL),
		hashCost: bcrypt.DefaultCost,
	}
}

type CreateTenantInput struct {
	Name       string
	Domain     string
	AdminEmail string
	AdminName  string
	// APIKey is generated when empty.
	APIKey string
}

// CreatedTenant carries the plain API key, which is not stored and is only available here.
type CreatedTenant struct {
	Tenant *domain.Tenant
	Admin  *domain.User
	APIKey string
}

// Create registers a tenant in the global namespace, provisions its own
// namespace and adds an admin user to it.
func (s *TenantService) Create(ctx context.Context, in CreateTenantInput) (*CreatedTenant, error) {
	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	if in.Name == "" || in.Domain == "" {
		return nil, fmt.Errorf("%w: tenant name and domain are required", domain.ErrValidation)
	}
	if in.AdminEmail == "" {
		return nil, fmt.Errorf("%w: admin email is required", domain.ErrValidation)
	}

	global, err := s.router.Global(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve global namespace: %w", err)
	}
	tenants, err := global.Tenants(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := tenants.GetByDomain(ctx, in.Domain); err == nil {
		return nil, fmt.Errorf("tenant domain %q: %w", in.Domain, domain.ErrDuplicate)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup tenant domain: %w", err)
	}

	apiKey := in.APIKey
	if apiKey == "" {
		apiKey = generateAPIKey()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash api key: %w", err)
	}

	tenant := &domain.Tenant{
		ID:         uuid.New(),
		Name:       in.Name,
		Domain:     in.Domain,
		APIKeyHash: string(hash),
	}
	if err := tenants.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	h, err := s.router.Resolve(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("provision tenant namespace: %w", err)
	}
	users, err := h.Users(ctx)
	if err != nil {
		return nil, err
	}
	admin := &domain.User{
		ID:    uuid.New(),
		Email: in.AdminEmail,
		Name:  in.AdminName,
		Roles: []domain.Role{domain.RoleAdmin},
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("tenant created", "tenant_id", tenant.ID, "domain", tenant.Domain, "admin_id", admin.ID)
	return &CreatedTenant{Tenant: tenant, Admin: admin, APIKey: apiKey}, nil
}

func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if t, ok := s.cache.Get(id); ok {
		return t, nil
	}
	tenants, err := s.tenants(ctx)
	if err != nil {
		return nil, err
	}
	t, err := tenants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(t)
	return t, nil
}

func (s *TenantService) GetByDomain(ctx context.Context, d string) (*domain.Tenant, error) {
	tenants, err := s.tenants(ctx)
	if err != nil {
		return nil, err
	}
	return tenants.GetByDomain(ctx, strings.ToLower(strings.TrimSpace(d)))
}

func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.tenants(ctx)
	if err != nil {
		return nil, err
	}
	return tenants.List(ctx)
}

// RegenerateAPIKey replaces the tenant's key and returns the new plain key.
func (s *TenantService) RegenerateAPIKey(ctx context.Context, id uuid.UUID) (string, error) {
	tenants, err := s.tenants(ctx)
	if err != nil {
		return "", err
	}
	apiKey := generateAPIKey()
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	if err := tenants.UpdateAPIKeyHash(ctx, id, string(hash)); err != nil {
		return "", fmt.Errorf("update api key: %w", err)
	}
	s.cache.Invalidate(id)
	return apiKey, nil
}

func (s *TenantService) VerifyAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(t.APIKeyHash), []byte(apiKey)) != nil {
		return domain.ErrInvalidAPIKey
	}
	return nil
}

func (s *TenantService) tenants(ctx context.Context) (domain.TenantStore, error) {
	global, err := s.router.Global(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve global namespace: %w", err)
	}
	return global.Tenants(ctx)
}

// SystemContext scopes ctx to a tenant for work that runs without a user,
// such as bootstrap commands and background jobs.
func SystemContext(ctx context.Context, tenantID uuid.UUID) context.Context {
	return reqctx.With(ctx, reqctx.Request{
		TenantID: tenantID,
		Scopes:   domain.ScopesForRoles([]domain.Role{domain.RoleAdmin}),
	})
}

func generateAPIKey() string {
	return "ak_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
