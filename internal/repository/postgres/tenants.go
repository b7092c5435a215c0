package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/set-night/agentchat/internal/domain"
)

type TenantStore struct{ db DBTX }

const tenantColumns = "id, name, domain, api_key_hash, created_at, updated_at"

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := row.Scan(&t.ID, &t.Name, &t.Domain, &t.APIKeyHash, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO tenants (id, name, domain, api_key_hash)
		VALUES ($1, $2, lower($3), $4)
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Domain, t.APIKeyHash,
	)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert tenant: %w", mapErr(err, nil))
	}
	return nil
}

func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = $1", id))
	if err != nil {
		return nil, mapErr(err, domain.ErrTenantNotFound)
	}
	return t, nil
}

func (s *TenantStore) GetByDomain(ctx context.Context, d string) (*domain.Tenant, error) {
	t, err := scanTenant(s.db.QueryRow(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE domain = lower($1)", d))
	if err != nil {
		return nil, mapErr(err, domain.ErrTenantNotFound)
	}
	return t, nil
}

func (s *TenantStore) List(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.Query(ctx, "SELECT "+tenantColumns+" FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *TenantStore) UpdateAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.db.Exec(ctx, "UPDATE tenants SET api_key_hash = $2, updated_at = now() WHERE id = $1", id, hash)
	if err != nil {
		return fmt.Errorf("update tenant api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
