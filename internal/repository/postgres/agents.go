package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/set-night/agentchat/internal/domain"
)

type AgentStore struct{ db DBTX }

const agentColumns = "id, name, primary_provider, fallback_provider, prompt, created_at, updated_at"

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var (
		a        domain.Agent
		primary  string
		fallback *string
	)
	if err := row.Scan(&a.ID, &a.Name, &primary, &fallback, &a.Prompt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.PrimaryProvider = domain.ProviderType(primary)
	if fallback != nil {
		fb := domain.ProviderType(*fallback)
		a.FallbackProvider = &fb
	}
	return &a, nil
}

func providerArg(p *domain.ProviderType) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func (s *AgentStore) Create(ctx context.Context, a *domain.Agent) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO agents (id, name, primary_provider, fallback_provider, prompt)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, string(a.PrimaryProvider), providerArg(a.FallbackProvider), a.Prompt,
	)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert agent: %w", mapErr(err, nil))
	}
	return nil
}

func (s *AgentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	a, err := scanAgent(s.db.QueryRow(ctx, "SELECT "+agentColumns+" FROM agents WHERE id = $1", id))
	if err != nil {
		return nil, mapErr(err, domain.ErrAgentNotFound)
	}
	return a, nil
}

func (s *AgentStore) Update(ctx context.Context, a *domain.Agent) error {
	row := s.db.QueryRow(ctx, `
		UPDATE agents
		SET name = $2, primary_provider = $3, fallback_provider = $4, prompt = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		a.ID, a.Name, string(a.PrimaryProvider), providerArg(a.FallbackProvider), a.Prompt,
	)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return mapErr(err, domain.ErrAgentNotFound)
	}
	return nil
}

func (s *AgentStore) List(ctx context.Context, f domain.AgentFilter) ([]domain.Agent, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.IDs) > 0 {
		where = append(where, "id = ANY("+arg(f.IDs)+")")
	}
	if f.Name != "" {
		where = append(where, "name ILIKE '%' || "+arg(f.Name)+" || '%'")
	}
	if f.PrimaryProvider != nil {
		where = append(where, "primary_provider = "+arg(string(*f.PrimaryProvider)))
	}
	if f.FallbackProvider != nil {
		where = append(where, "fallback_provider = "+arg(string(*f.FallbackProvider)))
	}

	query := "SELECT " + agentColumns + " FROM agents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, name"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
