package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

type UserStore struct{ db DBTX }

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Name, roles,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return fmt.Errorf("insert user: %w", mapErr(err, nil))
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var (
		u     domain.User
		roles []string
	)
	err := s.db.QueryRow(ctx,
		"SELECT id, email, name, roles, created_at, updated_at FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Email, &u.Name, &roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, domain.ErrUserNotFound)
	}
	for _, r := range roles {
		u.Roles = append(u.Roles, domain.Role(r))
	}
	return &u, nil
}
