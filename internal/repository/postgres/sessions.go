package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

type SessionStore struct{ db DBTX }

func (s *SessionStore) Create(ctx context.Context, sess *domain.Session) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO sessions (id, owner_user_id, agent_id)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		sess.ID, sess.OwnerUserID, sess.AgentID,
	)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return fmt.Errorf("insert session: %w", mapErr(err, nil))
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRow(ctx,
		"SELECT id, owner_user_id, agent_id, created_at FROM sessions WHERE id = $1", id,
	).Scan(&sess.ID, &sess.OwnerUserID, &sess.AgentID, &sess.CreatedAt)
	if err != nil {
		return nil, mapErr(err, domain.ErrSessionNotFound)
	}
	return &sess, nil
}

func (s *SessionStore) List(ctx context.Context, f domain.SessionFilter) ([]domain.Session, error) {
	limit := any(nil)
	if f.Limit > 0 {
		limit = f.Limit
	}
	var agentIDs []uuid.UUID
	if len(f.AgentIDs) > 0 {
		agentIDs = f.AgentIDs
	}
	var owner *uuid.UUID
	if f.OwnerUserID != uuid.Nil {
		owner = &f.OwnerUserID
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, owner_user_id, agent_id, created_at
		FROM sessions
		WHERE ($1::uuid IS NULL OR owner_user_id = $1)
		  AND ($2::uuid[] IS NULL OR agent_id = ANY($2))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		owner, agentIDs, limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.OwnerUserID, &sess.AgentID, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
