package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
	"github.com/set-night/agentchat/internal/reqctx"
)

type SessionService struct {
	router *repository.Router
}

func NewSessionService(router *repository.Router) *SessionService {
	return &SessionService{router: router}
}

// Create opens a session between the requesting user and an agent.
func (s *SessionService) Create(ctx context.Context, agentID uuid.UUID) (*domain.Session, error) {
	userID, err := reqctx.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireScope(ctx, domain.ScopeUserChat); err != nil {
		return nil, err
	}

	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	agents, err := h.Agents(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := agents.Get(ctx, agentID); err != nil {
		return nil, err
	}

	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	sess := &domain.Session{ID: uuid.New(), OwnerUserID: userID, AgentID: agentID}
	if err := sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return loadOwnedSession(ctx, h, id)
}

func (s *SessionService) ListByUser(ctx context.Context, agentIDs []uuid.UUID, limit, offset int) ([]domain.Session, error) {
	userID, err := reqctx.UserID(ctx)
	if err != nil {
		return nil, err
	}
	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return sessions.List(ctx, domain.SessionFilter{
		OwnerUserID: userID,
		AgentIDs:    agentIDs,
		Limit:       clampPage(limit),
		Offset:      offset,
	})
}

// loadOwnedSession hides sessions owned by someone else behind ErrSessionNotFound.
// Contexts without a user, such as background jobs, see every session.
func loadOwnedSession(ctx context.Context, h *repository.Handle, id uuid.UUID) (*domain.Session, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID, err := reqctx.UserID(ctx); err == nil && sess.OwnerUserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func requireScope(ctx context.Context, scope domain.Scope) error {
	if !reqctx.HasScope(ctx, scope) {
		return fmt.Errorf("%w: %s", domain.ErrMissingScope, scope)
	}
	return nil
}
