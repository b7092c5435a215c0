package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
)

const UnknownAgentName = "Unknown Agent"

type UsageService struct {
	router *repository.Router
}

func NewUsageService(router *repository.Router) *UsageService {
	return &UsageService{router: router}
}

// Track stores a usage record. A second record for the same response is ignored.
func (s *UsageService) Track(ctx context.Context, h *repository.Handle, rec *domain.UsageRecord) error {
	usage, err := h.Usage(ctx)
	if err != nil {
		return err
	}
	if err := usage.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create usage: %w", err)
	}
	return nil
}

// Analytics aggregates the tenant's usage. It requires the usage dashboard scope.
func (s *UsageService) Analytics(ctx context.Context, q domain.UsageQuery) ([]domain.UsageRow, error) {
	if err := requireScope(ctx, domain.ScopeUsageDashboard); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	h, err := s.router.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := h.Usage(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := usage.Aggregate(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}

	if q.Dimension == domain.DimensionAgent && len(rows) > 0 {
		if err := s.nameAgents(ctx, h, rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *UsageService) nameAgents(ctx context.Context, h *repository.Handle, rows []domain.UsageRow) error {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		if r.AgentID != nil {
			ids = append(ids, *r.AgentID)
		}
	}
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) > 0 {
		agents, err := h.Agents(ctx)
		if err != nil {
			return err
		}
		list, err := agents.List(ctx, domain.AgentFilter{IDs: ids, Limit: len(ids)})
		if err != nil {
			return fmt.Errorf("load agent names: %w", err)
		}
		for _, a := range list {
			names[a.ID] = a.Name
		}
	}
	for i := range rows {
		rows[i].Key = UnknownAgentName
		if rows[i].AgentID == nil {
			continue
		}
		if name, ok := names[*rows[i].AgentID]; ok {
			rows[i].Key = name
		}
	}
	return nil
}

// attach joins usage onto the completed replies in msgs.
func (s *UsageService) attach(ctx context.Context, h *repository.Handle, msgs []domain.Message) error {
	var ids []uuid.UUID
	for _, m := range msgs {
		if m.IsCompletedReply() {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	usage, err := h.Usage(ctx)
	if err != nil {
		return err
	}
	byID, err := usage.ListByResponseIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	for i := range msgs {
		if rec, ok := byID[msgs[i].ID]; ok && msgs[i].IsCompletedReply() {
			msgs[i].Usage = &rec
		}
	}
	return nil
}
