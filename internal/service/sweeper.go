package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/repository"
)

// StaleSweeper finalizes replies that have been generating for longer than maxAge,
// for example after a crash lost their jobs.
type StaleSweeper struct {
	router  *repository.Router
	tenants *TenantService
	maxAge  time.Duration
	now     func() time.Time
}

func NewStaleSweeper(router *repository.Router, tenants *TenantService, maxAge time.Duration) *StaleSweeper {
	return &StaleSweeper{router: router, tenants: tenants, maxAge: maxAge, now: time.Now}
}

// Sweep runs one pass over every tenant and returns the number of replies finalized.
func (s *StaleSweeper) Sweep(ctx context.Context) (int, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.maxAge)

	total := 0
	for _, t := range tenants {
		h, err := s.router.Resolve(ctx, t.ID)
		if err != nil {
			slog.Error("sweep: resolve tenant", "tenant_id", t.ID, "error", err)
			continue
		}
		msgs, err := h.Messages(ctx)
		if err != nil {
			slog.Error("sweep: prepare messages", "tenant_id", t.ID, "error", err)
			continue
		}
		stale, err := msgs.ListGeneratingBefore(ctx, cutoff, config.StaleSweepBatchSize)
		if err != nil {
			slog.Error("sweep: list stale replies", "tenant_id", t.ID, "error", err)
			continue
		}
		for _, m := range stale {
			done, err := msgs.Complete(ctx, m.ID, config.GenerationFailedMessage)
			if err != nil {
				slog.Error("sweep: finalize reply", "tenant_id", t.ID, "message_id", m.ID, "error", err)
				continue
			}
			if done {
				total++
			}
		}
	}
	if total > 0 {
		slog.Info("stale replies finalized", "count", total)
	}
	return total, nil
}

// Run sweeps on every interval until ctx is cancelled. A zero maxAge disables it.
func (s *StaleSweeper) Run(ctx context.Context, interval time.Duration) {
	if s.maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("sweep stale replies", "error", err)
			}
		}
	}
}
