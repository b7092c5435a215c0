package middleware

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/worker"
)

// TenantConcurrency returns middleware that lets at most limit jobs per
// tenant run at once. Further jobs wait for a slot. A limit <= 0 disables it.
func TenantConcurrency(limit int) worker.Middleware {
	if limit <= 0 {
		return func(next worker.Handler) worker.Handler { return next }
	}

	var mu sync.Mutex
	slots := make(map[uuid.UUID]chan struct{})
	acquire := func(tenantID uuid.UUID) chan struct{} {
		mu.Lock()
		defer mu.Unlock()
		sem, ok := slots[tenantID]
		if !ok {
			sem = make(chan struct{}, limit)
			slots[tenantID] = sem
		}
		return sem
	}

	return func(next worker.Handler) worker.Handler {
		return func(ctx context.Context, job worker.Job) {
			sem := acquire(job.TenantID)
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			next(ctx, job)
		}
	}
}
