package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/set-night/agentchat/internal/worker"
)

// Recover returns middleware that recovers from panics in job handlers.
func Recover() worker.Middleware {
	return func(next worker.Handler) worker.Handler {
		return func(ctx context.Context, job worker.Job) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered in job handler",
						"panic", r,
						"job_id", job.ID,
						"tenant_id", job.TenantID,
						"stack", string(debug.Stack()),
					)
				}
			}()
			next(ctx, job)
		}
	}
}
