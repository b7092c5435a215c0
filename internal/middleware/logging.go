package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/set-night/agentchat/internal/worker"
)

// Logging returns middleware that logs job processing time.
func Logging() worker.Middleware {
	return func(next worker.Handler) worker.Handler {
		return func(ctx context.Context, job worker.Job) {
			start := time.Now()

			next(ctx, job)

			slog.Debug("job processed",
				"job_id", job.ID,
				"request_id", job.RequestID,
				"tenant_id", job.TenantID,
				"message_id", job.MessageID,
				"duration", time.Since(start),
			)
		}
	}
}
