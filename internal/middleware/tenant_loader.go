package middleware

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/reqctx"
	"github.com/set-night/agentchat/internal/worker"
)

type TenantGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// TenantLoader returns middleware that checks the job's tenant still exists
// and scopes the context to it. Jobs for unknown tenants are dropped.
func TenantLoader(tenants TenantGetter) worker.Middleware {
	return func(next worker.Handler) worker.Handler {
		return func(ctx context.Context, job worker.Job) {
			if _, err := tenants.Get(ctx, job.TenantID); err != nil {
				slog.Error("load tenant for job", "job_id", job.ID, "tenant_id", job.TenantID, "error", err)
				return
			}

			ctx = reqctx.With(ctx, reqctx.Request{
				RequestID: job.RequestID,
				TenantID:  job.TenantID,
				UserID:    job.UserID,
			})
			next(ctx, job)
		}
	}
}
