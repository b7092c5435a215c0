// Package reqctx carries the caller's identity through a request or background job.
package reqctx

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

type ctxKey string

const requestKey ctxKey = "request"

type Request struct {
	RequestID uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Scopes    []domain.Scope
}

// With stores r in ctx. A zero RequestID is replaced by a fresh one.
func With(ctx context.Context, r Request) context.Context {
	if r.RequestID == uuid.Nil {
		r.RequestID = uuid.New()
	}
	return context.WithValue(ctx, requestKey, &r)
}

// From extracts the request from context.
func From(ctx context.Context) *Request {
	r, ok := ctx.Value(requestKey).(*Request)
	if !ok {
		return nil
	}
	return r
}

func TenantID(ctx context.Context) (uuid.UUID, error) {
	r := From(ctx)
	if r == nil || r.TenantID == uuid.Nil {
		return uuid.Nil, domain.ErrNoTenant
	}
	return r.TenantID, nil
}

func UserID(ctx context.Context) (uuid.UUID, error) {
	r := From(ctx)
	if r == nil || r.UserID == uuid.Nil {
		return uuid.Nil, domain.ErrNoUser
	}
	return r.UserID, nil
}

func HasScope(ctx context.Context, scope domain.Scope) bool {
	r := From(ctx)
	return r != nil && slices.Contains(r.Scopes, scope)
}

// Logger returns the default logger annotated with the request identifiers.
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	r := From(ctx)
	if r == nil {
		return logger
	}
	logger = logger.With("request_id", r.RequestID, "tenant_id", r.TenantID)
	if r.UserID != uuid.Nil {
		logger = logger.With("user_id", r.UserID)
	}
	return logger
}
