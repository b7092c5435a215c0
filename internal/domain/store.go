package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stores return ErrNotFound-wrapping errors for missing rows and ErrDuplicate
// when a unique constraint rejects a write.

type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	List(ctx context.Context, filter SessionFilter) ([]Session, error)
}

type MessageStore interface {
	// Create rejects a second message with the same (session, uniqKey) with ErrDuplicate.
	Create(ctx context.Context, m *Message) error
	Get(ctx context.Context, id uuid.UUID) (*Message, error)
	GetByUniqKey(ctx context.Context, sessionID uuid.UUID, uniqKey string) (*Message, error)
	GetReply(ctx context.Context, replyToID uuid.UUID) (*Message, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	// Complete sets the final content of a generating message. It reports false
	// when the message had already been completed, leaving it untouched.
	Complete(ctx context.Context, id uuid.UUID, content string) (bool, error)
	ListGeneratingBefore(ctx context.Context, before time.Time, limit int) ([]Message, error)
}

type AgentStore interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id uuid.UUID) (*Agent, error)
	Update(ctx context.Context, a *Agent) error
	List(ctx context.Context, filter AgentFilter) ([]Agent, error)
}

type UsageStore interface {
	// Create rejects a second record for the same generative response with ErrDuplicate.
	Create(ctx context.Context, u *UsageRecord) error
	ListByResponseIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]UsageRecord, error)
	Aggregate(ctx context.Context, q UsageQuery) ([]UsageRow, error)
}

type UserStore interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
}

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	UpdateAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error
}
