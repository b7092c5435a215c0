package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session binds one user to one agent. Sessions are never modified after creation.
type Session struct {
	ID          uuid.UUID
	OwnerUserID uuid.UUID
	AgentID     uuid.UUID
	CreatedAt   time.Time
}

type SessionFilter struct {
	OwnerUserID uuid.UUID
	AgentIDs    []uuid.UUID
	Limit       int
	Offset      int
}
