package domain

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID         uuid.UUID
	Name       string
	Domain     string
	APIKeyHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
