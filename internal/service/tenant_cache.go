package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
)

// TenantCache keeps tenant records for a short TTL so that every job does not hit the global namespace.
type TenantCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]tenantEntry
	ttl     time.Duration
}

type tenantEntry struct {
	tenant   domain.Tenant
	cachedAt time.Time
}

func NewTenantCache(ttl time.Duration) *TenantCache {
	return &TenantCache{entries: make(map[uuid.UUID]tenantEntry), ttl: ttl}
}

func (c *TenantCache) Get(id uuid.UUID) (*domain.Tenant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok || time.Since(e.cachedAt) > c.ttl {
		return nil, false
	}
	t := e.tenant
	return &t, true
}

func (c *TenantCache) Set(t *domain.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[t.ID] = tenantEntry{tenant: *t, cachedAt: time.Now()}
}

func (c *TenantCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
