// Package memory is an in-process storage backend. Every namespace keeps its
// rows behind one mutex; transactions work on a copy that replaces the
// namespace state on commit.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
)

type Backend struct {
	mu         sync.Mutex
	namespaces map[string]*namespace
}

func NewBackend() *Backend {
	return &Backend{namespaces: make(map[string]*namespace)}
}

func (b *Backend) Connect(_ context.Context, name string) (repository.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ns, ok := b.namespaces[name]
	if !ok {
		ns = &namespace{name: name, st: newState()}
		b.namespaces[name] = ns
	}
	return &Conn{ns: ns}, nil
}

func (b *Backend) Prepare(_ context.Context, conn repository.Conn, name string, entity repository.Entity) error {
	c, ok := conn.(*Conn)
	if !ok {
		return fmt.Errorf("memory backend cannot prepare %T", conn)
	}
	if entity == repository.EntityTenant && name != repository.GlobalNamespace {
		return fmt.Errorf("%s belong to the %s namespace", entity, repository.GlobalNamespace)
	}
	return c.view(func(st *state) error {
		st.prepared[entity] = true
		return nil
	})
}

type namespace struct {
	name string
	mu   sync.Mutex
	st   *state
}

type storedMessage struct {
	msg domain.Message
	seq int64
}

type state struct {
	prepared map[repository.Entity]bool
	tenants  map[uuid.UUID]domain.Tenant
	users    map[uuid.UUID]domain.User
	agents   map[uuid.UUID]domain.Agent
	sessions map[uuid.UUID]domain.Session
	messages map[uuid.UUID]storedMessage
	usage    map[uuid.UUID]domain.UsageRecord
	seq      int64
}

func newState() *state {
	return &state{
		prepared: make(map[repository.Entity]bool),
		tenants:  make(map[uuid.UUID]domain.Tenant),
		users:    make(map[uuid.UUID]domain.User),
		agents:   make(map[uuid.UUID]domain.Agent),
		sessions: make(map[uuid.UUID]domain.Session),
		messages: make(map[uuid.UUID]storedMessage),
		usage:    make(map[uuid.UUID]domain.UsageRecord),
	}
}

func (s *state) clone() *state {
	return &state{
		prepared: maps.Clone(s.prepared),
		tenants:  maps.Clone(s.tenants),
		users:    maps.Clone(s.users),
		agents:   maps.Clone(s.agents),
		sessions: maps.Clone(s.sessions),
		messages: maps.Clone(s.messages),
		usage:    maps.Clone(s.usage),
		seq:      s.seq,
	}
}

// Conn implements repository.Conn. A Conn with tx set belongs to a running transaction.
type Conn struct {
	ns *namespace
	tx *state
}

func (c *Conn) view(fn func(st *state) error) error {
	if c.tx != nil {
		return fn(c.tx)
	}
	c.ns.mu.Lock()
	defer c.ns.mu.Unlock()
	return fn(c.ns.st)
}

func (c *Conn) Tenants() domain.TenantStore   { return &TenantStore{c: c} }
func (c *Conn) Users() domain.UserStore       { return &UserStore{c: c} }
func (c *Conn) Agents() domain.AgentStore     { return &AgentStore{c: c} }
func (c *Conn) Sessions() domain.SessionStore { return &SessionStore{c: c} }
func (c *Conn) Messages() domain.MessageStore { return &MessageStore{c: c} }
func (c *Conn) Usage() domain.UsageStore      { return &UsageStore{c: c} }

// InTx holds the namespace lock for the whole transaction, so transactions
// and single writes are serialized.
func (c *Conn) InTx(ctx context.Context, fn func(tx repository.Conn) error) error {
	if c.tx != nil {
		return fn(c)
	}

	c.ns.mu.Lock()
	defer c.ns.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := c.ns.st.clone()
	if err := fn(&Conn{ns: c.ns, tx: work}); err != nil {
		return err
	}
	c.ns.st = work
	return nil
}

func (c *Conn) Close() {}

func now() time.Time { return time.Now().UTC() }

func stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = now()
	}
	if updated != nil && updated.IsZero() {
		*updated = *created
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
