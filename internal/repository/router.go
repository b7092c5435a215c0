package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/reqctx"
	"golang.org/x/sync/singleflight"
)

// GlobalNamespace holds data shared by every tenant, such as the tenant registry.
const GlobalNamespace = "global"

type Entity string

const (
	EntityTenant  Entity = "tenants"
	EntityUser    Entity = "users"
	EntityAgent   Entity = "agents"
	EntitySession Entity = "sessions"
	EntityMessage Entity = "messages"
	EntityUsage   Entity = "usages"
)

// Conn is a live handle onto one namespace of a storage backend.
type Conn interface {
	Tenants() domain.TenantStore
	Users() domain.UserStore
	Agents() domain.AgentStore
	Sessions() domain.SessionStore
	Messages() domain.MessageStore
	Usage() domain.UsageStore
	// InTx runs fn inside a snapshot-isolated transaction with durable commit.
	// Stores obtained from the Conn passed to fn take part in the transaction.
	InTx(ctx context.Context, fn func(tx Conn) error) error
	Close()
}

// Backend opens namespaces. Implementations need not cache anything; the
// Router owns all caching.
type Backend interface {
	Connect(ctx context.Context, namespace string) (Conn, error)
	// Prepare registers an entity's schema in the namespace.
	Prepare(ctx context.Context, conn Conn, namespace string, entity Entity) error
}

// TenantNamespace derives a tenant's isolated namespace name.
func TenantNamespace(tenantID uuid.UUID) string {
	return "tenant_" + strings.ReplaceAll(tenantID.String(), "-", "")
}

type schemaKey struct {
	namespace string
	entity    Entity
}

// Router resolves tenants to isolated storage handles. Connections are cached
// per namespace and schemas per (namespace, entity). Concurrent first
// resolutions of the same key share a single connect or prepare.
type Router struct {
	backend Backend

	mu      sync.RWMutex
	conns   map[string]Conn
	schemas map[schemaKey]struct{}
	group   singleflight.Group
}

func NewRouter(backend Backend) *Router {
	return &Router{
		backend: backend,
		conns:   make(map[string]Conn),
		schemas: make(map[schemaKey]struct{}),
	}
}

// Resolve returns the handle for a tenant's namespace.
func (r *Router) Resolve(ctx context.Context, tenantID uuid.UUID) (*Handle, error) {
	if tenantID == uuid.Nil {
		return nil, domain.ErrNoTenant
	}
	return r.handle(ctx, TenantNamespace(tenantID))
}

// Global returns the handle for the shared namespace, bypassing tenant keying.
func (r *Router) Global(ctx context.Context) (*Handle, error) {
	return r.handle(ctx, GlobalNamespace)
}

// FromContext resolves the tenant carried by the request context.
func (r *Router) FromContext(ctx context.Context) (*Handle, error) {
	tenantID, err := reqctx.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, tenantID)
}

func (r *Router) handle(ctx context.Context, namespace string) (*Handle, error) {
	conn, err := r.conn(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return &Handle{router: r, namespace: namespace, conn: conn}, nil
}

func (r *Router) conn(ctx context.Context, namespace string) (Conn, error) {
	r.mu.RLock()
	c, ok := r.conns[namespace]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	v, err, _ := r.group.Do("conn:"+namespace, func() (any, error) {
		r.mu.RLock()
		c, ok := r.conns[namespace]
		r.mu.RUnlock()
		if ok {
			return c, nil
		}

		c, err := r.backend.Connect(context.WithoutCancel(ctx), namespace)
		if err != nil {
			return nil, fmt.Errorf("connect namespace %s: %w", namespace, err)
		}

		r.mu.Lock()
		r.conns[namespace] = c
		r.mu.Unlock()
		slog.Debug("namespace connected", "namespace", namespace)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Conn), nil
}

func (r *Router) prepare(ctx context.Context, conn Conn, namespace string, entity Entity) error {
	key := schemaKey{namespace: namespace, entity: entity}

	r.mu.RLock()
	_, ok := r.schemas[key]
	r.mu.RUnlock()
	if ok {
		return nil
	}

	_, err, _ := r.group.Do("schema:"+namespace+":"+string(entity), func() (any, error) {
		r.mu.RLock()
		_, ok := r.schemas[key]
		r.mu.RUnlock()
		if ok {
			return nil, nil
		}

		if err := r.backend.Prepare(context.WithoutCancel(ctx), conn, namespace, entity); err != nil {
			return nil, fmt.Errorf("prepare %s in %s: %w", entity, namespace, err)
		}

		r.mu.Lock()
		r.schemas[key] = struct{}{}
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Namespaces lists the namespaces connected so far.
func (r *Router) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for ns := range r.conns {
		out = append(out, ns)
	}
	return out
}

// Close closes every cached connection.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ns, c := range r.conns {
		c.Close()
		delete(r.conns, ns)
	}
	clear(r.schemas)
}

// Handle is a resolved namespace. Store accessors make sure the entity's
// schema is registered before handing the store out.
type Handle struct {
	router    *Router
	namespace string
	conn      Conn
}

func (h *Handle) Namespace() string { return h.namespace }

func (h *Handle) Tenants(ctx context.Context) (domain.TenantStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntityTenant); err != nil {
		return nil, err
	}
	return h.conn.Tenants(), nil
}

func (h *Handle) Users(ctx context.Context) (domain.UserStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntityUser); err != nil {
		return nil, err
	}
	return h.conn.Users(), nil
}

func (h *Handle) Agents(ctx context.Context) (domain.AgentStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntityAgent); err != nil {
		return nil, err
	}
	return h.conn.Agents(), nil
}

func (h *Handle) Sessions(ctx context.Context) (domain.SessionStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntitySession); err != nil {
		return nil, err
	}
	return h.conn.Sessions(), nil
}

func (h *Handle) Messages(ctx context.Context) (domain.MessageStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntityMessage); err != nil {
		return nil, err
	}
	return h.conn.Messages(), nil
}

func (h *Handle) Usage(ctx context.Context) (domain.UsageStore, error) {
	if err := h.router.prepare(ctx, h.conn, h.namespace, EntityUsage); err != nil {
		return nil, err
	}
	return h.conn.Usage(), nil
}

// InTx prepares the given entities, then runs fn in a transaction.
func (h *Handle) InTx(ctx context.Context, entities []Entity, fn func(tx Conn) error) error {
	for _, e := range entities {
		if err := h.router.prepare(ctx, h.conn, h.namespace, e); err != nil {
			return err
		}
	}
	return h.conn.InTx(ctx, fn)
}
