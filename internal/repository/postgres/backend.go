// Package postgres stores each namespace in its own PostgreSQL schema.
package postgres

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/agentchat/internal/config"
	"github.com/set-night/agentchat/internal/repository"
)

const (
	globalMigrationsDir = "global"
	tenantMigrationsDir = "tenant"
)

type Backend struct {
	databaseURL    string
	migrations     fs.FS
	tenantMaxConns int32
}

// NewBackend expects migrations to contain a global and a tenant directory.
func NewBackend(databaseURL string, migrations fs.FS, tenantMaxConns int32) *Backend {
	return &Backend{databaseURL: databaseURL, migrations: migrations, tenantMaxConns: tenantMaxConns}
}

// Connect opens a pool bound to the namespace schema, creating and migrating the schema when needed.
func (b *Backend) Connect(ctx context.Context, namespace string) (repository.Conn, error) {
	opts := repository.PoolOptions{Schema: namespace, MaxConns: b.tenantMaxConns, MinConns: 1}
	dir := tenantMigrationsDir
	if namespace == repository.GlobalNamespace {
		opts.MaxConns = config.GlobalMaxConns
		opts.MinConns = config.GlobalMinConns
		dir = globalMigrationsDir
	}

	pool, err := repository.NewPool(ctx, b.databaseURL, opts)
	if err != nil {
		return nil, err
	}
	if err := repository.EnsureSchema(ctx, pool, namespace); err != nil {
		pool.Close()
		return nil, err
	}

	sub, err := fs.Sub(b.migrations, dir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load %s migrations: %w", dir, err)
	}
	if err := repository.RunMigrations(b.databaseURL, sub, namespace); err != nil {
		pool.Close()
		return nil, err
	}

	return &Conn{pool: pool, db: pool}, nil
}

// Prepare checks that the entity's table exists in the namespace schema.
func (b *Backend) Prepare(ctx context.Context, conn repository.Conn, namespace string, entity repository.Entity) error {
	c, ok := conn.(*Conn)
	if !ok {
		return fmt.Errorf("postgres backend cannot prepare %T", conn)
	}
	var exists bool
	table := pgx.Identifier{namespace, string(entity)}.Sanitize()
	if err := c.db.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists); err != nil {
		return fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("table %s does not exist", table)
	}
	return nil
}
