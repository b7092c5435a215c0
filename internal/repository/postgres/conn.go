package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/agentchat/internal/domain"
	"github.com/set-night/agentchat/internal/repository"
)

const uniqueViolation = "23505"

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Conn struct {
	pool *pgxpool.Pool
	db   DBTX
}

func (c *Conn) Tenants() domain.TenantStore   { return &TenantStore{db: c.db} }
func (c *Conn) Users() domain.UserStore       { return &UserStore{db: c.db} }
func (c *Conn) Agents() domain.AgentStore     { return &AgentStore{db: c.db} }
func (c *Conn) Sessions() domain.SessionStore { return &SessionStore{db: c.db} }
func (c *Conn) Messages() domain.MessageStore { return &MessageStore{db: c.db} }
func (c *Conn) Usage() domain.UsageStore      { return &UsageStore{db: c.db} }

// InTx runs fn at REPEATABLE READ (snapshot) isolation with synchronous commit.
func (c *Conn) InTx(ctx context.Context, fn func(tx repository.Conn) error) error {
	if _, nested := c.db.(pgx.Tx); nested {
		return fn(c)
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET LOCAL synchronous_commit = on"); err != nil {
		return fmt.Errorf("set synchronous commit: %w", err)
	}

	if err := fn(&Conn{pool: c.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err, nil))
	}
	return nil
}

func (c *Conn) Close() {
	if _, inTx := c.db.(pgx.Tx); inTx {
		return
	}
	c.pool.Close()
}

// mapErr translates driver errors into domain errors. notFound replaces pgx.ErrNoRows when set.
func mapErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrDuplicate)
	}
	return err
}
