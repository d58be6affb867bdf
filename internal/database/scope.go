package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntroph/crm/internal/metrics"
	"github.com/syntroph/crm/internal/tenant"
)

var (
	ErrNoTenant      = errors.New("no tenant in context")
	ErrScopeMismatch = errors.New("connection already bound to a different namespace")
	ErrNestedTx      = errors.New("transaction already open on bound connection")
)

// Querier is the query surface handed to units of work. Both a bound
// connection and a transaction on it satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// boundConn is the slice of a pooled connection the binder needs.
type boundConn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	release()
	discard()
}

type pooledConn struct{ *pgxpool.Conn }

func (p pooledConn) release() { p.Conn.Release() }

// discard removes the connection from the pool entirely. Used when the
// search_path reset could not be confirmed: a connection of unknown scope
// must never be reused.
func (p pooledConn) discard() {
	raw := p.Conn.Hijack()
	_ = raw.Close(context.Background())
}

type bindingKeyType struct{}

var bindingKey bindingKeyType

type binding struct {
	conn   boundConn
	schema string
	inTx   bool
}

// Binder binds pooled connections to a tenant namespace for exactly one
// unit of work. The search_path set on acquire is reset on every exit path
// (success, error, panic, cancellation) before the connection returns to
// the pool; setting it on the shared pool itself would leak scope into
// whatever request reuses the connection next.
type Binder struct {
	acquire func(ctx context.Context) (boundConn, error)
}

func NewBinder(pool *pgxpool.Pool) *Binder {
	return &Binder{
		acquire: func(ctx context.Context) (boundConn, error) {
			c, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return pooledConn{c}, nil
		},
	}
}

// WithConn runs fn against a connection scoped to the tenant resolved in
// ctx. Nested calls within the same request reuse the already-bound
// connection; the outermost call owns the reset.
func (b *Binder) WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	rec := tenant.FromContext(ctx)
	if rec == nil {
		return ErrNoTenant
	}

	if bd, ok := ctx.Value(bindingKey).(*binding); ok {
		if bd.schema != rec.SchemaName {
			return fmt.Errorf("%w: bound to %s, requested %s", ErrScopeMismatch, bd.schema, rec.SchemaName)
		}
		return fn(ctx, bd.conn)
	}

	conn, err := b.acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	setSQL := "SET search_path TO " + pgx.Identifier{rec.SchemaName}.Sanitize() + ", public"
	if _, err := conn.Exec(ctx, setSQL); err != nil {
		// The scope was never applied; the connection is still neutral.
		conn.release()
		return fmt.Errorf("bind namespace %s: %w", rec.SchemaName, err)
	}
	metrics.ScopeBinds.Inc()

	defer func() {
		// The request context may already be cancelled; the reset must
		// still run, so it gets its own deadline.
		resetCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(resetCtx, "RESET search_path"); err != nil {
			metrics.ScopeResetFailures.Inc()
			metrics.ConnsDiscarded.Inc()
			slog.Error("search_path reset failed, discarding connection",
				"schema", rec.SchemaName, "error", err)
			conn.discard()
			return
		}
		conn.release()
	}()

	return fn(context.WithValue(ctx, bindingKey, &binding{conn: conn, schema: rec.SchemaName}), conn)
}

// WithTx runs fn inside a transaction on the bound connection. The
// transaction inherits the session search_path, so all statements in fn
// observe a single consistent namespace and snapshot. Nesting WithTx is an
// error: a second BEGIN on the same connection would make the inner commit
// end the outer transaction.
func (b *Binder) WithTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	return b.WithConn(ctx, func(ctx context.Context, _ Querier) error {
		bd := ctx.Value(bindingKey).(*binding)
		if bd.inTx {
			return ErrNestedTx
		}
		bd.inTx = true
		defer func() { bd.inTx = false }()

		tx, err := bd.conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(ctx, tx); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
