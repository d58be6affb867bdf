package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

type fakeConn struct {
	execs     []string
	setErr    error
	resetErr  error
	released  bool
	discarded bool
	tx        *fakeTx
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	c.execs = append(c.execs, sql)
	if strings.HasPrefix(sql, "SET search_path") && c.setErr != nil {
		return pgconn.CommandTag{}, c.setErr
	}
	if sql == "RESET search_path" && c.resetErr != nil {
		return pgconn.CommandTag{}, c.resetErr
	}
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (c *fakeConn) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	c.tx = &fakeTx{}
	return c.tx, nil
}

func (c *fakeConn) release() { c.released = true }
func (c *fakeConn) discard() { c.discarded = true }

type fakeTx struct {
	pgx.Tx
	execs      []string
	execErr    error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.CommandTag{}, t.execErr
}

func (t *fakeTx) Commit(context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func newTestBinder(conn *fakeConn) (*Binder, *int) {
	acquires := 0
	b := &Binder{acquire: func(context.Context) (boundConn, error) {
		acquires++
		return conn, nil
	}}
	return b, &acquires
}

func scopedCtx(schema string) context.Context {
	return tenant.WithTenant(context.Background(), &models.TenantRecord{
		RoutingKey: strings.TrimPrefix(schema, "tenant_"),
		SchemaName: schema,
		Status:     models.StatusActive,
	})
}

func TestWithConnRequiresTenant(t *testing.T) {
	b, acquires := newTestBinder(&fakeConn{})

	err := b.WithConn(context.Background(), func(context.Context, Querier) error { return nil })
	require.ErrorIs(t, err, ErrNoTenant)
	assert.Zero(t, *acquires)
}

func TestWithConnBindsAndResets(t *testing.T) {
	conn := &fakeConn{}
	b, acquires := newTestBinder(conn)

	var ran bool
	err := b.WithConn(scopedCtx("tenant_acme"), func(_ context.Context, q Querier) error {
		ran = true
		assert.Same(t, conn, q.(*fakeConn))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, *acquires)

	require.Len(t, conn.execs, 2)
	assert.Equal(t, `SET search_path TO "tenant_acme", public`, conn.execs[0])
	assert.Equal(t, "RESET search_path", conn.execs[1])
	assert.True(t, conn.released)
	assert.False(t, conn.discarded)
}

func TestWithConnResetsOnError(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)
	boom := errors.New("boom")

	err := b.WithConn(scopedCtx("tenant_acme"), func(context.Context, Querier) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, conn.execs, "RESET search_path")
	assert.True(t, conn.released)
}

func TestWithConnResetsOnPanic(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)

	func() {
		defer func() { _ = recover() }()
		_ = b.WithConn(scopedCtx("tenant_acme"), func(context.Context, Querier) error {
			panic("handler blew up")
		})
	}()

	assert.Contains(t, conn.execs, "RESET search_path")
	assert.True(t, conn.released)
	assert.False(t, conn.discarded)
}

func TestWithConnBindFailureReleasesNeutralConn(t *testing.T) {
	conn := &fakeConn{setErr: errors.New("permission denied")}
	b, _ := newTestBinder(conn)

	err := b.WithConn(scopedCtx("tenant_acme"), func(context.Context, Querier) error {
		t.Fatal("unit of work must not run on an unbound connection")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind namespace tenant_acme")
	assert.True(t, conn.released, "a never-bound connection goes back to the pool")
	assert.False(t, conn.discarded)
	assert.NotContains(t, conn.execs, "RESET search_path")
}

func TestWithConnDiscardsOnResetFailure(t *testing.T) {
	conn := &fakeConn{resetErr: errors.New("connection gone")}
	b, _ := newTestBinder(conn)

	err := b.WithConn(scopedCtx("tenant_acme"), func(context.Context, Querier) error { return nil })
	require.NoError(t, err, "the unit of work itself succeeded")
	assert.True(t, conn.discarded, "a connection of unknown scope never returns to the pool")
	assert.False(t, conn.released)
}

func TestWithConnNestedReuse(t *testing.T) {
	conn := &fakeConn{}
	b, acquires := newTestBinder(conn)

	err := b.WithConn(scopedCtx("tenant_acme"), func(ctx context.Context, outer Querier) error {
		return b.WithConn(ctx, func(_ context.Context, inner Querier) error {
			assert.Same(t, outer.(*fakeConn), inner.(*fakeConn))
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, *acquires, "nested call reuses the bound connection")

	var resets int
	for _, sql := range conn.execs {
		if sql == "RESET search_path" {
			resets++
		}
	}
	assert.Equal(t, 1, resets, "only the outermost call resets")
}

func TestWithConnScopeMismatch(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)

	err := b.WithConn(scopedCtx("tenant_acme"), func(ctx context.Context, _ Querier) error {
		other := tenant.WithTenant(ctx, &models.TenantRecord{
			RoutingKey: "globex",
			SchemaName: "tenant_globex",
			Status:     models.StatusActive,
		})
		return b.WithConn(other, func(context.Context, Querier) error { return nil })
	})
	require.ErrorIs(t, err, ErrScopeMismatch)
	assert.True(t, conn.released, "the outer binding still resets and releases")
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)

	err := b.WithTx(scopedCtx("tenant_acme"), func(_ context.Context, q Querier) error {
		_, err := q.Exec(context.Background(), "INSERT INTO contacts (first_name) VALUES ($1)", "Ada")
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, conn.tx)
	assert.True(t, conn.tx.committed)
	assert.False(t, conn.tx.rolledBack)
	assert.Contains(t, conn.tx.execs[0], "INSERT INTO contacts")
	assert.Contains(t, conn.execs, "RESET search_path")
}

func TestWithTxRejectsNesting(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)

	err := b.WithTx(scopedCtx("tenant_acme"), func(ctx context.Context, _ Querier) error {
		return b.WithTx(ctx, func(context.Context, Querier) error { return nil })
	})
	require.ErrorIs(t, err, ErrNestedTx)
	require.NotNil(t, conn.tx)
	assert.False(t, conn.tx.committed, "the inner call must not commit the outer transaction")
	assert.True(t, conn.tx.rolledBack)
	assert.Contains(t, conn.execs, "RESET search_path")
}

func TestWithConnInsideWithTx(t *testing.T) {
	conn := &fakeConn{}
	b, acquires := newTestBinder(conn)

	err := b.WithTx(scopedCtx("tenant_acme"), func(ctx context.Context, _ Querier) error {
		return b.WithConn(ctx, func(context.Context, Querier) error { return nil })
	})
	require.NoError(t, err)
	assert.Equal(t, 1, *acquires)
	assert.True(t, conn.tx.committed)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := &fakeConn{}
	b, _ := newTestBinder(conn)
	boom := errors.New("constraint violation")

	err := b.WithTx(scopedCtx("tenant_acme"), func(context.Context, Querier) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NotNil(t, conn.tx)
	assert.False(t, conn.tx.committed)
	assert.True(t, conn.tx.rolledBack)
}
