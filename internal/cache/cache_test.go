package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client), mr
}

func TestGetSetRoundtrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Name: "acme", Status: "active"}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "acme", got.Name)
}

func TestGetMiss(t *testing.T) {
	c, _ := testCache(t)

	var got entry
	err := c.Get(context.Background(), "absent", &got)
	require.ErrorIs(t, err, ErrMiss)
}

func TestInvalidateTombstonesKey(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", entry{Status: "active"}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, time.Minute, "k"))

	var got entry
	err := c.Get(ctx, "k", &got)
	require.ErrorIs(t, err, ErrMiss, "a tombstoned key reads as a miss, not the old value")
}

func TestSetNXLosesToTombstone(t *testing.T) {
	// A cache-aside reader that fetched the row before an invalidation must
	// not repopulate the key behind it.
	c, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Invalidate(ctx, time.Minute, "k"))
	require.NoError(t, c.SetNX(ctx, "k", entry{Status: "active"}, time.Minute))

	var got entry
	err := c.Get(ctx, "k", &got)
	require.ErrorIs(t, err, ErrMiss, "the stale fill must lose to the tombstone")
}

func TestSetNXFillsAfterTombstoneExpires(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Invalidate(ctx, time.Second, "k"))
	mr.FastForward(2 * time.Second)

	require.NoError(t, c.SetNX(ctx, "k", entry{Name: "acme", Status: "active"}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "acme", got.Name)
}

func TestSetNXDoesNotOverwriteLiveEntry(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetNX(ctx, "k", entry{Name: "first"}, time.Minute))
	require.NoError(t, c.SetNX(ctx, "k", entry{Name: "second"}, time.Minute))

	var got entry
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "first", got.Name)
}
