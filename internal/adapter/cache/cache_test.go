package cache

import (
	"context"
	"testing"
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr, rdb := setupRedis(t)
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	o := &domain.Order{
		ID:          7,
		OrderNumber: "ORD-7",
		Status:      domain.StatusPending,
		Total:       decimal.RequireFromString("650.00"),
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("250.00")},
		},
	}
	require.NoError(t, c.Set(ctx, o))
	assert.True(t, mr.Exists("order:7"))
	assert.Equal(t, time.Minute, mr.TTL("order:7"))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ORD-7", got.OrderNumber)
	assert.Equal(t, "650.00", got.Total.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	require.NoError(t, c.Evict(ctx, 7))
	_, ok, err = c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_FillLosesToNewerWrites(t *testing.T) {
	_, rdb := setupRedis(t)
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()
	stale := &domain.Order{ID: 9, Status: domain.StatusPending, Total: decimal.Zero}

	// empty key: the fill lands
	require.NoError(t, c.Fill(ctx, stale))
	got, ok, err := c.Get(ctx, 9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, got.Status)

	// a status change committed after the read wins
	fresh := *stale
	fresh.Status = domain.StatusConfirmed
	require.NoError(t, c.Set(ctx, &fresh))
	require.NoError(t, c.Fill(ctx, stale))
	got, _, _ = c.Get(ctx, 9)
	assert.Equal(t, domain.StatusConfirmed, got.Status)

	// a delete committed after the read stays deleted
	require.NoError(t, c.Evict(ctx, 9))
	require.NoError(t, c.Fill(ctx, stale))
	_, ok, err = c.Get(ctx, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_BadPayloadIsMiss(t *testing.T) {
	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set("order:3", "{not json"))

	_, ok, err := NewRedisCache(rdb, 0).Get(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("order:3"))
}

func TestRedisIdempotencyStore(t *testing.T) {
	_, rdb := setupRedis(t)
	s := NewRedisIdempotencyStore(rdb, time.Hour)
	ctx := context.Background()

	ok, err := s.TryLock(ctx, "web", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "web", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	// keys are scoped per client
	ok, err = s.TryLock(ctx, "mobile", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Release(ctx, "web", "k1"))
	ok, err = s.TryLock(ctx, "web", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := s.Recall(ctx, "web", "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remember(ctx, "web", "k1", "42"))
	v, found, err := s.Recall(ctx, "web", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", v)
}
