package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	domain "github.com/Markko1982/order-manager/internal/entity"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps whole orders as JSON under order:<id>. Deleted orders
// leave a tombstone so a read-through fill racing the delete cannot bring
// them back.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

const tombstone = "-"

func orderKey(id int64) string { return "order:" + strconv.FormatInt(id, 10) }

func (r *RedisCache) Get(ctx context.Context, id int64) (*domain.Order, bool, error) {
	raw, err := r.rdb.Get(ctx, orderKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if string(raw) == tombstone {
		return nil, false, nil
	}
	var o domain.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		// a stale or foreign payload is treated as a miss
		_ = r.rdb.Del(ctx, orderKey(id)).Err()
		return nil, false, nil
	}
	return &o, true, nil
}

// Set stores the committed state of o, replacing whatever is cached.
func (r *RedisCache) Set(ctx context.Context, o *domain.Order) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, orderKey(o.ID), raw, r.ttl).Err()
}

// Fill stores o only when the key is absent. Readers use it so that a newer
// Set or a tombstone wins over the row they loaded.
func (r *RedisCache) Fill(ctx context.Context, o *domain.Order) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.rdb.SetNX(ctx, orderKey(o.ID), raw, r.ttl).Err()
}

func (r *RedisCache) Evict(ctx context.Context, id int64) error {
	return r.rdb.Set(ctx, orderKey(id), tombstone, r.ttl).Err()
}

var _ usecase.OrderCache = (*RedisCache)(nil)
