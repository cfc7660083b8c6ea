// Package cache keeps product rows in redis, keyed product:<id>.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
)

// Connect dials redis and checks it answers.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// Products is a read-through product cache. A nil *Products is a valid,
// always-missing cache. Redis failures degrade to misses.
type Products struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProducts(rdb *redis.Client, ttl time.Duration) *Products {
	if rdb == nil {
		return nil
	}
	return &Products{rdb: rdb, ttl: ttl}
}

func Key(id int64) string { return fmt.Sprintf("product:%d", id) }

func (c *Products) Get(ctx context.Context, id int64) (domain.Product, bool) {
	if c == nil {
		return domain.Product{}, false
	}
	data, err := c.rdb.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			applog.L().Warn("cache.get", zap.Int64("product_id", id), zap.Error(err))
		}
		return domain.Product{}, false
	}
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, false
	}
	return p, true
}

func (c *Products) Set(ctx context.Context, p domain.Product) {
	if c == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(p.ID), data, c.ttl).Err(); err != nil {
		applog.L().Warn("cache.set", zap.Int64("product_id", p.ID), zap.Error(err))
	}
}

func (c *Products) Invalidate(ctx context.Context, ids ...int64) {
	if c == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		applog.L().Warn("cache.invalidate", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}
