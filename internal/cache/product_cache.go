// Package cache keeps product snapshots in Redis for public catalog reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/config"
)

// ProductCache stores JSON snapshots under product:<id>. Redis failures are
// logged and treated as misses so reads fall through to Postgres.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ catalog.Cache = (*ProductCache)(nil)

func New(ctx context.Context, cfg config.RedisConfig) (*ProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")
	return NewProductCache(client, cfg.CacheTTL), nil
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *ProductCache) Get(ctx context.Context, id int64) (*catalog.Product, bool) {
	raw, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Int64("product_id", id).Msg("cache: failed to read product")
		}
		return nil, false
	}

	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("cache: dropping undecodable product entry")
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) Set(ctx context.Context, p catalog.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("cache: failed to encode product")
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int64("product_id", p.ID).Msg("cache: failed to store product")
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Ints64("product_ids", ids).Msg("cache: failed to invalidate products")
	}
}

func (c *ProductCache) Close() error {
	return c.client.Close()
}
