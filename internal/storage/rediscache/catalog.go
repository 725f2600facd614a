// Package rediscache provides a read-through Redis cache in front of the
// product catalog, so POS terminals hammering the product grid do not
// translate into a database query per keystroke.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/product"
)

const catalogKey = "catalog:list"

// Catalog wraps a product.Repository, caching List results in Redis.
// Writes and stock decrements pass through and invalidate the cache.
// Cache failures degrade to the underlying repository, never to an error.
type Catalog struct {
	inner   product.Repository
	client  *redis.Client
	baseTTL time.Duration
}

var _ product.Repository = (*Catalog)(nil)

// New returns a Catalog cache over inner with a 5 minute base TTL.
func New(inner product.Repository, client *redis.Client) *Catalog {
	return &Catalog{
		inner:   inner,
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

// List returns the cached catalog, falling back to the repository on a
// miss and repopulating the cache.
func (c *Catalog) List(ctx context.Context) ([]product.Product, error) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err == nil {
		var products []product.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		// Corrupt entry: drop it and fall through to the repository.
		_ = c.client.Del(ctx, catalogKey).Err()
	} else if !errors.Is(err, redis.Nil) {
		zctx.From(ctx).Warn("Catalog cache read failed", zap.Error(err))
	}

	products, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, products)
	return products, nil
}

func (c *Catalog) fill(ctx context.Context, products []product.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	// Jitter the TTL so all terminals do not refill at the same moment.
	ttl := c.baseTTL + time.Duration(rand.Intn(60))*time.Second
	if err := c.client.Set(ctx, catalogKey, data, ttl).Err(); err != nil {
		zctx.From(ctx).Warn("Catalog cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached catalog. Called after a successful commit so
// the next list reflects decremented stock.
func (c *Catalog) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, catalogKey).Err(); err != nil {
		zctx.From(ctx).Warn("Catalog cache invalidate failed", zap.Error(err))
	}
}

// Search always hits the repository; search terms are too sparse to cache.
func (c *Catalog) Search(ctx context.Context, term string) ([]product.Product, error) {
	return c.inner.Search(ctx, term)
}

// GetByID passes through to the repository.
func (c *Catalog) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return c.inner.GetByID(ctx, id)
}

// GetByIDs passes through to the repository.
func (c *Catalog) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	return c.inner.GetByIDs(ctx, ids)
}

// Upsert writes through and invalidates the cached list.
func (c *Catalog) Upsert(ctx context.Context, p *product.Product) error {
	if err := c.inner.Upsert(ctx, p); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Delete writes through and invalidates the cached list.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// DecrementStock writes through and invalidates the cached list.
func (c *Catalog) DecrementStock(ctx context.Context, id string, qty int) error {
	if err := c.inner.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// NewClient builds a Redis client from a URL such as
// redis://localhost:6379/0.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
