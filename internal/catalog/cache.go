package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/redis"
)

const defaultCacheTTL = 2 * time.Minute

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CatalogKey(itemID string) string
}

// CachedReader is a read-through cache in front of the catalog store. It
// holds catalog facts only; effective prices are always resolved live.
type CachedReader struct {
	next  Reader
	store cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedReader(next Reader, store cacheStore, ttl time.Duration, logg *logger.Logger) (*CachedReader, error) {
	if next == nil {
		return nil, errors.New("catalog reader required")
	}
	if store == nil {
		return nil, errors.New("cache store required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedReader{next: next, store: store, ttl: ttl, logg: logg}, nil
}

// GetItem serves from cache and falls back to the store. Cache errors are
// logged and never fail the read.
func (c *CachedReader) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	key := c.store.CatalogKey(id.String())
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var item Item
		if jsonErr := json.Unmarshal([]byte(raw), &item); jsonErr == nil {
			return &item, nil
		}
		c.warn(ctx, "catalog cache entry undecodable", id)
	case !redis.IsMiss(err):
		c.warn(ctx, "catalog cache read failed", id)
	}

	item, err := c.next.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if encoded, jsonErr := json.Marshal(item); jsonErr == nil {
		if setErr := c.store.Set(ctx, key, encoded, c.ttl); setErr != nil {
			c.warn(ctx, "catalog cache write failed", id)
		}
	}
	return item, nil
}

// Invalidate drops the cached entry after a catalog edit.
func (c *CachedReader) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.store.Del(ctx, c.store.CatalogKey(id.String()))
}

func (c *CachedReader) warn(ctx context.Context, msg string, id uuid.UUID) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "catalog_item_id", id.String()), msg)
}
