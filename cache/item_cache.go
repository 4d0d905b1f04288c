package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"catalog-api/models"
)

// generationTTL must outlive any in-flight read-then-fill; an expired
// counter reads as 0 and only makes pending fills fail.
const generationTTL = 24 * time.Hour

func itemKey(id string) string {
	return "item:" + id
}

func generationKey(id string) string {
	return "item:" + id + ":gen"
}

// ItemCache holds single items. Fills are conditional: a reader takes the
// item's Generation before reading the store and passes it to SetItem, which
// stores nothing if Invalidate ran in between.
type ItemCache interface {
	GetItem(ctx context.Context, id string) (item *models.Item, ok bool, err error)
	Generation(ctx context.Context, id string) (int64, error)
	SetItem(ctx context.Context, item *models.Item, gen int64) (stored bool, err error)
	Invalidate(ctx context.Context, id string) error
}

// RedisItemCache stores JSON-encoded items in Redis with a fixed TTL.
type RedisItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisItemCache(client *redis.Client, ttl time.Duration) *RedisItemCache {
	return &RedisItemCache{client: client, ttl: ttl}
}

func (c *RedisItemCache) GetItem(ctx context.Context, id string) (*models.Item, bool, error) {
	val, err := c.client.Get(ctx, itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", id, err)
	}
	var item models.Item
	if err := json.Unmarshal(val, &item); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", id, err)
	}
	return &item, true, nil
}

func (c *RedisItemCache) Generation(ctx context.Context, id string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation %s: %w", id, err)
	}
	return gen, nil
}

// SetItem caches item only if its generation still equals gen. The check
// and the write run under WATCH, so an Invalidate racing with the fill
// aborts it.
func (c *RedisItemCache) SetItem(ctx context.Context, item *models.Item, gen int64) (bool, error) {
	id := item.ID.Hex()
	data, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", id, err)
	}

	stored := false
	genKey := generationKey(id)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, itemKey(id), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache set %s: %w", id, err)
	}
	return stored, nil
}

// Invalidate bumps the item's generation and drops the cached copy.
func (c *RedisItemCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(id))
		pipe.Expire(ctx, generationKey(id), generationTTL)
		pipe.Del(ctx, itemKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cache %s: %w", id, err)
	}
	return nil
}

// NopCache is used when no Redis address is configured. Every read misses.
type NopCache struct{}

func (NopCache) GetItem(context.Context, string) (*models.Item, bool, error) { return nil, false, nil }
func (NopCache) Generation(context.Context, string) (int64, error)           { return 0, nil }
func (NopCache) SetItem(context.Context, *models.Item, int64) (bool, error)  { return false, nil }
func (NopCache) Invalidate(context.Context, string) error                    { return nil }
