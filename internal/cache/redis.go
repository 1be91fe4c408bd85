// Package cache keeps dashboard pages in Redis. Pages are keyed under a
// generation number; Invalidate bumps the generation so every cached page
// becomes unreachable at once and expires on its own TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "applications:list"
	generationKey = keyPrefix + ":gen"
	DefaultTTL    = 30 * time.Second
)

type ListCache struct {
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewListCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *ListCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListCache{
		redis:  client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// GetPage returns the cached page for q along with the generation it was
// looked up under. Callers pass that generation back to PutPage so a page
// built before an Invalidate never lands under the newer generation.
func (c *ListCache) GetPage(ctx context.Context, q models.ListQuery) (*models.ApplicationPage, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	key := pageKey(gen, q)

	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("get cached page: %w", err)
	}

	var page models.ApplicationPage
	if err := json.Unmarshal(val, &page); err != nil {
		c.logger.Warn("dropping undecodable cached page", map[string]interface{}{"key": key, "error": err})
		c.redis.Del(ctx, key)
		return nil, gen, false, nil
	}
	return &page, gen, true, nil
}

func (c *ListCache) PutPage(ctx context.Context, q models.ListQuery, gen int64, page *models.ApplicationPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := c.redis.Set(ctx, pageKey(gen, q), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache page: %w", err)
	}
	return nil
}

func (c *ListCache) Invalidate(ctx context.Context) error {
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("bump list generation: %w", err)
	}
	return nil
}

func (c *ListCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read list generation: %w", err)
	}
	return gen, nil
}

func pageKey(gen int64, q models.ListQuery) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, gen, queryHash(q))
}

func queryHash(q models.ListQuery) string {
	data, _ := json.Marshal(q)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:12])
}
