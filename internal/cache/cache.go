// Package cache provides Redis-backed caching and token revocation.
// A nil *Cache or *Denylist is valid and behaves as an always-miss cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/internal/metrics"
)

const (
	TagsKey         = "catalog:tags"
	RevokedTokenKey = "auth:revoked:%s"
	TagsTTL         = 10 * time.Minute
)

func RevokedTokenKeyFor(jti string) string {
	return fmt.Sprintf(RevokedTokenKey, jti)
}

// Cache stores JSON documents in Redis
type Cache struct {
	client *redis.Client
	log    logrus.FieldLogger
}

// New returns nil when client is nil
func New(client *redis.Client, log logrus.FieldLogger) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, log: log.WithField("component", "cache")}
}

// GetJSON decodes the value under key into dest, reporting whether it was found.
// Redis failures are logged and treated as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		metrics.CacheResults.WithLabelValues(key, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry is corrupt")
		metrics.CacheResults.WithLabelValues(key, "miss").Inc()
		return false
	}
	metrics.CacheResults.WithLabelValues(key, "hit").Inc()
	return true
}

// SetJSON stores value under key for ttl
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache invalidate failed")
	}
}

// Denylist records revoked token ids until they would have expired anyway
type Denylist struct {
	client *redis.Client
}

// NewDenylist returns nil when client is nil
func NewDenylist(client *redis.Client) *Denylist {
	if client == nil {
		return nil
	}
	return &Denylist{client: client}
}

func (d *Denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, RevokedTokenKeyFor(jti), 1, ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil {
		return false, nil
	}
	n, err := d.client.Exists(ctx, RevokedTokenKeyFor(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
