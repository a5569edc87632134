package repository

// token_cache.go puts Redis in front of the token table for revocation
// lookups. Only positive answers are cached: a revoked token stays revoked
// forever, so a cached "revoked" can never be stale, while a cached "live"
// could be. A Redis miss or error always falls through to the database.

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/inventory-admin/internal/model"
)

// TokenBackend is the durable store wrapped by RevokedCache.
type TokenBackend interface {
	Persist(ctx context.Context, rec model.TokenRecord) error
	IsRevoked(ctx context.Context, id string) (bool, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForAccount(ctx context.Context, accountID uint64) ([]string, error)
}

// RevokedCache decorates a TokenBackend with a Redis set of revoked ids.
type RevokedCache struct {
	next   TokenBackend
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRevokedCache wraps next. With a nil client every call goes straight
// to next. ttl bounds how long a revoked id is remembered and should be at
// least the token lifetime.
func NewRevokedCache(next TokenBackend, rdb *redis.Client, prefix string, ttl time.Duration, log logrus.FieldLogger) *RevokedCache {
	if prefix == "" {
		prefix = "auth"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RevokedCache{next: next, rdb: rdb, prefix: prefix, ttl: ttl, log: log.WithField("component", "token_cache")}
}

func (c *RevokedCache) key(id string) string { return c.prefix + ":revoked:" + id }

// Persist writes through to the backend.
func (c *RevokedCache) Persist(ctx context.Context, rec model.TokenRecord) error {
	return c.next.Persist(ctx, rec)
}

// IsRevoked answers from Redis when the id is known revoked, otherwise
// from the backend.
func (c *RevokedCache) IsRevoked(ctx context.Context, id string) (bool, error) {
	if c.rdb != nil {
		n, err := c.rdb.Exists(ctx, c.key(id)).Result()
		if err == nil && n > 0 {
			return true, nil
		}
		if err != nil {
			c.log.WithError(err).WithField("token_id", id).Debug("revocation cache read failed")
		}
	}
	revoked, err := c.next.IsRevoked(ctx, id)
	if err != nil {
		return false, err
	}
	if revoked {
		c.remember(ctx, id)
	}
	return revoked, nil
}

// Revoke blacklists in the backend first, then caches the id.
func (c *RevokedCache) Revoke(ctx context.Context, id string) error {
	if err := c.next.Revoke(ctx, id); err != nil {
		return err
	}
	c.remember(ctx, id)
	return nil
}

// RevokeAllForAccount blacklists in the backend and caches every id it
// reports.
func (c *RevokedCache) RevokeAllForAccount(ctx context.Context, accountID uint64) ([]string, error) {
	ids, err := c.next.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		c.remember(ctx, id)
	}
	return ids, nil
}

func (c *RevokedCache) remember(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(id), "1", c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("token_id", id).Warn("revocation cache write failed")
	}
}
