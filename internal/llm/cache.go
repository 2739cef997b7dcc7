package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clearview/clearview_api/internal/metrics"
)

const cachePrefix = "clearview:completion:"

// Cache memoizes completions in redis. Redis failures are logged and fall
// through to the wrapped Completer. Completions rejected by the request's
// Accept are returned but never stored, and a stored entry Accept rejects is
// dropped and fetched again.
type Cache struct {
	next  Completer
	rdb   *redis.Client
	model string
	ttl   time.Duration
	log   *zap.Logger
}

func NewCache(next Completer, rdb *redis.Client, model string, ttl time.Duration, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{next: next, rdb: rdb, model: model, ttl: ttl, log: log}
}

func (c *Cache) Complete(ctx context.Context, r Request) (string, error) {
	key, err := c.key(r)
	if err != nil {
		return c.next.Complete(ctx, r)
	}

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && acceptable(r, cached):
		metrics.CompletionCache.WithLabelValues("hit").Inc()
		return cached, nil
	case err == nil:
		metrics.CompletionCache.WithLabelValues("rejected").Inc()
		if err := c.rdb.Del(ctx, key).Err(); err != nil {
			c.log.Warn("completion cache delete failed", zap.Error(err))
		}
	case errors.Is(err, redis.Nil):
		metrics.CompletionCache.WithLabelValues("miss").Inc()
	default:
		metrics.CompletionCache.WithLabelValues("error").Inc()
		c.log.Warn("completion cache get failed", zap.Error(err))
	}

	text, err := c.next.Complete(ctx, r)
	if err != nil {
		return "", err
	}
	if !acceptable(r, text) {
		metrics.CompletionCache.WithLabelValues("rejected").Inc()
		return text, nil
	}
	if err := c.rdb.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.log.Warn("completion cache set failed", zap.Error(err))
	}
	return text, nil
}

func acceptable(r Request, text string) bool {
	return r.Accept == nil || r.Accept(text) == nil
}

func (c *Cache) key(r Request) (string, error) {
	b, err := json.Marshal(chatRequest{Model: c.model, Request: r})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return cachePrefix + hex.EncodeToString(sum[:]), nil
}
