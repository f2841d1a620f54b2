package rates

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cacheKeyPrefix = "rates:v1:"

// CachedProvider decorates a Provider with per-pair caching in Redis. Cache
// failures are logged and fall through to the wrapped provider, so the cache
// can never make a resolvable pair unresolvable.
type CachedProvider struct {
	inner  Provider
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps the provider with a Redis cache.
func NewCached(inner Provider, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// Rate returns the cached pair rate or resolves and caches it.
func (p *CachedProvider) Rate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error) {
	if fromCurrency == toCurrency {
		return decimal.NewFromInt(1), true, nil
	}

	key := cacheKeyPrefix + fromCurrency + ":" + toCurrency
	cached, err := p.cache.Get(ctx, key).Result()
	if err == nil {
		if rate, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return rate, true, nil
		}
		p.logger.Warn("dropping malformed cached rate", slog.String("key", key))
		p.cache.Del(ctx, key)
	} else if err != redis.Nil {
		p.logger.Warn("rate cache lookup failed", slog.String("key", key), slog.Any("error", err))
	}

	rate, ok, err := p.inner.Rate(ctx, fromCurrency, toCurrency)
	if err != nil || !ok {
		return rate, ok, err
	}

	if err := p.cache.Set(ctx, key, rate.String(), p.ttl).Err(); err != nil {
		p.logger.Warn("rate cache store failed", slog.String("key", key), slog.Any("error", err))
	}
	return rate, true, nil
}
