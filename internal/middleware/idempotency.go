package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "webwallet:idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	cacheOpTimeout       = 2 * time.Second
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response for unsafe requests repeating an
// Idempotency-Key header. The header is opt-in: transfer creation is a
// discrete intent each time it is called, so clients that want at-most-once
// semantics send the key and clients that want a second transfer simply don't.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()

		cacheKey := idempotencyPrefix + key

		cached, err := cache.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == inProgressMarker {
				return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
			}

			var stored storedResponse
			if err := json.Unmarshal([]byte(cached), &stored); err != nil {
				logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
				return fiber.NewError(fiber.StatusConflict, "duplicate request")
			}

			for header, value := range stored.Headers {
				if strings.EqualFold(header, fiber.HeaderContentLength) {
					continue
				}
				c.Set(header, value)
			}
			return c.Status(stored.Status).SendString(stored.Body)
		}

		if err != redis.Nil {
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}

		if err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Err(); err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}

		if err := c.Next(); err != nil {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer cancel()
			cache.Del(cleanupCtx, cacheKey) // best effort cleanup
			return err
		}

		stored := storedResponse{
			Status:  c.Response().StatusCode(),
			Body:    string(c.Response().Body()),
			Headers: map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			cleanupCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer cancel()
			cache.Del(cleanupCtx, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer persistCancel()

		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			cache.Del(persistCtx, cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}

		return nil
	}
}
