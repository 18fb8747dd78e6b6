// Package middleware holds the HTTP middleware used by the wizard API.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// ScanRateLimit limits how often one client may run document scans.
// OCR holds an engine exclusively for seconds per call, so a single
// misbehaving client could starve everyone else's scans.  The limiter
// is a fixed window per client IP in Redis; with no Redis client it
// becomes a no-op and the engine pool remains the only throttle.
func ScanRateLimit(rdb *redis.Client, perMinute int) echo.MiddlewareFunc {
	if rdb == nil || perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().Unix() / 60
			key := fmt.Sprintf("rl:scan:%s:%d", c.RealIP(), window)

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis trouble must not block scanning; fall through.
				return next(c)
			}
			if count == 1 {
				_ = rdb.Expire(ctx, key, 2*time.Minute).Err()
			}
			if count > int64(perMinute) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(60))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "too many scan attempts; please wait a minute and try again",
				})
			}
			return next(c)
		}
	}
}
