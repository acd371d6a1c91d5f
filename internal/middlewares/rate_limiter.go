package middlewares

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/khanghh/riskauth/internal/audit"
	"github.com/khanghh/riskauth/internal/metrics"
	"github.com/khanghh/riskauth/params"
)

const MsgTooManyRequests = "Too many requests from this IP, please try again later."

type RateLimitConfig struct {
	Max     int
	Window  time.Duration
	Storage fiber.Storage
	Audit   audit.Sink
}

// RateLimiter limits requests per client address and records every rejection as a security event.
func RateLimiter(cfg RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    cfg.Storage,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			return params.RateLimitKeyPrefix + ctx.IP()
		},
		LimitReached: func(ctx *fiber.Ctx) error {
			metrics.RateLimitedTotal.Inc()
			if cfg.Audit != nil {
				cfg.Audit.Record(ctx.UserContext(), audit.Event{
					Type:          audit.EventTypeRateLimitExceeded,
					SourceAddress: ctx.IP(),
					Description:   fmt.Sprintf("Rate limit exceeded: %s %s", ctx.Method(), ctx.OriginalURL()),
				})
			}
			return sendError(ctx, fiber.StatusTooManyRequests, MsgTooManyRequests)
		},
	})
}
