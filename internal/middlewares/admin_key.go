package middlewares

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const HeaderAdminKey = "X-Admin-Key"

// RequireAdminKey guards operator endpoints with a static key. An empty key disables them.
func RequireAdminKey(apiKey string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if apiKey == "" {
			return fiber.ErrNotFound
		}
		provided := ctx.Get(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return sendError(ctx, fiber.StatusForbidden, "Forbidden")
		}
		return ctx.Next()
	}
}
