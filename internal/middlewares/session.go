package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/riskauth/internal/token"
)

const sessionUserIDKey = "sessionUserID"

type TokenVerifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

func sessionToken(ctx *fiber.Ctx, cookieName string) string {
	if tokenStr := ctx.Cookies(cookieName); tokenStr != "" {
		return tokenStr
	}
	authz := ctx.Get(fiber.HeaderAuthorization)
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// RequireSession rejects requests without a valid session token, taken from the session cookie or
// a bearer Authorization header.
func RequireSession(verifier TokenVerifier, cookieName string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := sessionToken(ctx, cookieName)
		if tokenStr == "" {
			return sendError(ctx, fiber.StatusUnauthorized, "Access denied")
		}
		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			return sendError(ctx, fiber.StatusUnauthorized, "Invalid token")
		}
		userID, _ := claims.UserID()
		ctx.Locals(sessionUserIDKey, userID)
		return ctx.Next()
	}
}

// GetSessionUserID returns the user authenticated by RequireSession, zero otherwise.
func GetSessionUserID(ctx *fiber.Ctx) uint {
	userID, _ := ctx.Locals(sessionUserIDKey).(uint)
	return userID
}
