package middlewares

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

const apiVersion = "1.0"

type errorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	APIVersion string    `json:"apiVersion"`
	Error      errorInfo `json:"error"`
}

func sendError(ctx *fiber.Ctx, code int, message string) error {
	return ctx.Status(code).JSON(errorResponse{
		APIVersion: apiVersion,
		Error:      errorInfo{Code: code, Message: message},
	})
}

// ErrorHandler renders errors escaping the handlers as JSON. Internal errors are logged and
// replaced by a generic message.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	switch code {
	case fiber.StatusBadRequest, fiber.StatusUnauthorized, fiber.StatusForbidden,
		fiber.StatusNotFound, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge,
		fiber.StatusTooManyRequests:
		return sendError(ctx, code, e.Message)
	default:
		slog.Error("unhandled error", "path", ctx.Path(), "code", code, "error", err)
		return sendError(ctx, fiber.StatusInternalServerError, "Something went wrong!")
	}
}
