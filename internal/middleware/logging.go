// Package middleware provides Fiber middleware for request context, logging, tracing, and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"lufeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals keys shared between middleware and handlers.
const (
	LocalRequestID = "requestid"
	LocalUserID    = "userID"
	LocalTraceID   = "traceID"
	LocalSession   = "session"
)

// ContextMiddleware injects request ID, user ID, and trace ID from Fiber locals into the request context
// so the context-aware logger sees them in the service layers.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals(LocalRequestID).(string); ok {
			ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
		}
		if uid, ok := c.Locals(LocalUserID).(string); ok && uid != "" {
			ctx = context.WithValue(ctx, observability.UserIDKey, uid)
		}
		if tid, ok := c.Locals(LocalTraceID).(string); ok {
			ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get("User-Agent")),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
