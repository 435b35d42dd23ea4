package middleware

import (
	"log/slog"
	"time"

	"storefront/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestLogger attaches a request-scoped logger to the user context and
// logs each completed request.
func RequestLogger(base *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(fiber.HeaderXRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(fiber.HeaderXRequestID, reqID)

		l := base.With("request_id", reqID, "method", c.Method(), "path", c.Path())
		c.SetUserContext(logging.IntoContext(c.UserContext(), l))

		err := c.Next()
		if err != nil {
			// Let the app's error handler write the response first so the
			// logged status is the one the client sees.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		// Handlers may have enriched the logger (e.g. with the user id).
		l = logging.FromContext(c.UserContext())
		status := c.Response().StatusCode()
		attrs := []any{"status", status, "latency_ms", time.Since(start).Milliseconds(), "ip", c.IP()}
		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("request completed", attrs...)
		case status >= fiber.StatusBadRequest:
			l.Warn("request completed", attrs...)
		default:
			l.Info("request completed", attrs...)
		}
		return nil
	}
}
