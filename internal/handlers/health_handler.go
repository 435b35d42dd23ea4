package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness and whether the database answers.
type HealthHandler struct {
	ping      func(ctx context.Context) error
	messaging bool
}

// NewHealthHandler takes the database ping and whether event publishing is enabled.
func NewHealthHandler(ping func(ctx context.Context) error, messaging bool) *HealthHandler {
	return &HealthHandler{ping: ping, messaging: messaging}
}

func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code, dbStatus := "healthy", fiber.StatusOK, "connected"
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			status, code, dbStatus = "unhealthy", fiber.StatusServiceUnavailable, err.Error()
		}
	}
	messaging := "disabled"
	if h.messaging {
		messaging = "enabled"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"time":      time.Now().Format(time.RFC3339),
		"database":  dbStatus,
		"messaging": messaging,
	})
}
