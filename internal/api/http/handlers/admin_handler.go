package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trading-journal/internal/observability"
)

// AdminHandler serves operator endpoints reachable only with the machine
// credential.
type AdminHandler struct {
	metrics *observability.Metrics
}

// NewAdminHandler returns a handler reading the given counters.
func NewAdminHandler(metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{metrics: metrics}
}

// Metrics returns request, error and auth outcome counters.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
