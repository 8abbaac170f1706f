package health

import (
	"github.com/gofiber/fiber/v2"
)

// FiberHandler exposes the probes over HTTP.
type FiberHandler struct {
	service *Service
}

func NewFiberHandler(service *Service) *FiberHandler {
	return &FiberHandler{service: service}
}

// RegisterRoutes mounts /health/live and /health/ready plus the Kubernetes
// style aliases.
func (h *FiberHandler) RegisterRoutes(r fiber.Router) {
	for _, path := range []string{"/health/live", "/healthz"} {
		r.Get(path, h.Live)
	}
	for _, path := range []string{"/health/ready", "/readyz"} {
		r.Get(path, h.Ready)
	}
}

// Live answers 200 while the process runs, with the live call count.
func (h *FiberHandler) Live(c *fiber.Ctx) error {
	return c.JSON(h.service.Health(c.UserContext()))
}

// Ready answers 503 when a critical dependency is down.
func (h *FiberHandler) Ready(c *fiber.Ctx) error {
	resp := h.service.Ready(c.UserContext())
	if !resp.Ready {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(resp)
}

// RequireReady refuses to start new work, such as dialing a debtor, while the
// service is not ready. Calls already in progress are unaffected.
func (h *FiberHandler) RequireReady() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if resp := h.service.Ready(c.UserContext()); !resp.Ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":  "service not ready",
				"checks": resp.Checks,
			})
		}
		return c.Next()
	}
}
