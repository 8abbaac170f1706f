package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Routes groups every HTTP handler mounted on the app.
type Routes struct {
	TwiML *TwiMLHandler
	Calls *CallHandler
	// Auth guards the /api/v1 group. Nil leaves it open.
	Auth fiber.Handler
	// Breaker wraps the /api/v1 group. Nil disables it.
	Breaker fiber.Handler
	// Ready gates outbound dialing. Nil skips the check.
	Ready fiber.Handler
}

// Register mounts the voice webhooks, the operator API and /metrics.
func (r Routes) Register(app *fiber.App) {
	app.Get("/twiml", r.TwiML.Serve)
	app.Post("/twiml", r.TwiML.Serve)
	app.Post("/voice/status", r.Calls.Status)
	app.Get("/metrics", metrics)

	api := app.Group("/api/v1")
	if r.Breaker != nil {
		api.Use(r.Breaker)
	}
	if r.Auth != nil {
		api.Use(r.Auth)
	}
	place := []fiber.Handler{r.Calls.Place}
	if r.Ready != nil {
		place = append([]fiber.Handler{r.Ready}, place...)
	}
	api.Post("/calls", place...)
	api.Get("/calls/active", r.Calls.Active)
}

func metrics(c *fiber.Ctx) error {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	handler(c.Context())
	return nil
}
