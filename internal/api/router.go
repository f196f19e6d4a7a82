package api

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the health check, CORS handling and the
// token-protected /api routes on app.
func RegisterRoutes(app *fiber.App, h *Handler, token string, origins []string) {
	if mw := CORS(origins); mw != nil {
		app.Use(mw)
	}
	app.Get("/health", h.Health)

	// Preflights never reach auth.
	app.Options("/api/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	api := app.Group("/api", BearerAuth(token))
	api.Get("/stats/today", h.TodayStats)
	api.Get("/stats", h.RangeStats)
	api.Get("/trackables", h.ListTrackables)
	api.Post("/action", h.Action)
}
