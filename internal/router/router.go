// Package router wires the HTTP surface onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ankitaduttagupta/ticketing-service/internal/handler"
)

// RegisterRoutes registers every endpoint of the service.  rateLimit guards
// the purchase path; adminGuard protects seeding and manual reclaim (it is a
// passthrough unless an admin secret is configured).
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, rateLimit, adminGuard echo.MiddlewareFunc) {
	// Liveness for load balancers; readiness with a store ping.
	e.GET("/healthz", handler.Liveness)
	e.GET("/health", h.Health)

	e.POST("/purchase/:class", h.Purchase, rateLimit)
	e.GET("/counts/:class", h.Counts)

	// Trusted admin operations.
	e.POST("/preload/:class", h.Preload, adminGuard)
	e.POST("/reclaim/:class", h.Reclaim, adminGuard)
}
