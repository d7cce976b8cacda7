package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Liveness is the bare process-up probe for load balancers.  It answers
// without touching the store; use Health for the readiness check.
func Liveness(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Health pings the store and reports its reply.  When Redis is unreachable
// the service cannot sell anything, so this returns 503.
func (h *ReservationHandler) Health(c echo.Context) error {
	pong, err := h.repo.Ping(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"redis": pong})
}
