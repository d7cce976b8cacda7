// Package handler contains the Echo HTTP handlers.  They are thin glue:
// parse and validate the request, delegate to the repository or the purchase
// coordinator, and map the sentinel errors to HTTP statuses.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ankitaduttagupta/ticketing-service/internal/model"
	"github.com/ankitaduttagupta/ticketing-service/internal/repository"
	"github.com/ankitaduttagupta/ticketing-service/internal/service"
)

// ReservationHandler groups the dependencies behind the ticket endpoints.
type ReservationHandler struct {
	repo      *repository.TicketRepo
	purchases *service.PurchaseService
}

// NewReservationHandler constructs a ReservationHandler.  Both dependencies
// must be non-nil.
func NewReservationHandler(repo *repository.TicketRepo, purchases *service.PurchaseService) *ReservationHandler {
	if repo == nil || purchases == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{repo: repo, purchases: purchases}
}

// classParam parses the :class path parameter.
func classParam(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("class"))
}

// Preload handles POST /preload/:class.  The body is a JSON array of ticket
// objects, each carrying a "ticket_id" plus arbitrary opaque fields; the
// whole object is stored as the pool payload.  Seeding is a trusted admin
// operation and is not atomic with respect to concurrent seeds of the same
// class.
func (h *ReservationHandler) Preload(c echo.Context) error {
	class, err := classParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var raw []map[string]interface{}
	if err := c.Bind(&raw); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	tickets := make([]model.Ticket, 0, len(raw))
	for _, obj := range raw {
		id, err := ticketID(obj)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		payload, err := json.Marshal(obj)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unencodable ticket"})
		}
		tickets = append(tickets, model.Ticket{ID: id, Payload: payload})
	}
	n, err := h.repo.Preload(c.Request().Context(), class, tickets)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"loaded": n})
}

// ticketID extracts the ticket_id field, accepting either a JSON string or a
// number (numbers are stringified, matching how ids are seeded in practice).
func ticketID(obj map[string]interface{}) (string, error) {
	v, ok := obj["ticket_id"]
	if !ok {
		return "", errors.New("ticket missing ticket_id")
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", errors.New("ticket with empty ticket_id")
		}
		return t, nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", fmt.Errorf("unsupported ticket_id type %T", v)
	}
}

// Purchase handles POST /purchase/:class.  Body: {"player_id": "...",
// "count": n}.  Statuses: 200 purchased, 409 insufficient inventory, 402
// payment declined, 500 finalize mismatch or store trouble.
func (h *ReservationHandler) Purchase(c echo.Context) error {
	class, err := classParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	var body struct {
		PlayerID string `json:"player_id"`
		Count    int    `json:"count"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PlayerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "player_id is required"})
	}
	if body.Count < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be >= 1"})
	}

	tickets, err := h.purchases.Purchase(c.Request().Context(), class, body.PlayerID, body.Count)
	switch {
	case errors.Is(err, service.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets available"})
	case errors.Is(err, service.ErrPaymentDeclined):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed; reservation rolled back"})
	case errors.Is(err, service.ErrFinalizeMismatch):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm mismatch; reservation rolled back"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "purchased", "tickets": tickets})
}

// Counts handles GET /counts/:class and returns the lifecycle-set sizes.
func (h *ReservationHandler) Counts(c echo.Context) error {
	class, err := classParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	counts, err := h.repo.Counts(c.Request().Context(), class)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store error"})
	}
	return c.JSON(http.StatusOK, counts)
}

// Reclaim handles POST /reclaim/:class?limit=L, the manual counterpart of
// the background sweeper for classes it does not cover.
func (h *ReservationHandler) Reclaim(c echo.Context) error {
	class, err := classParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
	}
	limit := 1000
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
	}
	ids, err := h.repo.Reclaim(c.Request().Context(), class, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store error"})
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"reclaimed": ids})
}
