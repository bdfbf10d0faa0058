package reservation

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kpcrmv4/dentalos-sub000/internal/platform/auth"
)

// Handler serves the read side of the reservation ledger; mutations are
// registered by the allocation handler.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant", "inventory"))
	readGroup.GET("/reservations/:id", h.GetReservation)
	readGroup.GET("/cases/:id/reservations", h.ListByCase)
	readGroup.GET("/cases/:id/usages", h.ListUsagesByCase)
	readGroup.GET("/lots/:id/reservations", h.ListActiveByLot)
}

func (h *Handler) GetReservation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rv, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "reservation not found")
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *Handler) ListByCase(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	items, err := h.svc.ListByCase(c.Request().Context(), caseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListUsagesByCase(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	items, err := h.svc.ListUsagesByCase(c.Request().Context(), caseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListActiveByLot(c echo.Context) error {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lot id")
	}
	items, err := h.svc.ListActiveByLot(c.Request().Context(), lotID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
