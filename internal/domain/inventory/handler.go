package inventory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kpcrmv4/dentalos-sub000/internal/platform/auth"
	"github.com/kpcrmv4/dentalos-sub000/pkg/pagination"
)

type Handler struct {
	svc      *Service
	selector *Selector
}

func NewHandler(svc *Service, selector *Selector) *Handler {
	return &Handler{svc: svc, selector: selector}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant", "inventory"))
	readGroup.GET("/lots", h.ListLots)
	readGroup.GET("/lots/:id", h.GetLot)
	readGroup.GET("/products/:id/lots", h.ListLotsByProduct)
	readGroup.GET("/products/:id/availability", h.GetAvailability)

	writeGroup := api.Group("", auth.RequireRole("admin", "inventory"))
	writeGroup.POST("/lots", h.ReceiveLot)
	writeGroup.POST("/lots/:id/block", h.BlockLot)
	writeGroup.POST("/lots/:id/unblock", h.UnblockLot)
}

func (h *Handler) ReceiveLot(c echo.Context) error {
	var l StockLot
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// The receipt is attributed to whoever is holding the scanner, which is
	// the authenticated user unless the payload names someone else.
	if l.ReceivedBy == "" {
		l.ReceivedBy = auth.UserIDFromContext(c.Request().Context())
	}
	if err := h.svc.ReceiveLot(c.Request().Context(), &l); err != nil {
		if errors.Is(err, ErrLotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLot(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "lot not found")
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLots(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLots(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListLotsByProduct(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	items, err := h.svc.ListLotsByProduct(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	total, err := h.selector.AvailableTotal(c.Request().Context(), pid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"product_id": pid, "available": total})
}

func (h *Handler) BlockLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.BlockLot(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrLotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lot not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnblockLot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.UnblockLot(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrLotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "lot not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
