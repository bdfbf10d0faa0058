package casefile

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kpcrmv4/dentalos-sub000/internal/platform/auth"
	"github.com/kpcrmv4/dentalos-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant", "inventory"))
	readGroup.GET("/cases", h.ListCases)
	readGroup.GET("/cases/:id", h.GetCase)
	readGroup.GET("/cases/:id/needs", h.ListNeeds)

	writeGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant"))
	writeGroup.POST("/cases", h.CreateCase)
	writeGroup.PUT("/cases/:id", h.UpdateCase)
	writeGroup.POST("/cases/:id/needs", h.AddNeed)
	writeGroup.DELETE("/cases/:id/needs/:needId", h.RemoveNeed)
}

func (h *Handler) CreateCase(c echo.Context) error {
	var cc ClinicalCase
	if err := c.Bind(&cc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCase(c.Request().Context(), &cc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cc)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cc, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "case not found")
	}
	return c.JSON(http.StatusOK, cc)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCases(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cc ClinicalCase
	if err := c.Bind(&cc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cc.ID = id
	if err := h.svc.UpdateCase(c.Request().Context(), &cc); err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "case not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cc)
}

func (h *Handler) AddNeed(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var n MaterialNeed
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.CaseID = caseID
	if err := h.svc.AddNeed(c.Request().Context(), &n); err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "case not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListNeeds(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	items, err := h.svc.ListNeeds(c.Request().Context(), caseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RemoveNeed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("needId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid need id")
	}
	if err := h.svc.RemoveNeed(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNeedNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "need not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
