package allocation

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kpcrmv4/dentalos-sub000/internal/domain/casefile"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/inventory"
	"github.com/kpcrmv4/dentalos-sub000/internal/domain/reservation"
	"github.com/kpcrmv4/dentalos-sub000/internal/platform/auth"
)

type Handler struct {
	coord  *Coordinator
	logger zerolog.Logger
}

func NewHandler(coord *Coordinator, logger zerolog.Logger) *Handler {
	return &Handler{coord: coord, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant", "inventory"))
	readGroup.GET("/cases/:id/readiness", h.GetReadiness)

	writeGroup := api.Group("", auth.RequireRole("admin", "clinician", "assistant"))
	writeGroup.POST("/reservations", h.Reserve)
	writeGroup.POST("/reservations/:id/use", h.Use)
	writeGroup.POST("/reservations/:id/cancel", h.Cancel)
	writeGroup.POST("/reservations/:id/swap", h.Swap)
	writeGroup.POST("/reservations/:id/steal", h.Steal)
	writeGroup.POST("/cases/:id/usages", h.UseUnreserved)
}

// httpError maps engine errors onto the API contract: conflicts are 409,
// rule violations 422, unknown ids 404, and invariant violations surface as
// an opaque 500 with the detail kept in the log.
func (h *Handler) httpError(err error) error {
	var ise *inventory.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":      "insufficient stock",
			"product_id": ise.ProductID,
			"requested":  ise.Requested,
			"available":  ise.Available,
		})
	case errors.Is(err, inventory.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, reservation.ErrOverConsumption),
		errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, inventory.ErrLotNotActive):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, reservation.ErrReasonRequired),
		errors.Is(err, reservation.ErrEvidenceRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, inventory.ErrLotNotFound),
		errors.Is(err, casefile.ErrCaseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrInvariantViolation):
		h.logger.Error().Err(err).Msg("ledger invariant violation")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type reserveRequest struct {
	CaseID    uuid.UUID `json:"case_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (h *Handler) Reserve(c echo.Context) error {
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.CaseID == uuid.Nil || req.ProductID == uuid.Nil || req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id, product_id and a positive quantity are required")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	created, err := h.coord.Reserve(c.Request().Context(), req.CaseID, req.ProductID, req.Quantity, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

type useRequest struct {
	Quantity    int    `json:"quantity"`
	EvidenceRef string `json:"evidence_ref"`
	Reason      string `json:"reason"`
}

func (h *Handler) Use(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req useRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	rv, err := h.coord.Use(c.Request().Context(), id, req.Quantity, req.EvidenceRef, req.Reason, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, rv)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	rv, err := h.coord.Cancel(c.Request().Context(), id, req.Reason, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, rv)
}

type swapRequest struct {
	NewLotID    uuid.UUID `json:"new_lot_id"`
	NewQuantity int       `json:"new_quantity"`
	Reason      string    `json:"reason"`
}

func (h *Handler) Swap(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req swapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.NewLotID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "new_lot_id is required")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	successor, err := h.coord.Swap(c.Request().Context(), id, req.NewLotID, req.NewQuantity, req.Reason, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, successor)
}

type stealRequest struct {
	TargetCaseID uuid.UUID `json:"target_case_id"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
}

func (h *Handler) Steal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req stealRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TargetCaseID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "target_case_id is required")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	stolen, err := h.coord.Steal(c.Request().Context(), id, req.TargetCaseID, req.Quantity, req.Reason, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, stolen)
}

type useUnreservedRequest struct {
	LotID       uuid.UUID `json:"lot_id"`
	Quantity    int       `json:"quantity"`
	EvidenceRef string    `json:"evidence_ref"`
	Reason      string    `json:"reason"`
}

func (h *Handler) UseUnreserved(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var req useUnreservedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.LotID == uuid.Nil || req.Quantity <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "lot_id and a positive quantity are required")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	usage, err := h.coord.UseUnreserved(c.Request().Context(), caseID, req.LotID, req.Quantity, req.EvidenceRef, req.Reason, actor)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusCreated, usage)
}

func (h *Handler) GetReadiness(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	cr, err := h.coord.Readiness(c.Request().Context(), caseID)
	if err != nil {
		return h.httpError(err)
	}
	return c.JSON(http.StatusOK, cr)
}
