package positions

import (
	"net/http"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/auth"
	"github.com/Guizzs26/tradebook/internal/modules/pkg/httpx"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PositionsHandler holds dependencies for position-related HTTP handlers
type PositionsHandler struct {
	positionsService *Service
	requireAuth      echo.MiddlewareFunc
}

// NewPositionsHandler wires the handler; requireAuth guards every route
func NewPositionsHandler(positionsService *Service, requireAuth echo.MiddlewareFunc) *PositionsHandler {
	return &PositionsHandler{positionsService: positionsService, requireAuth: requireAuth}
}

// RegisterRoutes sets up the API routes for the positions module
func (h *PositionsHandler) RegisterRoutes(apiRouteGroup *echo.Group) {
	positionsGroup := apiRouteGroup.Group("/positions", h.requireAuth)

	// POST /api/v1/positions
	positionsGroup.POST("", h.createPositionHandler)
	positionsGroup.GET("", h.listPositionsHandler)
	positionsGroup.GET("/:id", h.getPositionHandler)
	positionsGroup.PUT("/:id", h.updatePositionHandler)
	positionsGroup.PATCH("/:id", h.updatePositionHandler)
	positionsGroup.DELETE("/:id", h.deletePositionHandler)
}

// CreatePositionRequest defines the expected JSON body for opening a position
type CreatePositionRequest struct {
	Ticker      string   `json:"ticker" validate:"required,max=16"`
	Category    string   `json:"category"`
	Qty         *int     `json:"qty"`
	OptionPrice *float64 `json:"option_price" validate:"omitempty,gte=0"`
	TradePrice  float64  `json:"trade_price" validate:"gte=0"`
	OpenDate    string   `json:"open_date" validate:"required,datetime=2006-01-02"`
	CloseDate   string   `json:"close_date" validate:"omitempty,datetime=2006-01-02"`
	ClosedPrice *float64 `json:"closed_price" validate:"omitempty,gte=0"`
	Remark      string   `json:"remark" validate:"max=2500"`
}

// UpdatePositionRequest only carries the fields the client wants to change
type UpdatePositionRequest struct {
	Ticker      *string  `json:"ticker" validate:"omitempty,min=1,max=16"`
	Category    *string  `json:"category"`
	Qty         *int     `json:"qty"`
	OptionPrice *float64 `json:"option_price" validate:"omitempty,gte=0"`
	TradePrice  *float64 `json:"trade_price" validate:"omitempty,gte=0"`
	OpenDate    *string  `json:"open_date" validate:"omitempty,datetime=2006-01-02"`
	CloseDate   *string  `json:"close_date" validate:"omitempty,datetime=2006-01-02"`
	ClosedPrice *float64 `json:"closed_price" validate:"omitempty,gte=0"`
	Remark      *string  `json:"remark" validate:"omitempty,max=2500"`
	IsActive    *bool    `json:"is_active"`
}

type ListPositionsRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// PositionResponse defines the structure of a position returned by the API
type PositionResponse struct {
	ID          uuid.UUID `json:"id"`
	Ticker      string    `json:"ticker"`
	Category    Category  `json:"category"`
	Qty         int       `json:"qty"`
	OptionPrice *float64  `json:"option_price"`
	TradePrice  float64   `json:"trade_price"`
	OpenDate    string    `json:"open_date"`
	CloseDate   *string   `json:"close_date"`
	ClosedPrice *float64  `json:"closed_price"`
	Remark      string    `json:"remark"`
	IsActive    bool      `json:"is_active"`
}

func (h *PositionsHandler) createPositionHandler(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreatePositionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// formats already checked by the validator
	openDate, _ := time.Parse(DateLayout, req.OpenDate)
	params := NewPositionParams{
		OwnerID:     owner.ID,
		Ticker:      req.Ticker,
		Category:    req.Category,
		Qty:         req.Qty,
		OptionPrice: req.OptionPrice,
		TradePrice:  req.TradePrice,
		OpenDate:    openDate,
		ClosedPrice: req.ClosedPrice,
		Remark:      req.Remark,
	}
	if req.CloseDate != "" {
		closeDate, _ := time.Parse(DateLayout, req.CloseDate)
		params.CloseDate = &closeDate
	}

	pos, err := h.positionsService.Create(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusCreated, toPositionResponse(pos))
}

func (h *PositionsHandler) listPositionsHandler(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return err
	}

	var req ListPositionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	list, err := h.positionsService.List(c.Request().Context(), owner.ID, req.Limit, req.Offset)
	if err != nil {
		return err
	}

	out := make([]PositionResponse, len(list))
	for i := range list {
		out[i] = toPositionResponse(&list[i])
	}
	return httpx.SendSuccess(c, http.StatusOK, out)
}

func (h *PositionsHandler) getPositionHandler(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := positionID(c)
	if err != nil {
		return err
	}

	pos, err := h.positionsService.Get(c.Request().Context(), owner.ID, id)
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, toPositionResponse(pos))
}

func (h *PositionsHandler) updatePositionHandler(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := positionID(c)
	if err != nil {
		return err
	}

	var req UpdatePositionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	patch := PositionPatch{
		Ticker:      req.Ticker,
		Category:    req.Category,
		Qty:         req.Qty,
		OptionPrice: req.OptionPrice,
		TradePrice:  req.TradePrice,
		OpenDate:    parseDatePtr(req.OpenDate),
		CloseDate:   parseDatePtr(req.CloseDate),
		ClosedPrice: req.ClosedPrice,
		Remark:      req.Remark,
		IsActive:    req.IsActive,
	}

	pos, err := h.positionsService.Update(c.Request().Context(), owner.ID, id, patch)
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, toPositionResponse(pos))
}

func (h *PositionsHandler) deletePositionHandler(c echo.Context) error {
	owner, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := positionID(c)
	if err != nil {
		return err
	}

	if err := h.positionsService.Delete(c.Request().Context(), owner.ID, id); err != nil {
		return err
	}
	return httpx.SendNoContent(c)
}

func currentUser(c echo.Context) (*auth.User, error) {
	user, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return user, nil
}

func positionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid position id format")
	}
	return id, nil
}

// parseDatePtr expects a value already checked by the validator
func parseDatePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func toPositionResponse(p *Position) PositionResponse {
	resp := PositionResponse{
		ID:          p.ID,
		Ticker:      p.Ticker,
		Category:    p.Category,
		Qty:         p.Qty,
		OptionPrice: p.OptionPrice,
		TradePrice:  p.TradePrice,
		OpenDate:    p.OpenDate.Format(DateLayout),
		ClosedPrice: p.ClosedPrice,
		Remark:      p.Remark,
		IsActive:    p.IsActive,
	}
	if p.CloseDate != nil {
		d := p.CloseDate.Format(DateLayout)
		resp.CloseDate = &d
	}
	return resp
}
