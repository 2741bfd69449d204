package tickers

import (
	"net/http"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/httpx"
	"github.com/labstack/echo/v4"
)

// TickersHandler holds dependencies for market-data HTTP handlers
type TickersHandler struct {
	tickersService *Service
}

func NewTickersHandler(tickersService *Service) *TickersHandler {
	return &TickersHandler{tickersService: tickersService}
}

// RegisterRoutes sets up the API routes for the tickers module
func (h *TickersHandler) RegisterRoutes(apiRouteGroup *echo.Group) {
	tickersGroup := apiRouteGroup.Group("/tickers")

	// GET /api/v1/tickers/:ticker
	tickersGroup.GET("/:ticker", h.getClosedPriceHandler)
	tickersGroup.GET("/:ticker/history", h.historyHandler)
	tickersGroup.GET("/:ticker/metrics", h.metricsHandler)
	tickersGroup.POST("/options", h.getOptionHandler)
	tickersGroup.POST("/updates", h.refreshAllHandler)
}

type OptionRequest struct {
	Ticker      string  `json:"ticker" validate:"required,max=16"`
	Type        string  `json:"type" validate:"required,oneof=Call Put"`
	ExpireDate  string  `json:"expire_date" validate:"required,datetime=2006-01-02"`
	StrikePrice float64 `json:"strike_price" validate:"required,gt=0"`
}

type HistoryRequest struct {
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Frequency string `query:"frequency"`
}

type TickerResponse struct {
	Ticker      string  `json:"ticker"`
	ClosedPrice float64 `json:"closed_price"`
	ClosedDate  string  `json:"closed_date"`
}

type OptionResponse struct {
	ID          string     `json:"id"`
	Type        OptionType `json:"type"`
	Ticker      string     `json:"ticker"`
	ExpireDate  string     `json:"expire_date"`
	StrikePrice float64    `json:"strike_price"`
	Bid         float64    `json:"bid"`
	Ask         float64    `json:"ask"`
	Volume      float64    `json:"volume"`
	IV          float64    `json:"iv"`
	ITM         bool       `json:"itm"`
}

func (h *TickersHandler) getClosedPriceHandler(c echo.Context) error {
	t, err := h.tickersService.GetClosedPrice(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, toTickerResponse(t))
}

func (h *TickersHandler) getOptionHandler(c echo.Context) error {
	var req OptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	// format already checked by the validator
	expiry, _ := time.Parse(DateLayout, req.ExpireDate)

	o, err := h.tickersService.GetOption(c.Request().Context(), OptionQuery{
		Ticker:      req.Ticker,
		Type:        OptionType(req.Type),
		ExpireDate:  expiry,
		StrikePrice: req.StrikePrice,
	})
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, toOptionResponse(o))
}

func (h *TickersHandler) historyHandler(c echo.Context) error {
	var req HistoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	q := HistoryQuery{Symbol: c.Param("ticker"), Frequency: req.Frequency}
	if req.From != "" {
		q.From, _ = time.Parse(DateLayout, req.From)
	}
	if req.To != "" {
		q.To, _ = time.Parse(DateLayout, req.To)
	}

	points, err := h.tickersService.History(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, points)
}

func (h *TickersHandler) metricsHandler(c echo.Context) error {
	m, err := h.tickersService.Metrics(c.Request().Context(), c.Param("ticker"))
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, m)
}

func (h *TickersHandler) refreshAllHandler(c echo.Context) error {
	report, err := h.tickersService.RefreshAll(c.Request().Context())
	if err != nil {
		return err
	}
	return httpx.SendSuccess(c, http.StatusOK, report)
}

func toTickerResponse(t *Ticker) TickerResponse {
	return TickerResponse{
		Ticker:      t.Symbol,
		ClosedPrice: t.ClosedPrice,
		ClosedDate:  t.ClosedDate.Format(DateLayout),
	}
}

func toOptionResponse(o *Option) OptionResponse {
	return OptionResponse{
		ID:          o.ID,
		Type:        o.Type,
		Ticker:      o.Ticker,
		ExpireDate:  o.ExpireDate.Format(DateLayout),
		StrikePrice: o.StrikePrice,
		Bid:         o.Bid,
		Ask:         o.Ask,
		Volume:      o.Volume,
		IV:          o.IV,
		ITM:         o.ITM,
	}
}
