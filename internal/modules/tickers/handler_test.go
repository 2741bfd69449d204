package tickers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/validatorx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerContext(e *echo.Echo, req *http.Request, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	return c, rec
}

func TestTickersHandler(t *testing.T) {
	e := echo.New()
	e.Validator = validatorx.NewValidator()

	repo := newMemRepo()
	provider := newFakeProvider()
	provider.closes["AAPL"] = DailyClose{Date: day("2026-03-19"), Close: 212.5}
	provider.history["AAPL"] = []DailyClose{
		{Date: day("2026-03-18"), Close: 100},
		{Date: day("2026-03-19"), Close: 102},
	}
	expiry := day("2026-04-17")
	provider.chains[chainKeyOf("AAPL", expiry)] = &OptionChain{
		Calls: []OptionContract{{ContractSymbol: "AAPL260417C00200000", Strike: 200, Bid: 14.1}},
	}
	h := NewTickersHandler(newTestService(repo, provider, nil))

	t.Run("closed price", func(t *testing.T) {
		c, rec := newHandlerContext(e, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"ticker": "aapl"})
		require.NoError(t, h.getClosedPriceHandler(c))

		var body struct {
			Data TickerResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, TickerResponse{Ticker: "AAPL", ClosedPrice: 212.5, ClosedDate: "2026-03-19"}, body.Data)
	})

	t.Run("option lookup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ticker":"AAPL","type":"Call","expire_date":"2026-04-17","strike_price":200}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c, rec := newHandlerContext(e, req, nil)
		require.NoError(t, h.getOptionHandler(c))

		var body struct {
			Data OptionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "AAPL260417C00200000", body.Data.ID)
		assert.Equal(t, "2026-04-17", body.Data.ExpireDate)
	})

	t.Run("option lookup validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ticker":"AAPL","type":"Straddle","expire_date":"17/04/2026"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c, _ := newHandlerContext(e, req, nil)

		var valErr validatorx.ValidationError
		require.ErrorAs(t, h.getOptionHandler(c), &valErr)
		assert.Len(t, valErr.Errors, 3)
	})

	t.Run("history", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=2026-03-01&to=2026-03-20&frequency=D", nil)
		c, rec := newHandlerContext(e, req, map[string]string{"ticker": "AAPL"})
		require.NoError(t, h.historyHandler(c))

		var body struct {
			Data []PricePoint `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, 2.0, body.Data[0].Diff)
	})

	t.Run("history bad frequency", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?frequency=Y", nil)
		c, _ := newHandlerContext(e, req, map[string]string{"ticker": "AAPL"})
		assert.ErrorIs(t, h.historyHandler(c), ErrInvalidFrequency)
	})

	t.Run("history bad date", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil)
		c, _ := newHandlerContext(e, req, map[string]string{"ticker": "AAPL"})

		var valErr validatorx.ValidationError
		assert.ErrorAs(t, h.historyHandler(c), &valErr)
	})

	t.Run("refresh all", func(t *testing.T) {
		c, rec := newHandlerContext(e, httptest.NewRequest(http.MethodPost, "/", nil), nil)
		require.NoError(t, h.refreshAllHandler(c))

		var body struct {
			Data RefreshReport `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Data.TickersUpdated)
		assert.Equal(t, 1, body.Data.OptionsUpdated)
	})
}
