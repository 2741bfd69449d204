package tickers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/quotes/AAPL/close", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"date":"2026-03-19","close":212.5}`))
	})
	mux.HandleFunc("GET /v1/quotes/AAPL/history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") != "2026-03-01" || r.URL.Query().Get("to") != "2026-03-20" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"closes":[{"date":"2026-03-02","close":100},{"date":"2026-03-03","close":101.5}]}`))
	})
	mux.HandleFunc("GET /v1/options/AAPL/expirations", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"expirations":["2026-04-17","2026-05-15"]}`))
	})
	mux.HandleFunc("GET /v1/options/AAPL/chain", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("expiry") != "2026-04-17" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"calls":[{"contract_symbol":"AAPL260417C00200000","strike":200,"bid":14.1,"ask":14.4,"volume":1200,"implied_volatility":0.31,"in_the_money":true}],"puts":[]}`))
	})
	mux.HandleFunc("GET /v1/quotes/AAPL/summary", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","market_cap":3.2e12,"trailing_pe":31.2,"earnings_dates":[1745971200]}`))
	})
	mux.HandleFunc("GET /v1/quotes/BROKEN/close", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /v1/quotes/GARBLED/close", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider(t *testing.T) {
	ctx := context.Background()
	srv := newProviderServer(t)
	p := NewHTTPProvider(srv.URL+"/", "k", 2*time.Second)

	latest, err := p.LatestClose(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 212.5, latest.Close)
	assert.Equal(t, "2026-03-19", latest.Date.Format(DateLayout))

	closes, err := p.DailyCloses(ctx, "AAPL", day("2026-03-01"), day("2026-03-20"))
	require.NoError(t, err)
	require.Len(t, closes, 2)
	assert.Equal(t, 101.5, closes[1].Close)

	exps, err := p.Expirations(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, exps, 2)
	assert.Equal(t, "2026-05-15", exps[1].Format(DateLayout))

	chain, err := p.OptionChain(ctx, "AAPL", day("2026-04-17"))
	require.NoError(t, err)
	require.Len(t, chain.Calls, 1)
	assert.Equal(t, "AAPL260417C00200000", chain.Calls[0].ContractSymbol)
	assert.True(t, chain.Calls[0].InTheMoney)
	assert.Empty(t, chain.Side(OptionPut))

	summary, err := p.Summary(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, summary.MarketCap)
	assert.Equal(t, 3.2e12, *summary.MarketCap)
	assert.Nil(t, summary.Beta)
	assert.Equal(t, []int64{1745971200}, summary.EarningsDates)
}

func TestHTTPProvider_Errors(t *testing.T) {
	ctx := context.Background()
	srv := newProviderServer(t)
	p := NewHTTPProvider(srv.URL, "k", 2*time.Second)

	_, err := p.LatestClose(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, ErrTickerNotFound)

	_, err = p.OptionChain(ctx, "AAPL", day("2030-01-18"))
	assert.ErrorIs(t, err, ErrTickerNotFound)

	_, err = p.LatestClose(ctx, "BROKEN")
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "upstream exploded")

	_, err = p.LatestClose(ctx, "GARBLED")
	assert.ErrorIs(t, err, ErrProvider)

	noKey := NewHTTPProvider(srv.URL, "", 2*time.Second)
	_, err = noKey.LatestClose(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrProvider)

	down := NewHTTPProvider("http://127.0.0.1:1", "", 500*time.Millisecond)
	_, err = down.LatestClose(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrProvider)
}
