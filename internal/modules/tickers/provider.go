package tickers

import (
	"context"
	"time"
)

// DailyClose is one trading day of a symbol
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// OptionContract is one row of an option chain as reported upstream
type OptionContract struct {
	ContractSymbol    string  `json:"contract_symbol"`
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	Volume            float64 `json:"volume"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	InTheMoney        bool    `json:"in_the_money"`
}

// OptionChain holds both sides of the chain for a single expiry
type OptionChain struct {
	Calls []OptionContract `json:"calls"`
	Puts  []OptionContract `json:"puts"`
}

// Side returns the contracts of the requested type
func (c *OptionChain) Side(t OptionType) []OptionContract {
	if t == OptionPut {
		return c.Puts
	}
	return c.Calls
}

// Summary is the raw fundamental data of a symbol; pointers are nil when unknown
type Summary struct {
	Symbol         string   `json:"symbol"`
	Volume         *int64   `json:"volume"`
	Beta           *float64 `json:"beta"`
	DividendRate   *float64 `json:"dividend_rate"`
	AverageVolume  *int64   `json:"average_volume"`
	TrailingPE     *float64 `json:"trailing_pe"`
	DividendYield  *float64 `json:"dividend_yield"`
	MarketCap      *float64 `json:"market_cap"`
	TrailingEPS    *float64 `json:"trailing_eps"`
	ExDividendDate *int64   `json:"ex_dividend_date"`
	EarningsDates  []int64  `json:"earnings_dates"`
}

// MarketDataProvider is the upstream quote source.
// Unknown symbols are reported as ErrTickerNotFound, transport or upstream
// failures wrap ErrProvider
type MarketDataProvider interface {
	LatestClose(ctx context.Context, symbol string) (DailyClose, error)
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]DailyClose, error)
	Expirations(ctx context.Context, symbol string) ([]time.Time, error)
	OptionChain(ctx context.Context, symbol string, expiry time.Time) (*OptionChain, error)
	Summary(ctx context.Context, symbol string) (*Summary, error)
}
