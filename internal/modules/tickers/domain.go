package tickers

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTickerNotFound   = errors.New("no data found, symbol may be delisted")
	ErrOptionNotFound   = errors.New("no data found, strike price may not be correct")
	ErrInvalidFrequency = errors.New("invalid frequency, allowed values are 'D', 'W', 'M'")
	ErrDateRange        = errors.New("from date cannot be after to date")
	ErrProvider         = errors.New("market data provider error")
)

// DateLayout is the wire and cache format for calendar dates
const DateLayout = "2006-01-02"

// Ticker is the latest known close of a symbol
type Ticker struct {
	Symbol      string
	ClosedPrice float64
	ClosedDate  time.Time
}

type OptionType string

const (
	OptionCall OptionType = "Call"
	OptionPut  OptionType = "Put"
)

func (t OptionType) IsValid() bool {
	return t == OptionCall || t == OptionPut
}

// OptionQuery identifies one contract by its underlying, side, expiry and strike
type OptionQuery struct {
	Ticker      string
	Type        OptionType
	ExpireDate  time.Time
	StrikePrice float64
}

// Option is a priced option contract. ID is the provider's contract symbol
type Option struct {
	ID          string
	Type        OptionType
	Ticker      string
	StrikePrice float64
	Bid         float64
	Ask         float64
	ExpireDate  time.Time
	Volume      float64
	IV          float64
	ITM         bool
}

// Frequency is the resampling period of a price history
type Frequency string

const (
	FrequencyDaily   Frequency = "D"
	FrequencyWeekly  Frequency = "W"
	FrequencyMonthly Frequency = "M"
)

func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(s))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	case "":
		return FrequencyWeekly, nil
	default:
		return "", ErrInvalidFrequency
	}
}

// PricePoint is one resampled period: the close at its end, the close of the
// previous period and the change between the two
type PricePoint struct {
	Date       string  `json:"date"`
	Close      float64 `json:"close"`
	Prev       float64 `json:"prev"`
	Diff       float64 `json:"diff"`
	Percentage float64 `json:"percentage"`
}

// Metrics is the formatted summary of a symbol. Values the provider does not
// report are left empty rather than zero
type Metrics struct {
	Symbol               string   `json:"symbol"`
	Volume               *int64   `json:"volume"`
	Beta                 *float64 `json:"beta"`
	AnnualDividend       *float64 `json:"annual_dividend"`
	AverageVolume        *int64   `json:"average_volume"`
	PE                   *float64 `json:"pe"`
	DividendYield        *float64 `json:"dividend_yield"`
	MarketCap            string   `json:"market_cap"`
	EPS                  *float64 `json:"eps"`
	PutCallRatio         float64  `json:"put_call_ratio"`
	ExDividendDate       string   `json:"ex_dividend_date"`
	UpcomingEarningsDate string   `json:"upcoming_earnings_date"`
}

// NormalizeSymbol upper-cases a ticker symbol
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// truncateDay drops the clock part, keeping the calendar date in UTC
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
