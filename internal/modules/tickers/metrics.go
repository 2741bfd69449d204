package tickers

import (
	"strconv"
	"time"
)

// formatMarketCap renders a capitalization as T/B/M with two decimals
func formatMarketCap(v *float64) string {
	if v == nil {
		return ""
	}
	switch c := *v; {
	case c >= 1e12:
		return strconv.FormatFloat(c/1e12, 'f', 2, 64) + "T"
	case c >= 1e9:
		return strconv.FormatFloat(c/1e9, 'f', 2, 64) + "B"
	case c >= 1e6:
		return strconv.FormatFloat(c/1e6, 'f', 2, 64) + "M"
	default:
		return strconv.FormatFloat(c, 'f', -1, 64)
	}
}

func roundPtr(v *float64, scale float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v * scale)
	return &r
}

func formatUnixDate(ts *int64) string {
	if ts == nil || *ts == 0 {
		return ""
	}
	return time.Unix(*ts, 0).UTC().Format(DateLayout)
}

// putCallRatio is total put volume over total call volume, 0 without calls
func putCallRatio(chains []*OptionChain) float64 {
	var puts, calls float64
	for _, ch := range chains {
		for _, c := range ch.Puts {
			puts += c.Volume
		}
		for _, c := range ch.Calls {
			calls += c.Volume
		}
	}
	if calls == 0 {
		return 0
	}
	return round2(puts / calls)
}

func toMetrics(s *Summary, pcr float64) Metrics {
	var earnings *int64
	if len(s.EarningsDates) > 0 {
		earnings = &s.EarningsDates[0]
	}

	return Metrics{
		Symbol:               s.Symbol,
		Volume:               s.Volume,
		Beta:                 roundPtr(s.Beta, 1),
		AnnualDividend:       s.DividendRate,
		AverageVolume:        s.AverageVolume,
		PE:                   roundPtr(s.TrailingPE, 1),
		DividendYield:        roundPtr(s.DividendYield, 100),
		MarketCap:            formatMarketCap(s.MarketCap),
		EPS:                  s.TrailingEPS,
		PutCallRatio:         pcr,
		ExDividendDate:       formatUnixDate(s.ExDividendDate),
		UpcomingEarningsDate: formatUnixDate(earnings),
	}
}
