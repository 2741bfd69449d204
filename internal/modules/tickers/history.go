package tickers

import (
	"math"
	"slices"
	"time"
)

// periodEnd labels the period a trading day falls in: the day itself, the
// Sunday closing its week, or the last day of its month
func periodEnd(day time.Time, freq Frequency) time.Time {
	day = truncateDay(day)
	switch freq {
	case FrequencyWeekly:
		return day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	case FrequencyMonthly:
		return time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

type period struct {
	end   time.Time
	close float64
}

// resample buckets daily closes by freq and reports each period's last close
// against the previous period's. The oldest period has nothing to compare
// with and is dropped. Output is newest first
func resample(closes []DailyClose, freq Frequency) []PricePoint {
	sorted := slices.Clone(closes)
	slices.SortStableFunc(sorted, func(a, b DailyClose) int {
		return a.Date.Compare(b.Date)
	})

	var periods []period
	for _, c := range sorted {
		end := periodEnd(c.Date, freq)
		price := round2(c.Close)
		if n := len(periods); n > 0 && periods[n-1].end.Equal(end) {
			periods[n-1].close = price
			continue
		}
		periods = append(periods, period{end: end, close: price})
	}

	if len(periods) < 2 {
		return []PricePoint{}
	}

	points := make([]PricePoint, 0, len(periods)-1)
	for i := len(periods) - 1; i > 0; i-- {
		cur, prev := periods[i].close, periods[i-1].close
		diff := cur - prev

		var pct float64
		if prev != 0 {
			pct = round2(diff / prev * 100)
		}

		points = append(points, PricePoint{
			Date:       periods[i].end.Format(DateLayout),
			Close:      cur,
			Prev:       prev,
			Diff:       round2(diff),
			Percentage: pct,
		})
	}
	return points
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
