package sales

import (
	"math"
	"time"
)

// MinForecastSamples is the minimum number of monthly points required
// before a forecast is attempted. Below it the Forecaster returns the
// Insufficient fallback and the caller renders a plain trend line.
const MinForecastSamples = 6

// Forecast fits an additive trend-plus-seasonality model on a monthly
// series and extends it horizonMonths past the last historical month.
// The input is reindexed onto a gapless month-end axis with interior
// gaps filled by linear interpolation, so the predicted axis never has
// holes. Degenerate input (fewer than two distinct months, or zero
// variance) falls back to Insufficient instead of failing. The result
// is fully deterministic for identical input.
func Forecast(monthly TimeSeries, horizonMonths int) ForecastResult {
	result := ForecastResult{Actual: monthly, Insufficient: true}
	if len(monthly) < MinForecastSamples || horizonMonths < 1 {
		return result
	}

	axis, values := reindexMonthly(monthly)
	if len(axis) < 2 {
		return result
	}

	n := float64(len(values))
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= n

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	if variance == 0 {
		return result
	}

	// Ordinary least squares on (index, value) gives the trend line.
	var sumX, sumXX, sumXY float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumXX += x * x
		sumXY += x * v
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return result
	}
	slope := (n*sumXY - sumX*mean*n) / denom
	intercept := mean - slope*sumX/n

	// With two full years of history, add an additive monthly
	// seasonal component from the detrended residuals.
	seasonal := make(map[time.Month]float64)
	if len(values) >= 24 {
		counts := make(map[time.Month]int)
		for i, v := range values {
			m := axis[i].Month()
			seasonal[m] += v - (intercept + slope*float64(i))
			counts[m]++
		}
		for m, c := range counts {
			seasonal[m] /= float64(c)
		}
	}

	fitted := func(i int, m time.Month) float64 {
		return intercept + slope*float64(i) + seasonal[m]
	}

	// Residual standard deviation over the historical fit drives the
	// confidence band width.
	var sse float64
	for i, v := range values {
		r := v - fitted(i, axis[i].Month())
		sse += r * r
	}
	sd := math.Sqrt(sse / n)

	total := len(axis) + horizonMonths
	predicted := make(TimeSeries, 0, total)
	upper := make(TimeSeries, 0, total)
	lower := make(TimeSeries, 0, total)

	first := axis[0]
	for i := 0; i < total; i++ {
		var date time.Time
		ahead := 0
		if i < len(axis) {
			date = axis[i]
		} else {
			ahead = i - len(axis) + 1
			date = monthEndOffset(first, i)
		}

		estimate := fitted(i, date.Month())
		// The band widens as the forecast moves past the history.
		margin := 1.96 * sd * math.Sqrt(1+float64(ahead)/n)

		predicted = append(predicted, Point{Date: date, Value: estimate})
		upper = append(upper, Point{Date: date, Value: estimate + margin})
		lower = append(lower, Point{Date: date, Value: estimate - margin})
	}

	return ForecastResult{
		Actual:    monthly,
		Predicted: predicted,
		Upper:     upper,
		Lower:     lower,
	}
}

// reindexMonthly places the series onto a continuous month-end axis
// from its first to its last month, linearly interpolating interior
// months that have no observation.
func reindexMonthly(series TimeSeries) ([]time.Time, []float64) {
	if len(series) == 0 {
		return nil, nil
	}

	first := monthEnd(series[0].Date)
	lastIdx := monthsBetween(first, monthEnd(series[len(series)-1].Date))

	axis := make([]time.Time, lastIdx+1)
	values := make([]float64, lastIdx+1)
	known := make([]bool, lastIdx+1)

	for i := range axis {
		axis[i] = monthEndOffset(first, i)
	}
	for _, p := range series {
		i := monthsBetween(first, monthEnd(p.Date))
		if i >= 0 && i < len(values) {
			values[i] = p.Value
			known[i] = true
		}
	}

	// Interpolate interior gaps between known neighbors.
	prev := -1
	for i := range values {
		if !known[i] {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (values[i] - values[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				values[j] = values[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}

	return axis, values
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// monthEndOffset returns the end of the calendar month k months after
// base's month. Month overflow is normalized by time.Date, so stepping
// from a 31-day month never skips a shorter one.
func monthEndOffset(base time.Time, k int) time.Time {
	return time.Date(base.Year(), base.Month()+time.Month(k)+1, 0, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}
