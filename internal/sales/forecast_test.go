package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthlySeries builds n gapless month-end points starting January 2022
// with values from the given function.
func monthlySeries(n int, value func(i int) float64) TimeSeries {
	series := make(TimeSeries, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, Point{
			Date:  time.Date(2022, time.Month(i)+2, 0, 0, 0, 0, 0, time.UTC),
			Value: value(i),
		})
	}
	return series
}

func TestForecastInsufficientHistory(t *testing.T) {
	series := monthlySeries(MinForecastSamples-1, func(i int) float64 {
		return float64(100 + 10*i)
	})

	result := Forecast(series, 3)

	assert.True(t, result.Insufficient)
	assert.Equal(t, series, result.Actual)
	assert.Empty(t, result.Predicted)
	assert.Empty(t, result.Upper)
	assert.Empty(t, result.Lower)
}

func TestForecastDegenerateInput(t *testing.T) {
	t.Run("zero variance", func(t *testing.T) {
		series := monthlySeries(12, func(int) float64 { return 500 })
		result := Forecast(series, 3)
		assert.True(t, result.Insufficient)
		assert.Equal(t, series, result.Actual)
	})

	t.Run("zero horizon", func(t *testing.T) {
		series := monthlySeries(12, func(i int) float64 { return float64(i) })
		result := Forecast(series, 0)
		assert.True(t, result.Insufficient)
	})
}

func TestForecastLinearTrend(t *testing.T) {
	const horizon = 3
	series := monthlySeries(12, func(i int) float64 {
		return float64(100 + 10*i)
	})

	result := Forecast(series, horizon)
	require.False(t, result.Insufficient)

	assert.Equal(t, series, result.Actual)
	require.Len(t, result.Predicted, len(series)+horizon)
	require.Len(t, result.Upper, len(series)+horizon)
	require.Len(t, result.Lower, len(series)+horizon)

	// A perfectly linear signal is recovered exactly by the trend fit.
	for i, p := range result.Predicted {
		assert.InDelta(t, 100+10*i, p.Value, 1e-6, "index %d", i)
	}

	// The future axis continues month by month with no gaps.
	last := series[len(series)-1].Date
	for k := 1; k <= horizon; k++ {
		got := result.Predicted[len(series)+k-1].Date
		want := time.Date(last.Year(), last.Month()+time.Month(k)+1, 0, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, want, got)
	}
}

func TestForecastBandsContainEstimate(t *testing.T) {
	series := monthlySeries(18, func(i int) float64 {
		// Noisy upward trend, deterministic.
		noise := []float64{3, -5, 8, -2, 0, 6, -7, 4, -1, 2}[i%10]
		return 200 + 15*float64(i) + noise
	})

	result := Forecast(series, 6)
	require.False(t, result.Insufficient)

	for i := range result.Predicted {
		assert.LessOrEqual(t, result.Lower[i].Value, result.Predicted[i].Value, "index %d", i)
		assert.GreaterOrEqual(t, result.Upper[i].Value, result.Predicted[i].Value, "index %d", i)
		assert.Equal(t, result.Predicted[i].Date, result.Upper[i].Date)
		assert.Equal(t, result.Predicted[i].Date, result.Lower[i].Date)
	}

	// Bands widen as the forecast leaves the historical axis.
	firstFuture := len(series)
	width := func(i int) float64 { return result.Upper[i].Value - result.Lower[i].Value }
	assert.Greater(t, width(firstFuture), width(firstFuture-1))
	assert.Greater(t, width(len(result.Upper)-1), width(firstFuture))
}

func TestForecastFillsInteriorGaps(t *testing.T) {
	// Eight observed months with March and April missing.
	series := TimeSeries{
		{Date: date(2023, 1, 31), Value: 100},
		{Date: date(2023, 2, 28), Value: 110},
		{Date: date(2023, 5, 31), Value: 140},
		{Date: date(2023, 6, 30), Value: 150},
		{Date: date(2023, 7, 31), Value: 160},
		{Date: date(2023, 8, 31), Value: 170},
		{Date: date(2023, 9, 30), Value: 180},
		{Date: date(2023, 10, 31), Value: 190},
	}

	result := Forecast(series, 2)
	require.False(t, result.Insufficient)

	// The predicted axis covers all 10 historical months plus horizon.
	require.Len(t, result.Predicted, 12)
	assert.Equal(t, date(2023, 3, 31), result.Predicted[2].Date)
	assert.Equal(t, date(2023, 4, 30), result.Predicted[3].Date)
	assert.Equal(t, date(2023, 12, 31), result.Predicted[11].Date)
}

func TestForecastDeterministic(t *testing.T) {
	series := monthlySeries(24, func(i int) float64 {
		return 300 + 5*float64(i) + 20*float64(i%12)
	})

	first := Forecast(series, 4)
	second := Forecast(series, 4)
	assert.Equal(t, first, second)
}

func TestForecastSeasonalComponent(t *testing.T) {
	// Three full years with a strong December bump.
	series := monthlySeries(36, func(i int) float64 {
		v := 1000 + 2*float64(i)
		if (i+1)%12 == 0 {
			v += 400
		}
		return v
	})

	result := Forecast(series, 12)
	require.False(t, result.Insufficient)

	// The forecast December should sit well above its neighbors.
	var december, november float64
	for _, p := range result.Predicted[len(series):] {
		switch p.Date.Month() {
		case time.December:
			december = p.Value
		case time.November:
			november = p.Value
		}
	}
	assert.Greater(t, december, november+200)
}
