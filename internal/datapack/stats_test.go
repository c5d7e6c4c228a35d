package datapack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monthlyObservations builds n observations ending at end, one per
// month, oldest first, with the given values.
func monthlyObservations(end time.Time, values []float64) []observation {
	obs := make([]observation, len(values))
	for i := range values {
		period := end.AddDate(0, -(len(values) - 1 - i), 0)
		v := values[i]
		obs[i] = observation{
			label:  period.Format("2006-01-02"),
			period: ptr(period),
			value:  &v,
		}
	}
	return obs
}

func TestDeriveStats_Empty(t *testing.T) {
	stats := deriveStats(nil, "M")

	assert.Nil(t, stats.LatestPeriod)
	assert.Nil(t, stats.LatestValue)
	assert.Nil(t, stats.MoMChange)
	assert.Nil(t, stats.YoYChange)
	assert.Nil(t, stats.Rolling3MAvg)
	assert.Nil(t, stats.Rolling12M)
	assert.Nil(t, stats.Min)
	assert.Nil(t, stats.Max)
}

func TestDeriveStats_NullEntriesExcluded(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{10, 20, 30})
	obs = append(obs, observation{label: "garbage", period: nil, value: ptr(99.0)})
	obs = append(obs, observation{label: "2025-07-01", period: ptr(end.AddDate(0, 1, 0)), value: nil})

	stats := deriveStats(obs, "M")

	require.NotNil(t, stats.LatestValue)
	assert.Equal(t, 30.0, *stats.LatestValue)
	assert.Equal(t, "2025-06-01", *stats.LatestPeriod)
}

func TestDeriveStats_Rolling3Boundary(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	stats := deriveStats(monthlyObservations(end, []float64{10, 20, 30}), "M")
	require.NotNil(t, stats.Rolling3MAvg)
	assert.Equal(t, 20.0, *stats.Rolling3MAvg)

	stats = deriveStats(monthlyObservations(end, []float64{20, 30}), "M")
	assert.Nil(t, stats.Rolling3MAvg)
	require.NotNil(t, stats.MoMChange)
	assert.Equal(t, 10.0, *stats.MoMChange)
}

func TestDeriveStats_YoYBoundary(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	// Exactly one full cycle is not enough.
	twelve := make([]float64, 12)
	for i := range twelve {
		twelve[i] = 100 + float64(i)
	}
	stats := deriveStats(monthlyObservations(end, twelve), "M")
	assert.Nil(t, stats.YoYChange)
	require.NotNil(t, stats.Rolling12M)

	// One extra point triggers it: latest minus the value a full cycle back.
	thirteen := make([]float64, 13)
	for i := range thirteen {
		thirteen[i] = 100 + float64(i)
	}
	stats = deriveStats(monthlyObservations(end, thirteen), "M")
	require.NotNil(t, stats.YoYChange)
	assert.Equal(t, thirteen[12]-thirteen[0], *stats.YoYChange)
}

func TestDeriveStats_QuarterlyFrequency(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	values := []float64{1, 2, 3, 4, 5}

	stats := deriveStats(monthlyObservations(end, values), "Q")

	// 5 points > 4 periods per year
	require.NotNil(t, stats.YoYChange)
	assert.Equal(t, 4.0, *stats.YoYChange)
	require.NotNil(t, stats.Rolling12M)
	assert.Equal(t, 3.5, *stats.Rolling12M) // mean of last 4
}

func TestDeriveStats_UnknownFrequencyDefaultsToMonthly(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 13)
	for i := range values {
		values[i] = float64(i)
	}

	stats := deriveStats(monthlyObservations(end, values), "W")

	require.NotNil(t, stats.YoYChange)
	assert.Equal(t, 12.0, *stats.YoYChange)
}

func TestDeriveStats_MinMax(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	stats := deriveStats(monthlyObservations(end, []float64{5.5, -2.25, 9.75}), "M")

	require.NotNil(t, stats.Min)
	require.NotNil(t, stats.Max)
	assert.Equal(t, -2.25, *stats.Min)
	assert.Equal(t, 9.75, *stats.Max)
}

func TestDeriveStats_Rounding(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	stats := deriveStats(monthlyObservations(end, []float64{0.1, 0.2, 0.4}), "M")

	require.NotNil(t, stats.MoMChange)
	assert.Equal(t, 0.2, *stats.MoMChange)
	require.NotNil(t, stats.Rolling3MAvg)
	assert.Equal(t, 0.2333, *stats.Rolling3MAvg)
}

func TestRound4_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.0001, round4(0.00005))
	assert.Equal(t, -0.0001, round4(-0.00005))
	assert.Equal(t, 1.2346, round4(1.23456))
}

func TestPeriodsPerYear(t *testing.T) {
	assert.Equal(t, 12, periodsPerYear("M"))
	assert.Equal(t, 4, periodsPerYear("Q"))
	assert.Equal(t, 1, periodsPerYear("A"))
	assert.Equal(t, 12, periodsPerYear("W"))
	assert.Equal(t, 12, periodsPerYear(""))
}
