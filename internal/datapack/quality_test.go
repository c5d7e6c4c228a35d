package datapack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

var qualityToday = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestEvaluateQuality_NoObservations(t *testing.T) {
	status, checks, limitations := evaluateQuality(nil, "M", qualityToday)

	assert.Equal(t, contracts.StatusRed, status)
	require.Len(t, checks, 1)
	assert.Equal(t, "availability", checks[0].Name)
	assert.False(t, checks[0].OK)
	assert.Equal(t, []string{"No observations available."}, limitations)
}

func TestEvaluateQuality_OnlyNullPeriodsIsUnavailable(t *testing.T) {
	obs := []observation{
		{label: "bad label", period: nil, value: ptr(1.0)},
		{label: "worse", period: nil, value: nil},
	}

	status, checks, _ := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusRed, status)
	require.Len(t, checks, 1)
	assert.Equal(t, "availability", checks[0].Name)
}

func TestEvaluateQuality_FreshMonthlyIsGreen(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2, 3, 4})

	status, checks, limitations := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusGreen, status)
	require.Len(t, checks, 2)
	assert.Equal(t, "freshness", checks[0].Name)
	assert.True(t, checks[0].OK)
	assert.Equal(t, "Latest period 2025-06-01 (fresh)", checks[0].Detail)
	assert.Equal(t, "missing_values", checks[1].Name)
	assert.True(t, checks[1].OK)
	assert.Empty(t, limitations)
}

func TestEvaluateQuality_StaleMonthlyIsAmber(t *testing.T) {
	// 40-day tolerance for monthly; latest period well beyond it.
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2, 3, 4})

	status, checks, limitations := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusAmber, status)
	assert.False(t, checks[0].OK)
	assert.Equal(t, "Latest period 2025-02-01 (stale)", checks[0].Detail)
	assert.Contains(t, limitations, "Latest data is older than expected cadence.")
}

func TestEvaluateQuality_QuarterlyToleranceIsWider(t *testing.T) {
	// 104 days old: stale for monthly, fresh for quarterly.
	end := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2, 3, 4})

	status, _, _ := evaluateQuality(obs, "Q", qualityToday)
	assert.Equal(t, contracts.StatusGreen, status)

	status, _, _ = evaluateQuality(obs, "M", qualityToday)
	assert.Equal(t, contracts.StatusAmber, status)
}

func TestEvaluateQuality_MissingValues(t *testing.T) {
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2, 3, 4, 5})
	obs[1].value = nil
	obs[3].value = nil

	status, checks, limitations := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusAmber, status)
	assert.False(t, checks[1].OK)
	assert.Equal(t, "2 missing points out of 5", checks[1].Detail)
	assert.Contains(t, limitations, "Missing values for 2025-03-01, 2025-05-01")
}

func TestEvaluateQuality_MissingValueTruncation(t *testing.T) {
	// 7 missing periods: limitation lists exactly the first 5, silently
	// truncated beyond that.
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	for i := 0; i < 7; i++ {
		obs[i].value = nil
	}

	_, _, limitations := evaluateQuality(obs, "M", qualityToday)

	want := "Missing values for 2024-09-01, 2024-10-01, 2024-11-01, 2024-12-01, 2025-01-01"
	assert.Contains(t, limitations, want)
	for _, lim := range limitations {
		assert.NotContains(t, lim, "2025-02-01")
		assert.NotContains(t, lim, "2025-03-01")
	}
}

func TestEvaluateQuality_ShallowWindowIsRedFloor(t *testing.T) {
	// Fresh, no missing values, but fewer than 3 points: red regardless.
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2})

	status, checks, limitations := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusRed, status)
	assert.True(t, checks[0].OK)
	assert.True(t, checks[1].OK)
	assert.Contains(t, limitations, "Insufficient lookback window to compute deltas.")
}

func TestEvaluateQuality_RedFloorOverridesAmber(t *testing.T) {
	// Stale AND shallow: red wins over amber.
	end := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	obs := monthlyObservations(end, []float64{1, 2})

	status, _, limitations := evaluateQuality(obs, "M", qualityToday)

	assert.Equal(t, contracts.StatusRed, status)
	assert.Contains(t, limitations, "Latest data is older than expected cadence.")
	assert.Contains(t, limitations, "Insufficient lookback window to compute deltas.")
}
