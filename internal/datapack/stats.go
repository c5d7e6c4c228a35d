package datapack

import (
	"math"
	"sort"
	"time"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

// frequencyToPeriods maps a frequency code to periods per year.
var frequencyToPeriods = map[string]int{
	"M": 12,
	"Q": 4,
	"A": 1,
}

// observation is one parsed observation. Either field may be nil: a nil
// period excludes the entry from everything, a nil value excludes it
// from statistics but counts toward missing-value checks.
type observation struct {
	label  string
	period *time.Time
	value  *float64
}

// periodsPerYear returns the number of periods in a year for the given
// frequency, defaulting to monthly for unrecognized codes.
func periodsPerYear(frequency string) int {
	if n, ok := frequencyToPeriods[frequency]; ok {
		return n
	}
	return 12
}

// round4 rounds to 4 decimal places, half away from zero.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// deriveStats computes derived statistics over the observations that
// carry both a period and a value, ordered by ascending period. Fields
// whose minimum point count is not met stay nil.
func deriveStats(obs []observation, frequency string) contracts.DerivedStats {
	ordered := make([]observation, 0, len(obs))
	for _, o := range obs {
		if o.period != nil && o.value != nil {
			ordered = append(ordered, o)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].period.Before(*ordered[j].period)
	})

	var stats contracts.DerivedStats
	if len(ordered) == 0 {
		return stats
	}

	latest := ordered[len(ordered)-1]
	latestPeriod := latest.period.Format("2006-01-02")
	latestValue := *latest.value
	stats.LatestPeriod = &latestPeriod
	stats.LatestValue = &latestValue

	if len(ordered) >= 2 {
		mom := round4(latestValue - *ordered[len(ordered)-2].value)
		stats.MoMChange = &mom
	}

	// YoY needs one point beyond a full cycle: exactly periodsPerYear
	// points is not enough.
	ppy := periodsPerYear(frequency)
	if len(ordered) > ppy {
		yoy := round4(latestValue - *ordered[len(ordered)-1-ppy].value)
		stats.YoYChange = &yoy
	}

	if len(ordered) >= 3 {
		avg := round4(meanOfLast(ordered, 3))
		stats.Rolling3MAvg = &avg
	}

	if len(ordered) >= ppy {
		avg := round4(meanOfLast(ordered, ppy))
		stats.Rolling12M = &avg
	}

	minValue, maxValue := *ordered[0].value, *ordered[0].value
	for _, o := range ordered[1:] {
		if *o.value < minValue {
			minValue = *o.value
		}
		if *o.value > maxValue {
			maxValue = *o.value
		}
	}
	stats.Min = &minValue
	stats.Max = &maxValue

	return stats
}

// meanOfLast averages the trailing n values of an ordered sequence.
func meanOfLast(ordered []observation, n int) float64 {
	window := ordered[len(ordered)-n:]
	sum := 0.0
	for _, o := range window {
		sum += *o.value
	}
	return sum / float64(len(window))
}
