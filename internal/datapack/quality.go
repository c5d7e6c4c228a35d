package datapack

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

const (
	// Freshness tolerance in days: monthly series are expected within
	// 40 days of today, quarterly and annual share the wider window.
	freshnessToleranceMonthly = 40
	freshnessToleranceDefault = 120

	// Fewer period-bearing points than this forces a red verdict.
	minObservationDepth = 3

	// At most this many missing period labels are listed in a
	// limitation; the rest are truncated silently.
	maxMissingListed = 5
)

// evaluateQuality produces the traffic-light verdict for one series:
// status, the named checks, and human-readable limitation strings.
// Entries without a parsed period are dropped entirely, not counted as
// missing.
func evaluateQuality(obs []observation, frequency string, today time.Time) (contracts.QualityStatus, []contracts.QualityCheck, []string) {
	var checks []contracts.QualityCheck
	var limitations []string

	ordered := make([]observation, 0, len(obs))
	for _, o := range obs {
		if o.period != nil {
			ordered = append(ordered, o)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].period.Before(*ordered[j].period)
	})

	if len(ordered) == 0 {
		return contracts.StatusRed,
			[]contracts.QualityCheck{{Name: "availability", OK: false, Detail: "No observations available."}},
			[]string{"No observations available."}
	}

	latestPeriod := *ordered[len(ordered)-1].period
	tolerance := freshnessToleranceDefault
	if frequency == "M" {
		tolerance = freshnessToleranceMonthly
	}
	ageDays := int(today.Sub(latestPeriod).Hours() / 24)
	isFresh := ageDays <= tolerance

	freshLabel := "fresh"
	if !isFresh {
		freshLabel = "stale"
	}
	checks = append(checks, contracts.QualityCheck{
		Name:   "freshness",
		OK:     isFresh,
		Detail: fmt.Sprintf("Latest period %s (%s)", latestPeriod.Format("2006-01-02"), freshLabel),
	})
	if !isFresh {
		limitations = append(limitations, "Latest data is older than expected cadence.")
	}

	var missing []string
	for _, o := range ordered {
		if o.value == nil {
			missing = append(missing, o.period.Format("2006-01-02"))
		}
	}
	checks = append(checks, contracts.QualityCheck{
		Name:   "missing_values",
		OK:     len(missing) == 0,
		Detail: fmt.Sprintf("%d missing points out of %d", len(missing), len(ordered)),
	})
	if len(missing) > 0 {
		listed := missing
		if len(listed) > maxMissingListed {
			listed = listed[:maxMissingListed]
		}
		limitations = append(limitations, "Missing values for "+strings.Join(listed, ", "))
	}

	status := contracts.StatusGreen
	for _, check := range checks {
		if !check.OK {
			status = contracts.StatusAmber
			break
		}
	}

	// Red is the floor whenever the window is too shallow for deltas,
	// regardless of the other checks.
	if len(ordered) < minObservationDepth {
		status = contracts.StatusRed
		limitations = append(limitations, "Insufficient lookback window to compute deltas.")
	}

	return status, checks, limitations
}
