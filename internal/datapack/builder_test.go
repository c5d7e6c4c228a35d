package datapack

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

var frozenNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeResolver struct {
	configs map[string]*contracts.SeriesConfig
}

func (f *fakeResolver) Resolve(ctx context.Context, source, sourceSeriesID string) (*contracts.SeriesConfig, error) {
	return f.configs[source+":"+sourceSeriesID], nil
}

type fakeStore struct {
	rows map[string][]contracts.RawObservation
}

func (f *fakeStore) Fetch(ctx context.Context, identity contracts.ProviderIdentity, limit int) ([]contracts.RawObservation, error) {
	key := identity.SeriesID
	if identity.Provider == contracts.ProviderOECD {
		key = identity.Subject
	}
	rows := f.rows[key]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// monthlyRows builds n raw observations most-recent-first ending at the
// month containing frozenNow, mirroring store fetch order.
func monthlyRows(n int, valueAt func(i int) interface{}) []contracts.RawObservation {
	latest := time.Date(frozenNow.Year(), frozenNow.Month(), 1, 0, 0, 0, 0, time.UTC)
	rows := make([]contracts.RawObservation, n)
	for i := 0; i < n; i++ {
		rows[i] = contracts.RawObservation{
			PeriodLabel: latest.AddDate(0, -i, 0).Format("2006-01-02"),
			Value:       valueAt(i),
		}
	}
	return rows
}

func monthlyConfig(slug, seriesID string) *contracts.SeriesConfig {
	return &contracts.SeriesConfig{
		Slug:     slug,
		Provider: contracts.ProviderONS,
		Identity: contracts.ProviderIdentity{
			Provider:  contracts.ProviderONS,
			DatasetID: "mm23",
			SeriesID:  seriesID,
		},
		Frequency:   "M",
		Unit:        "index",
		Description: "Consumer price index",
	}
}

func newTestBuilder(resolver contracts.SeriesResolver, store contracts.ObservationStore) *Builder {
	return NewBuilder(resolver, store, logger.NewNop()).WithClock(func() time.Time { return frozenNow })
}

func TestBuild_EndToEndGreen(t *testing.T) {
	// 14 fresh monthly points, increasing, no nulls.
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"L522": monthlyRows(14, func(i int) interface{} { return 101.2 - float64(i)*0.2 }),
	}}

	builder := newTestBuilder(resolver, store)
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522"}},
		contracts.PackOptions{LookbackPeriods: 24},
	)
	require.NoError(t, err)
	require.Len(t, pack.Series, 1)

	series := pack.Series[0]
	assert.Equal(t, "cpih-annual-rate", series.SeriesKey)
	assert.Equal(t, "L522", series.SeriesID)
	assert.Equal(t, "ONS", series.Source)
	assert.Equal(t, "M", series.Frequency)
	assert.Equal(t, contracts.StatusGreen, series.QualityStatus)

	require.NotNil(t, series.Derived.MoMChange)
	assert.Equal(t, 0.2, *series.Derived.MoMChange)

	// 14 points > 12: YoY present, latest minus the point 12 back.
	require.NotNil(t, series.Derived.YoYChange)
	assert.Equal(t, 2.4, *series.Derived.YoYChange)
	require.NotNil(t, series.Derived.Rolling12M)

	assert.Equal(t, contracts.StatusGreen, pack.Quality.Status)
	assert.Empty(t, pack.DataLimitations)
	assert.Len(t, pack.DataPackHash, 64)
}

func TestBuild_DefaultsApplied(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{}}
	builder := newTestBuilder(resolver, &fakeStore{})

	pack, err := builder.Build(context.Background(), "inflation", nil, contracts.PackOptions{})
	require.NoError(t, err)

	assert.Equal(t, "latest", pack.AsOf)
	assert.Equal(t, 24, pack.LookbackPeriods)
}

func TestBuild_UnconfiguredSeriesSkipped(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"L522": monthlyRows(6, func(i int) interface{} { return 100.0 }),
	}}

	builder := newTestBuilder(resolver, store)
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{
			{Source: "ONS", SourceSeriesID: "NOPE"},
			{Source: "ONS", SourceSeriesID: "L522"},
		},
		contracts.PackOptions{LookbackPeriods: 6},
	)
	require.NoError(t, err)

	require.Len(t, pack.Series, 1)
	assert.Equal(t, "L522", pack.Series[0].SeriesID)
	assert.Contains(t, pack.DataLimitations, "Series ONS:NOPE not configured.")
}

func TestBuild_UnsupportedProviderSkipped(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"IMF:X1": {
			Slug:     "imf-series",
			Provider: "IMF",
			Identity: contracts.ProviderIdentity{Provider: "IMF", SeriesID: "X1"},
		},
	}}

	builder := newTestBuilder(resolver, &fakeStore{})
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{{Source: "IMF", SourceSeriesID: "X1"}},
		contracts.PackOptions{},
	)
	require.NoError(t, err)

	assert.Empty(t, pack.Series)
	assert.Contains(t, pack.DataLimitations, "Provider IMF not supported in data pack.")
}

func TestBuild_EmptyFetchStillIncluded(t *testing.T) {
	// A resolved series with zero stored observations is included red,
	// not skipped.
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}

	builder := newTestBuilder(resolver, &fakeStore{})
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522"}},
		contracts.PackOptions{},
	)
	require.NoError(t, err)

	require.Len(t, pack.Series, 1)
	series := pack.Series[0]
	assert.Equal(t, contracts.StatusRed, series.QualityStatus)
	require.Len(t, series.QualityChecks, 1)
	assert.Equal(t, "availability", series.QualityChecks[0].Name)
	assert.False(t, series.QualityChecks[0].OK)
	assert.Equal(t, contracts.StatusRed, pack.Quality.Status)
}

func TestBuild_EmptySelectionsStaysGreen(t *testing.T) {
	// Asymmetry preserved from the source system: aggregate status is a
	// fold over emitted series, so an empty pack is green even though a
	// single empty-data series would be red.
	builder := newTestBuilder(&fakeResolver{}, &fakeStore{})

	pack, err := builder.Build(context.Background(), "inflation", nil, contracts.PackOptions{})
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusGreen, pack.Quality.Status)
	require.Len(t, pack.Quality.Checks, 1)
	assert.Equal(t, "coverage", pack.Quality.Checks[0].Name)
	assert.False(t, pack.Quality.Checks[0].OK)
}

func TestBuild_AggregateWorstOf(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:GREEN": monthlyConfig("series-green", "GREEN"),
		"ONS:AMBER": monthlyConfig("series-amber", "AMBER"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"GREEN": monthlyRows(6, func(i int) interface{} { return 100.0 + float64(i) }),
		"AMBER": monthlyRows(6, func(i int) interface{} {
			if i == 2 {
				return nil
			}
			return 100.0 + float64(i)
		}),
	}}

	builder := newTestBuilder(resolver, store)
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{
			{Source: "ONS", SourceSeriesID: "GREEN"},
			{Source: "ONS", SourceSeriesID: "AMBER"},
		},
		contracts.PackOptions{LookbackPeriods: 6},
	)
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusGreen, pack.Series[0].QualityStatus)
	assert.Equal(t, contracts.StatusAmber, pack.Series[1].QualityStatus)
	assert.Equal(t, contracts.StatusAmber, pack.Quality.Status)
}

func TestBuild_AliasAndLookbackTruncation(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"L522": monthlyRows(14, func(i int) interface{} { return 100.0 + float64(i) }),
	}}

	builder := newTestBuilder(resolver, store)
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522", Alias: "headline"}},
		contracts.PackOptions{LookbackPeriods: 5},
	)
	require.NoError(t, err)

	series := pack.Series[0]
	assert.Equal(t, "headline", series.SeriesKey)
	// Display list truncated to lookback, in fetched (most recent
	// first) order; stats still use the full fetch buffer.
	require.Len(t, series.Observations, 5)
	latest := time.Date(frozenNow.Year(), frozenNow.Month(), 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, latest.Format("2006-01-02"), series.Observations[0].PeriodStart)
	require.NotNil(t, series.Derived.Rolling12M)
}

func TestBuild_MalformedValuesCoerced(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"L522": {
			{PeriodLabel: "2025-06-01", Value: "101.5"},
			{PeriodLabel: "2025-05-01", Value: "n/a"},
			{PeriodLabel: "2025-04-01", Value: 100.5},
			{PeriodLabel: "2025-03-01", Value: nil},
			{PeriodLabel: "not a period", Value: 42.0},
		},
	}}

	builder := newTestBuilder(resolver, store)
	pack, err := builder.Build(context.Background(), "inflation",
		[]contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522"}},
		contracts.PackOptions{LookbackPeriods: 12},
	)
	require.NoError(t, err)

	series := pack.Series[0]
	require.NotNil(t, series.Derived.LatestValue)
	assert.Equal(t, 101.5, *series.Derived.LatestValue)

	// Unparseable period dropped from the display list; null values kept.
	require.Len(t, series.Observations, 4)
	assert.Nil(t, series.Observations[1].Value)

	// 4 period-bearing entries, 2 with missing values.
	assert.Equal(t, contracts.StatusAmber, series.QualityStatus)
	assert.Contains(t, pack.DataLimitations, "Missing values for 2025-03-01, 2025-05-01")
}

func TestBuild_WorkersPreserveSelectionOrder(t *testing.T) {
	configs := map[string]*contracts.SeriesConfig{}
	rows := map[string][]contracts.RawObservation{}
	selections := make([]contracts.SeriesSelection, 8)
	for i := range selections {
		id := fmt.Sprintf("S%02d", i)
		configs["ONS:"+id] = monthlyConfig("slug-"+id, id)
		rows[id] = monthlyRows(6, func(j int) interface{} { return float64(i*10 + j) })
		selections[i] = contracts.SeriesSelection{Source: "ONS", SourceSeriesID: id}
	}

	builder := newTestBuilder(&fakeResolver{configs: configs}, &fakeStore{rows: rows})
	pack, err := builder.Build(context.Background(), "labour-market", selections,
		contracts.PackOptions{LookbackPeriods: 6, Workers: 4})
	require.NoError(t, err)

	require.Len(t, pack.Series, 8)
	for i, series := range pack.Series {
		assert.Equal(t, fmt.Sprintf("S%02d", i), series.SeriesID)
	}
}

func TestBuild_HashDeterministicAndPulledAtExcluded(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	store := &fakeStore{rows: map[string][]contracts.RawObservation{
		"L522": monthlyRows(14, func(i int) interface{} { return 100.0 + float64(i) }),
	}}
	selections := []contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522"}}

	first, err := newTestBuilder(resolver, store).
		Build(context.Background(), "inflation", selections, contracts.PackOptions{})
	require.NoError(t, err)

	// Same day, different wall-clock time: pulled_at differs, hash must not.
	laterBuilder := NewBuilder(resolver, store, logger.NewNop()).
		WithClock(func() time.Time { return frozenNow.Add(97 * time.Minute) })
	second, err := laterBuilder.Build(context.Background(), "inflation", selections, contracts.PackOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.Series[0].Provenance.PulledAt, second.Series[0].Provenance.PulledAt)
	assert.Equal(t, first.DataPackHash, second.DataPackHash)
}

func TestBuild_HashSensitivity(t *testing.T) {
	resolver := &fakeResolver{configs: map[string]*contracts.SeriesConfig{
		"ONS:L522": monthlyConfig("cpih-annual-rate", "L522"),
	}}
	baseRows := monthlyRows(14, func(i int) interface{} { return 100.0 + float64(i) })
	selections := []contracts.SeriesSelection{{Source: "ONS", SourceSeriesID: "L522"}}

	base, err := newTestBuilder(resolver, &fakeStore{rows: map[string][]contracts.RawObservation{"L522": baseRows}}).
		Build(context.Background(), "inflation", selections, contracts.PackOptions{})
	require.NoError(t, err)

	// Changing one observation value changes the hash.
	changedRows := monthlyRows(14, func(i int) interface{} { return 100.0 + float64(i) })
	changedRows[7].Value = 999.9
	changed, err := newTestBuilder(resolver, &fakeStore{rows: map[string][]contracts.RawObservation{"L522": changedRows}}).
		Build(context.Background(), "inflation", selections, contracts.PackOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, base.DataPackHash, changed.DataPackHash)

	// Changing the topic changes the hash.
	otherTopic, err := newTestBuilder(resolver, &fakeStore{rows: map[string][]contracts.RawObservation{"L522": baseRows}}).
		Build(context.Background(), "growth", selections, contracts.PackOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, base.DataPackHash, otherTopic.DataPackHash)

	// Changing only as_of does not.
	asOf, err := newTestBuilder(resolver, &fakeStore{rows: map[string][]contracts.RawObservation{"L522": baseRows}}).
		Build(context.Background(), "inflation", selections, contracts.PackOptions{AsOf: "2025-05-31"})
	require.NoError(t, err)
	assert.Equal(t, base.DataPackHash, asOf.DataPackHash)
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"nil", nil, nil},
		{"float64", 1.5, ptr(1.5)},
		{"int", 7, ptr(7.0)},
		{"int64", int64(-3), ptr(-3.0)},
		{"numeric string", "101.25", ptr(101.25)},
		{"padded string", "  2.5 ", ptr(2.5)},
		{"empty string", "", nil},
		{"garbage string", "n/a", nil},
		{"bool", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceValue(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}
