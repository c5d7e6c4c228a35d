package datapack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/briefkit/econdata/backend/internal/contracts"
	"github.com/briefkit/econdata/backend/pkg/logger"
)

const (
	defaultLookbackPeriods = 24
	defaultAsOf            = "latest"

	// The fetch limit carries a +4 buffer over the lookback window, with
	// a floor of 12, so rolling and year-over-year figures have enough
	// trailing history even for small windows.
	fetchBuffer   = 4
	minFetchLimit = 12
)

// Builder assembles data packs from the series registry and the
// observation store. It is the sole public surface of the pack core.
type Builder struct {
	resolver contracts.SeriesResolver
	store    contracts.ObservationStore
	logger   *logger.Logger
	now      func() time.Time
}

// NewBuilder creates a pack builder.
func NewBuilder(resolver contracts.SeriesResolver, store contracts.ObservationStore, log *logger.Logger) *Builder {
	return &Builder{
		resolver: resolver,
		store:    store,
		logger:   log.WithField("module", "datapack"),
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests use it to freeze pulled_at
// and the freshness evaluation.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// seriesResult carries one selection's outcome, index-tagged by the
// worker pool so output order always matches selection order.
type seriesResult struct {
	payload     *contracts.SeriesPayload
	limitations []string
	err         error
}

// Build assembles a data pack for the topic and selections. Unconfigured
// or unsupported selections become pack limitations, never errors; only
// infrastructure failures (registry or store I/O) abort the build.
func (b *Builder) Build(ctx context.Context, topic string, selections []contracts.SeriesSelection, opts contracts.PackOptions) (*contracts.DataPack, error) {
	lookback := opts.LookbackPeriods
	if lookback <= 0 {
		lookback = defaultLookbackPeriods
	}
	asOf := opts.AsOf
	if asOf == "" {
		asOf = defaultAsOf
	}

	results := make([]seriesResult, len(selections))

	workers := opts.Workers
	if workers > len(selections) {
		workers = len(selections)
	}
	if workers <= 1 {
		for i, sel := range selections {
			results[i] = b.buildSeries(ctx, sel, lookback)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = b.buildSeries(ctx, selections[i], lookback)
				}
			}()
		}
		for i := range selections {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	payloads := make([]contracts.SeriesPayload, 0, len(selections))
	limitations := make([]string, 0)
	for _, result := range results {
		if result.err != nil {
			return nil, result.err
		}
		limitations = append(limitations, result.limitations...)
		if result.payload != nil {
			payloads = append(payloads, *result.payload)
		}
	}

	aggregate := aggregateStatus(payloads)

	hash, err := hashPack(topic, payloads)
	if err != nil {
		return nil, fmt.Errorf("hash data pack: %w", err)
	}

	pack := &contracts.DataPack{
		Topic:           topic,
		AsOf:            asOf,
		LookbackPeriods: lookback,
		Series:          payloads,
		Quality: contracts.PackQuality{
			Status: aggregate,
			Checks: []contracts.QualityCheck{
				{
					Name:   "coverage",
					OK:     len(payloads) > 0,
					Detail: fmt.Sprintf("%d series included.", len(payloads)),
				},
			},
		},
		DataLimitations: limitations,
		DataPackHash:    hash,
	}

	b.logger.WithFields(map[string]interface{}{
		"topic":    topic,
		"series":   len(payloads),
		"status":   aggregate,
		"lookback": lookback,
	}).Debug("Data pack assembled")

	return pack, nil
}

// buildSeries resolves, fetches and computes one selection.
func (b *Builder) buildSeries(ctx context.Context, sel contracts.SeriesSelection, lookback int) seriesResult {
	cfg, err := b.resolver.Resolve(ctx, sel.Source, sel.SourceSeriesID)
	if err != nil {
		return seriesResult{err: fmt.Errorf("resolve series %s:%s: %w", sel.Source, sel.SourceSeriesID, err)}
	}
	if cfg == nil {
		return seriesResult{limitations: []string{
			fmt.Sprintf("Series %s:%s not configured.", sel.Source, sel.SourceSeriesID),
		}}
	}

	if cfg.Provider != contracts.ProviderONS && cfg.Provider != contracts.ProviderOECD {
		return seriesResult{limitations: []string{
			fmt.Sprintf("Provider %s not supported in data pack.", cfg.Provider),
		}}
	}

	frequency := determineFrequency(cfg)
	limit := lookback + fetchBuffer
	if limit < minFetchLimit {
		limit = minFetchLimit
	}

	identity := cfg.Identity
	if sel.DatasetID != "" && cfg.Provider == contracts.ProviderONS {
		identity.DatasetID = sel.DatasetID
	}

	rows, err := b.store.Fetch(ctx, identity, limit)
	if err != nil {
		return seriesResult{err: fmt.Errorf("fetch observations for %s:%s: %w", sel.Source, sel.SourceSeriesID, err)}
	}

	observations := make([]observation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, observation{
			label:  row.PeriodLabel,
			period: ParsePeriod(row.PeriodLabel),
			value:  coerceValue(row.Value),
		})
	}

	derived := deriveStats(observations, frequency)
	status, checks, seriesLimits := evaluateQuality(observations, frequency, b.now().UTC())

	seriesKey := sel.Alias
	if seriesKey == "" {
		seriesKey = cfg.Slug
	}
	seriesID := cfg.Identity.SeriesID
	if seriesID == "" {
		seriesID = cfg.Slug
	}
	name := cfg.Description
	if name == "" {
		name = cfg.Slug
	}

	var ingestedAt *string
	if cfg.UpdatedAt != nil {
		formatted := cfg.UpdatedAt.UTC().Format(time.RFC3339)
		ingestedAt = &formatted
	}

	// Entries without a parsed period are excluded; the first lookback
	// surviving entries keep the fetched order.
	display := make([]contracts.PackObservation, 0, lookback)
	for _, o := range observations {
		if o.period == nil {
			continue
		}
		display = append(display, contracts.PackObservation{
			PeriodStart: o.period.Format("2006-01-02"),
			Value:       o.value,
		})
		if len(display) == lookback {
			break
		}
	}

	payload := &contracts.SeriesPayload{
		SeriesKey:      seriesKey,
		SeriesID:       seriesID,
		Source:         string(cfg.Provider),
		SourceSeriesID: sel.SourceSeriesID,
		Name:           name,
		Unit:           cfg.Unit,
		Frequency:      frequency,
		LatestPeriod:   derived.LatestPeriod,
		Observations:   display,
		Derived:        derived,
		Provenance: contracts.Provenance{
			PulledAt:   b.now().UTC().Format(time.RFC3339),
			IngestedAt: ingestedAt,
		},
		QualityStatus: status,
		QualityChecks: checks,
	}

	return seriesResult{payload: payload, limitations: seriesLimits}
}

// aggregateStatus folds per-series verdicts into the pack verdict: red
// wins over amber wins over green. An empty payload list stays green.
func aggregateStatus(payloads []contracts.SeriesPayload) contracts.QualityStatus {
	status := contracts.StatusGreen
	for _, payload := range payloads {
		if payload.QualityStatus == contracts.StatusRed {
			return contracts.StatusRed
		}
		if payload.QualityStatus == contracts.StatusAmber {
			status = contracts.StatusAmber
		}
	}
	return status
}

// determineFrequency reads the frequency from the config, falling back
// to the metadata block and then to monthly.
func determineFrequency(cfg *contracts.SeriesConfig) string {
	if cfg.Frequency != "" {
		return strings.ToUpper(cfg.Frequency)
	}
	if cfg.Metadata != nil {
		if raw, ok := cfg.Metadata["frequency"].(string); ok && raw != "" {
			return strings.ToUpper(raw)
		}
	}
	return "M"
}

// coerceValue converts a stored observation value to a float, returning
// nil for absent or malformed values. It never panics.
func coerceValue(raw interface{}) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return &v
	case float32:
		f := float64(v)
		return &f
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &f
	case *float64:
		return v
	default:
		return nil
	}
}
