package contracts

import "context"

// SeriesResolver maps a caller-supplied (source, source_series_id) pair
// to a registry configuration. A nil config with nil error means the
// series is not configured.
type SeriesResolver interface {
	Resolve(ctx context.Context, source, sourceSeriesID string) (*SeriesConfig, error)
}

// ObservationStore returns stored raw observations for a provider
// identity, capped at limit. Order is unspecified; the pack builder
// re-sorts by parsed period.
type ObservationStore interface {
	Fetch(ctx context.Context, identity ProviderIdentity, limit int) ([]RawObservation, error)
}

// PackBuilder assembles a data pack for a topic and series selections.
type PackBuilder interface {
	Build(ctx context.Context, topic string, selections []SeriesSelection, opts PackOptions) (*DataPack, error)
}
