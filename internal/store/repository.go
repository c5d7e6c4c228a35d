package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

// Repository reads stored provider observations. It implements
// contracts.ObservationStore over the per-provider series tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new observation store repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Fetch returns up to limit observations for the given provider
// identity, most recent period label first. Unsupported providers yield
// an empty result rather than an error; the pack builder has already
// rejected them by this point.
func (r *Repository) Fetch(ctx context.Context, identity contracts.ProviderIdentity, limit int) ([]contracts.RawObservation, error) {
	switch identity.Provider {
	case contracts.ProviderONS:
		return r.fetchONS(ctx, identity, limit)
	case contracts.ProviderOECD:
		return r.fetchOECD(ctx, identity, limit)
	default:
		return nil, nil
	}
}

func (r *Repository) fetchONS(ctx context.Context, identity contracts.ProviderIdentity, limit int) ([]contracts.RawObservation, error) {
	query := `
		SELECT period_label, value
		FROM ons_economic_series
		WHERE series_id = $1
	`
	args := []interface{}{identity.SeriesID}

	if identity.DatasetID != "" {
		args = append(args, identity.DatasetID)
		query += fmt.Sprintf(" AND dataset_id = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY period_label DESC LIMIT $%d", len(args))

	return r.queryObservations(ctx, query, args...)
}

func (r *Repository) fetchOECD(ctx context.Context, identity contracts.ProviderIdentity, limit int) ([]contracts.RawObservation, error) {
	query := `
		SELECT period_label, value
		FROM oecd_economic_series
		WHERE dataset_code = $1
		  AND location = $2
		  AND COALESCE(subject, '') = COALESCE($3, '')
		  AND COALESCE(measure, '') = COALESCE($4, '')
		  AND COALESCE(frequency, '') = COALESCE($5, '')
		ORDER BY period_label DESC
		LIMIT $6
	`

	return r.queryObservations(ctx, query,
		identity.DatasetCode, identity.Location, identity.Subject,
		identity.Measure, identity.Frequency, limit,
	)
}

func (r *Repository) queryObservations(ctx context.Context, query string, args ...interface{}) ([]contracts.RawObservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []contracts.RawObservation
	for rows.Next() {
		var periodLabel string
		var value *float64
		if err := rows.Scan(&periodLabel, &value); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs := contracts.RawObservation{PeriodLabel: periodLabel}
		if value != nil {
			obs.Value = *value
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}
