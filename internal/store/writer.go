package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ONSRecord is one DB-ready ONS observation.
type ONSRecord struct {
	DatasetID   string
	SeriesID    string
	Title       string
	PeriodLabel string
	Value       *float64
	Unit        string
	Measure     string
	Dimension   string
	Metadata    map[string]interface{}
}

// OECDRecord is one DB-ready OECD observation.
type OECDRecord struct {
	DatasetCode string
	Location    string
	Subject     string
	Measure     string
	Frequency   string
	PeriodLabel string
	Value       *float64
	Unit        string
	Metadata    map[string]interface{}
}

// Writer persists fetched provider observations. Upserts keep one row
// per period, so re-ingesting a series is idempotent.
type Writer struct {
	pool *pgxpool.Pool
}

// NewWriter creates a new observation writer.
func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// SaveONS upserts a batch of ONS observations. Returns the number of
// rows written.
func (w *Writer) SaveONS(ctx context.Context, records []ONSRecord) (int, error) {
	query := `
		INSERT INTO ons_economic_series
			(dataset_id, series_id, title, period_label, value, unit, measure, dimension, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dataset_id, series_id, period_label) DO UPDATE SET
			title = EXCLUDED.title,
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			measure = EXCLUDED.measure,
			dimension = EXCLUDED.dimension,
			metadata = EXCLUDED.metadata
	`

	written := 0
	for _, rec := range records {
		_, err := w.pool.Exec(ctx, query,
			rec.DatasetID, rec.SeriesID, rec.Title, rec.PeriodLabel,
			rec.Value, rec.Unit, rec.Measure, rec.Dimension, rec.Metadata,
		)
		if err != nil {
			return written, fmt.Errorf("upsert ons observation %s/%s %s: %w",
				rec.DatasetID, rec.SeriesID, rec.PeriodLabel, err)
		}
		written++
	}
	return written, nil
}

// SaveOECD upserts a batch of OECD observations. Returns the number of
// rows written.
func (w *Writer) SaveOECD(ctx context.Context, records []OECDRecord) (int, error) {
	query := `
		INSERT INTO oecd_economic_series
			(dataset_code, location, subject, measure, frequency, period_label, value, unit, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dataset_code, location, subject, measure, frequency, period_label) DO UPDATE SET
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			metadata = EXCLUDED.metadata
	`

	written := 0
	for _, rec := range records {
		_, err := w.pool.Exec(ctx, query,
			rec.DatasetCode, rec.Location, rec.Subject, rec.Measure,
			rec.Frequency, rec.PeriodLabel, rec.Value, rec.Unit, rec.Metadata,
		)
		if err != nil {
			return written, fmt.Errorf("upsert oecd observation %s/%s %s: %w",
				rec.DatasetCode, rec.Subject, rec.PeriodLabel, err)
		}
		written++
	}
	return written, nil
}
