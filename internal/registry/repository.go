package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

// Repository looks up series configurations in the
// economic_data_sources table. It implements contracts.SeriesResolver.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new registry repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// row mirrors the nullable columns of economic_data_sources.
type row struct {
	Slug        string
	Provider    string
	DatasetID   *string
	DatasetCode *string
	SeriesID    *string
	Location    *string
	Subject     *string
	Measure     *string
	Frequency   *string
	Unit        *string
	TimeFilter  *string
	Description *string
	Metadata    map[string]interface{}
	UpdatedAt   *time.Time
}

const configColumns = `
	slug, provider, dataset_id, dataset_code, series_id, location,
	subject, measure, frequency, unit, time_filter, description,
	metadata, updated_at
`

func scanConfig(r pgx.Row) (*contracts.SeriesConfig, error) {
	var rec row
	err := r.Scan(
		&rec.Slug, &rec.Provider, &rec.DatasetID, &rec.DatasetCode,
		&rec.SeriesID, &rec.Location, &rec.Subject, &rec.Measure,
		&rec.Frequency, &rec.Unit, &rec.TimeFilter, &rec.Description,
		&rec.Metadata, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec.toConfig(), nil
}

// toConfig resolves the raw record into the uniform internal shape with
// the provider-tagged identity filled in once, here.
func (r row) toConfig() *contracts.SeriesConfig {
	provider := contracts.Provider(strings.ToUpper(r.Provider))

	cfg := &contracts.SeriesConfig{
		Slug:        r.Slug,
		Provider:    provider,
		Frequency:   deref(r.Frequency),
		Unit:        deref(r.Unit),
		Description: deref(r.Description),
		TimeFilter:  deref(r.TimeFilter),
		Metadata:    r.Metadata,
		UpdatedAt:   r.UpdatedAt,
	}

	identity := contracts.ProviderIdentity{Provider: provider}
	switch provider {
	case contracts.ProviderONS:
		identity.DatasetID = deref(r.DatasetID)
		if identity.DatasetID == "" {
			identity.DatasetID = deref(r.DatasetCode)
		}
		identity.SeriesID = deref(r.SeriesID)
	case contracts.ProviderOECD:
		identity.DatasetCode = deref(r.DatasetCode)
		identity.Location = deref(r.Location)
		identity.Subject = deref(r.Subject)
		identity.Measure = deref(r.Measure)
		identity.Frequency = deref(r.Frequency)
	}
	cfg.Identity = identity

	return cfg
}

// Resolve maps a (source, source_series_id) pair to an enabled series
// configuration. Returns (nil, nil) when nothing is configured.
func (repo *Repository) Resolve(ctx context.Context, source, sourceSeriesID string) (*contracts.SeriesConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM economic_data_sources
		WHERE enabled = TRUE
		  AND provider = $1
		  AND (
			(provider = 'ONS' AND series_id = $2) OR
			(provider = 'OECD' AND subject = $2)
		  )
		LIMIT 1
	`

	cfg, err := scanConfig(repo.pool.QueryRow(ctx, query, strings.ToUpper(source), sourceSeriesID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query series config %s:%s: %w", source, sourceSeriesID, err)
	}
	return cfg, nil
}

// GetBySlug returns an enabled configuration by slug, or (nil, nil).
func (repo *Repository) GetBySlug(ctx context.Context, slug string) (*contracts.SeriesConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM economic_data_sources
		WHERE enabled = TRUE AND slug = $1
		LIMIT 1
	`

	cfg, err := scanConfig(repo.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query series config by slug %s: %w", slug, err)
	}
	return cfg, nil
}

// Search lists enabled configurations filtered by topic and/or a
// case-insensitive text query over slug and description.
func (repo *Repository) Search(ctx context.Context, topic, queryText string, limit int) ([]*contracts.SeriesConfig, error) {
	if limit <= 0 {
		limit = 25
	}

	query := `
		SELECT ` + configColumns + `
		FROM economic_data_sources
		WHERE enabled = TRUE
	`
	args := []interface{}{}

	if topic != "" {
		args = append(args, topic)
		n := len(args)
		query += fmt.Sprintf(`
			AND (
				LOWER(COALESCE(metadata->>'category', metadata->>'topic')) = LOWER($%d)
				OR LOWER(slug) = LOWER($%d)
			)
		`, n, n)
	}

	if queryText != "" {
		args = append(args, "%"+queryText+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (slug ILIKE $%d OR description ILIKE $%d)", n, n)
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY slug LIMIT $%d", len(args))

	rows, err := repo.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search series configs: %w", err)
	}
	defer rows.Close()

	var configs []*contracts.SeriesConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ListEnabled returns every enabled configuration, for ingestion runs.
func (repo *Repository) ListEnabled(ctx context.Context) ([]*contracts.SeriesConfig, error) {
	return repo.Search(ctx, "", "", 1000)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
