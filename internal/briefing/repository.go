package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

// Briefing is one tracked briefing thread for a topic.
type Briefing struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version is one immutable snapshot of a briefing. The data pack it was
// built from is stored verbatim; content is opaque JSON supplied by the
// caller, if any.
type Version struct {
	ID           int64               `json:"id"`
	BriefingID   int64               `json:"briefing_id"`
	Version      int                 `json:"version"`
	DataPack     *contracts.DataPack `json:"data_pack,omitempty"`
	DataPackHash string              `json:"data_pack_hash"`
	Content      json.RawMessage     `json:"content,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Repository persists briefings and their versioned pack snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new briefing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new briefing in draft status.
func (r *Repository) Create(ctx context.Context, topic, title string) (*Briefing, error) {
	query := `
		INSERT INTO briefings (topic, title, status, created_at, updated_at)
		VALUES ($1, $2, 'draft', NOW(), NOW())
		RETURNING id, topic, title, status, created_at, updated_at
	`

	b, err := scanBriefing(r.pool.QueryRow(ctx, query, topic, title))
	if err != nil {
		return nil, fmt.Errorf("create briefing: %w", err)
	}
	return b, nil
}

// Get returns a briefing by id, or (nil, nil) when it does not exist.
func (r *Repository) Get(ctx context.Context, id int64) (*Briefing, error) {
	query := `
		SELECT id, topic, title, status, created_at, updated_at
		FROM briefings
		WHERE id = $1
	`

	b, err := scanBriefing(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get briefing %d: %w", id, err)
	}
	return b, nil
}

// List returns recent briefings, optionally filtered by topic.
func (r *Repository) List(ctx context.Context, topic string, limit int) ([]*Briefing, error) {
	if limit <= 0 {
		limit = 25
	}

	query := `
		SELECT id, topic, title, status, created_at, updated_at
		FROM briefings
	`
	args := []interface{}{}
	if topic != "" {
		args = append(args, topic)
		query += " WHERE topic = $1"
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list briefings: %w", err)
	}
	defer rows.Close()

	var briefings []*Briefing
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan briefing: %w", err)
		}
		briefings = append(briefings, b)
	}
	return briefings, rows.Err()
}

// CreateVersion snapshots a data pack as the next version of a
// briefing. The version number is allocated inside a transaction so
// concurrent writers never collide.
func (r *Repository) CreateVersion(ctx context.Context, briefingID int64, pack *contracts.DataPack, content json.RawMessage) (*Version, error) {
	packJSON, err := json.Marshal(pack)
	if err != nil {
		return nil, fmt.Errorf("marshal data pack: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin version transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the briefing row so concurrent snapshots serialize on the
	// version counter.
	var lockedID int64
	err = tx.QueryRow(ctx, `SELECT id FROM briefings WHERE id = $1 FOR UPDATE`, briefingID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("briefing %d not found", briefingID)
	}
	if err != nil {
		return nil, fmt.Errorf("lock briefing %d: %w", briefingID, err)
	}

	var nextVersion int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM briefing_versions
		WHERE briefing_id = $1
	`, briefingID).Scan(&nextVersion)
	if err != nil {
		return nil, fmt.Errorf("allocate version number: %w", err)
	}

	version := &Version{
		BriefingID:   briefingID,
		Version:      nextVersion,
		DataPack:     pack,
		DataPackHash: pack.DataPackHash,
		Content:      content,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO briefing_versions
			(briefing_id, version, data_pack, data_pack_hash, content, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`, briefingID, nextVersion, packJSON, pack.DataPackHash, content).Scan(&version.ID, &version.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert briefing version: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE briefings SET updated_at = NOW() WHERE id = $1`, briefingID)
	if err != nil {
		return nil, fmt.Errorf("touch briefing %d: %w", briefingID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit version transaction: %w", err)
	}
	return version, nil
}

// LatestVersion returns the newest version of a briefing, or (nil, nil)
// when no version exists yet.
func (r *Repository) LatestVersion(ctx context.Context, briefingID int64) (*Version, error) {
	query := `
		SELECT id, briefing_id, version, data_pack, data_pack_hash, content, created_at
		FROM briefing_versions
		WHERE briefing_id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	v, err := scanVersion(r.pool.QueryRow(ctx, query, briefingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version of briefing %d: %w", briefingID, err)
	}
	return v, nil
}

// ListVersions returns every version of a briefing, newest first,
// without the pack payloads.
func (r *Repository) ListVersions(ctx context.Context, briefingID int64) ([]*Version, error) {
	query := `
		SELECT id, briefing_id, version, data_pack_hash, created_at
		FROM briefing_versions
		WHERE briefing_id = $1
		ORDER BY version DESC
	`

	rows, err := r.pool.Query(ctx, query, briefingID)
	if err != nil {
		return nil, fmt.Errorf("list versions of briefing %d: %w", briefingID, err)
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v := &Version{}
		if err := rows.Scan(&v.ID, &v.BriefingID, &v.Version, &v.DataPackHash, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan briefing version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func scanBriefing(row pgx.Row) (*Briefing, error) {
	b := &Briefing{}
	err := row.Scan(&b.ID, &b.Topic, &b.Title, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func scanVersion(row pgx.Row) (*Version, error) {
	v := &Version{}
	var packJSON []byte
	err := row.Scan(&v.ID, &v.BriefingID, &v.Version, &packJSON, &v.DataPackHash, &v.Content, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(packJSON) > 0 {
		var pack contracts.DataPack
		if err := json.Unmarshal(packJSON, &pack); err != nil {
			return nil, fmt.Errorf("unmarshal stored data pack: %w", err)
		}
		v.DataPack = &pack
	}
	return v, nil
}
