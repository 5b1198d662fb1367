package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkbio/internal/models"
)

var ErrAssetNotFound = errors.New("asset not found")

// AssetRepository is the ledger of everything written to object storage.
type AssetRepository struct {
	pool *pgxpool.Pool
}

func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

func (r *AssetRepository) Create(ctx context.Context, asset models.Asset) error {
	const query = `
		INSERT INTO assets (id, owner_id, purpose, path, url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		asset.ID,
		asset.OwnerID,
		asset.Purpose,
		asset.Path,
		asset.URL,
		asset.Status,
	)
	return err
}

func (r *AssetRepository) UpdateStatusByPath(ctx context.Context, path string, status models.AssetStatus) error {
	const query = `
		UPDATE assets SET status = $2, updated_at = NOW() WHERE path = $1
	`
	tag, err := r.pool.Exec(ctx, query, path, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// ListSuperseded returns superseded assets whose replacement happened before
// the cutoff; these are the leaks the orphan sweep closes.
func (r *AssetRepository) ListSuperseded(ctx context.Context, cutoff time.Time, limit int) ([]models.Asset, error) {
	const query = `
		SELECT id, owner_id, purpose, path, url, status, created_at, updated_at
		FROM assets
		WHERE status = 'superseded' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssets(rows)
}

// FindByURL resolves a download URL back to its ledger row. Needed when an
// owning document is deleted: documents hold URLs by value, with no
// back-reference to the storage path.
func (r *AssetRepository) FindByURL(ctx context.Context, url string) (models.Asset, error) {
	const query = `
		SELECT id, owner_id, purpose, path, url, status, created_at, updated_at
		FROM assets WHERE url = $1
	`
	row := r.pool.QueryRow(ctx, query, url)
	var a models.Asset
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Purpose, &a.Path, &a.URL, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, ErrAssetNotFound
		}
		return models.Asset{}, err
	}
	return a, nil
}

func scanAssets(rows pgx.Rows) ([]models.Asset, error) {
	var assets []models.Asset
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Purpose, &a.Path, &a.URL, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}
