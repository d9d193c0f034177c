package database

import (
	"context"
	"fmt"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

// AssetRepository handles database operations for assets and currencies.
type AssetRepository struct {
	pool DatabasePool
}

// NewAssetRepository creates a new asset repository.
func NewAssetRepository(pool DatabasePool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

// GetByExternalIDs returns the known assets for the given external ids,
// keyed by external id. Unknown ids are simply absent from the result.
func (r *AssetRepository) GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]models.Asset, error) {
	query := `
		SELECT id, external_id, symbol, name, created_at, updated_at
		FROM assets
		WHERE external_id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make(map[string]models.Asset)
	for rows.Next() {
		var asset models.Asset
		if err := rows.Scan(&asset.ID, &asset.ExternalID, &asset.Symbol, &asset.Name, &asset.CreatedAt, &asset.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets[asset.ExternalID] = asset
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// UpsertAssets inserts or updates the given assets by external id inside a
// single transaction and returns the affected row ids. Mutable fields
// (symbol, name) are overwritten with the fetched values.
func (r *AssetRepository) UpsertAssets(ctx context.Context, assets []models.Asset) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO assets (external_id, symbol, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id)
		DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	ids := make([]int64, 0, len(assets))
	for _, asset := range assets {
		var id int64
		if err := tx.QueryRow(ctx, query, asset.ExternalID, asset.Symbol, asset.Name).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to upsert asset %s: %w", asset.ExternalID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit asset upserts: %w", err)
	}

	return ids, nil
}

// GetCurrenciesByCodes returns the known currencies for the given codes,
// keyed by upper-case code. Unknown codes are absent from the result.
func (r *AssetRepository) GetCurrenciesByCodes(ctx context.Context, codes []string) (map[string]models.Currency, error) {
	query := `
		SELECT id, code, name, created_at, updated_at
		FROM currencies
		WHERE code = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	currencies := make(map[string]models.Currency)
	for rows.Next() {
		var currency models.Currency
		if err := rows.Scan(&currency.ID, &currency.Code, &currency.Name, &currency.CreatedAt, &currency.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies[currency.Code] = currency
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currencies: %w", err)
	}

	return currencies, nil
}
