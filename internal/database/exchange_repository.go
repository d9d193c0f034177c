package database

import (
	"context"
	"fmt"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

// ExchangeRepository handles database operations for exchange metadata.
type ExchangeRepository struct {
	pool DatabasePool
}

// NewExchangeRepository creates a new exchange repository.
func NewExchangeRepository(pool DatabasePool) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

// UpsertExchanges inserts or updates the given exchanges by external id
// inside a single transaction and returns the affected row ids.
func (r *ExchangeRepository) UpsertExchanges(ctx context.Context, exchanges []models.Exchange) ([]int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO exchanges (external_id, name, country, url, trade_volume_usd)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			url = EXCLUDED.url,
			trade_volume_usd = EXCLUDED.trade_volume_usd,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	ids := make([]int64, 0, len(exchanges))
	for _, exchange := range exchanges {
		var id int64
		err := tx.QueryRow(ctx, query,
			exchange.ExternalID,
			exchange.Name,
			exchange.Country,
			exchange.URL,
			exchange.TradeVolumeUSD,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert exchange %s: %w", exchange.ExternalID, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit exchange upserts: %w", err)
	}

	return ids, nil
}
