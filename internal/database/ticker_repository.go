package database

import (
	"context"
	"fmt"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

// TickerRepository handles database operations for durable ticker history.
type TickerRepository struct {
	pool DatabasePool
}

// NewTickerRepository creates a new ticker repository.
func NewTickerRepository(pool DatabasePool) *TickerRepository {
	return &TickerRepository{pool: pool}
}

// InsertAssetTickers stores the given asset ticker observations inside a
// single transaction. An observation whose (asset, currency, timestamp)
// tuple already exists is skipped, which keeps re-delivered messages from
// producing duplicate rows. Returns the number of rows actually inserted.
func (r *TickerRepository) InsertAssetTickers(ctx context.Context, tickers []models.AssetTicker) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM asset_tickers
			WHERE asset_id = $1 AND currency_id = $2 AND timestamp = $3
		)
	`
	insertQuery := `
		INSERT INTO asset_tickers (asset_id, currency_id, timestamp, value)
		VALUES ($1, $2, $3, $4)
	`

	inserted := 0
	for _, ticker := range tickers {
		var exists bool
		if err := tx.QueryRow(ctx, existsQuery, ticker.AssetID, ticker.CurrencyID, ticker.Timestamp).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check asset ticker existence: %w", err)
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(ctx, insertQuery, ticker.AssetID, ticker.CurrencyID, ticker.Timestamp, ticker.Value); err != nil {
			return 0, fmt.Errorf("failed to insert asset ticker: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit asset ticker inserts: %w", err)
	}

	return inserted, nil
}

// InsertCurrencyTickers stores the given currency rate observations inside a
// single transaction, skipping tuples that already exist.
func (r *TickerRepository) InsertCurrencyTickers(ctx context.Context, tickers []models.CurrencyTicker) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM currency_tickers
			WHERE base_currency_id = $1 AND quote_currency_id = $2 AND timestamp = $3
		)
	`
	insertQuery := `
		INSERT INTO currency_tickers (base_currency_id, quote_currency_id, timestamp, value)
		VALUES ($1, $2, $3, $4)
	`

	inserted := 0
	for _, ticker := range tickers {
		var exists bool
		if err := tx.QueryRow(ctx, existsQuery, ticker.BaseCurrencyID, ticker.QuoteCurrencyID, ticker.Timestamp).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check currency ticker existence: %w", err)
		}
		if exists {
			continue
		}
		if _, err := tx.Exec(ctx, insertQuery, ticker.BaseCurrencyID, ticker.QuoteCurrencyID, ticker.Timestamp, ticker.Value); err != nil {
			return 0, fmt.Errorf("failed to insert currency ticker: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit currency ticker inserts: %w", err)
	}

	return inserted, nil
}

// DeleteOlderThan removes ticker history rows created before the cutoff from
// both ticker tables and returns the total number of rows removed.
func (r *TickerRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"asset_tickers", "currency_tickers"} {
		result, err := r.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE created_at < $1", table), cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to delete old rows from %s: %w", table, err)
		}
		total += result.RowsAffected()
	}
	return total, nil
}
