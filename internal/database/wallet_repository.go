package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/jackc/pgx/v5"
)

// WalletRepository handles database operations for wallets, holdings and
// transactions.
type WalletRepository struct {
	pool DatabasePool
}

// NewWalletRepository creates a new wallet repository.
func NewWalletRepository(pool DatabasePool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// GetWallet loads a wallet with its currency and holdings (each holding with
// its asset). Returns (nil, nil) when the wallet does not exist.
func (r *WalletRepository) GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error) {
	walletQuery := `
		SELECT w.id, w.name, w.currency_id, w.initial_value, w.current_value, w.change,
		       w.created_at, w.updated_at,
		       c.id, c.code, c.name
		FROM wallets w
		JOIN currencies c ON c.id = w.currency_id
		WHERE w.id = $1
	`

	var wallet models.Wallet
	var currency models.Currency
	err := r.pool.QueryRow(ctx, walletQuery, walletID).Scan(
		&wallet.ID,
		&wallet.Name,
		&wallet.CurrencyID,
		&wallet.InitialValue,
		&wallet.CurrentValue,
		&wallet.Change,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
		&currency.ID,
		&currency.Code,
		&currency.Name,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load wallet %d: %w", walletID, err)
	}
	wallet.Currency = &currency

	holdingsQuery := `
		SELECT h.id, h.wallet_id, h.asset_id, h.qty, h.initial_value, h.current_value, h.change,
		       a.id, a.external_id, a.symbol, a.name
		FROM holdings h
		JOIN assets a ON a.id = h.asset_id
		WHERE h.wallet_id = $1
		ORDER BY h.id
	`

	rows, err := r.pool.Query(ctx, holdingsQuery, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings for wallet %d: %w", walletID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var holding models.Holding
		var asset models.Asset
		err := rows.Scan(
			&holding.ID,
			&holding.WalletID,
			&holding.AssetID,
			&holding.Qty,
			&holding.InitialValue,
			&holding.CurrentValue,
			&holding.Change,
			&asset.ID,
			&asset.ExternalID,
			&asset.Symbol,
			&asset.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holding.Asset = &asset
		wallet.Holdings = append(wallet.Holdings, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return &wallet, nil
}

// GetWalletTransactions loads all transactions of a wallet with their asset
// and currency.
func (r *WalletRepository) GetWalletTransactions(ctx context.Context, walletID int64) ([]models.Transaction, error) {
	query := `
		SELECT t.id, t.wallet_id, t.asset_id, t.currency_id, t.kind, t.qty,
		       t.initial_value, t.current_value, t.change, t.executed_at,
		       a.id, a.external_id, a.symbol, a.name,
		       c.id, c.code, c.name
		FROM transactions t
		JOIN assets a ON a.id = t.asset_id
		JOIN currencies c ON c.id = t.currency_id
		WHERE t.wallet_id = $1
		ORDER BY t.id
	`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for wallet %d: %w", walletID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		var asset models.Asset
		var currency models.Currency
		err := rows.Scan(
			&txn.ID,
			&txn.WalletID,
			&txn.AssetID,
			&txn.CurrencyID,
			&txn.Kind,
			&txn.Qty,
			&txn.InitialValue,
			&txn.CurrentValue,
			&txn.Change,
			&txn.ExecutedAt,
			&asset.ID,
			&asset.ExternalID,
			&asset.Symbol,
			&asset.Name,
			&currency.ID,
			&currency.Code,
			&currency.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Asset = &asset
		txn.Currency = &currency
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SaveWalletValuation persists the recomputed valuation fields of a wallet,
// its holdings and its transactions in a single transaction.
func (r *WalletRepository) SaveWalletValuation(ctx context.Context, wallet *models.Wallet, transactions []models.Transaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	walletQuery := `
		UPDATE wallets
		SET current_value = $2, change = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, walletQuery, wallet.ID, wallet.CurrentValue, wallet.Change); err != nil {
		return fmt.Errorf("failed to update wallet %d valuation: %w", wallet.ID, err)
	}

	holdingQuery := `
		UPDATE holdings
		SET current_value = $2, change = $3
		WHERE id = $1
	`
	for _, holding := range wallet.Holdings {
		if _, err := tx.Exec(ctx, holdingQuery, holding.ID, holding.CurrentValue, holding.Change); err != nil {
			return fmt.Errorf("failed to update holding %d valuation: %w", holding.ID, err)
		}
	}

	transactionQuery := `
		UPDATE transactions
		SET current_value = $2, change = $3
		WHERE id = $1
	`
	for _, txn := range transactions {
		if _, err := tx.Exec(ctx, transactionQuery, txn.ID, txn.CurrentValue, txn.Change); err != nil {
			return fmt.Errorf("failed to update transaction %d valuation: %w", txn.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit wallet %d valuation: %w", wallet.ID, err)
	}

	return nil
}

// FindAffectedWalletIDs pages through the ids of wallets that either hold a
// transaction referencing one of the changed assets/currencies or are
// themselves denominated in one of the changed currencies.
func (r *WalletRepository) FindAffectedWalletIDs(ctx context.Context, assetIDs, currencyIDs []int64, limit, offset int) ([]int64, error) {
	// Empty slices must not match everything, so keep them as empty arrays.
	if assetIDs == nil {
		assetIDs = []int64{}
	}
	if currencyIDs == nil {
		currencyIDs = []int64{}
	}

	query := `
		SELECT DISTINCT w.id
		FROM wallets w
		LEFT JOIN transactions t ON t.wallet_id = w.id
		WHERE t.asset_id = ANY($1)
		   OR t.currency_id = ANY($2)
		   OR w.currency_id = ANY($2)
		ORDER BY w.id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, assetIDs, currencyIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query affected wallets: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wallet id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating affected wallets: %w", err)
	}

	return ids, nil
}
