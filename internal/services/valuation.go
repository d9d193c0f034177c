package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// ValuationEngine consumes ComputeWalletBalanceRequest jobs and recomputes
// the derived valuation fields of one wallet from the cached asset tickers.
// Positions whose ticker is absent keep the values of the last successful
// run; a recompute is best-effort, never an error because a price is missing.
type ValuationEngine struct {
	wallets WalletStore
	tickers TickerCache
	log     *logrus.Entry
}

// NewValuationEngine creates a valuation engine. The ticker cache must be
// scoped to the asset namespace.
func NewValuationEngine(wallets WalletStore, tickers TickerCache) *ValuationEngine {
	return &ValuationEngine{
		wallets: wallets,
		tickers: tickers,
		log:     logrus.WithField("component", "valuation_engine"),
	}
}

// Handle processes one ComputeWalletBalanceRequest payload.
func (e *ValuationEngine) Handle(ctx context.Context, payload []byte) error {
	var req queue.ComputeWalletBalanceRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode compute wallet balance request: %w", err)
	}
	return e.Recompute(ctx, req.WalletID)
}

// Recompute reloads one wallet and rewrites its derived valuation fields.
// An unknown wallet id is a warning, not a failure: the recompute is an
// idempotent no-op.
func (e *ValuationEngine) Recompute(ctx context.Context, walletID int64) error {
	log := e.log.WithField("wallet_id", walletID)

	wallet, err := e.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return fmt.Errorf("failed to load wallet %d: %w", walletID, err)
	}
	if wallet == nil {
		log.Warn("Wallet not found, nothing to recompute")
		return nil
	}
	if wallet.Currency == nil {
		return fmt.Errorf("wallet %d has no currency loaded", walletID)
	}

	transactions, err := e.wallets.GetWalletTransactions(ctx, walletID)
	if err != nil {
		return fmt.Errorf("failed to load transactions for wallet %d: %w", walletID, err)
	}

	// Per-run memoization: each distinct pair hits the cache at most once.
	memo := make(map[cache.TickerPair]*cache.Ticker)
	resolve := func(pair cache.TickerPair) (*cache.Ticker, error) {
		if ticker, ok := memo[pair]; ok {
			return ticker, nil
		}
		found, err := e.tickers.GetTickers(ctx, []cache.TickerPair{pair})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			memo[pair] = nil
			return nil, nil
		}
		ticker := found[0]
		memo[pair] = &ticker
		return &ticker, nil
	}

	for i := range transactions {
		txn := &transactions[i]
		if txn.Asset == nil || txn.Currency == nil {
			log.WithField("transaction_id", txn.ID).Warn("Transaction missing asset or currency, skipping")
			continue
		}

		// Transfers are priced against the wallet currency, buys and sells
		// against the currency the transaction was executed in.
		quote := txn.Currency.Code
		if txn.Kind == models.TransactionTransfer {
			quote = wallet.Currency.Code
		}

		ticker, err := resolve(cache.NewTickerPair(txn.Asset.Symbol, quote))
		if err != nil {
			return fmt.Errorf("failed to resolve ticker for transaction %d: %w", txn.ID, err)
		}
		if ticker == nil {
			continue
		}

		txn.CurrentValue = txn.Qty.Mul(ticker.Value)
		if txn.InitialValue.IsPositive() {
			txn.Change = percentChange(txn.InitialValue, txn.CurrentValue)
		}
	}

	total := decimal.Zero
	for i := range wallet.Holdings {
		holding := &wallet.Holdings[i]
		if holding.Asset == nil {
			log.WithField("holding_id", holding.ID).Warn("Holding missing asset, skipping")
			total = total.Add(holding.CurrentValue)
			continue
		}

		ticker, err := resolve(cache.NewTickerPair(holding.Asset.Symbol, wallet.Currency.Code))
		if err != nil {
			return fmt.Errorf("failed to resolve ticker for holding %d: %w", holding.ID, err)
		}
		if ticker != nil {
			holding.CurrentValue = holding.Qty.Mul(ticker.Value)
			if holding.InitialValue.IsPositive() {
				holding.Change = percentChange(holding.InitialValue, holding.CurrentValue)
			}
		}

		total = total.Add(holding.CurrentValue)
	}

	wallet.CurrentValue = total
	if wallet.InitialValue.IsPositive() {
		wallet.Change = percentChange(wallet.InitialValue, wallet.CurrentValue)
	}

	if err := e.wallets.SaveWalletValuation(ctx, wallet, transactions); err != nil {
		return fmt.Errorf("failed to persist valuation for wallet %d: %w", walletID, err)
	}

	log.WithFields(logrus.Fields{
		"current_value": wallet.CurrentValue.String(),
		"change":        wallet.Change.String(),
	}).Info("Wallet valuation recomputed")
	return nil
}

// percentChange returns (current - initial) / initial * 100. Callers guard
// against a non-positive initial value.
func percentChange(initial, current decimal.Decimal) decimal.Decimal {
	return current.Sub(initial).Div(initial).Mul(hundred)
}
