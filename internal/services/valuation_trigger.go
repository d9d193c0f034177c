package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ValuationTrigger consumes ticker-upserted events and fans out one
// ComputeWalletBalanceRequest per affected wallet, paging through the
// matching wallets in fixed-size batches.
type ValuationTrigger struct {
	wallets   WalletStore
	publisher queue.Publisher
	batchSize int
	log       *logrus.Entry
}

// NewValuationTrigger creates a bulk valuation trigger.
func NewValuationTrigger(wallets WalletStore, publisher queue.Publisher, batchSize int) *ValuationTrigger {
	return &ValuationTrigger{
		wallets:   wallets,
		publisher: publisher,
		batchSize: batchSize,
		log:       logrus.WithField("component", "valuation_trigger"),
	}
}

// HandleAssetTickersUpserted processes one AssetTickersUpserted event.
func (t *ValuationTrigger) HandleAssetTickersUpserted(ctx context.Context, payload []byte) error {
	var event queue.AssetTickersUpserted
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode asset tickers upserted event: %w", err)
	}
	return t.Trigger(ctx, event.AssetIDs, nil)
}

// HandleCurrencyTickerUpserted processes one CurrencyTickerUpserted event.
func (t *ValuationTrigger) HandleCurrencyTickerUpserted(ctx context.Context, payload []byte) error {
	var event queue.CurrencyTickerUpserted
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode currency ticker upserted event: %w", err)
	}
	return t.Trigger(ctx, nil, event.CurrencyIDs)
}

// Trigger enqueues one recompute job per wallet affected by the changed
// assets and/or currencies. Publishing is synchronous, so when Trigger
// returns nil every job has been accepted by the broker.
func (t *ValuationTrigger) Trigger(ctx context.Context, assetIDs, currencyIDs []int64) error {
	if len(assetIDs) == 0 && len(currencyIDs) == 0 {
		return nil
	}

	enqueued := 0
	offset := 0
	for {
		walletIDs, err := t.wallets.FindAffectedWalletIDs(ctx, assetIDs, currencyIDs, t.batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to find affected wallets: %w", err)
		}

		for _, walletID := range walletIDs {
			msg := queue.ComputeWalletBalanceRequest{
				TraceID:     uuid.NewString(),
				SubmittedAt: time.Now().UTC(),
				WalletID:    walletID,
			}
			if err := t.publisher.Publish(ctx, queue.TopicComputeWalletBalance, msg.TraceID, msg); err != nil {
				return fmt.Errorf("failed to enqueue recompute for wallet %d: %w", walletID, err)
			}
			enqueued++
		}

		if len(walletIDs) < t.batchSize {
			break
		}
		offset += t.batchSize
	}

	if enqueued > 0 {
		t.log.WithField("wallets", enqueued).Info("Enqueued wallet recomputes")
	}
	return nil
}
