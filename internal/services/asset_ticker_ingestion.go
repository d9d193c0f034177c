package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/coinfolio/coinfolio-go/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// AssetTickerIngestionService consumes AssetTickerDataRequest jobs: it
// fetches fresh price observations, stores them durably (skipping duplicate
// tuples), refreshes the asset ticker cache and announces the change.
type AssetTickerIngestionService struct {
	api       marketdata.API
	limiter   ratelimit.Limiter
	assets    AssetStore
	tickers   TickerStore
	cache     TickerCache
	publisher queue.Publisher
	log       *logrus.Entry
}

// NewAssetTickerIngestionService creates a new asset ticker ingestion handler.
// The ticker cache must be scoped to the asset namespace.
func NewAssetTickerIngestionService(api marketdata.API, limiter ratelimit.Limiter, assets AssetStore, tickers TickerStore, tickerCache TickerCache, publisher queue.Publisher) *AssetTickerIngestionService {
	return &AssetTickerIngestionService{
		api:       api,
		limiter:   limiter,
		assets:    assets,
		tickers:   tickers,
		cache:     tickerCache,
		publisher: publisher,
		log:       logrus.WithField("component", "asset_ticker_ingestion"),
	}
}

// Handle processes one AssetTickerDataRequest payload.
func (s *AssetTickerIngestionService) Handle(ctx context.Context, payload []byte) error {
	var req queue.AssetTickerDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode asset ticker data request: %w", err)
	}
	log := s.log.WithField("trace_id", req.TraceID)

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	observations, err := s.api.GetAssetTickers(ctx, req.ExternalIDs, req.QuoteCurrencies)
	if err != nil {
		return fmt.Errorf("failed to fetch asset tickers: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	assets, err := s.assets.GetByExternalIDs(ctx, req.ExternalIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve assets: %w", err)
	}
	currencies, err := s.assets.GetCurrenciesByCodes(ctx, upperAll(req.QuoteCurrencies))
	if err != nil {
		return fmt.Errorf("failed to resolve quote currencies: %w", err)
	}

	var (
		rows     []models.AssetTicker
		cached   []cache.Ticker
		assetIDs []int64
		seen     = make(map[int64]bool)
	)
	for _, obs := range observations {
		asset, ok := assets[obs.AssetExternalID]
		if !ok {
			// Unknown references are skipped individually; the rest of the
			// batch still lands.
			log.WithField("external_id", obs.AssetExternalID).Warn("Ticker references unknown asset, skipping")
			continue
		}
		currency, ok := currencies[strings.ToUpper(obs.QuoteCurrency)]
		if !ok {
			log.WithField("currency", obs.QuoteCurrency).Warn("Ticker references unknown currency, skipping")
			continue
		}

		rows = append(rows, models.AssetTicker{
			AssetID:    asset.ID,
			CurrencyID: currency.ID,
			Timestamp:  obs.Timestamp,
			Value:      obs.Price,
		})
		cached = append(cached, cache.Ticker{
			Pair:      cache.NewTickerPair(asset.Symbol, currency.Code),
			Timestamp: obs.Timestamp,
			Value:     obs.Price,
		})
		if !seen[asset.ID] {
			seen[asset.ID] = true
			assetIDs = append(assetIDs, asset.ID)
		}
	}
	if len(rows) == 0 {
		log.Warn("No resolvable ticker observations in response")
		return nil
	}

	inserted, err := s.tickers.InsertAssetTickers(ctx, rows)
	if err != nil {
		return fmt.Errorf("failed to persist asset tickers: %w", err)
	}

	if err := s.cache.StoreTickers(ctx, cached); err != nil {
		return fmt.Errorf("failed to cache asset tickers: %w", err)
	}

	event := queue.AssetTickersUpserted{AssetIDs: assetIDs, Timestamp: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, queue.TopicAssetTickersUpserted, req.TraceID, event); err != nil {
		return fmt.Errorf("failed to emit asset tickers upserted event: %w", err)
	}

	log.WithFields(logrus.Fields{
		"observations": len(rows),
		"inserted":     inserted,
	}).Info("Asset tickers ingested")
	return nil
}

func upperAll(values []string) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = strings.ToUpper(v)
	}
	return result
}
