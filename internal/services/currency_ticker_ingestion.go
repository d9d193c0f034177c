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

// CurrencyTickerIngestionService consumes CurrencyTickerDataRequest jobs:
// exchange rates from the base currency to each quote currency.
type CurrencyTickerIngestionService struct {
	api       marketdata.API
	limiter   ratelimit.Limiter
	assets    AssetStore
	tickers   TickerStore
	cache     TickerCache
	publisher queue.Publisher
	log       *logrus.Entry
}

// NewCurrencyTickerIngestionService creates a new currency ticker ingestion
// handler. The ticker cache must be scoped to the currency namespace.
func NewCurrencyTickerIngestionService(api marketdata.API, limiter ratelimit.Limiter, assets AssetStore, tickers TickerStore, tickerCache TickerCache, publisher queue.Publisher) *CurrencyTickerIngestionService {
	return &CurrencyTickerIngestionService{
		api:       api,
		limiter:   limiter,
		assets:    assets,
		tickers:   tickers,
		cache:     tickerCache,
		publisher: publisher,
		log:       logrus.WithField("component", "currency_ticker_ingestion"),
	}
}

// Handle processes one CurrencyTickerDataRequest payload.
func (s *CurrencyTickerIngestionService) Handle(ctx context.Context, payload []byte) error {
	var req queue.CurrencyTickerDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode currency ticker data request: %w", err)
	}
	log := s.log.WithField("trace_id", req.TraceID)

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	rates, err := s.api.GetCurrencyRates(ctx, req.BaseCurrency, req.QuoteCurrencies)
	if err != nil {
		return fmt.Errorf("failed to fetch currency rates: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	codes := append(upperAll(req.QuoteCurrencies), strings.ToUpper(req.BaseCurrency))
	currencies, err := s.assets.GetCurrenciesByCodes(ctx, codes)
	if err != nil {
		return fmt.Errorf("failed to resolve currencies: %w", err)
	}

	var (
		rows        []models.CurrencyTicker
		cached      []cache.Ticker
		currencyIDs []int64
		seen        = make(map[int64]bool)
	)
	for _, rate := range rates {
		base, ok := currencies[strings.ToUpper(rate.BaseCurrency)]
		if !ok {
			log.WithField("currency", rate.BaseCurrency).Warn("Rate references unknown base currency, skipping")
			continue
		}
		quote, ok := currencies[strings.ToUpper(rate.QuoteCurrency)]
		if !ok {
			log.WithField("currency", rate.QuoteCurrency).Warn("Rate references unknown quote currency, skipping")
			continue
		}

		rows = append(rows, models.CurrencyTicker{
			BaseCurrencyID:  base.ID,
			QuoteCurrencyID: quote.ID,
			Timestamp:       rate.Timestamp,
			Value:           rate.Rate,
		})
		cached = append(cached, cache.Ticker{
			Pair:      cache.NewTickerPair(base.Code, quote.Code),
			Timestamp: rate.Timestamp,
			Value:     rate.Rate,
		})
		if !seen[quote.ID] {
			seen[quote.ID] = true
			currencyIDs = append(currencyIDs, quote.ID)
		}
	}
	if len(rows) == 0 {
		log.Warn("No resolvable rate observations in response")
		return nil
	}

	inserted, err := s.tickers.InsertCurrencyTickers(ctx, rows)
	if err != nil {
		return fmt.Errorf("failed to persist currency tickers: %w", err)
	}

	if err := s.cache.StoreTickers(ctx, cached); err != nil {
		return fmt.Errorf("failed to cache currency tickers: %w", err)
	}

	event := queue.CurrencyTickerUpserted{CurrencyIDs: currencyIDs, Timestamp: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, queue.TopicCurrencyTickerUpserted, req.TraceID, event); err != nil {
		return fmt.Errorf("failed to emit currency ticker upserted event: %w", err)
	}

	log.WithFields(logrus.Fields{
		"observations": len(rows),
		"inserted":     inserted,
	}).Info("Currency tickers ingested")
	return nil
}
