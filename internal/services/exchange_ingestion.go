package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/coinfolio/coinfolio-go/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// ExchangeIngestionService consumes ExchangeDataRequest jobs.
type ExchangeIngestionService struct {
	api       marketdata.API
	limiter   ratelimit.Limiter
	exchanges ExchangeStore
	publisher queue.Publisher
	titler    cases.Caser
	log       *logrus.Entry
}

// NewExchangeIngestionService creates a new exchange ingestion handler.
func NewExchangeIngestionService(api marketdata.API, limiter ratelimit.Limiter, exchanges ExchangeStore, publisher queue.Publisher) *ExchangeIngestionService {
	return &ExchangeIngestionService{
		api:       api,
		limiter:   limiter,
		exchanges: exchanges,
		publisher: publisher,
		titler:    cases.Title(language.English),
		log:       logrus.WithField("component", "exchange_ingestion"),
	}
}

// Handle processes one ExchangeDataRequest payload.
func (s *ExchangeIngestionService) Handle(ctx context.Context, payload []byte) error {
	var req queue.ExchangeDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode exchange data request: %w", err)
	}
	log := s.log.WithField("trace_id", req.TraceID)

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	infos, err := s.api.GetExchanges(ctx, req.ExternalIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange metadata: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	exchanges := make([]models.Exchange, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		if name == "" {
			// Providers occasionally omit display names; derive one from the id.
			name = s.titler.String(info.ExternalID)
		}
		exchanges = append(exchanges, models.Exchange{
			ExternalID:     info.ExternalID,
			Name:           name,
			Country:        info.Country,
			URL:            info.URL,
			TradeVolumeUSD: info.TradeVolumeUSD,
		})
	}
	if len(exchanges) == 0 {
		log.Warn("Provider returned no exchange metadata")
		return nil
	}

	ids, err := s.exchanges.UpsertExchanges(ctx, exchanges)
	if err != nil {
		return fmt.Errorf("failed to persist exchange metadata: %w", err)
	}

	event := queue.ExchangeInfosUpserted{ExchangeIDs: ids, Timestamp: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, queue.TopicExchangeInfosUpserted, req.TraceID, event); err != nil {
		return fmt.Errorf("failed to emit exchange upserted event: %w", err)
	}

	log.WithField("exchanges", len(ids)).Info("Exchange metadata upserted")
	return nil
}
