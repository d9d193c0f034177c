package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/coinfolio/coinfolio-go/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// AssetIngestionService consumes AssetDataRequest jobs: it fetches asset
// metadata through the rate-limited client, reconciles it with the store and
// announces the change.
type AssetIngestionService struct {
	api       marketdata.API
	limiter   ratelimit.Limiter
	assets    AssetStore
	publisher queue.Publisher
	log       *logrus.Entry
}

// NewAssetIngestionService creates a new asset ingestion handler.
func NewAssetIngestionService(api marketdata.API, limiter ratelimit.Limiter, assets AssetStore, publisher queue.Publisher) *AssetIngestionService {
	return &AssetIngestionService{
		api:       api,
		limiter:   limiter,
		assets:    assets,
		publisher: publisher,
		log:       logrus.WithField("component", "asset_ingestion"),
	}
}

// Handle processes one AssetDataRequest payload.
func (s *AssetIngestionService) Handle(ctx context.Context, payload []byte) error {
	var req queue.AssetDataRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("failed to decode asset data request: %w", err)
	}
	log := s.log.WithField("trace_id", req.TraceID)

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}

	infos, err := s.api.GetAssets(ctx, req.ExternalIDs)
	if err != nil {
		return fmt.Errorf("failed to fetch asset metadata: %w", err)
	}

	// Cancellation is checked after the call returns and before any store
	// mutation, so a cancelled request never partially commits.
	if err := ctx.Err(); err != nil {
		return err
	}

	assets := make([]models.Asset, 0, len(infos))
	for _, info := range infos {
		assets = append(assets, models.Asset{
			ExternalID: info.ExternalID,
			Symbol:     strings.ToUpper(info.Symbol),
			Name:       info.Name,
		})
	}
	if len(assets) == 0 {
		log.Warn("Provider returned no asset metadata")
		return nil
	}

	ids, err := s.assets.UpsertAssets(ctx, assets)
	if err != nil {
		return fmt.Errorf("failed to persist asset metadata: %w", err)
	}

	event := queue.AssetInfosUpserted{AssetIDs: ids, Timestamp: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, queue.TopicAssetInfosUpserted, req.TraceID, event); err != nil {
		return fmt.Errorf("failed to emit asset upserted event: %w", err)
	}

	log.WithField("assets", len(ids)).Info("Asset metadata upserted")
	return nil
}
