package services

import (
	"context"
	"fmt"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/google/uuid"
)

// Message preparers build the job batches the schedulers enqueue. Each reads
// the stored collection settings and chunks the tracked ids into one message
// per batch, each message carrying a fresh trace id and the current
// timestamp.

// AssetDataPreparer prepares AssetDataRequest batches.
type AssetDataPreparer struct {
	settings  SettingsStore
	batchSize int
}

func NewAssetDataPreparer(settings SettingsStore, batchSize int) *AssetDataPreparer {
	return &AssetDataPreparer{settings: settings, batchSize: batchSize}
}

func (p *AssetDataPreparer) PrepareMessages(ctx context.Context) ([]queue.Outbound, error) {
	settings, err := p.settings.GetCollectionSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection settings: %w", err)
	}

	var messages []queue.Outbound
	for _, chunk := range chunkStrings(settings.AssetExternalIDs, p.batchSize) {
		msg := queue.AssetDataRequest{
			TraceID:     uuid.NewString(),
			SubmittedAt: time.Now().UTC(),
			ExternalIDs: chunk,
		}
		messages = append(messages, queue.Outbound{Topic: queue.TopicAssetData, Key: msg.TraceID, Value: msg})
	}
	return messages, nil
}

// AssetTickerDataPreparer prepares AssetTickerDataRequest batches.
type AssetTickerDataPreparer struct {
	settings  SettingsStore
	batchSize int
}

func NewAssetTickerDataPreparer(settings SettingsStore, batchSize int) *AssetTickerDataPreparer {
	return &AssetTickerDataPreparer{settings: settings, batchSize: batchSize}
}

func (p *AssetTickerDataPreparer) PrepareMessages(ctx context.Context) ([]queue.Outbound, error) {
	settings, err := p.settings.GetCollectionSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection settings: %w", err)
	}
	if len(settings.QuoteCurrencies) == 0 {
		return nil, nil
	}

	var messages []queue.Outbound
	for _, chunk := range chunkStrings(settings.AssetExternalIDs, p.batchSize) {
		msg := queue.AssetTickerDataRequest{
			TraceID:         uuid.NewString(),
			SubmittedAt:     time.Now().UTC(),
			ExternalIDs:     chunk,
			QuoteCurrencies: settings.QuoteCurrencies,
		}
		messages = append(messages, queue.Outbound{Topic: queue.TopicAssetTickerData, Key: msg.TraceID, Value: msg})
	}
	return messages, nil
}

// ExchangeDataPreparer prepares ExchangeDataRequest batches.
type ExchangeDataPreparer struct {
	settings  SettingsStore
	batchSize int
}

func NewExchangeDataPreparer(settings SettingsStore, batchSize int) *ExchangeDataPreparer {
	return &ExchangeDataPreparer{settings: settings, batchSize: batchSize}
}

func (p *ExchangeDataPreparer) PrepareMessages(ctx context.Context) ([]queue.Outbound, error) {
	settings, err := p.settings.GetCollectionSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection settings: %w", err)
	}

	var messages []queue.Outbound
	for _, chunk := range chunkStrings(settings.ExchangeExternalIDs, p.batchSize) {
		msg := queue.ExchangeDataRequest{
			TraceID:     uuid.NewString(),
			SubmittedAt: time.Now().UTC(),
			ExternalIDs: chunk,
		}
		messages = append(messages, queue.Outbound{Topic: queue.TopicExchangeData, Key: msg.TraceID, Value: msg})
	}
	return messages, nil
}

// CurrencyTickerDataPreparer prepares the single CurrencyTickerDataRequest
// for the configured base currency.
type CurrencyTickerDataPreparer struct {
	settings SettingsStore
}

func NewCurrencyTickerDataPreparer(settings SettingsStore) *CurrencyTickerDataPreparer {
	return &CurrencyTickerDataPreparer{settings: settings}
}

func (p *CurrencyTickerDataPreparer) PrepareMessages(ctx context.Context) ([]queue.Outbound, error) {
	settings, err := p.settings.GetCollectionSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection settings: %w", err)
	}
	if settings.BaseCurrency == "" || len(settings.QuoteCurrencies) == 0 {
		return nil, nil
	}

	msg := queue.CurrencyTickerDataRequest{
		TraceID:         uuid.NewString(),
		SubmittedAt:     time.Now().UTC(),
		BaseCurrency:    settings.BaseCurrency,
		QuoteCurrencies: settings.QuoteCurrencies,
	}
	return []queue.Outbound{{Topic: queue.TopicCurrencyTickerData, Key: msg.TraceID, Value: msg}}, nil
}

func chunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		size = len(values)
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
