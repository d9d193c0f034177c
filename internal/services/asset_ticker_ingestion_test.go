package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/models"
	"github.com/coinfolio/coinfolio-go/internal/queue"
)

var tickerTimestamp = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func tickerPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(queue.AssetTickerDataRequest{
		TraceID:         "trace-1",
		SubmittedAt:     time.Now().UTC(),
		ExternalIDs:     []string{"bitcoin", "ethereum"},
		QuoteCurrencies: []string{"usd"},
	})
	require.NoError(t, err)
	return payload
}

func knownAssets() map[string]models.Asset {
	return map[string]models.Asset{
		"bitcoin":  {ID: 10, ExternalID: "bitcoin", Symbol: "BTC"},
		"ethereum": {ID: 11, ExternalID: "ethereum", Symbol: "ETH"},
	}
}

func knownCurrencies() map[string]models.Currency {
	return map[string]models.Currency{
		"USD": {ID: 1, Code: "USD"},
	}
}

func newTickerIngestion(t *testing.T) (*AssetTickerIngestionService, *mockMarketAPI, *mockLimiter, *mockAssetStore, *mockTickerStore, *mockTickerCache, *mockPublisher) {
	t.Helper()
	api := &mockMarketAPI{}
	limiter := &mockLimiter{}
	assets := &mockAssetStore{}
	tickers := &mockTickerStore{}
	tickerCache := &mockTickerCache{}
	publisher := &mockPublisher{}
	svc := NewAssetTickerIngestionService(api, limiter, assets, tickers, tickerCache, publisher)
	return svc, api, limiter, assets, tickers, tickerCache, publisher
}

func TestAssetTickerIngestionStoresCachesAndAnnounces(t *testing.T) {
	svc, api, limiter, assets, tickers, tickerCache, publisher := newTickerIngestion(t)
	ctx := context.Background()

	limiter.On("Acquire", ctx).Return(nil)
	api.On("GetAssetTickers", ctx, []string{"bitcoin", "ethereum"}, []string{"usd"}).
		Return([]marketdata.AssetTickerInfo{
			{AssetExternalID: "bitcoin", QuoteCurrency: "usd", Price: dec("100000"), Timestamp: tickerTimestamp},
			{AssetExternalID: "ethereum", QuoteCurrency: "usd", Price: dec("4000"), Timestamp: tickerTimestamp},
		}, nil)
	assets.On("GetByExternalIDs", ctx, []string{"bitcoin", "ethereum"}).Return(knownAssets(), nil)
	assets.On("GetCurrenciesByCodes", ctx, []string{"USD"}).Return(knownCurrencies(), nil)

	var insertedRows []models.AssetTicker
	tickers.On("InsertAssetTickers", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			insertedRows = args.Get(1).([]models.AssetTicker)
		}).
		Return(2, nil)

	var cachedTickers []cache.Ticker
	tickerCache.On("StoreTickers", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			cachedTickers = args.Get(1).([]cache.Ticker)
		}).
		Return(nil)

	var event queue.AssetTickersUpserted
	publisher.On("Publish", ctx, queue.TopicAssetTickersUpserted, "trace-1", mock.Anything).
		Run(func(args mock.Arguments) {
			event = args.Get(3).(queue.AssetTickersUpserted)
		}).
		Return(nil)

	require.NoError(t, svc.Handle(ctx, tickerPayload(t)))

	require.Len(t, insertedRows, 2)
	assert.Equal(t, int64(10), insertedRows[0].AssetID)
	assert.Equal(t, int64(1), insertedRows[0].CurrencyID)
	assert.True(t, insertedRows[0].Value.Equal(dec("100000")))

	require.Len(t, cachedTickers, 2)
	assert.Equal(t, "btc/usd", cachedTickers[0].Pair.String())
	assert.Equal(t, "eth/usd", cachedTickers[1].Pair.String())

	assert.ElementsMatch(t, []int64{10, 11}, event.AssetIDs)
}

func TestAssetTickerIngestionDoubleDeliveryInsertsOnce(t *testing.T) {
	svc, api, limiter, assets, tickers, tickerCache, publisher := newTickerIngestion(t)
	ctx := context.Background()

	limiter.On("Acquire", ctx).Return(nil)
	api.On("GetAssetTickers", ctx, mock.Anything, mock.Anything).
		Return([]marketdata.AssetTickerInfo{
			{AssetExternalID: "bitcoin", QuoteCurrency: "usd", Price: dec("100000"), Timestamp: tickerTimestamp},
		}, nil)
	assets.On("GetByExternalIDs", ctx, mock.Anything).Return(knownAssets(), nil)
	assets.On("GetCurrenciesByCodes", ctx, mock.Anything).Return(knownCurrencies(), nil)

	// The store enforces (asset, currency, timestamp) uniqueness: the first
	// delivery inserts one row, the replay inserts zero. Both handlings
	// succeed either way.
	tickers.On("InsertAssetTickers", ctx, mock.Anything).Return(1, nil).Once()
	tickers.On("InsertAssetTickers", ctx, mock.Anything).Return(0, nil).Once()
	tickerCache.On("StoreTickers", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, queue.TopicAssetTickersUpserted, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Handle(ctx, tickerPayload(t)))
	require.NoError(t, svc.Handle(ctx, tickerPayload(t)))
	tickers.AssertExpectations(t)
}

func TestAssetTickerIngestionSkipsUnknownReferences(t *testing.T) {
	svc, api, limiter, assets, tickers, tickerCache, publisher := newTickerIngestion(t)
	ctx := context.Background()

	limiter.On("Acquire", ctx).Return(nil)
	api.On("GetAssetTickers", ctx, mock.Anything, mock.Anything).
		Return([]marketdata.AssetTickerInfo{
			{AssetExternalID: "bitcoin", QuoteCurrency: "usd", Price: dec("100000"), Timestamp: tickerTimestamp},
			{AssetExternalID: "unknown-coin", QuoteCurrency: "usd", Price: dec("1"), Timestamp: tickerTimestamp},
			{AssetExternalID: "ethereum", QuoteCurrency: "xyz", Price: dec("4000"), Timestamp: tickerTimestamp},
		}, nil)
	assets.On("GetByExternalIDs", ctx, mock.Anything).Return(knownAssets(), nil)
	assets.On("GetCurrenciesByCodes", ctx, mock.Anything).Return(knownCurrencies(), nil)

	var insertedRows []models.AssetTicker
	tickers.On("InsertAssetTickers", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			insertedRows = args.Get(1).([]models.AssetTicker)
		}).
		Return(1, nil)
	tickerCache.On("StoreTickers", ctx, mock.Anything).Return(nil)

	var event queue.AssetTickersUpserted
	publisher.On("Publish", ctx, queue.TopicAssetTickersUpserted, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			event = args.Get(3).(queue.AssetTickersUpserted)
		}).
		Return(nil)

	// The unknown asset and unknown currency are skipped; the resolvable
	// observation still lands.
	require.NoError(t, svc.Handle(ctx, tickerPayload(t)))
	require.Len(t, insertedRows, 1)
	assert.Equal(t, int64(10), insertedRows[0].AssetID)
	assert.Equal(t, []int64{10}, event.AssetIDs)
}

func TestAssetTickerIngestionNothingResolvableIsNoOp(t *testing.T) {
	svc, api, limiter, assets, tickers, _, publisher := newTickerIngestion(t)
	ctx := context.Background()

	limiter.On("Acquire", ctx).Return(nil)
	api.On("GetAssetTickers", ctx, mock.Anything, mock.Anything).
		Return([]marketdata.AssetTickerInfo{
			{AssetExternalID: "unknown-coin", QuoteCurrency: "usd", Price: dec("1"), Timestamp: tickerTimestamp},
		}, nil)
	assets.On("GetByExternalIDs", ctx, mock.Anything).Return(map[string]models.Asset{}, nil)
	assets.On("GetCurrenciesByCodes", ctx, mock.Anything).Return(knownCurrencies(), nil)

	require.NoError(t, svc.Handle(ctx, tickerPayload(t)))
	tickers.AssertNotCalled(t, "InsertAssetTickers", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssetTickerIngestionCancelledAfterFetchSkipsMutation(t *testing.T) {
	svc, api, limiter, assets, tickers, _, _ := newTickerIngestion(t)
	ctx, cancel := context.WithCancel(context.Background())

	limiter.On("Acquire", mock.Anything).Return(nil)
	api.On("GetAssetTickers", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]marketdata.AssetTickerInfo{
			{AssetExternalID: "bitcoin", QuoteCurrency: "usd", Price: dec("100000"), Timestamp: tickerTimestamp},
		}, nil)

	err := svc.Handle(ctx, tickerPayload(t))
	assert.ErrorIs(t, err, context.Canceled)
	assets.AssertNotCalled(t, "GetByExternalIDs", mock.Anything, mock.Anything)
	tickers.AssertNotCalled(t, "InsertAssetTickers", mock.Anything, mock.Anything)
}
