package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/models"
)

type mockMarketAPI struct {
	mock.Mock
}

func (m *mockMarketAPI) GetAssets(ctx context.Context, externalIDs []string) ([]marketdata.AssetInfo, error) {
	args := m.Called(ctx, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.AssetInfo), args.Error(1)
}

func (m *mockMarketAPI) GetExchanges(ctx context.Context, externalIDs []string) ([]marketdata.ExchangeInfo, error) {
	args := m.Called(ctx, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.ExchangeInfo), args.Error(1)
}

func (m *mockMarketAPI) GetAssetTickers(ctx context.Context, externalIDs, quoteCurrencies []string) ([]marketdata.AssetTickerInfo, error) {
	args := m.Called(ctx, externalIDs, quoteCurrencies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.AssetTickerInfo), args.Error(1)
}

func (m *mockMarketAPI) GetCurrencyRates(ctx context.Context, baseCurrency string, quoteCurrencies []string) ([]marketdata.CurrencyRateInfo, error) {
	args := m.Called(ctx, baseCurrency, quoteCurrencies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]marketdata.CurrencyRateInfo), args.Error(1)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Acquire(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockAssetStore struct {
	mock.Mock
}

func (m *mockAssetStore) GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]models.Asset, error) {
	args := m.Called(ctx, externalIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Asset), args.Error(1)
}

func (m *mockAssetStore) UpsertAssets(ctx context.Context, assets []models.Asset) ([]int64, error) {
	args := m.Called(ctx, assets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockAssetStore) GetCurrenciesByCodes(ctx context.Context, codes []string) (map[string]models.Currency, error) {
	args := m.Called(ctx, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Currency), args.Error(1)
}

type mockExchangeStore struct {
	mock.Mock
}

func (m *mockExchangeStore) UpsertExchanges(ctx context.Context, exchanges []models.Exchange) ([]int64, error) {
	args := m.Called(ctx, exchanges)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type mockTickerStore struct {
	mock.Mock
}

func (m *mockTickerStore) InsertAssetTickers(ctx context.Context, tickers []models.AssetTicker) (int, error) {
	args := m.Called(ctx, tickers)
	return args.Int(0), args.Error(1)
}

func (m *mockTickerStore) InsertCurrencyTickers(ctx context.Context, tickers []models.CurrencyTicker) (int, error) {
	args := m.Called(ctx, tickers)
	return args.Int(0), args.Error(1)
}

func (m *mockTickerStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockWalletStore struct {
	mock.Mock
}

func (m *mockWalletStore) GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *mockWalletStore) GetWalletTransactions(ctx context.Context, walletID int64) ([]models.Transaction, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *mockWalletStore) SaveWalletValuation(ctx context.Context, wallet *models.Wallet, transactions []models.Transaction) error {
	return m.Called(ctx, wallet, transactions).Error(0)
}

func (m *mockWalletStore) FindAffectedWalletIDs(ctx context.Context, assetIDs, currencyIDs []int64, limit, offset int) ([]int64, error) {
	args := m.Called(ctx, assetIDs, currencyIDs, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type mockSettingsStore struct {
	mock.Mock
}

func (m *mockSettingsStore) GetCollectionSettings(ctx context.Context) (*models.CollectionSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CollectionSettings), args.Error(1)
}

type mockTickerCache struct {
	mock.Mock
}

func (m *mockTickerCache) StoreTickers(ctx context.Context, tickers []cache.Ticker) error {
	return m.Called(ctx, tickers).Error(0)
}

func (m *mockTickerCache) GetTickers(ctx context.Context, pairs []cache.TickerPair) ([]cache.Ticker, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cache.Ticker), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	return m.Called(ctx, topic, key, value).Error(0)
}
