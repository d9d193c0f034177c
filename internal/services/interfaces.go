package services

import (
	"context"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/models"
)

// The services depend on narrow store interfaces rather than concrete
// repositories so tests can substitute mocks.

// AssetStore provides asset and currency lookups plus asset upserts.
type AssetStore interface {
	GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]models.Asset, error)
	UpsertAssets(ctx context.Context, assets []models.Asset) ([]int64, error)
	GetCurrenciesByCodes(ctx context.Context, codes []string) (map[string]models.Currency, error)
}

// ExchangeStore persists exchange metadata.
type ExchangeStore interface {
	UpsertExchanges(ctx context.Context, exchanges []models.Exchange) ([]int64, error)
}

// TickerStore persists durable ticker history.
type TickerStore interface {
	InsertAssetTickers(ctx context.Context, tickers []models.AssetTicker) (int, error)
	InsertCurrencyTickers(ctx context.Context, tickers []models.CurrencyTicker) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// WalletStore loads and persists wallet valuation state.
type WalletStore interface {
	GetWallet(ctx context.Context, walletID int64) (*models.Wallet, error)
	GetWalletTransactions(ctx context.Context, walletID int64) ([]models.Transaction, error)
	SaveWalletValuation(ctx context.Context, wallet *models.Wallet, transactions []models.Transaction) error
	FindAffectedWalletIDs(ctx context.Context, assetIDs, currencyIDs []int64, limit, offset int) ([]int64, error)
}

// SettingsStore reads the stored collection settings rows.
type SettingsStore interface {
	GetCollectionSettings(ctx context.Context) (*models.CollectionSettings, error)
}

// TickerCache is the pair-keyed cache of latest price observations.
type TickerCache interface {
	StoreTickers(ctx context.Context, tickers []cache.Ticker) error
	GetTickers(ctx context.Context, pairs []cache.TickerPair) ([]cache.Ticker, error)
}
