package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// API is the narrow surface of the upstream price/metadata provider the
// ingestion handlers depend on. The provider is treated as unreliable; a
// failed call is retried at the next scheduled run, never in-call.
type API interface {
	GetAssets(ctx context.Context, externalIDs []string) ([]AssetInfo, error)
	GetExchanges(ctx context.Context, externalIDs []string) ([]ExchangeInfo, error)
	GetAssetTickers(ctx context.Context, externalIDs, quoteCurrencies []string) ([]AssetTickerInfo, error)
	GetCurrencyRates(ctx context.Context, baseCurrency string, quoteCurrencies []string) ([]CurrencyRateInfo, error)
}

// AssetInfo is asset metadata as returned by the provider.
type AssetInfo struct {
	ExternalID string `json:"external_id"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
}

// ExchangeInfo is exchange metadata as returned by the provider.
type ExchangeInfo struct {
	ExternalID     string          `json:"external_id"`
	Name           string          `json:"name"`
	Country        string          `json:"country"`
	URL            string          `json:"url"`
	TradeVolumeUSD decimal.Decimal `json:"trade_volume_usd"`
}

// AssetTickerInfo is one price observation for an asset against a quote
// currency.
type AssetTickerInfo struct {
	AssetExternalID string          `json:"asset_external_id"`
	QuoteCurrency   string          `json:"quote_currency"`
	Price           decimal.Decimal `json:"price"`
	Timestamp       time.Time       `json:"timestamp"`
}

// CurrencyRateInfo is one exchange-rate observation between two currencies.
type CurrencyRateInfo struct {
	BaseCurrency  string          `json:"base_currency"`
	QuoteCurrency string          `json:"quote_currency"`
	Rate          decimal.Decimal `json:"rate"`
	Timestamp     time.Time       `json:"timestamp"`
}

type assetsResponse struct {
	Assets []AssetInfo `json:"assets"`
}

type exchangesResponse struct {
	Exchanges []ExchangeInfo `json:"exchanges"`
}

type tickersResponse struct {
	Tickers []AssetTickerInfo `json:"tickers"`
}

type ratesResponse struct {
	Rates []CurrencyRateInfo `json:"rates"`
}

type assetsRequest struct {
	IDs []string `json:"ids"`
}

type exchangesRequest struct {
	IDs []string `json:"ids"`
}

type tickersRequest struct {
	IDs             []string `json:"ids"`
	QuoteCurrencies []string `json:"quote_currencies"`
}
