package queue

import (
	"time"
)

// One topic per job-message type and per domain event.
const (
	TopicAssetData            = "asset-data-requests"
	TopicAssetTickerData      = "asset-ticker-data-requests"
	TopicExchangeData         = "exchange-data-requests"
	TopicCurrencyTickerData   = "currency-ticker-data-requests"
	TopicComputeWalletBalance = "compute-wallet-balance-requests"

	TopicAssetInfosUpserted     = "asset-infos-upserted"
	TopicExchangeInfosUpserted  = "exchange-infos-upserted"
	TopicAssetTickersUpserted   = "asset-tickers-upserted"
	TopicCurrencyTickerUpserted = "currency-ticker-upserted"
)

// Job messages. Each kind is its own struct carrying a trace identifier, a
// submission timestamp and its type-specific payload; consumers dispatch by
// topic, not by inspecting a shared base type.

// AssetDataRequest asks an ingestion handler to refresh asset metadata for a
// batch of external ids.
type AssetDataRequest struct {
	TraceID     string    `json:"trace_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	ExternalIDs []string  `json:"external_ids"`
}

// AssetTickerDataRequest asks for fresh price observations for a batch of
// assets against a set of quote currencies.
type AssetTickerDataRequest struct {
	TraceID         string    `json:"trace_id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	ExternalIDs     []string  `json:"external_ids"`
	QuoteCurrencies []string  `json:"quote_currencies"`
}

// ExchangeDataRequest asks for fresh exchange metadata for a batch of
// external ids.
type ExchangeDataRequest struct {
	TraceID     string    `json:"trace_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	ExternalIDs []string  `json:"external_ids"`
}

// CurrencyTickerDataRequest asks for fresh exchange rates from a base
// currency to a set of quote currencies.
type CurrencyTickerDataRequest struct {
	TraceID         string    `json:"trace_id"`
	SubmittedAt     time.Time `json:"submitted_at"`
	BaseCurrency    string    `json:"base_currency"`
	QuoteCurrencies []string  `json:"quote_currencies"`
}

// ComputeWalletBalanceRequest asks the valuation engine to recompute one
// wallet.
type ComputeWalletBalanceRequest struct {
	TraceID     string    `json:"trace_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	WalletID    int64     `json:"wallet_id"`
}

// Domain events emitted after a successful ingestion commit.

// AssetInfosUpserted signals that asset metadata rows changed.
type AssetInfosUpserted struct {
	AssetIDs  []int64   `json:"asset_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// ExchangeInfosUpserted signals that exchange metadata rows changed.
type ExchangeInfosUpserted struct {
	ExchangeIDs []int64   `json:"exchange_ids"`
	Timestamp   time.Time `json:"timestamp"`
}

// AssetTickersUpserted signals that new asset price observations landed.
type AssetTickersUpserted struct {
	AssetIDs  []int64   `json:"asset_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// CurrencyTickerUpserted signals that new currency rate observations landed.
type CurrencyTickerUpserted struct {
	CurrencyIDs []int64   `json:"currency_ids"`
	Timestamp   time.Time `json:"timestamp"`
}

// Outbound is a message prepared for publishing to a topic.
type Outbound struct {
	Topic string
	Key   string
	Value interface{}
}
