package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetTicker is a durable price observation for an asset against a quote currency.
// The latest observation per pair also lives in the Redis ticker cache; rows here
// are the retained history.
type AssetTicker struct {
	ID         int64           `json:"id" db:"id"`
	AssetID    int64           `json:"asset_id" db:"asset_id"`
	CurrencyID int64           `json:"currency_id" db:"currency_id"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	Value      decimal.Decimal `json:"value" db:"value"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`

	Asset    *Asset    `json:"asset,omitempty"`
	Currency *Currency `json:"currency,omitempty"`
}

// CurrencyTicker is a durable exchange-rate observation between two currencies.
type CurrencyTicker struct {
	ID              int64           `json:"id" db:"id"`
	BaseCurrencyID  int64           `json:"base_currency_id" db:"base_currency_id"`
	QuoteCurrencyID int64           `json:"quote_currency_id" db:"quote_currency_id"`
	Timestamp       time.Time       `json:"timestamp" db:"timestamp"`
	Value           decimal.Decimal `json:"value" db:"value"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
