package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind discriminates how a transaction is priced during valuation.
type TransactionKind string

const (
	TransactionBuy      TransactionKind = "buy"
	TransactionSell     TransactionKind = "sell"
	TransactionTransfer TransactionKind = "transfer"
)

// Wallet owns a set of holdings denominated in a single currency. CurrentValue
// and Change are derived fields recomputed by the valuation engine.
type Wallet struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	CurrencyID   int64           `json:"currency_id" db:"currency_id"`
	InitialValue decimal.Decimal `json:"initial_value" db:"initial_value"`
	CurrentValue decimal.Decimal `json:"current_value" db:"current_value"`
	Change       decimal.Decimal `json:"change" db:"change"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`

	Currency *Currency `json:"currency,omitempty"`
	Holdings []Holding `json:"holdings,omitempty"`
}

// Holding is an aggregated asset position within a wallet. CurrentValue and
// Change are derived, not independently authoritative.
type Holding struct {
	ID           int64           `json:"id" db:"id"`
	WalletID     int64           `json:"wallet_id" db:"wallet_id"`
	AssetID      int64           `json:"asset_id" db:"asset_id"`
	Qty          decimal.Decimal `json:"qty" db:"qty"`
	InitialValue decimal.Decimal `json:"initial_value" db:"initial_value"`
	CurrentValue decimal.Decimal `json:"current_value" db:"current_value"`
	Change       decimal.Decimal `json:"change" db:"change"`

	Asset *Asset `json:"asset,omitempty"`
}

// Transaction is a single buy/sell or transfer within a wallet.
type Transaction struct {
	ID           int64           `json:"id" db:"id"`
	WalletID     int64           `json:"wallet_id" db:"wallet_id"`
	AssetID      int64           `json:"asset_id" db:"asset_id"`
	CurrencyID   int64           `json:"currency_id" db:"currency_id"`
	Kind         TransactionKind `json:"kind" db:"kind"`
	Qty          decimal.Decimal `json:"qty" db:"qty"`
	InitialValue decimal.Decimal `json:"initial_value" db:"initial_value"`
	CurrentValue decimal.Decimal `json:"current_value" db:"current_value"`
	Change       decimal.Decimal `json:"change" db:"change"`
	ExecutedAt   time.Time       `json:"executed_at" db:"executed_at"`

	Asset    *Asset    `json:"asset,omitempty"`
	Currency *Currency `json:"currency,omitempty"`
}
