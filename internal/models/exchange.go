package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange represents exchange metadata fetched from the upstream provider.
type Exchange struct {
	ID             int64           `json:"id" db:"id"`
	ExternalID     string          `json:"external_id" db:"external_id"`
	Name           string          `json:"name" db:"name"`
	Country        string          `json:"country" db:"country"`
	URL            string          `json:"url" db:"url"`
	TradeVolumeUSD decimal.Decimal `json:"trade_volume_usd" db:"trade_volume_usd"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
