package models

import (
	"time"
)

// Asset represents a tracked crypto asset known to the upstream data provider.
type Asset struct {
	ID         int64     `json:"id" db:"id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
