package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

// Settings keys for the stored collection configuration rows.
const (
	settingTrackedAssets    = "tracked_assets"
	settingTrackedExchanges = "tracked_exchanges"
	settingQuoteCurrencies  = "quote_currencies"
	settingBaseCurrency     = "base_currency"
)

// SettingsRepository reads the stored settings rows that drive job-message
// preparation.
type SettingsRepository struct {
	pool DatabasePool
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(pool DatabasePool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetCollectionSettings loads the collection settings rows. Missing rows
// leave the corresponding field empty; preparers treat an empty field as
// "nothing to collect".
func (r *SettingsRepository) GetCollectionSettings(ctx context.Context) (*models.CollectionSettings, error) {
	query := `SELECT key, value FROM collection_settings`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection settings: %w", err)
	}
	defer rows.Close()

	settings := &models.CollectionSettings{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan collection setting: %w", err)
		}
		switch key {
		case settingTrackedAssets:
			settings.AssetExternalIDs = splitSetting(value)
		case settingTrackedExchanges:
			settings.ExchangeExternalIDs = splitSetting(value)
		case settingQuoteCurrencies:
			settings.QuoteCurrencies = splitSetting(value)
		case settingBaseCurrency:
			settings.BaseCurrency = strings.TrimSpace(value)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection settings: %w", err)
	}

	return settings, nil
}

func splitSetting(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
