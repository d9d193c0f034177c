package models

// CollectionSettings holds the stored settings rows that drive job-message
// preparation: which external ids to collect and which quote currencies to
// price them against.
type CollectionSettings struct {
	AssetExternalIDs    []string `json:"asset_external_ids"`
	ExchangeExternalIDs []string `json:"exchange_external_ids"`
	QuoteCurrencies     []string `json:"quote_currencies"`
	BaseCurrency        string   `json:"base_currency"`
}
