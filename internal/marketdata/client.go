package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/config"
	"github.com/sirupsen/logrus"
)

// Client is the HTTP client for the upstream market data provider.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	log        *logrus.Entry
}

// NewClient creates a new market data client instance.
func NewClient(cfg *config.MarketAPIConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		log:     logrus.WithField("component", "market_api"),
	}
}

// GetAssets retrieves asset metadata for a batch of external ids.
func (c *Client) GetAssets(ctx context.Context, externalIDs []string) ([]AssetInfo, error) {
	var response assetsResponse
	err := c.makeRequest(ctx, "POST", "/v1/assets", assetsRequest{IDs: externalIDs}, &response)
	if err != nil {
		return nil, err
	}
	return response.Assets, nil
}

// GetExchanges retrieves exchange metadata for a batch of external ids.
func (c *Client) GetExchanges(ctx context.Context, externalIDs []string) ([]ExchangeInfo, error) {
	var response exchangesResponse
	err := c.makeRequest(ctx, "POST", "/v1/exchanges", exchangesRequest{IDs: externalIDs}, &response)
	if err != nil {
		return nil, err
	}
	return response.Exchanges, nil
}

// GetAssetTickers retrieves price observations for a batch of assets against
// a batch of quote currencies.
func (c *Client) GetAssetTickers(ctx context.Context, externalIDs, quoteCurrencies []string) ([]AssetTickerInfo, error) {
	var response tickersResponse
	req := tickersRequest{IDs: externalIDs, QuoteCurrencies: quoteCurrencies}
	err := c.makeRequest(ctx, "POST", "/v1/tickers", req, &response)
	if err != nil {
		return nil, err
	}
	return response.Tickers, nil
}

// GetCurrencyRates retrieves exchange rates from a base currency to a batch
// of quote currencies.
func (c *Client) GetCurrencyRates(ctx context.Context, baseCurrency string, quoteCurrencies []string) ([]CurrencyRateInfo, error) {
	params := url.Values{}
	params.Set("base", baseCurrency)
	params.Set("quotes", strings.Join(quoteCurrencies, ","))

	var response ratesResponse
	err := c.makeRequest(ctx, "GET", "/v1/rates?"+params.Encode(), nil, &response)
	if err != nil {
		return nil, err
	}
	return response.Rates, nil
}

// makeRequest is a helper method to make HTTP requests to the provider.
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Coinfolio-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WithError(err).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("market API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
