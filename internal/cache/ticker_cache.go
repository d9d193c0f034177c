package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Cache namespaces distinguishing asset tickers from currency tickers.
const (
	NamespaceAssets     = "assets"
	NamespaceCurrencies = "currencies"
)

// TickerPair is a normalized, case-insensitive (left, right) symbol pair used
// as the cache key. Pairs constructed from any casing compare equal.
type TickerPair struct {
	left  string
	right string
}

// NewTickerPair builds a pair from the two symbols, normalizing to lower case.
func NewTickerPair(left, right string) TickerPair {
	return TickerPair{
		left:  strings.ToLower(strings.TrimSpace(left)),
		right: strings.ToLower(strings.TrimSpace(right)),
	}
}

// ParseTickerPair parses the "left/right" string form produced by String.
func ParseTickerPair(s string) (TickerPair, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TickerPair{}, fmt.Errorf("invalid ticker pair %q", s)
	}
	return NewTickerPair(parts[0], parts[1]), nil
}

func (p TickerPair) Left() string  { return p.left }
func (p TickerPair) Right() string { return p.right }

// String returns the normalized cache-key form, e.g. "btc/usd".
func (p TickerPair) String() string {
	return p.left + "/" + p.right
}

func (p TickerPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *TickerPair) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	pair, err := ParseTickerPair(s)
	if err != nil {
		return err
	}
	*p = pair
	return nil
}

// Ticker is the latest known price observation for a pair.
type Ticker struct {
	Pair      TickerPair      `json:"pair"`
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// TickerCache stores the latest Ticker per pair in a Redis hash, one hash per
// namespace. Entries have no TTL: the cache is a "last observed value"
// dictionary, overwritten on every new ingestion.
type TickerCache struct {
	redis *redis.Client
	key   string
	log   *logrus.Entry
}

// NewTickerCache creates a ticker cache scoped to the given namespace.
func NewTickerCache(redisClient *redis.Client, namespace string) *TickerCache {
	return &TickerCache{
		redis: redisClient,
		key:   "tickers:" + namespace,
		log:   logrus.WithField("component", "ticker_cache").WithField("namespace", namespace),
	}
}

// StoreTickers upserts each ticker into the namespace hash, keyed by the
// pair's normalized string form. Last write wins; there is no version check.
func (c *TickerCache) StoreTickers(ctx context.Context, tickers []Ticker) error {
	if len(tickers) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(tickers))
	for _, ticker := range tickers {
		data, err := json.Marshal(ticker)
		if err != nil {
			return fmt.Errorf("failed to serialize ticker %s: %w", ticker.Pair, err)
		}
		fields[ticker.Pair.String()] = data
	}

	if err := c.redis.HSet(ctx, c.key, fields).Err(); err != nil {
		return fmt.Errorf("failed to store tickers: %w", err)
	}

	c.log.WithField("count", len(tickers)).Debug("Stored tickers")
	return nil
}

// GetTickers looks up each requested pair. Pairs with no stored value are
// silently omitted from the result; a missing ticker is never an error.
func (c *TickerCache) GetTickers(ctx context.Context, pairs []TickerPair) ([]Ticker, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	fields := make([]string, len(pairs))
	for i, pair := range pairs {
		fields[i] = pair.String()
	}

	values, err := c.redis.HMGet(ctx, c.key, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get tickers: %w", err)
	}

	tickers := make([]Ticker, 0, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			c.log.WithField("pair", fields[i]).Warn("Unexpected cache entry type, skipping")
			continue
		}
		var ticker Ticker
		if err := json.Unmarshal([]byte(raw), &ticker); err != nil {
			c.log.WithField("pair", fields[i]).WithError(err).Warn("Failed to deserialize cached ticker, skipping")
			continue
		}
		tickers = append(tickers, ticker)
	}

	return tickers, nil
}
