package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

var observedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestInsertAssetTickers(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTickerRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10), int64(1), observedAt).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO asset_tickers").
		WithArgs(int64(10), int64(1), observedAt, decimal.RequireFromString("100000")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertAssetTickers(context.Background(), []models.AssetTicker{
		{AssetID: 10, CurrencyID: 1, Timestamp: observedAt, Value: decimal.RequireFromString("100000")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAssetTickersSkipsExistingTuples(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTickerRepository(mock)

	// A replayed message finds its tuple already stored and inserts nothing.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(10), int64(1), observedAt).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectCommit()

	inserted, err := repo.InsertAssetTickers(context.Background(), []models.AssetTicker{
		{AssetID: 10, CurrencyID: 1, Timestamp: observedAt, Value: decimal.RequireFromString("100000")},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCurrencyTickers(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTickerRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1), int64(2), observedAt).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO currency_tickers").
		WithArgs(int64(1), int64(2), observedAt, decimal.RequireFromString("0.92")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertCurrencyTickers(context.Background(), []models.CurrencyTicker{
		{BaseCurrencyID: 1, QuoteCurrencyID: 2, Timestamp: observedAt, Value: decimal.RequireFromString("0.92")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOlderThan(t *testing.T) {
	mock := newMockPool(t)
	repo := NewTickerRepository(mock)
	cutoff := time.Now().Add(-720 * time.Hour)

	mock.ExpectExec("DELETE FROM asset_tickers").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 40))
	mock.ExpectExec("DELETE FROM currency_tickers").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	removed, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
