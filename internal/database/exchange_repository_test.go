package database

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/coinfolio-go/internal/models"
)

func TestUpsertExchanges(t *testing.T) {
	mock := newMockPool(t)
	repo := NewExchangeRepository(mock)

	volume := decimal.RequireFromString("1000000")

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO exchanges").
		WithArgs("binance", "Binance", "Malta", "https://binance.com", volume).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectCommit()

	ids, err := repo.UpsertExchanges(context.Background(), []models.Exchange{
		{ExternalID: "binance", Name: "Binance", Country: "Malta", URL: "https://binance.com", TradeVolumeUSD: volume},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
