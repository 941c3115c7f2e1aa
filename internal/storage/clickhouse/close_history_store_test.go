package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

func closePoint(ticker string, y int, m time.Month, d int, price float64) *domain.ClosePoint {
	return &domain.ClosePoint{
		Ticker:     ticker,
		ObservedAt: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Price:      price,
	}
}

func TestCloseHistoryStore_InsertBulkAndListByTicker(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCloseHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{
		closePoint("TSLA", 2026, 6, 2, 251.30),
		closePoint("TSLA", 2026, 6, 1, 248.75),
		closePoint("NVDA", 2026, 6, 1, 131.20),
	})
	require.NoError(t, err)

	points, err := store.ListByTicker(ctx, "TSLA")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 248.75, points[0].Price)
	assert.Equal(t, 251.30, points[1].Price)
	assert.True(t, points[0].ObservedAt.Before(points[1].ObservedAt))
}

func TestCloseHistoryStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCloseHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{
		closePoint("TSLA", 2026, 6, 1, 248.75),
		closePoint("TSLA", 2026, 6, 1, 249.00),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCloseHistoryStore_InsertBulkExistingDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCloseHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{closePoint("TSLA", 2026, 6, 1, 248.75)})
	require.NoError(t, err)

	err = store.InsertBulk(ctx, []*domain.ClosePoint{closePoint("TSLA", 2026, 6, 1, 249.00)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCloseHistoryStore_GetByTickerRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCloseHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{
		closePoint("TSLA", 2026, 5, 31, 245.00),
		closePoint("TSLA", 2026, 6, 1, 248.75),
		closePoint("TSLA", 2026, 6, 15, 252.10),
		closePoint("TSLA", 2026, 7, 1, 260.00),
	})
	require.NoError(t, err)

	points, err := store.GetByTickerRange(ctx, "TSLA",
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 248.75, points[0].Price)
	assert.Equal(t, 252.10, points[1].Price)
}
