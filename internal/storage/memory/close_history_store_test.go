package memory

import (
	"context"
	"errors"
	"testing"
	"time"

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

func TestCloseHistoryStore_InsertAndList(t *testing.T) {
	store := NewCloseHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{
		closePoint("TSLA", 2026, 6, 2, 101),
		closePoint("TSLA", 2026, 6, 1, 100),
		closePoint("NVDA", 2026, 6, 1, 200),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.ListByTicker(ctx, "TSLA")
	if err != nil {
		t.Fatalf("ListByTicker failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if !got[0].ObservedAt.Before(got[1].ObservedAt) {
		t.Error("points not ordered by date")
	}
}

func TestCloseHistoryStore_DuplicateDay(t *testing.T) {
	store := NewCloseHistoryStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.ClosePoint{closePoint("TSLA", 2026, 6, 1, 100)}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.ClosePoint{closePoint("TSLA", 2026, 6, 1, 101)})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCloseHistoryStore_Range(t *testing.T) {
	store := NewCloseHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.ClosePoint{
		closePoint("TSLA", 2026, 5, 31, 99),
		closePoint("TSLA", 2026, 6, 1, 100),
		closePoint("TSLA", 2026, 6, 15, 105),
		closePoint("TSLA", 2026, 7, 1, 110),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByTickerRange(ctx, "TSLA",
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetByTickerRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points in June, got %d", len(got))
	}
}
