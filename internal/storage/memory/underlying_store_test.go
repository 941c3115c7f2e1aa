package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

func testUnderlying(noteID string, seq int, ticker string) *domain.Underlying {
	return &domain.Underlying{
		NoteID:      noteID,
		Sequence:    seq,
		Ticker:      ticker,
		SpotPrice:   100,
		StrikePrice: 100,
	}
}

func TestUnderlyingStore_InsertBulkAndList(t *testing.T) {
	store := NewUnderlyingStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Underlying{
		testUnderlying("note-1", 2, "NVDA"),
		testUnderlying("note-1", 1, "TSLA"),
		testUnderlying("note-2", 1, "META"),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.ListByNote(ctx, "note-1")
	if err != nil {
		t.Fatalf("ListByNote failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 underlyings, got %d", len(got))
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("not ordered by sequence: %+v", got)
	}
}

func TestUnderlyingStore_DuplicateSequence(t *testing.T) {
	store := NewUnderlyingStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Underlying{
		testUnderlying("note-1", 1, "TSLA"),
		testUnderlying("note-1", 1, "NVDA"),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for repeated sequence, got %v", err)
	}

	// Failed batch must not leave partial rows behind.
	got, _ := store.ListByNote(ctx, "note-1")
	if len(got) != 0 {
		t.Errorf("expected no rows after failed batch, got %d", len(got))
	}
}

func TestUnderlyingStore_DistinctTickers(t *testing.T) {
	store := NewUnderlyingStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Underlying{
		testUnderlying("note-1", 1, "TSLA"),
		testUnderlying("note-1", 2, "NVDA"),
		testUnderlying("note-2", 1, "TSLA"), // repeated across notes
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	tickers, err := store.DistinctTickers(ctx)
	if err != nil {
		t.Fatalf("DistinctTickers failed: %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "NVDA" || tickers[1] != "TSLA" {
		t.Errorf("tickers = %v, want [NVDA TSLA]", tickers)
	}
}

func TestUnderlyingStore_UpdateLastClose(t *testing.T) {
	store := NewUnderlyingStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Underlying{
		testUnderlying("note-1", 1, "TSLA"),
		testUnderlying("note-2", 1, "TSLA"),
		testUnderlying("note-2", 2, "NVDA"),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	at := time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC)
	updated, err := store.UpdateLastClose(ctx, "TSLA", 123.45, at)
	if err != nil {
		t.Fatalf("UpdateLastClose failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2 (every row with the ticker)", updated)
	}

	got, _ := store.ListByNote(ctx, "note-2")
	for _, u := range got {
		switch u.Ticker {
		case "TSLA":
			if u.LastClose == nil || *u.LastClose != 123.45 {
				t.Errorf("TSLA close = %v, want 123.45", u.LastClose)
			}
		case "NVDA":
			if u.LastClose != nil {
				t.Error("NVDA close must be untouched")
			}
		}
	}
}
