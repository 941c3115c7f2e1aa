package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleNote(id string) *domain.Note {
	return &domain.Note{
		NoteID:           id,
		CustomerName:     "Alpha Capital",
		CustodianBank:    ptr("UBS SG"),
		ProductType:      domain.ProductFCN,
		Notional:         1_000_000,
		ISIN:             ptr("XS1234567890"),
		TradeDate:        date(2026, 1, 10),
		IssueDate:        date(2026, 1, 15),
		ObservationStart: date(2026, 2, 1),
		FinalValuation:   date(2026, 12, 15),
		CouponPerAnnum:   0.12,
		CouponPaymentDates: []time.Time{
			date(2026, 3, 15), date(2026, 6, 15), date(2026, 9, 15), date(2026, 12, 15),
		},
		KOModeType: domain.KODaily,
		KIModeType: domain.KIDaily,
		Status:     domain.StatusNotObserved,
	}
}

func TestNoteStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	n := sampleNote("note-001")
	n.ProductType = domain.ProductPhoenix
	n.CouponBarrier = ptr(450.0)
	n.StepDownBarriers = []domain.StepDownBarrier{
		{Period: 1, Price: 608.84},
		{Period: 2, Price: 596.66},
	}

	err := store.Insert(ctx, n)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "note-001")
	require.NoError(t, err)

	assert.Equal(t, n.NoteID, retrieved.NoteID)
	assert.Equal(t, n.CustomerName, retrieved.CustomerName)
	assert.Equal(t, *n.CustodianBank, *retrieved.CustodianBank)
	assert.Equal(t, domain.ProductPhoenix, retrieved.ProductType)
	assert.Equal(t, n.Notional, retrieved.Notional)
	assert.Equal(t, *n.ISIN, *retrieved.ISIN)
	assert.True(t, retrieved.TradeDate.Equal(n.TradeDate))
	assert.True(t, retrieved.FinalValuation.Equal(n.FinalValuation))
	assert.Equal(t, *n.CouponBarrier, *retrieved.CouponBarrier)
	assert.Len(t, retrieved.CouponPaymentDates, 4)
	assert.Equal(t, n.StepDownBarriers, retrieved.StepDownBarriers)
	assert.Equal(t, domain.StatusNotObserved, retrieved.Status)
	assert.False(t, retrieved.KOOccurred)
	assert.NotZero(t, retrieved.CreatedAt)
}

func TestNoteStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, sampleNote("note-dup"))
	require.NoError(t, err)

	err = store.Insert(ctx, sampleNote("note-dup"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestNoteStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)

	_, err := store.GetByID(context.Background(), "nonexistent-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNoteStore_ListOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	later := sampleNote("note-b")
	later.TradeDate = date(2026, 3, 1)
	earlier := sampleNote("note-a")
	earlier.TradeDate = date(2026, 1, 10)

	require.NoError(t, store.Insert(ctx, later))
	require.NoError(t, store.Insert(ctx, earlier))

	notes, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "note-a", notes[0].NoteID)
	assert.Equal(t, "note-b", notes[1].NoteID)
}

func TestNoteStore_ListByStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	alive := sampleNote("note-alive")
	alive.Status = domain.StatusAlive
	ended := sampleNote("note-ended")
	ended.Status = domain.StatusEnded

	require.NoError(t, store.Insert(ctx, alive))
	require.NoError(t, store.Insert(ctx, ended))

	notes, err := store.ListByStatus(ctx, domain.StatusAlive)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "note-alive", notes[0].NoteID)
}

func TestNoteStore_UpdateStatusWithEvents(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleNote("note-ko")))

	koDay := date(2026, 6, 1)
	err := store.UpdateStatus(ctx, "note-ko", domain.StatusKnockedOut, &storage.EventFlags{
		KOOccurred: true,
		KODate:     &koDay,
	})
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "note-ko")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusKnockedOut, retrieved.Status)
	assert.True(t, retrieved.KOOccurred)
	require.NotNil(t, retrieved.KODate)
	assert.True(t, retrieved.KODate.Equal(koDay))
	assert.False(t, retrieved.KIOccurred)
}

func TestNoteStore_UpdateStatusNilEventsKeepsFlags(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)
	ctx := context.Background()

	kiDay := date(2026, 5, 20)
	n := sampleNote("note-ki")
	n.KIOccurred = true
	n.KIDate = &kiDay
	require.NoError(t, store.Insert(ctx, n))

	err := store.UpdateStatus(ctx, "note-ki", domain.StatusEnded, nil)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "note-ki")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, retrieved.Status)
	assert.True(t, retrieved.KIOccurred, "nil events must not clear the KI flag")
	require.NotNil(t, retrieved.KIDate)
	assert.True(t, retrieved.KIDate.Equal(kiDay))
}

func TestNoteStore_UpdateStatusNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewNoteStore(pool)

	err := store.UpdateStatus(context.Background(), "nonexistent-id", domain.StatusAlive, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNoteStore_DeleteCascadesUnderlyings(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	notes := NewNoteStore(pool)
	underlyings := NewUnderlyingStore(pool)
	ctx := context.Background()

	require.NoError(t, notes.Insert(ctx, sampleNote("note-del")))
	require.NoError(t, underlyings.InsertBulk(ctx, []*domain.Underlying{
		{NoteID: "note-del", Sequence: 1, Ticker: "TSLA", SpotPrice: 250, StrikePrice: 225},
	}))

	require.NoError(t, notes.Delete(ctx, "note-del"))

	_, err := notes.GetByID(ctx, "note-del")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rows, err := underlyings.ListByNote(ctx, "note-del")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
