package storage

import (
	"context"
	"time"

	"structured-notes-tracker/internal/domain"
)

// EventFlags carries the barrier event flags written together with a
// status transition. Flags are set once by the barrier engine; a nil
// EventFlags on UpdateStatus leaves the persisted flags untouched.
type EventFlags struct {
	KOOccurred bool
	KODate     *time.Time
	KIOccurred bool
	KIDate     *time.Time
}

// NoteStore provides access to structured_notes storage.
type NoteStore interface {
	// Insert adds a new note. Returns ErrDuplicateKey if note_id exists.
	Insert(ctx context.Context, n *domain.Note) error

	// GetByID retrieves a note by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, noteID string) (*domain.Note, error)

	// List retrieves all notes, ordered by trade date then note_id.
	List(ctx context.Context) ([]*domain.Note, error)

	// ListByStatus retrieves all notes with the given lifecycle status.
	ListByStatus(ctx context.Context, s domain.Status) ([]*domain.Note, error)

	// UpdateStatus sets the note's status and, when events is non-nil,
	// its barrier event flags. Each call is an independent single-row
	// commit. Returns ErrNotFound if the note does not exist.
	UpdateStatus(ctx context.Context, noteID string, s domain.Status, events *EventFlags) error

	// Delete removes a note and, by ownership, its underlyings.
	Delete(ctx context.Context, noteID string) error
}

// UnderlyingStore provides access to note_underlyings storage.
type UnderlyingStore interface {
	// InsertBulk adds the underlyings of a note. Returns ErrDuplicateKey
	// on a repeated (note_id, sequence).
	InsertBulk(ctx context.Context, underlyings []*domain.Underlying) error

	// ListByNote retrieves a note's underlyings ordered by sequence.
	ListByNote(ctx context.Context, noteID string) ([]*domain.Underlying, error)

	// DistinctTickers returns every ticker referenced by any underlying.
	DistinctTickers(ctx context.Context) ([]string, error)

	// UpdateLastClose records an observed close on every underlying row
	// carrying the ticker, returning the number of rows touched.
	UpdateLastClose(ctx context.Context, ticker string, price float64, observedAt time.Time) (int, error)
}

// CloseHistoryStore provides access to the daily close history kept for
// audit and period-end reporting.
type CloseHistoryStore interface {
	// InsertBulk appends close observations. Duplicate (ticker, date)
	// pairs fail the batch with ErrDuplicateKey.
	InsertBulk(ctx context.Context, points []*domain.ClosePoint) error

	// ListByTicker retrieves all closes for a ticker, ordered by date ASC.
	ListByTicker(ctx context.Context, ticker string) ([]*domain.ClosePoint, error)

	// GetByTickerRange retrieves closes within [start, end] (inclusive).
	GetByTickerRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.ClosePoint, error)
}
