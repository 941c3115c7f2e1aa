package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// NoteStore is an in-memory implementation of storage.NoteStore.
type NoteStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Note // keyed by note_id
}

// NewNoteStore creates a new in-memory note store.
func NewNoteStore() *NoteStore {
	return &NoteStore{data: make(map[string]*domain.Note)}
}

// Verify interface compliance at compile time.
var _ storage.NoteStore = (*NoteStore)(nil)

// Insert adds a new note. Returns ErrDuplicateKey if note_id exists.
func (s *NoteStore) Insert(_ context.Context, n *domain.Note) error {
	if n == nil || n.NoteID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[n.NoteID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[n.NoteID] = copyNote(n)
	return nil
}

// GetByID retrieves a note by its ID. Returns ErrNotFound if not exists.
func (s *NoteStore) GetByID(_ context.Context, noteID string) (*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, exists := s.data[noteID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyNote(n), nil
}

// List retrieves all notes, ordered by trade date then note_id.
func (s *NoteStore) List(_ context.Context) ([]*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Note, 0, len(s.data))
	for _, n := range s.data {
		result = append(result, copyNote(n))
	}
	sortNotes(result)
	return result, nil
}

// ListByStatus retrieves all notes with the given lifecycle status.
func (s *NoteStore) ListByStatus(_ context.Context, st domain.Status) ([]*domain.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Note
	for _, n := range s.data {
		if n.Status == st {
			result = append(result, copyNote(n))
		}
	}
	sortNotes(result)
	return result, nil
}

// UpdateStatus sets the note's status and optionally its event flags.
func (s *NoteStore) UpdateStatus(_ context.Context, noteID string, st domain.Status, events *storage.EventFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, exists := s.data[noteID]
	if !exists {
		return storage.ErrNotFound
	}

	n.Status = st
	if events != nil {
		n.KOOccurred = events.KOOccurred
		n.KODate = copyTime(events.KODate)
		n.KIOccurred = events.KIOccurred
		n.KIDate = copyTime(events.KIDate)
	}
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a note. Underlyings are owned by the note and removed
// by the caller's underlying store.
func (s *NoteStore) Delete(_ context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[noteID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, noteID)
	return nil
}

func sortNotes(notes []*domain.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].TradeDate.Equal(notes[j].TradeDate) {
			return notes[i].TradeDate.Before(notes[j].TradeDate)
		}
		return notes[i].NoteID < notes[j].NoteID
	})
}

// copyNote returns a deep copy to prevent external mutation.
func copyNote(n *domain.Note) *domain.Note {
	c := *n
	c.CustodianBank = copyString(n.CustodianBank)
	c.ISIN = copyString(n.ISIN)
	c.CouponBarrier = copyFloat(n.CouponBarrier)
	c.KOFrequency = copyString(n.KOFrequency)
	c.KODate = copyTime(n.KODate)
	c.KIDate = copyTime(n.KIDate)
	if n.CouponPaymentDates != nil {
		c.CouponPaymentDates = append([]time.Time(nil), n.CouponPaymentDates...)
	}
	if n.StepDownBarriers != nil {
		c.StepDownBarriers = append([]domain.StepDownBarrier(nil), n.StepDownBarriers...)
	}
	return &c
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
