package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// UnderlyingStore is an in-memory implementation of storage.UnderlyingStore.
type UnderlyingStore struct {
	mu   sync.RWMutex
	data map[underlyingKey]*domain.Underlying
}

type underlyingKey struct {
	noteID   string
	sequence int
}

// NewUnderlyingStore creates a new in-memory underlying store.
func NewUnderlyingStore() *UnderlyingStore {
	return &UnderlyingStore{data: make(map[underlyingKey]*domain.Underlying)}
}

// Verify interface compliance at compile time.
var _ storage.UnderlyingStore = (*UnderlyingStore)(nil)

// InsertBulk adds the underlyings of a note. Fails the whole batch with
// ErrDuplicateKey on a repeated (note_id, sequence).
func (s *UnderlyingStore) InsertBulk(_ context.Context, underlyings []*domain.Underlying) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[underlyingKey]struct{}, len(underlyings))
	for _, u := range underlyings {
		if u == nil || u.NoteID == "" || u.Sequence < 1 {
			return storage.ErrInvalidInput
		}
		k := underlyingKey{u.NoteID, u.Sequence}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, u := range underlyings {
		s.data[underlyingKey{u.NoteID, u.Sequence}] = copyUnderlying(u)
	}
	return nil
}

// ListByNote retrieves a note's underlyings ordered by sequence.
func (s *UnderlyingStore) ListByNote(_ context.Context, noteID string) ([]*domain.Underlying, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Underlying
	for _, u := range s.data {
		if u.NoteID == noteID {
			result = append(result, copyUnderlying(u))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sequence < result[j].Sequence })
	return result, nil
}

// DistinctTickers returns every ticker referenced by any underlying.
func (s *UnderlyingStore) DistinctTickers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, u := range s.data {
		if u.Ticker != "" {
			seen[u.Ticker] = struct{}{}
		}
	}

	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// UpdateLastClose records an observed close on every row with the ticker.
func (s *UnderlyingStore) UpdateLastClose(_ context.Context, ticker string, price float64, observedAt time.Time) (int, error) {
	if ticker == "" || price <= 0 {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, u := range s.data {
		if u.Ticker == ticker {
			p := price
			at := observedAt
			u.LastClose = &p
			u.LastPriceUpdate = &at
			updated++
		}
	}
	return updated, nil
}

// DeleteByNote removes all underlyings owned by a note.
func (s *UnderlyingStore) DeleteByNote(_ context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.data {
		if k.noteID == noteID {
			delete(s.data, k)
		}
	}
	return nil
}

func copyUnderlying(u *domain.Underlying) *domain.Underlying {
	c := *u
	c.Name = copyString(u.Name)
	c.KOPrice = copyFloat(u.KOPrice)
	c.KIPrice = copyFloat(u.KIPrice)
	c.LastClose = copyFloat(u.LastClose)
	c.LastPriceUpdate = copyTime(u.LastPriceUpdate)
	return &c
}
