package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// CloseHistoryStore is an in-memory implementation of storage.CloseHistoryStore.
type CloseHistoryStore struct {
	mu   sync.RWMutex
	data map[closeKey]*domain.ClosePoint
}

type closeKey struct {
	ticker string
	day    time.Time
}

// NewCloseHistoryStore creates a new in-memory close history store.
func NewCloseHistoryStore() *CloseHistoryStore {
	return &CloseHistoryStore{data: make(map[closeKey]*domain.ClosePoint)}
}

// Verify interface compliance at compile time.
var _ storage.CloseHistoryStore = (*CloseHistoryStore)(nil)

// InsertBulk appends close observations. Fails the whole batch with
// ErrDuplicateKey on a repeated (ticker, date).
func (s *CloseHistoryStore) InsertBulk(_ context.Context, points []*domain.ClosePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[closeKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Ticker == "" {
			return storage.ErrInvalidInput
		}
		k := closeKey{p.Ticker, domain.Day(p.ObservedAt)}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		c := *p
		c.ObservedAt = domain.Day(p.ObservedAt)
		s.data[closeKey{p.Ticker, c.ObservedAt}] = &c
	}
	return nil
}

// ListByTicker retrieves all closes for a ticker, ordered by date ASC.
func (s *CloseHistoryStore) ListByTicker(_ context.Context, ticker string) ([]*domain.ClosePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ClosePoint
	for _, p := range s.data {
		if p.Ticker == ticker {
			c := *p
			result = append(result, &c)
		}
	}
	sortClosePoints(result)
	return result, nil
}

// GetByTickerRange retrieves closes within [start, end] (inclusive).
func (s *CloseHistoryStore) GetByTickerRange(_ context.Context, ticker string, start, end time.Time) ([]*domain.ClosePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to := domain.Day(start), domain.Day(end)

	var result []*domain.ClosePoint
	for _, p := range s.data {
		if p.Ticker != ticker {
			continue
		}
		if p.ObservedAt.Before(from) || p.ObservedAt.After(to) {
			continue
		}
		c := *p
		result = append(result, &c)
	}
	sortClosePoints(result)
	return result, nil
}

func sortClosePoints(points []*domain.ClosePoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].ObservedAt.Before(points[j].ObservedAt)
	})
}
