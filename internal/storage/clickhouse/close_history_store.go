package clickhouse

import (
	"context"
	"fmt"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// CloseHistoryStore implements storage.CloseHistoryStore using ClickHouse.
type CloseHistoryStore struct {
	conn *Conn
}

// NewCloseHistoryStore creates a new CloseHistoryStore.
func NewCloseHistoryStore(conn *Conn) *CloseHistoryStore {
	return &CloseHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CloseHistoryStore = (*CloseHistoryStore)(nil)

// InsertBulk appends close observations. Fails the entire batch with
// ErrDuplicateKey on a repeated (ticker, date). ClickHouse MergeTree does
// not enforce uniqueness, so duplicates are detected explicitly up front.
func (s *CloseHistoryStore) InsertBulk(ctx context.Context, points []*domain.ClosePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		ticker string
		day    time.Time
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.Ticker == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Ticker, domain.Day(p.ObservedAt)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.Ticker, domain.Day(p.ObservedAt))
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO underlying_closes (ticker, observed_at, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.Ticker, domain.Day(p.ObservedAt), p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByTicker retrieves all closes for a ticker, ordered by date ASC.
func (s *CloseHistoryStore) ListByTicker(ctx context.Context, ticker string) ([]*domain.ClosePoint, error) {
	query := `
		SELECT ticker, observed_at, price
		FROM underlying_closes
		WHERE ticker = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query closes by ticker: %w", err)
	}
	defer rows.Close()

	return scanClosePoints(rows)
}

// GetByTickerRange retrieves closes within [start, end] (inclusive).
func (s *CloseHistoryStore) GetByTickerRange(ctx context.Context, ticker string, start, end time.Time) ([]*domain.ClosePoint, error) {
	query := `
		SELECT ticker, observed_at, price
		FROM underlying_closes
		WHERE ticker = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, ticker, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("query closes by range: %w", err)
	}
	defer rows.Close()

	return scanClosePoints(rows)
}

// exists checks if a close with the given key exists.
func (s *CloseHistoryStore) exists(ctx context.Context, ticker string, day time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM underlying_closes
		WHERE ticker = ? AND observed_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, ticker, day).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanClosePoints scans multiple rows.
func scanClosePoints(rows chRows) ([]*domain.ClosePoint, error) {
	var points []*domain.ClosePoint

	for rows.Next() {
		var p domain.ClosePoint

		if err := rows.Scan(&p.Ticker, &p.ObservedAt, &p.Price); err != nil {
			return nil, fmt.Errorf("scan close row: %w", err)
		}

		p.ObservedAt = domain.Day(p.ObservedAt)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate close rows: %w", err)
	}

	return points, nil
}
