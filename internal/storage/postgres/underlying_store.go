package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// UnderlyingStore implements storage.UnderlyingStore using PostgreSQL.
type UnderlyingStore struct {
	pool *Pool
}

// NewUnderlyingStore creates a new UnderlyingStore.
func NewUnderlyingStore(pool *Pool) *UnderlyingStore {
	return &UnderlyingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.UnderlyingStore = (*UnderlyingStore)(nil)

// InsertBulk adds the underlyings of a note atomically. Fails the entire
// batch with ErrDuplicateKey on a repeated (note_id, sequence).
func (s *UnderlyingStore) InsertBulk(ctx context.Context, underlyings []*domain.Underlying) error {
	if len(underlyings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO note_underlyings (
			note_id, sequence, ticker, spot_price, strike_price,
			ko_price, ki_price, last_close, last_price_update
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, u := range underlyings {
		_, err := tx.Exec(ctx, query,
			u.NoteID,
			u.Sequence,
			u.Ticker,
			u.SpotPrice,
			u.StrikePrice,
			u.KOPrice,
			u.KIPrice,
			u.LastClose,
			u.LastPriceUpdate,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert underlying in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ListByNote retrieves a note's underlyings ordered by sequence.
func (s *UnderlyingStore) ListByNote(ctx context.Context, noteID string) ([]*domain.Underlying, error) {
	query := `
		SELECT note_id, sequence, ticker, spot_price, strike_price,
		       ko_price, ki_price, last_close, last_price_update
		FROM note_underlyings
		WHERE note_id = $1
		ORDER BY sequence ASC
	`

	rows, err := s.pool.Query(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("list underlyings by note: %w", err)
	}
	defer rows.Close()

	return scanUnderlyings(rows)
}

// DistinctTickers returns every ticker referenced by any underlying.
func (s *UnderlyingStore) DistinctTickers(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT ticker FROM note_underlyings ORDER BY ticker ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker row: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticker rows: %w", err)
	}

	return tickers, nil
}

// UpdateLastClose records an observed close on every underlying row
// carrying the ticker, returning the number of rows touched.
func (s *UnderlyingStore) UpdateLastClose(ctx context.Context, ticker string, price float64, observedAt time.Time) (int, error) {
	query := `
		UPDATE note_underlyings
		SET last_close = $2, last_price_update = $3
		WHERE ticker = $1
	`

	tag, err := s.pool.Exec(ctx, query, ticker, price, observedAt)
	if err != nil {
		return 0, fmt.Errorf("update last close: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanUnderlyings scans multiple rows into a slice of Underlying.
func scanUnderlyings(rows pgx.Rows) ([]*domain.Underlying, error) {
	var underlyings []*domain.Underlying

	for rows.Next() {
		var u domain.Underlying

		err := rows.Scan(
			&u.NoteID,
			&u.Sequence,
			&u.Ticker,
			&u.SpotPrice,
			&u.StrikePrice,
			&u.KOPrice,
			&u.KIPrice,
			&u.LastClose,
			&u.LastPriceUpdate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan underlying row: %w", err)
		}

		underlyings = append(underlyings, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate underlying rows: %w", err)
	}

	return underlyings, nil
}
