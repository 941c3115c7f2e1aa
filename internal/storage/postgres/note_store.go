package postgres

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/storage"
)

// NoteStore implements storage.NoteStore using PostgreSQL.
type NoteStore struct {
	pool *Pool
}

// NewNoteStore creates a new NoteStore.
func NewNoteStore(pool *Pool) *NoteStore {
	return &NoteStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NoteStore = (*NoteStore)(nil)

const noteColumns = `
	note_id, customer_name, custodian_bank, product_type, notional, isin,
	trade_date, issue_date, observation_start, final_valuation,
	coupon_per_annum, coupon_barrier, coupon_payment_dates,
	ko_mode, ko_frequency, ki_mode, step_down_barriers,
	status, ko_occurred, ko_date, ki_occurred, ki_date,
	created_at, updated_at
`

// Insert adds a new note. Returns ErrDuplicateKey if note_id exists.
func (s *NoteStore) Insert(ctx context.Context, n *domain.Note) error {
	query := `
		INSERT INTO structured_notes (
			note_id, customer_name, custodian_bank, product_type, notional, isin,
			trade_date, issue_date, observation_start, final_valuation,
			coupon_per_annum, coupon_barrier, coupon_payment_dates,
			ko_mode, ko_frequency, ki_mode, step_down_barriers,
			status, ko_occurred, ko_date, ki_occurred, ki_date
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
	`

	_, err := s.pool.Exec(ctx, query,
		n.NoteID,
		n.CustomerName,
		n.CustodianBank,
		string(n.ProductType),
		n.Notional,
		n.ISIN,
		n.TradeDate,
		n.IssueDate,
		n.ObservationStart,
		n.FinalValuation,
		n.CouponPerAnnum,
		n.CouponBarrier,
		n.CouponPaymentDates,
		string(n.KOModeType),
		n.KOFrequency,
		string(n.KIModeType),
		encodeStepDowns(n.StepDownBarriers),
		string(n.Status),
		n.KOOccurred,
		n.KODate,
		n.KIOccurred,
		n.KIDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetByID retrieves a note by its ID. Returns ErrNotFound if not exists.
func (s *NoteStore) GetByID(ctx context.Context, noteID string) (*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM structured_notes WHERE note_id = $1`

	row := s.pool.QueryRow(ctx, query, noteID)
	n, err := scanNote(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get note by id: %w", err)
	}
	return n, nil
}

// List retrieves all notes, ordered by trade date then note_id.
func (s *NoteStore) List(ctx context.Context) ([]*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM structured_notes ORDER BY trade_date ASC, note_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// ListByStatus retrieves all notes with the given lifecycle status.
func (s *NoteStore) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM structured_notes WHERE status = $1 ORDER BY trade_date ASC, note_id ASC`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("list notes by status: %w", err)
	}
	defer rows.Close()

	return scanNotes(rows)
}

// UpdateStatus sets the note's status and, when events is non-nil, its
// barrier event flags. A nil events leaves the persisted flags untouched.
func (s *NoteStore) UpdateStatus(ctx context.Context, noteID string, status domain.Status, events *storage.EventFlags) error {
	var query string
	args := []any{noteID, string(status)}

	if events == nil {
		query = `
			UPDATE structured_notes
			SET status = $2, updated_at = now()
			WHERE note_id = $1
		`
	} else {
		query = `
			UPDATE structured_notes
			SET status = $2,
			    ko_occurred = $3, ko_date = $4,
			    ki_occurred = $5, ki_date = $6,
			    updated_at = now()
			WHERE note_id = $1
		`
		args = append(args, events.KOOccurred, events.KODate, events.KIOccurred, events.KIDate)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update note status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a note. Underlyings go with it via ON DELETE CASCADE.
func (s *NoteStore) Delete(ctx context.Context, noteID string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM structured_notes WHERE note_id = $1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanNote scans a single row into a Note.
func scanNote(row pgx.Row) (*domain.Note, error) {
	var n domain.Note
	var productType, koMode, kiMode, status, stepDowns string

	err := row.Scan(
		&n.NoteID,
		&n.CustomerName,
		&n.CustodianBank,
		&productType,
		&n.Notional,
		&n.ISIN,
		&n.TradeDate,
		&n.IssueDate,
		&n.ObservationStart,
		&n.FinalValuation,
		&n.CouponPerAnnum,
		&n.CouponBarrier,
		&n.CouponPaymentDates,
		&koMode,
		&n.KOFrequency,
		&kiMode,
		&stepDowns,
		&status,
		&n.KOOccurred,
		&n.KODate,
		&n.KIOccurred,
		&n.KIDate,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ProductType = domain.ProductType(productType)
	n.KOModeType = domain.KOMode(koMode)
	n.KIModeType = domain.KIMode(kiMode)
	n.Status = domain.Status(status)
	n.StepDownBarriers = decodeStepDowns(stepDowns)
	return &n, nil
}

// scanNotes scans multiple rows into a slice of Note.
func scanNotes(rows pgx.Rows) ([]*domain.Note, error) {
	var notes []*domain.Note

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note row: %w", err)
		}
		notes = append(notes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note rows: %w", err)
	}

	return notes, nil
}

// encodeStepDowns serializes a step-down table as "1:608.84,2:596.66".
func encodeStepDowns(barriers []domain.StepDownBarrier) string {
	if len(barriers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(barriers))
	for _, b := range barriers {
		parts = append(parts, fmt.Sprintf("%d:%s", b.Period, strconv.FormatFloat(b.Price, 'f', -1, 64)))
	}
	return strings.Join(parts, ",")
}

// decodeStepDowns parses the serialized step-down table, skipping
// malformed entries, ordered by period.
func decodeStepDowns(raw string) []domain.StepDownBarrier {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var barriers []domain.StepDownBarrier
	for _, part := range strings.Split(raw, ",") {
		periodStr, priceStr, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(periodStr))
		if err != nil || period < 1 {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(priceStr), 64)
		if err != nil {
			continue
		}
		barriers = append(barriers, domain.StepDownBarrier{Period: period, Price: price})
	}
	sort.Slice(barriers, func(i, j int) bool { return barriers[i].Period < barriers[j].Period })
	return barriers
}
