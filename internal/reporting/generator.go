// Package reporting produces portfolio snapshots from stored notes:
// one row per note with its derived status and coupon figures, plus
// book-level aggregates, rendered as CSV or markdown.
package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"structured-notes-tracker/internal/coupon"
	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/status"
	"structured-notes-tracker/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	noteStore       storage.NoteStore
	underlyingStore storage.UnderlyingStore
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(noteStore storage.NoteStore, underlyingStore storage.UnderlyingStore) *Generator {
	return &Generator{
		noteStore:       noteStore,
		underlyingStore: underlyingStore,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete portfolio snapshot as of the clock date.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	generatedAt := g.now()
	asOf := domain.Day(generatedAt)

	notes, err := g.noteStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	report := &Report{
		GeneratedAt: generatedAt,
		AsOf:        asOf,
	}

	statusBuckets := make(map[string]*StatusCountRow)

	for _, n := range notes {
		underlyings, err := g.underlyingStore.ListByNote(ctx, n.NoteID)
		if err != nil {
			return nil, fmt.Errorf("list underlyings for %s: %w", n.NoteID, err)
		}

		row := g.buildRow(n, underlyings, asOf)
		report.Notes = append(report.Notes, row)

		report.Summary.TotalNotes++
		report.Summary.TotalNotional += n.Notional
		report.Summary.ExpectedCouponTotal += row.ExpectedCoupon
		report.Summary.AccruedCouponTotal += row.AccruedCoupon
		if n.KOOccurred {
			report.Summary.KnockOuts++
		}
		if n.KIOccurred {
			report.Summary.KnockIns++
		}
		if n.Status == domain.StatusConverted {
			report.Summary.Conversions++
		}

		bucket := statusBuckets[row.Status]
		if bucket == nil {
			bucket = &StatusCountRow{Status: row.Status}
			statusBuckets[row.Status] = bucket
		}
		bucket.Count++
		bucket.Notional += n.Notional
	}

	for _, bucket := range statusBuckets {
		report.Summary.StatusCounts = append(report.Summary.StatusCounts, *bucket)
	}
	sort.Slice(report.Summary.StatusCounts, func(i, j int) bool {
		return report.Summary.StatusCounts[i].Status < report.Summary.StatusCounts[j].Status
	})

	sort.Slice(report.Notes, func(i, j int) bool {
		if report.Notes[i].CustomerName != report.Notes[j].CustomerName {
			return report.Notes[i].CustomerName < report.Notes[j].CustomerName
		}
		return report.Notes[i].NoteID < report.Notes[j].NoteID
	})

	return report, nil
}

func (g *Generator) buildRow(n *domain.Note, underlyings []*domain.Underlying, asOf time.Time) NoteRow {
	row := NoteRow{
		NoteID:         n.NoteID,
		CustomerName:   n.CustomerName,
		ProductType:    string(n.ProductType),
		Status:         string(status.Derive(n, asOf)),
		Notional:       n.Notional,
		FinalValuation: n.FinalValuation,
		KOOccurred:     n.KOOccurred,
		KODate:         n.KODate,
		KIOccurred:     n.KIOccurred,
		KIDate:         n.KIDate,
	}
	if n.CustodianBank != nil {
		row.CustodianBank = *n.CustodianBank
	}

	for _, u := range underlyings {
		row.Tickers = append(row.Tickers, u.Ticker)
	}

	row.ExpectedCoupon = coupon.ExpectedCoupon(n.Notional, n.CouponPerAnnum, n.CouponPaymentDates)
	row.AccruedCoupon, row.CouponsPaid, row.CouponsTotal = coupon.AccumulatedCoupon(
		n.Notional, n.CouponPerAnnum, n.CouponPaymentDates, asOf)

	return row
}
