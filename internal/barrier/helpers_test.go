package barrier

import (
	"time"

	"structured-notes-tracker/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fp(v float64) *float64 { return &v }

// aliveNote builds a note whose observation window contains obsDay.
func aliveNote(product domain.ProductType) *domain.Note {
	return &domain.Note{
		NoteID:           "note-1",
		ProductType:      product,
		Notional:         1_000_000,
		IssueDate:        day(2026, 1, 15),
		ObservationStart: day(2026, 2, 1),
		FinalValuation:   day(2026, 12, 15),
		CouponPerAnnum:   0.12,
		KOModeType:       domain.KODaily,
		KIModeType:       domain.KIDaily,
		Status:           domain.StatusAlive,
	}
}

// obsDay is a date inside aliveNote's observation window.
var obsDay = day(2026, 6, 1)

func under(seq int, ticker string, spot, strike float64, ko, ki, close *float64) *domain.Underlying {
	u := &domain.Underlying{
		NoteID:      "note-1",
		Sequence:    seq,
		Ticker:      ticker,
		SpotPrice:   spot,
		StrikePrice: strike,
		KOPrice:     ko,
		KIPrice:     ki,
	}
	if close != nil {
		u.LastClose = close
		at := obsDay
		u.LastPriceUpdate = &at
	}
	return u
}
