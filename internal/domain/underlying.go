package domain

import "time"

// Underlying is one reference asset tied to a note (1-4 per note).
// Corresponds to the note_underlyings table; rows are owned by their
// note and deleted with it.
//
// StrikePrice semantics vary by product: equal to SpotPrice for the FCN
// family, a put strike (~75% of initial) for Phoenix, and a conversion
// strike (~88% of initial) for BEN.
type Underlying struct {
	NoteID   string
	Sequence int // 1-4, unique within a note
	Name     *string
	Ticker   string

	SpotPrice   float64
	StrikePrice float64
	KOPrice     *float64
	KIPrice     *float64

	LastClose       *float64 // nil until a price refresh occurs
	LastPriceUpdate *time.Time
}

// HasClose reports whether a close price has been observed.
func (u *Underlying) HasClose() bool {
	return u.LastClose != nil && *u.LastClose > 0
}

// Performance returns LastClose relative to the given reference level.
// ok is false when either side is missing, which callers must treat as
// "not yet determinable" rather than a breach.
func (u *Underlying) Performance(reference float64) (ratio float64, ok bool) {
	if !u.HasClose() || reference <= 0 {
		return 0, false
	}
	return *u.LastClose / reference, true
}
