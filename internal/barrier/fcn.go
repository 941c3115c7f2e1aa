package barrier

import (
	"fmt"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/status"
)

// FCNChecker implements barrier checks for the fixed-barrier family
// (FCN, WOFCN, ACCU, DECU, DCN, TWINWIN): knock-out requires every
// underlying above its KO level, knock-in triggers on any one underlying
// at or below its KI level.
type FCNChecker struct{}

var _ Checker = FCNChecker{}

// CheckKnockOut triggers when every underlying with a defined KO barrier
// closes at or above it. Any required underlying without a current price
// makes the check inconclusive.
func (FCNChecker) CheckKnockOut(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome {
	if !status.Observable(note, today) {
		return Outcome{Reason: "note not in observation period"}
	}

	withKO := withBarrier(underlyings, koPrice)
	if len(withKO) == 0 {
		return Outcome{Reason: "no KO barriers defined"}
	}
	if !allPriced(withKO) {
		return Outcome{Reason: "not all underlyings have current prices"}
	}

	for _, u := range withKO {
		if *u.LastClose < *u.KOPrice {
			return Outcome{Reason: fmt.Sprintf("%s at %.2f below KO %.2f", u.Ticker, *u.LastClose, *u.KOPrice)}
		}
	}
	return Outcome{
		Triggered: true,
		Reason:    "all underlyings at or above KO barriers",
	}
}

// CheckKnockIn triggers when any one underlying with a defined KI barrier
// closes at or below it. Under EKI the check runs only on the final
// valuation date.
func (FCNChecker) CheckKnockIn(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome {
	if !status.Observable(note, today) {
		return Outcome{Reason: "note not in observation period"}
	}
	if note.KIModeType == domain.KIEKI && !domain.SameDay(today, note.FinalValuation) {
		return Outcome{Reason: "EKI: checked only on final valuation date"}
	}

	withKI := withBarrier(underlyings, kiPrice)
	if len(withKI) == 0 {
		return Outcome{Reason: "no KI barriers defined"}
	}
	if !allPriced(withKI) {
		return Outcome{Reason: "not all underlyings have current prices"}
	}

	for _, u := range withKI {
		if *u.LastClose <= *u.KIPrice {
			return Outcome{
				Triggered: true,
				Ticker:    u.Ticker,
				Reason:    fmt.Sprintf("%s at %.2f at or below KI %.2f", u.Ticker, *u.LastClose, *u.KIPrice),
			}
		}
	}
	return Outcome{Reason: "no underlying at or below KI barrier"}
}

// CheckConversion ranks the worst performer against the strike price;
// for this family the strike equals the initial spot.
func (FCNChecker) CheckConversion(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Conversion {
	return checkConversionAt(note, underlyings, today, byStrike)
}

func koPrice(u *domain.Underlying) *float64 { return u.KOPrice }
func kiPrice(u *domain.Underlying) *float64 { return u.KIPrice }

// withBarrier selects the underlyings with the given barrier populated.
func withBarrier(underlyings []*domain.Underlying, barrier func(*domain.Underlying) *float64) []*domain.Underlying {
	var out []*domain.Underlying
	for _, u := range underlyings {
		if p := barrier(u); p != nil && *p > 0 {
			out = append(out, u)
		}
	}
	return out
}

func allPriced(underlyings []*domain.Underlying) bool {
	for _, u := range underlyings {
		if !u.HasClose() {
			return false
		}
	}
	return true
}
