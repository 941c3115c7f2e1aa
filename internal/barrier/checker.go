// Package barrier implements product-aware knock-out, knock-in and
// conversion checks for structured notes. Each product family provides
// the same three-operation Checker interface; ForProduct selects the
// implementation from the note's product type.
//
// Missing data (no close price, no barrier, no strike) never triggers
// and never errors: checks resolve to a neutral non-trigger and are
// retried on the next refresh.
package barrier

import (
	"fmt"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/status"
)

// Outcome is the result of a knock-out or knock-in check.
type Outcome struct {
	Triggered bool
	Ticker    string // underlying that drove the trigger, when one did
	Reason    string // human-readable, for the event log
}

// Conversion is the result of a conversion check on a knocked-in note.
type Conversion struct {
	// Applicable is false when the check does not apply today
	// (wrong status, not the final valuation date, incomplete data).
	Applicable bool
	Convert    bool
	Ticker     string  // worst performer delivered on conversion
	Shares     float64 // notional / strike
	Strike     float64
	Reason     string
}

// Checker evaluates barrier conditions for one product family.
type Checker interface {
	// CheckKnockOut evaluates early redemption. Only applies while the
	// note's derived status is Alive or Not Observed Yet.
	CheckKnockOut(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome

	// CheckKnockIn evaluates the knock-in barrier, honoring EKI gating.
	CheckKnockIn(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome

	// CheckConversion decides physical delivery for a knocked-in note.
	// Applies only when the derived status is Knocked In and today is
	// exactly the final valuation date.
	CheckConversion(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Conversion
}

// ForProduct returns the Checker for the note's product family.
func ForProduct(p domain.ProductType) Checker {
	switch p.Family() {
	case domain.FamilyPhoenix:
		return PhoenixChecker{}
	case domain.FamilyBEN:
		return BENChecker{}
	default:
		return FCNChecker{}
	}
}

// checkConversionAt implements the shared conversion rule. reference
// selects the 100% level used to rank performance: strike price for the
// FCN family, spot price for Phoenix and BEN. The conversion comparison
// itself is always against the product-specific strike.
func checkConversionAt(note *domain.Note, underlyings []*domain.Underlying, today time.Time, reference func(*domain.Underlying) float64) Conversion {
	if status.Derive(note, today) != domain.StatusKnockedIn {
		return Conversion{Reason: "not a knocked-in note"}
	}
	if !domain.SameDay(today, note.FinalValuation) {
		return Conversion{Reason: "conversion only checked on final valuation date"}
	}

	wps, ok := worstPerformer(underlyings, reference)
	if !ok {
		return Conversion{Reason: "incomplete price data, conversion not determinable"}
	}
	if wps.StrikePrice <= 0 {
		return Conversion{Reason: "worst performer has no strike price"}
	}

	close := *wps.LastClose
	if close < wps.StrikePrice {
		shares := note.Notional / wps.StrikePrice
		return Conversion{
			Applicable: true,
			Convert:    true,
			Ticker:     wps.Ticker,
			Shares:     shares,
			Strike:     wps.StrikePrice,
			Reason: fmt.Sprintf("%s at %.2f < strike %.2f, physical delivery of %.2f shares at strike",
				wps.Ticker, close, wps.StrikePrice, shares),
		}
	}

	return Conversion{
		Applicable: true,
		Ticker:     wps.Ticker,
		Strike:     wps.StrikePrice,
		Reason: fmt.Sprintf("cash settlement at par: %s at %.2f >= strike %.2f",
			wps.Ticker, close, wps.StrikePrice),
	}
}
