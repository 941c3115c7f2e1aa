package barrier

import (
	"fmt"
	"time"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/status"
)

// BENChecker implements barrier checks for bonus enhanced notes (BEN,
// WOBEN). BENs have no early redemption; knock-in is monitored daily on
// the worst performing share and triggers on a strict breach.
type BENChecker struct{}

var _ Checker = BENChecker{}

// CheckKnockOut never triggers: BEN has no knock-out condition.
func (BENChecker) CheckKnockOut(*domain.Note, []*domain.Underlying, time.Time) Outcome {
	return Outcome{Reason: "BEN has no knock-out condition"}
}

// CheckKnockIn evaluates the worst performing share against its KI
// barrier daily. The breach is strict: a close exactly at the barrier
// does not trigger, unlike the FCN family's at-or-below rule.
func (BENChecker) CheckKnockIn(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome {
	if !status.Observable(note, today) {
		return Outcome{Reason: "note not in observation period"}
	}

	wps, ok := worstPerformer(underlyings, bySpot)
	if !ok {
		return Outcome{Reason: "not all underlyings have current prices"}
	}
	if wps.KIPrice == nil || *wps.KIPrice <= 0 {
		return Outcome{Reason: "worst performer has no KI barrier"}
	}

	if *wps.LastClose < *wps.KIPrice {
		return Outcome{
			Triggered: true,
			Ticker:    wps.Ticker,
			Reason:    fmt.Sprintf("WPS %s at %.2f below KI %.2f", wps.Ticker, *wps.LastClose, *wps.KIPrice),
		}
	}
	return Outcome{Reason: "WPS at or above KI barrier"}
}

// CheckConversion ranks the worst performer against the initial spot and
// converts when it finishes below the conversion strike.
func (BENChecker) CheckConversion(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Conversion {
	return checkConversionAt(note, underlyings, today, bySpot)
}

// PayoffParams hold the BEN maturity payoff terms.
type PayoffParams struct {
	ParticipationRate float64 // upside participation, e.g. 1.05
	Cap               float64 // maximum boosted return, e.g. 0.1369
	CallStrike        float64 // upside threshold as fraction of initial, 1.0 = 100%
}

// DefaultPayoffParams are the typical BEN terms.
var DefaultPayoffParams = PayoffParams{
	ParticipationRate: 1.05,
	Cap:               0.1369,
	CallStrike:        1.0,
}

// Settlement classifies a BEN maturity payoff.
type Settlement struct {
	Kind   string // "Cash" or "Physical"
	Amount float64
	Shares float64
	Ticker string
	Reason string
}

// MaturityPayoff computes the BEN settlement at maturity given the
// knocked-in flag:
//  1. WPS at or above the call strike: boosted, capped upside in cash.
//  2. WPS at or above the conversion strike: par in cash.
//  3. WPS below strike without knock-in: par in cash (protected).
//  4. WPS below strike with knock-in: physical delivery at strike.
func (BENChecker) MaturityPayoff(note *domain.Note, underlyings []*domain.Underlying, params PayoffParams) (Settlement, bool) {
	wps, ok := worstPerformer(underlyings, bySpot)
	if !ok {
		return Settlement{}, false
	}
	perf := *wps.LastClose / wps.SpotPrice

	if perf >= params.CallStrike {
		upside := params.ParticipationRate * (perf - params.CallStrike)
		if upside > params.Cap {
			upside = params.Cap
		}
		return Settlement{
			Kind:   "Cash",
			Amount: note.Notional * (1 + upside),
			Ticker: wps.Ticker,
			Reason: fmt.Sprintf("boosted return %.2f%%: WPS at %.2f%% of initial", upside*100, perf*100),
		}, true
	}

	if wps.StrikePrice <= 0 {
		return Settlement{}, false
	}

	if *wps.LastClose >= wps.StrikePrice || !note.KIOccurred {
		return Settlement{
			Kind:   "Cash",
			Amount: note.Notional,
			Ticker: wps.Ticker,
			Reason: fmt.Sprintf("capital protected: WPS at %.2f%% of initial, no conversion", perf*100),
		}, true
	}

	shares := note.Notional / wps.StrikePrice
	return Settlement{
		Kind:   "Physical",
		Shares: shares,
		Ticker: wps.Ticker,
		Reason: fmt.Sprintf("physical delivery: %.2f shares of %s at strike %.2f", shares, wps.Ticker, wps.StrikePrice),
	}, true
}
