package barrier

import (
	"fmt"
	"time"

	"structured-notes-tracker/internal/coupon"
	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/status"
)

// PhoenixChecker implements barrier checks for Phoenix autocallable
// notes: knock-out on the worst performer against a step-down barrier
// table, European knock-in on the worst performer, and memory coupons
// gated by the coupon barrier.
type PhoenixChecker struct{}

var _ Checker = PhoenixChecker{}

// CheckKnockOut triggers when the worst performing share closes at or
// above the KO level in force for the current observation period. The
// level comes from the note's step-down table, resolved from months
// elapsed since the issue date; a period missing from the table is
// inconclusive. Notes without a table fall back to the worst performer's
// flat KO price.
func (PhoenixChecker) CheckKnockOut(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome {
	if !status.Observable(note, today) {
		return Outcome{Reason: "note not in observation period"}
	}

	wps, ok := worstPerformer(underlyings, bySpot)
	if !ok {
		return Outcome{Reason: "not all underlyings have current prices"}
	}

	period := CurrentPeriod(note.IssueDate, today)
	level, ok := knockOutLevel(note, wps, period)
	if !ok {
		return Outcome{Reason: fmt.Sprintf("no KO barrier for period %d", period)}
	}

	if *wps.LastClose >= level {
		return Outcome{
			Triggered: true,
			Ticker:    wps.Ticker,
			Reason: fmt.Sprintf("autocall: WPS %s at %.2f >= KO %.2f (period %d)",
				wps.Ticker, *wps.LastClose, level, period),
		}
	}
	return Outcome{Reason: fmt.Sprintf("no autocall: WPS %s at %.2f < KO %.2f (period %d)",
		wps.Ticker, *wps.LastClose, level, period)}
}

// CheckKnockIn evaluates the worst performing share against its KI
// barrier. Phoenix knock-in is always European: the check runs only on
// the final valuation date, whatever the note's KI mode field says.
func (PhoenixChecker) CheckKnockIn(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Outcome {
	if !status.Observable(note, today) {
		return Outcome{Reason: "note not in observation period"}
	}
	if !domain.SameDay(today, note.FinalValuation) {
		return Outcome{Reason: "Phoenix KI checked only on final valuation date"}
	}

	wps, ok := worstPerformer(underlyings, bySpot)
	if !ok {
		return Outcome{Reason: "not all underlyings have current prices"}
	}
	if wps.KIPrice == nil || *wps.KIPrice <= 0 {
		return Outcome{Reason: "worst performer has no KI barrier"}
	}

	if *wps.LastClose <= *wps.KIPrice {
		return Outcome{
			Triggered: true,
			Ticker:    wps.Ticker,
			Reason:    fmt.Sprintf("WPS %s at %.2f at or below KI %.2f", wps.Ticker, *wps.LastClose, *wps.KIPrice),
		}
	}
	return Outcome{Reason: "WPS above KI barrier"}
}

// CheckConversion ranks the worst performer against the initial spot and
// converts when it finishes below the put strike.
func (PhoenixChecker) CheckConversion(note *domain.Note, underlyings []*domain.Underlying, today time.Time) Conversion {
	return checkConversionAt(note, underlyings, today, bySpot)
}

// MemoryCouponDue evaluates the Phoenix memory coupon for the current
// period: when the worst performer closes at or above the coupon barrier,
// every per-period share accrued through the current period is payable
// (missed coupons catch up); otherwise nothing pays and the coupon keeps
// accumulating.
func (PhoenixChecker) MemoryCouponDue(note *domain.Note, underlyings []*domain.Underlying, today time.Time) (amount float64, payable bool, reason string) {
	if note.CouponBarrier == nil || *note.CouponBarrier <= 0 {
		return 0, false, "no coupon barrier defined"
	}

	wps, ok := worstPerformer(underlyings, bySpot)
	if !ok {
		return 0, false, "not all underlyings have current prices"
	}

	total := len(note.CouponPaymentDates)
	if total == 0 {
		return 0, false, "no coupon schedule"
	}

	if *wps.LastClose < *note.CouponBarrier {
		return 0, false, fmt.Sprintf("coupon deferred: WPS %s at %.2f < barrier %.2f",
			wps.Ticker, *wps.LastClose, *note.CouponBarrier)
	}

	period := CurrentPeriod(note.IssueDate, today)
	if period > total {
		period = total
	}
	perPeriod := coupon.ExpectedCoupon(note.Notional, note.CouponPerAnnum, note.CouponPaymentDates) / float64(total)
	return perPeriod * float64(period), true, fmt.Sprintf("coupon payable: WPS %s at %.2f >= barrier %.2f (period %d)",
		wps.Ticker, *wps.LastClose, *note.CouponBarrier, period)
}

// CurrentPeriod resolves the 1-based observation period from whole months
// elapsed between the issue date and today.
func CurrentPeriod(issueDate, today time.Time) int {
	issue := domain.Day(issueDate)
	day := domain.Day(today)
	if day.Before(issue) {
		return 1
	}

	months := (day.Year()-issue.Year())*12 + int(day.Month()) - int(issue.Month())
	if day.Day() < issue.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months + 1
}

// knockOutLevel resolves the KO level for the period. An exact table
// match is required when a step-down table is present.
func knockOutLevel(note *domain.Note, wps *domain.Underlying, period int) (float64, bool) {
	if len(note.StepDownBarriers) > 0 {
		for _, b := range note.StepDownBarriers {
			if b.Period == period && b.Price > 0 {
				return b.Price, true
			}
		}
		return 0, false
	}
	if wps.KOPrice != nil && *wps.KOPrice > 0 {
		return *wps.KOPrice, true
	}
	return 0, false
}
