// Package coupon provides pure date and coupon arithmetic for structured
// notes: payment-schedule parsing, expected coupon over the note's life,
// and coupon accrued as of a given date.
package coupon

import (
	"sort"
	"strings"
	"time"

	"structured-notes-tracker/internal/domain"
)

const daysPerYear = 365.25

// Accepted payment-date layouts: ISO and day/month/year.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParsePaymentDates parses a comma-separated list of payment dates and
// returns them sorted ascending. Entries that parse in none of the
// accepted layouts are dropped; callers that need to surface them use
// ParsePaymentDatesStrict.
func ParsePaymentDates(text string) []time.Time {
	dates, _ := ParsePaymentDatesStrict(text)
	return dates
}

// ParsePaymentDatesStrict parses like ParsePaymentDates and additionally
// returns the entries that could not be parsed, for warning display.
func ParsePaymentDatesStrict(text string) ([]time.Time, []string) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var dates []time.Time
	var dropped []string
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parsed, ok := parseDate(entry)
		if !ok {
			dropped = append(dropped, entry)
			continue
		}
		dates = append(dates, parsed)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, dropped
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), true
		}
	}
	return time.Time{}, false
}

// ExpectedCoupon returns the total coupon payable over the note's life if
// every scheduled date pays.
//
// The amount is annualized: notional x rate x years spanned by the
// schedule, padded by one payment period so that e.g. 12 monthly dates
// spanning 11 months count as one full year. A single-date schedule is
// assumed to cover one year.
func ExpectedCoupon(notional, annualRate float64, paymentDates []time.Time) float64 {
	if notional <= 0 || annualRate <= 0 || len(paymentDates) == 0 {
		return 0
	}

	if len(paymentDates) == 1 {
		return notional * annualRate
	}

	first := domain.Day(paymentDates[0])
	last := domain.Day(paymentDates[len(paymentDates)-1])
	daysBetween := last.Sub(first).Hours() / 24

	periodDays := daysBetween / float64(len(paymentDates)-1)
	years := (daysBetween + periodDays) / daysPerYear

	return notional * annualRate * years
}

// AccumulatedCoupon returns the coupon accrued as of asOf: the expected
// total divided evenly across all scheduled dates, summed over the dates
// that have passed. An empty schedule yields 0/0/0.
func AccumulatedCoupon(notional, annualRate float64, paymentDates []time.Time, asOf time.Time) (amount float64, paid, total int) {
	total = len(paymentDates)
	if notional <= 0 || annualRate <= 0 || total == 0 {
		return 0, 0, total
	}

	day := domain.Day(asOf)
	for _, pd := range paymentDates {
		if !domain.Day(pd).After(day) {
			paid++
		}
	}

	perPayment := ExpectedCoupon(notional, annualRate, paymentDates) / float64(total)
	return perPayment * float64(paid), paid, total
}
