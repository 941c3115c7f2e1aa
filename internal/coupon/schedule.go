package coupon

import (
	"time"

	"structured-notes-tracker/internal/domain"
)

// Frequency is a payment schedule frequency.
type Frequency string

const (
	Monthly      Frequency = "Monthly"
	Quarterly    Frequency = "Quarterly"
	SemiAnnually Frequency = "Semi-Annually"
	Annually     Frequency = "Annually"
	AtMaturity   Frequency = "At Maturity"
)

// GeneratePaymentDates builds a payment schedule from the first payment
// date up to and including finalDate. Unknown frequencies default to
// monthly; At Maturity yields a single payment on the final date.
func GeneratePaymentDates(firstPayment, finalDate time.Time, freq Frequency) []time.Time {
	first := domain.Day(firstPayment)
	final := domain.Day(finalDate)

	if freq == AtMaturity {
		return []time.Time{final}
	}

	months := 1
	switch freq {
	case Monthly:
		months = 1
	case Quarterly:
		months = 3
	case SemiAnnually:
		months = 6
	case Annually:
		months = 12
	}

	var dates []time.Time
	for d := first; !d.After(final); d = d.AddDate(0, months, 0) {
		dates = append(dates, d)
	}
	return dates
}
