package barrier

import "structured-notes-tracker/internal/domain"

// worstPerformer returns the underlying with the lowest close-to-reference
// ratio. ok is false when any underlying lacks a close price or a positive
// reference level: a worst performer picked from partial data could name
// the wrong asset, so the selection is treated as not yet determinable.
func worstPerformer(underlyings []*domain.Underlying, reference func(*domain.Underlying) float64) (*domain.Underlying, bool) {
	if len(underlyings) == 0 {
		return nil, false
	}

	var worst *domain.Underlying
	var worstRatio float64

	for _, u := range underlyings {
		ratio, ok := u.Performance(reference(u))
		if !ok {
			return nil, false
		}
		if worst == nil || ratio < worstRatio {
			worst = u
			worstRatio = ratio
		}
	}
	return worst, true
}

// bySpot ranks performance against the initial spot price.
func bySpot(u *domain.Underlying) float64 { return u.SpotPrice }

// byStrike ranks performance against the product strike.
func byStrike(u *domain.Underlying) float64 { return u.StrikePrice }
