// Package status derives a note's lifecycle status from its observation
// window and previously recorded event flags. Derivation is a pure
// function of the note's persisted fields and today's date: it reads the
// KO/KI flags the barrier engine has set but never sets them itself, so
// it is idempotent and safe to re-run at any frequency.
package status

import (
	"time"

	"structured-notes-tracker/internal/domain"
)

// Derive returns the lifecycle status of note as of today.
//
// Evaluation order, per the lifecycle rules:
//  1. A recorded Converted state is terminal and overrides everything.
//  2. Before the observation window: Not Observed Yet.
//  3. Past the final valuation date: Ended.
//  4. Within the window: Knocked Out if the KO flag is set, else
//     Knocked In if the KI flag is set, else Alive.
func Derive(note *domain.Note, today time.Time) domain.Status {
	if note.Status == domain.StatusConverted {
		return domain.StatusConverted
	}

	day := domain.Day(today)
	obsStart := domain.Day(note.ObservationStart)
	finalVal := domain.Day(note.FinalValuation)

	if day.Before(obsStart) {
		return domain.StatusNotObserved
	}
	if day.After(finalVal) {
		return domain.StatusEnded
	}

	if note.KOOccurred {
		return domain.StatusKnockedOut
	}
	if note.KIOccurred {
		return domain.StatusKnockedIn
	}
	return domain.StatusAlive
}

// Observable reports whether barrier checks apply to the note today:
// the derived status must be Alive or Not Observed Yet.
func Observable(note *domain.Note, today time.Time) bool {
	switch Derive(note, today) {
	case domain.StatusAlive, domain.StatusNotObserved:
		return true
	}
	return false
}
