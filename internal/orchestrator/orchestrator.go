// Package orchestrator drives the daily refresh over the note portfolio.
// It coordinates: status derivation → conversion → knock-out → knock-in,
// committing each note independently so one bad row never blocks the rest.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"structured-notes-tracker/internal/barrier"
	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/observability"
	"structured-notes-tracker/internal/status"
	"structured-notes-tracker/internal/storage"
)

// EventKind classifies a recorded lifecycle event.
type EventKind string

const (
	EventKnockOut     EventKind = "KnockOut"
	EventKnockIn      EventKind = "KnockIn"
	EventConversion   EventKind = "Conversion"
	EventMaturedAtPar EventKind = "MaturedAtPar"
)

// Event is one entry of the refresh event log.
type Event struct {
	NoteID string
	Kind   EventKind
	Ticker string // underlying that drove the event, when one did
	Date   time.Time
	Reason string
}

// RefreshResult contains counts and the event log of one refresh run.
type RefreshResult struct {
	NotesProcessed int
	KnockOuts      int
	KnockIns       int
	Conversions    int
	Events         []Event
	Failures       []string
}

// Orchestrator evaluates barriers for every note and persists transitions.
type Orchestrator struct {
	notes       storage.NoteStore
	underlyings storage.UnderlyingStore
	metrics     *observability.Metrics
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	NoteStore       storage.NoteStore
	UnderlyingStore storage.UnderlyingStore

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
	// Logger is optional; nil means silent.
	Logger *zap.Logger
	// Now is optional and exists for tests; defaults to time.Now.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		notes:       opts.NoteStore,
		underlyings: opts.UnderlyingStore,
		metrics:     opts.Metrics,
		logger:      logger.Sugar(),
		now:         now,
	}
}

// RefreshAll evaluates every note against today's closes. Per note the
// order is conversion first, then knock-out, then knock-in: a note
// converting on its final valuation date must not be knocked out by the
// same close, and a close breaching both barriers redeems the note.
// Event flags are written once and never re-triggered.
func (o *Orchestrator) RefreshAll(ctx context.Context) (*RefreshResult, error) {
	started := o.now()
	today := domain.Day(started)
	result := &RefreshResult{}

	notes, err := o.notes.List(ctx)
	if err != nil {
		o.countRun("error")
		return nil, fmt.Errorf("list notes: %w", err)
	}

	for _, note := range notes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := o.refreshNote(ctx, note, today, result); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", note.NoteID, err))
			if o.metrics != nil {
				o.metrics.RefreshFailures.Inc()
			}
			o.logger.Errorw("note refresh failed", "note_id", note.NoteID, "error", err)
			continue
		}
		result.NotesProcessed++
	}

	o.countRun("ok")
	if o.metrics != nil {
		o.metrics.NotesProcessed.Add(float64(result.NotesProcessed))
		o.metrics.RefreshDuration.Observe(o.now().Sub(started).Seconds())
		o.metrics.LastSuccessfulRun.SetToCurrentTime()
	}
	o.logger.Infow("refresh complete",
		"notes", result.NotesProcessed,
		"knock_outs", result.KnockOuts,
		"knock_ins", result.KnockIns,
		"conversions", result.Conversions,
		"failures", len(result.Failures))

	return result, nil
}

func (o *Orchestrator) refreshNote(ctx context.Context, note *domain.Note, today time.Time, result *RefreshResult) error {
	derived := status.Derive(note, today)
	if derived == domain.StatusKnockedOut || derived == domain.StatusConverted {
		return o.syncStatus(ctx, note, derived)
	}

	underlyings, err := o.underlyings.ListByNote(ctx, note.NoteID)
	if err != nil {
		return fmt.Errorf("load underlyings: %w", err)
	}

	checker := barrier.ForProduct(note.ProductType)

	// Conversion applies only to knocked-in notes on the final valuation
	// date, and settles the note either way.
	conv := checker.CheckConversion(note, underlyings, today)
	if conv.Applicable {
		if conv.Convert {
			if err := o.notes.UpdateStatus(ctx, note.NoteID, domain.StatusConverted, nil); err != nil {
				return fmt.Errorf("record conversion: %w", err)
			}
			result.Conversions++
			result.Events = append(result.Events, Event{
				NoteID: note.NoteID, Kind: EventConversion, Ticker: conv.Ticker,
				Date: today, Reason: conv.Reason,
			})
			if o.metrics != nil {
				o.metrics.ConversionsTotal.Inc()
			}
			o.logger.Infow("note converted", "note_id", note.NoteID, "ticker", conv.Ticker, "shares", conv.Shares)
			return nil
		}

		// Knocked in but the worst performer recovered above strike.
		if err := o.notes.UpdateStatus(ctx, note.NoteID, domain.StatusEnded, nil); err != nil {
			return fmt.Errorf("record maturity at par: %w", err)
		}
		result.Events = append(result.Events, Event{
			NoteID: note.NoteID, Kind: EventMaturedAtPar, Ticker: conv.Ticker,
			Date: today, Reason: conv.Reason,
		})
		o.logger.Infow("note matured at par", "note_id", note.NoteID, "reason", conv.Reason)
		return nil
	}

	if !status.Observable(note, today) {
		return o.syncStatus(ctx, note, derived)
	}

	// Knock-out is checked before knock-in: a close breaching both
	// barriers redeems the note.
	if !note.KOOccurred {
		ko := checker.CheckKnockOut(note, underlyings, today)
		if ko.Triggered {
			flags := &storage.EventFlags{
				KOOccurred: true, KODate: &today,
				KIOccurred: note.KIOccurred, KIDate: note.KIDate,
			}
			if err := o.notes.UpdateStatus(ctx, note.NoteID, domain.StatusKnockedOut, flags); err != nil {
				return fmt.Errorf("record knock-out: %w", err)
			}
			result.KnockOuts++
			result.Events = append(result.Events, Event{
				NoteID: note.NoteID, Kind: EventKnockOut, Ticker: ko.Ticker,
				Date: today, Reason: ko.Reason,
			})
			if o.metrics != nil {
				o.metrics.KnockOutsTotal.Inc()
			}
			o.logger.Infow("note knocked out", "note_id", note.NoteID, "reason", ko.Reason)
			return nil
		}
	}

	if !note.KIOccurred {
		ki := checker.CheckKnockIn(note, underlyings, today)
		if ki.Triggered {
			flags := &storage.EventFlags{
				KOOccurred: note.KOOccurred, KODate: note.KODate,
				KIOccurred: true, KIDate: &today,
			}
			if err := o.notes.UpdateStatus(ctx, note.NoteID, domain.StatusKnockedIn, flags); err != nil {
				return fmt.Errorf("record knock-in: %w", err)
			}
			result.KnockIns++
			result.Events = append(result.Events, Event{
				NoteID: note.NoteID, Kind: EventKnockIn, Ticker: ki.Ticker,
				Date: today, Reason: ki.Reason,
			})
			if o.metrics != nil {
				o.metrics.KnockInsTotal.Inc()
			}
			o.logger.Infow("note knocked in", "note_id", note.NoteID, "reason", ki.Reason)
			return nil
		}
	}

	return o.syncStatus(ctx, note, derived)
}

// syncStatus persists a purely date-driven status change, leaving the
// event flags untouched.
func (o *Orchestrator) syncStatus(ctx context.Context, note *domain.Note, derived domain.Status) error {
	if note.Status == derived {
		return nil
	}
	if err := o.notes.UpdateStatus(ctx, note.NoteID, derived, nil); err != nil {
		return fmt.Errorf("sync status: %w", err)
	}
	return nil
}

// RefreshStatuses runs the date-driven status pass without touching
// barriers: notes entering their observation window become Alive, notes
// past final valuation become Ended. Idempotent at any frequency.
func (o *Orchestrator) RefreshStatuses(ctx context.Context) (int, []string, error) {
	today := domain.Day(o.now())

	notes, err := o.notes.List(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list notes: %w", err)
	}

	var updated int
	var failures []string
	byStatus := make(map[domain.Status]int)

	for _, note := range notes {
		derived := status.Derive(note, today)
		byStatus[derived]++
		if derived == note.Status {
			continue
		}
		if err := o.syncStatus(ctx, note, derived); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", note.NoteID, err))
			continue
		}
		updated++
	}

	if o.metrics != nil {
		for s, n := range byStatus {
			o.metrics.NotesByStatus.WithLabelValues(string(s)).Set(float64(n))
		}
	}

	return updated, failures, nil
}

func (o *Orchestrator) countRun(outcome string) {
	if o.metrics != nil {
		o.metrics.RefreshRunsTotal.WithLabelValues(outcome).Inc()
	}
}
