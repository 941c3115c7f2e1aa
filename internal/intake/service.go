// Package intake is the validated creation path for notes. It parses the
// free-text fields a term sheet arrives with (payment dates, step-down
// tables), enforces the structural invariants, and persists the note with
// its underlyings.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"structured-notes-tracker/internal/barrier"
	"structured-notes-tracker/internal/coupon"
	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/observability"
	"structured-notes-tracker/internal/status"
	"structured-notes-tracker/internal/storage"
)

// UnderlyingInput is one underlying of a note as entered. Sequence is
// assigned from position (1-based).
type UnderlyingInput struct {
	Ticker      string   `json:"ticker" validate:"required"`
	SpotPrice   float64  `json:"spot_price" validate:"gt=0"`
	StrikePrice float64  `json:"strike_price" validate:"gt=0"`
	KOPrice     *float64 `json:"ko_price"`
	KIPrice     *float64 `json:"ki_price"`
}

// NoteInput is a note as entered from a term sheet.
type NoteInput struct {
	CustomerName  string  `json:"customer_name" validate:"required"`
	CustodianBank string  `json:"custodian_bank"`
	ProductType   string  `json:"product_type" validate:"required,product_type"`
	Notional      float64 `json:"notional" validate:"gt=0"`
	ISIN          string  `json:"isin" validate:"omitempty,len=12"`

	TradeDate        time.Time `json:"trade_date" validate:"required"`
	IssueDate        time.Time `json:"issue_date" validate:"required"`
	ObservationStart time.Time `json:"observation_start" validate:"required"`
	FinalValuation   time.Time `json:"final_valuation" validate:"required"`

	CouponPerAnnum float64  `json:"coupon_per_annum" validate:"gte=0"`
	CouponBarrier  *float64 `json:"coupon_barrier"`
	// PaymentDates is free text: comma-separated dates, ISO or DD/MM/YYYY.
	// When empty, a schedule is generated from FirstPaymentDate and
	// PaymentFrequency instead.
	PaymentDates     string    `json:"payment_dates"`
	FirstPaymentDate time.Time `json:"first_payment_date"`
	PaymentFrequency string    `json:"payment_frequency" validate:"omitempty,oneof=Monthly Quarterly Semi-Annually Annually 'At Maturity'"`

	KOMode      string `json:"ko_mode" validate:"omitempty,oneof=Daily Period-End"`
	KOFrequency string `json:"ko_frequency"`
	KIMode      string `json:"ki_mode" validate:"omitempty,oneof=Daily EKI"`
	// StepDownBarriers is free text in "period:price" pairs, Phoenix only.
	StepDownBarriers string `json:"step_down_barriers"`

	Underlyings []UnderlyingInput `json:"underlyings" validate:"required,min=1,max=4,dive"`
}

// CreateResult is a created note plus non-fatal warnings (dropped payment
// dates, defaulted fields).
type CreateResult struct {
	Note     *domain.Note
	Warnings []string
}

// Service validates and persists incoming notes.
type Service struct {
	notes       storage.NoteStore
	underlyings storage.UnderlyingStore
	validate    *validator.Validate
	metrics     *observability.Metrics
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// Options for creating a Service.
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

// NewService creates a new intake service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	v := validator.New()
	_ = v.RegisterValidation("product_type", func(fl validator.FieldLevel) bool {
		return domain.ProductType(fl.Field().String()).Valid()
	})

	return &Service{
		notes:       opts.NoteStore,
		underlyings: opts.UnderlyingStore,
		validate:    v,
		metrics:     opts.Metrics,
		logger:      logger.Sugar(),
		now:         now,
	}
}

// CreateNote validates input, builds the note and persists it with its
// underlyings. Malformed payment-date entries are dropped with a warning
// rather than rejecting the note; structural violations reject it with
// storage.ErrInvalidInput.
func (s *Service) CreateNote(ctx context.Context, input *NoteInput) (*CreateResult, error) {
	if err := s.validate.Struct(input); err != nil {
		s.countRejection("validation")
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	product := domain.ProductType(input.ProductType)

	if domain.Day(input.ObservationStart).After(domain.Day(input.FinalValuation)) {
		s.countRejection("observation_window")
		return nil, fmt.Errorf("%w: observation start after final valuation", storage.ErrInvalidInput)
	}
	if input.CouponBarrier != nil && product.Family() != domain.FamilyPhoenix {
		s.countRejection("coupon_barrier")
		return nil, fmt.Errorf("%w: coupon barrier only applies to Phoenix products", storage.ErrInvalidInput)
	}

	var warnings []string

	paymentDates, dropped := coupon.ParsePaymentDatesStrict(input.PaymentDates)
	for _, entry := range dropped {
		warnings = append(warnings, fmt.Sprintf("dropped unparseable payment date %q", entry))
	}
	if len(paymentDates) == 0 && input.PaymentFrequency != "" && !input.FirstPaymentDate.IsZero() {
		paymentDates = coupon.GeneratePaymentDates(
			input.FirstPaymentDate, input.FinalValuation, coupon.Frequency(input.PaymentFrequency))
		warnings = append(warnings, fmt.Sprintf("payment schedule generated: %s from %s",
			input.PaymentFrequency, domain.Day(input.FirstPaymentDate).Format("2006-01-02")))
	}

	note := &domain.Note{
		NoteID:             uuid.NewString(),
		CustomerName:       input.CustomerName,
		ProductType:        product,
		Notional:           input.Notional,
		TradeDate:          domain.Day(input.TradeDate),
		IssueDate:          domain.Day(input.IssueDate),
		ObservationStart:   domain.Day(input.ObservationStart),
		FinalValuation:     domain.Day(input.FinalValuation),
		CouponPerAnnum:     input.CouponPerAnnum,
		CouponBarrier:      input.CouponBarrier,
		CouponPaymentDates: paymentDates,
	}
	if input.CustodianBank != "" {
		note.CustodianBank = &input.CustodianBank
	}
	if input.ISIN != "" {
		note.ISIN = &input.ISIN
	}

	note.KOModeType = domain.KOMode(input.KOMode)
	if note.KOModeType == "" {
		note.KOModeType = domain.KODaily
	}
	if note.KOModeType == domain.KOPeriodEnd && input.KOFrequency != "" {
		note.KOFrequency = &input.KOFrequency
	}

	note.KIModeType = domain.KIMode(input.KIMode)
	if note.KIModeType == "" {
		note.KIModeType = domain.KIDaily
	}
	// Phoenix knock-in is European by construction.
	if product.Family() == domain.FamilyPhoenix && note.KIModeType != domain.KIEKI {
		note.KIModeType = domain.KIEKI
		warnings = append(warnings, "knock-in mode forced to EKI for Phoenix")
	}

	if input.StepDownBarriers != "" {
		if product.Family() != domain.FamilyPhoenix {
			s.countRejection("step_down_barriers")
			return nil, fmt.Errorf("%w: step-down barriers only apply to Phoenix products", storage.ErrInvalidInput)
		}
		note.StepDownBarriers = barrier.ParseStepDownBarriers(input.StepDownBarriers)
		if len(note.StepDownBarriers) == 0 {
			warnings = append(warnings, "step-down table unparseable, flat KO barrier in force")
		}
	}
	if product.Family() == domain.FamilyPhoenix && note.CouponBarrier == nil {
		warnings = append(warnings, "Phoenix note has no coupon barrier, memory coupons not evaluable")
	}

	note.Status = status.Derive(note, s.now())

	underlyings := make([]*domain.Underlying, 0, len(input.Underlyings))
	for i, in := range input.Underlyings {
		underlyings = append(underlyings, &domain.Underlying{
			NoteID:      note.NoteID,
			Sequence:    i + 1,
			Ticker:      in.Ticker,
			SpotPrice:   in.SpotPrice,
			StrikePrice: in.StrikePrice,
			KOPrice:     in.KOPrice,
			KIPrice:     in.KIPrice,
		})
	}

	if err := s.notes.Insert(ctx, note); err != nil {
		s.countRejection("store")
		return nil, fmt.Errorf("insert note: %w", err)
	}
	if err := s.underlyings.InsertBulk(ctx, underlyings); err != nil {
		// Keep the store consistent: a note without underlyings can never
		// be evaluated.
		if delErr := s.notes.Delete(ctx, note.NoteID); delErr != nil {
			s.logger.Errorw("rollback of note failed", "note_id", note.NoteID, "error", delErr)
		}
		s.countRejection("store")
		return nil, fmt.Errorf("insert underlyings: %w", err)
	}

	if s.metrics != nil {
		s.metrics.NotesCreated.Inc()
	}
	s.logger.Infow("note created",
		"note_id", note.NoteID,
		"product", note.ProductType,
		"underlyings", len(underlyings),
		"warnings", len(warnings))

	return &CreateResult{Note: note, Warnings: warnings}, nil
}

func (s *Service) countRejection(reason string) {
	if s.metrics != nil {
		s.metrics.IntakeRejected.WithLabelValues(reason).Inc()
	}
}
