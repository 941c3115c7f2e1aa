package domain

import "time"

// ProductType identifies the structured product variant.
type ProductType string

// Supported product types.
const (
	ProductFCN     ProductType = "FCN"
	ProductWOFCN   ProductType = "WOFCN"
	ProductACCU    ProductType = "ACCU"
	ProductDECU    ProductType = "DECU"
	ProductPhoenix ProductType = "Phoenix"
	ProductDCN     ProductType = "DCN"
	ProductWOBEN   ProductType = "WOBEN"
	ProductTwinWin ProductType = "TWINWIN"
	ProductBEN     ProductType = "BEN"
)

// ProductFamily groups product types that share barrier semantics.
type ProductFamily string

// Product families. The FCN family covers every fixed-barrier product;
// Phoenix carries step-down barriers and memory coupons; the BEN family
// has no early redemption and monitors knock-in daily on the worst performer.
const (
	FamilyFCN     ProductFamily = "FCN"
	FamilyPhoenix ProductFamily = "PHOENIX"
	FamilyBEN     ProductFamily = "BEN"
)

// Family maps a product type to its barrier-semantics family.
func (p ProductType) Family() ProductFamily {
	switch p {
	case ProductPhoenix:
		return FamilyPhoenix
	case ProductBEN, ProductWOBEN:
		return FamilyBEN
	default:
		return FamilyFCN
	}
}

// Valid reports whether p is a known product type.
func (p ProductType) Valid() bool {
	switch p {
	case ProductFCN, ProductWOFCN, ProductACCU, ProductDECU, ProductPhoenix,
		ProductDCN, ProductWOBEN, ProductTwinWin, ProductBEN:
		return true
	}
	return false
}

// Status is the lifecycle status of a note.
type Status string

// Lifecycle statuses. KnockedOut, Converted and Ended are terminal.
const (
	StatusNotObserved Status = "Not Observed Yet"
	StatusAlive       Status = "Alive"
	StatusKnockedOut  Status = "Knocked Out"
	StatusKnockedIn   Status = "Knocked In"
	StatusConverted   Status = "Converted"
	StatusEnded       Status = "Ended"
)

// Terminal reports whether the status permits no further barrier evaluation.
func (s Status) Terminal() bool {
	return s == StatusKnockedOut || s == StatusConverted || s == StatusEnded
}

// KOMode controls when the knock-out condition is observed.
type KOMode string

const (
	KODaily     KOMode = "Daily"
	KOPeriodEnd KOMode = "Period-End"
)

// KIMode controls when the knock-in condition is observed.
// EKI is checked only on the final valuation date.
type KIMode string

const (
	KIDaily KIMode = "Daily"
	KIEKI   KIMode = "EKI"
)

// StepDownBarrier is one entry of a Phoenix step-down knock-out table:
// the KO level in force during the given observation period (1-based).
type StepDownBarrier struct {
	Period int
	Price  float64
}

// Note represents one structured product position.
// Corresponds to the structured_notes table.
type Note struct {
	NoteID        string // PRIMARY KEY, uuid
	CustomerName  string
	CustodianBank *string
	ProductType   ProductType
	Notional      float64
	ISIN          *string

	TradeDate          time.Time
	IssueDate          time.Time
	ObservationStart   time.Time
	FinalValuation     time.Time // ObservationStart <= FinalValuation
	CouponPerAnnum     float64   // decimal fraction, 0.12 = 12% p.a.
	CouponBarrier      *float64  // Phoenix only
	CouponPaymentDates []time.Time

	KOModeType  KOMode
	KOFrequency *string // observation frequency when Period-End
	KIModeType  KIMode

	// Phoenix step-down KO table, ordered by period.
	StepDownBarriers []StepDownBarrier

	Status Status

	// Event flags are set once by the barrier engine and never cleared.
	KOOccurred bool
	KODate     *time.Time
	KIOccurred bool
	KIDate     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
