package reporting

import "time"

// Report is the portfolio snapshot produced by the Generator.
type Report struct {
	GeneratedAt time.Time
	AsOf        time.Time // the valuation date the snapshot was taken for

	Summary PortfolioSummary

	// Notes sorted by (customer_name, note_id).
	Notes []NoteRow
}

// PortfolioSummary aggregates the whole book.
type PortfolioSummary struct {
	TotalNotes    int
	TotalNotional float64

	// StatusCounts sorted by status name.
	StatusCounts []StatusCountRow

	KnockOuts   int // notes with the KO flag set
	KnockIns    int // notes with the KI flag set
	Conversions int

	ExpectedCouponTotal float64
	AccruedCouponTotal  float64
}

// StatusCountRow is one lifecycle status bucket.
type StatusCountRow struct {
	Status   string
	Count    int
	Notional float64
}

// NoteRow is one note in the portfolio table.
type NoteRow struct {
	NoteID        string
	CustomerName  string
	CustodianBank string
	ProductType   string
	Status        string
	Notional      float64

	FinalValuation time.Time
	Tickers        []string // in sequence order

	ExpectedCoupon float64
	AccruedCoupon  float64
	CouponsPaid    int
	CouponsTotal   int

	KOOccurred bool
	KODate     *time.Time
	KIOccurred bool
	KIDate     *time.Time
}
