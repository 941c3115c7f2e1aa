package domain

import "time"

// ClosePoint is one observed daily close for a ticker.
// Corresponds to the underlying_closes table in ClickHouse.
type ClosePoint struct {
	Ticker     string
	ObservedAt time.Time // calendar date of the close, UTC midnight
	Price      float64
}
