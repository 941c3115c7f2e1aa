package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the note rows as a CSV string.
func RenderCSV(notes []NoteRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("note_id,customer_name,custodian_bank,product_type,status,notional,")
	sb.WriteString("final_valuation,tickers,expected_coupon,accrued_coupon,coupons_paid,coupons_total,")
	sb.WriteString("ko_occurred,ko_date,ki_occurred,ki_date\n")

	// Rows
	for _, n := range notes {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.2f,%s,%s,%.2f,%.2f,%d,%d,%t,%s,%t,%s\n",
			n.NoteID,
			csvEscape(n.CustomerName),
			csvEscape(n.CustodianBank),
			n.ProductType,
			csvEscape(n.Status),
			n.Notional,
			n.FinalValuation.Format("2006-01-02"),
			strings.Join(n.Tickers, "/"),
			n.ExpectedCoupon,
			n.AccruedCoupon,
			n.CouponsPaid,
			n.CouponsTotal,
			n.KOOccurred,
			csvDate(n.KODate),
			n.KIOccurred,
			csvDate(n.KIDate),
		))
	}

	return sb.String()
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
