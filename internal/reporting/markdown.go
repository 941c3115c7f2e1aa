package reporting

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders the full report as a markdown document.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Portfolio Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s  \n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("As of: %s\n\n", r.AsOf.Format("2006-01-02")))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- Notes: %d\n", r.Summary.TotalNotes))
	sb.WriteString(fmt.Sprintf("- Total notional: %.2f\n", r.Summary.TotalNotional))
	sb.WriteString(fmt.Sprintf("- Knock-outs: %d, knock-ins: %d, conversions: %d\n",
		r.Summary.KnockOuts, r.Summary.KnockIns, r.Summary.Conversions))
	sb.WriteString(fmt.Sprintf("- Expected coupons: %.2f, accrued: %.2f\n\n",
		r.Summary.ExpectedCouponTotal, r.Summary.AccruedCouponTotal))

	if len(r.Summary.StatusCounts) > 0 {
		sb.WriteString("| Status | Count | Notional |\n")
		sb.WriteString("|--------|-------|----------|\n")
		for _, s := range r.Summary.StatusCounts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f |\n", s.Status, s.Count, s.Notional))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Notes\n\n")
	sb.WriteString("| Customer | Product | Underlyings | Status | Notional | Final Valuation | Accrued / Expected | Coupons |\n")
	sb.WriteString("|----------|---------|-------------|--------|----------|-----------------|--------------------|---------|\n")
	for _, n := range r.Notes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %s | %.2f / %.2f | %d/%d |\n",
			n.CustomerName,
			n.ProductType,
			strings.Join(n.Tickers, "/"),
			n.Status,
			n.Notional,
			n.FinalValuation.Format("2006-01-02"),
			n.AccruedCoupon,
			n.ExpectedCoupon,
			n.CouponsPaid,
			n.CouponsTotal,
		))
	}

	return sb.String()
}
