package barrier

import (
	"math"
	"testing"

	"structured-notes-tracker/internal/domain"
)

func TestForProduct_FamilyDispatch(t *testing.T) {
	tests := []struct {
		product domain.ProductType
		want    Checker
	}{
		{domain.ProductFCN, FCNChecker{}},
		{domain.ProductWOFCN, FCNChecker{}},
		{domain.ProductACCU, FCNChecker{}},
		{domain.ProductDECU, FCNChecker{}},
		{domain.ProductDCN, FCNChecker{}},
		{domain.ProductTwinWin, FCNChecker{}},
		{domain.ProductPhoenix, PhoenixChecker{}},
		{domain.ProductBEN, BENChecker{}},
		{domain.ProductWOBEN, BENChecker{}},
	}
	for _, tt := range tests {
		if got := ForProduct(tt.product); got != tt.want {
			t.Errorf("ForProduct(%s) = %T, want %T", tt.product, got, tt.want)
		}
	}
}

func knockedInNote(product domain.ProductType) *domain.Note {
	n := aliveNote(product)
	n.KIOccurred = true
	kiDay := obsDay
	n.KIDate = &kiDay
	n.Status = domain.StatusKnockedIn
	return n
}

func TestConversion_OnlyOnFinalValuationDate(t *testing.T) {
	note := knockedInNote(domain.ProductFCN)
	underlyings := []*domain.Underlying{
		under(1, "TSLA", 100, 100, nil, fp(60), fp(50)),
	}
	checker := ForProduct(note.ProductType)

	dayBefore := note.FinalValuation.AddDate(0, 0, -1)
	if conv := checker.CheckConversion(note, underlyings, dayBefore); conv.Applicable {
		t.Fatal("conversion must not be evaluated before the final valuation date")
	}

	// The day after, the derived status is Ended, so the check is
	// equally not applicable.
	dayAfter := note.FinalValuation.AddDate(0, 0, 1)
	if conv := checker.CheckConversion(note, underlyings, dayAfter); conv.Applicable {
		t.Fatal("conversion must not be evaluated after the final valuation date")
	}

	conv := checker.CheckConversion(note, underlyings, note.FinalValuation)
	if !conv.Applicable || !conv.Convert {
		t.Fatalf("expected conversion on the final date, got %+v", conv)
	}
}

func TestConversion_RequiresKnockedIn(t *testing.T) {
	note := aliveNote(domain.ProductFCN)
	underlyings := []*domain.Underlying{
		under(1, "TSLA", 100, 100, nil, fp(60), fp(50)),
	}

	conv := ForProduct(note.ProductType).CheckConversion(note, underlyings, note.FinalValuation)
	if conv.Applicable || conv.Convert {
		t.Fatalf("conversion requires a knocked-in note, got %+v", conv)
	}
}

func TestConversion_SharesAtStrike(t *testing.T) {
	note := knockedInNote(domain.ProductPhoenix)
	// Put strike ~75% of initial; WPS finishes below it.
	underlyings := []*domain.Underlying{
		under(1, "TSLA", 100, 74.86, nil, fp(55), fp(70)),
		under(2, "NVDA", 200, 149.72, nil, fp(110), fp(195)),
	}

	conv := ForProduct(note.ProductType).CheckConversion(note, underlyings, note.FinalValuation)
	if !conv.Convert {
		t.Fatalf("expected conversion, got: %s", conv.Reason)
	}
	if conv.Ticker != "TSLA" {
		t.Errorf("delivered ticker = %s, want TSLA", conv.Ticker)
	}
	wantShares := note.Notional / 74.86 // at strike, not market or KI price
	if math.Abs(conv.Shares-wantShares) > 1e-9 {
		t.Errorf("shares = %.4f, want %.4f", conv.Shares, wantShares)
	}
}

func TestConversion_AtOrAboveStrikeSettlesAtPar(t *testing.T) {
	note := knockedInNote(domain.ProductFCN)
	underlyings := []*domain.Underlying{
		under(1, "TSLA", 100, 100, nil, fp(60), fp(100)), // exactly at strike
	}

	conv := ForProduct(note.ProductType).CheckConversion(note, underlyings, note.FinalValuation)
	if !conv.Applicable {
		t.Fatalf("expected an applicable check, got: %s", conv.Reason)
	}
	if conv.Convert {
		t.Fatal("close at strike settles in cash, not shares")
	}
}

func TestConversion_MissingPriceNotDeterminable(t *testing.T) {
	note := knockedInNote(domain.ProductFCN)
	underlyings := []*domain.Underlying{
		under(1, "TSLA", 100, 100, nil, fp(60), fp(50)),
		under(2, "NVDA", 200, 200, nil, fp(120), nil), // no close
	}

	conv := ForProduct(note.ProductType).CheckConversion(note, underlyings, note.FinalValuation)
	if conv.Applicable || conv.Convert {
		t.Fatalf("expected not determinable with missing prices, got %+v", conv)
	}
}

// The worst performer for conversion ranks by strike for the FCN family
// but by spot for Phoenix/BEN. With strikes away from spot these give
// different answers; both sides of the asymmetry are pinned here.
func TestConversion_ReferenceLevelAsymmetry(t *testing.T) {
	underlyings := func() []*domain.Underlying {
		return []*domain.Underlying{
			// close/strike: 0.50, close/spot: 0.90
			under(1, "AAA", 100, 180, nil, nil, fp(90)),
			// close/strike: 0.85, close/spot: 0.425
			under(2, "BBB", 200, 100, nil, nil, fp(85)),
		}
	}

	fcn := knockedInNote(domain.ProductFCN)
	conv := FCNChecker{}.CheckConversion(fcn, underlyings(), fcn.FinalValuation)
	if conv.Ticker != "AAA" {
		t.Errorf("FCN conversion WPS = %s, want AAA (ranked by strike)", conv.Ticker)
	}

	phoenix := knockedInNote(domain.ProductPhoenix)
	conv = PhoenixChecker{}.CheckConversion(phoenix, underlyings(), phoenix.FinalValuation)
	if conv.Ticker != "BBB" {
		t.Errorf("Phoenix conversion WPS = %s, want BBB (ranked by spot)", conv.Ticker)
	}
}

func TestWorstPerformer_MissingDataNotDeterminable(t *testing.T) {
	underlyings := []*domain.Underlying{
		under(1, "AAA", 100, 100, nil, nil, fp(90)),
		under(2, "BBB", 0, 100, nil, nil, fp(85)), // zero spot
	}

	if _, ok := worstPerformer(underlyings, bySpot); ok {
		t.Error("expected not determinable with a zero reference level")
	}
	if _, ok := worstPerformer(nil, bySpot); ok {
		t.Error("expected not determinable with no underlyings")
	}
}
