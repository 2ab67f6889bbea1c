package bond_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/curve"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var asOf = date(2025, 1, 1)

// amortizingFlows is a one-year bond paying half its face after six months.
// The slice is deliberately out of order and carries flows the table must drop.
func amortizingFlows() bond.FlowSchedule {
	mid := date(2025, 7, 2)   // 182 days after asOf
	end := date(2026, 1, 1)   // 365 days after asOf
	past := date(2024, 7, 1)  // already paid
	call := date(2025, 10, 1) // calls are not priced
	return bond.FlowSchedule{
		{Kind: bond.Maturity, StartDate: asOf, EndDate: end, PeriodDays: 365, Payment: 500},
		{Kind: bond.Coupon, StartDate: mid, EndDate: end, PeriodDays: 183, Rate: 0.06, Payment: 500 * 0.06 / 365 * 183},
		{Kind: bond.Call, StartDate: asOf, EndDate: call, Payment: 1000},
		{Kind: bond.Amortization, StartDate: asOf, EndDate: mid, PeriodDays: 182, Payment: 500},
		{Kind: bond.Coupon, StartDate: asOf, EndDate: mid, PeriodDays: 182, Rate: 0.06, Payment: 1000 * 0.06 / 365 * 182},
		{Kind: bond.Coupon, StartDate: past.AddDate(0, -6, 0), EndDate: past, PeriodDays: 182, Rate: 0.06, Payment: 30},
	}
}

// bulletWithPut pays semiannual 8% coupons for two years, puttable after one.
func bulletWithPut() bond.FlowSchedule {
	d1, d2, d3, d4 := date(2025, 7, 2), date(2026, 1, 1), date(2026, 7, 2), date(2027, 1, 1)
	c := func(start, end time.Time, days int) bond.CashFlow {
		return bond.CashFlow{Kind: bond.Coupon, StartDate: start, EndDate: end, PeriodDays: days, Rate: 0.08, Payment: 1000 * 0.08 / 365 * float64(days)}
	}
	return bond.FlowSchedule{
		c(asOf, d1, 182),
		c(d1, d2, 183),
		c(d2, d3, 182),
		c(d3, d4, 183),
		{Kind: bond.Put, StartDate: asOf, EndDate: d2, PeriodDays: 365, Payment: 1000},
		{Kind: bond.Maturity, StartDate: asOf, EndDate: d4, PeriodDays: 730, Payment: 1000},
	}
}

func TestNewDiscountingTable_GroupsByDate(t *testing.T) {
	t.Parallel()

	crv := curve.Flat{Date: asOf, Rate: 0.05}
	tbl, err := bond.NewDiscountingTable(amortizingFlows(), crv)
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	rows := tbl.Entries()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first, second := rows[0], rows[1]
	if !first.Date.Equal(date(2025, 7, 2)) || !second.Date.Equal(date(2026, 1, 1)) {
		t.Fatalf("row dates mismatch: %s %s", first.Date.Format("2006-01-02"), second.Date.Format("2006-01-02"))
	}
	if first.OutstandingFace != 1000 || second.OutstandingFace != 500 {
		t.Fatalf("outstanding face mismatch: got %.2f, %.2f", first.OutstandingFace, second.OutstandingFace)
	}
	if first.AmortizationAmount+second.AmortizationAmount != 1000 {
		t.Fatalf("redemptions do not sum to face: %.2f + %.2f", first.AmortizationAmount, second.AmortizationAmount)
	}
	if first.TenorDays != 182 || second.TenorDays != 183 {
		t.Fatalf("tenor mismatch: got %d, %d", first.TenorDays, second.TenorDays)
	}
	if math.Abs(first.TimeToFlow-182.0/365.0) > 1e-15 || math.Abs(second.TimeToFlow-1) > 1e-15 {
		t.Fatalf("time to flow mismatch: got %.15f, %.15f", first.TimeToFlow, second.TimeToFlow)
	}

	wantInterest := 1000 * 0.06 / 365 * 182
	if math.Abs(first.InterestAmount-wantInterest) > 1e-12 {
		t.Fatalf("interest mismatch: got %.12f want %.12f", first.InterestAmount, wantInterest)
	}

	want := (wantInterest+500)/math.Pow(1.05, 182.0/365.0) + (500*0.06/365*183+500)/1.05
	if got := tbl.Price(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("price mismatch: got %.12f want %.12f", got, want)
	}
}

func TestNewDiscountingTable_TruncatesAtPut(t *testing.T) {
	t.Parallel()

	tbl, err := bond.NewDiscountingTable(bulletWithPut(), curve.Flat{Date: asOf, Rate: 0.08})
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows up to the put, got %d", tbl.Len())
	}
	last := tbl.Entries()[1]
	if last.AmortizationAmount != 1000 {
		t.Fatalf("put redemption mismatch: got %.2f", last.AmortizationAmount)
	}
	if last.OutstandingFace != 1000 {
		t.Fatalf("outstanding face mismatch: got %.2f", last.OutstandingFace)
	}
}

func TestNewDiscountingTable_Errors(t *testing.T) {
	t.Parallel()

	if _, err := bond.NewDiscountingTable(nil, curve.Flat{Date: asOf}); !errors.Is(err, bond.ErrMissingSchedule) {
		t.Fatalf("expected ErrMissingSchedule, got %v", err)
	}
	if _, err := bond.NewDiscountingTable(bulletWithPut(), nil); !errors.Is(err, bond.ErrNilCurve) {
		t.Fatalf("expected ErrNilCurve, got %v", err)
	}
}

func TestNewDiscountingTable_AllFlowsPaid(t *testing.T) {
	t.Parallel()

	later := curve.Flat{Date: date(2030, 1, 1), Rate: 0.05}
	tbl, err := bond.NewDiscountingTable(bulletWithPut(), later)
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	if tbl.Len() != 0 || tbl.Price() != 0 {
		t.Fatalf("expected empty table priced at 0, got %d rows price %.4f", tbl.Len(), tbl.Price())
	}
}

func TestReprice_Overrides(t *testing.T) {
	t.Parallel()

	tbl, err := bond.NewDiscountingTable(amortizingFlows(), curve.Flat{Date: asOf, Rate: 0.05})
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}

	// Yield 4% with a 100bp spread discounts like a flat 5% curve.
	base := tbl.Price()
	got := tbl.Reprice(bond.Overrides{Yield: bond.Given(0.04), ZSpreadBps: bond.Given(100)})
	if math.Abs(got-base) > 1e-9 {
		t.Fatalf("yield+spread price mismatch: got %.12f want %.12f", got, base)
	}

	// The spread sticks to the rows until overridden again.
	withSpread := tbl.Reprice(bond.Overrides{})
	if withSpread >= base {
		t.Fatalf("stored spread not applied: got %.6f, base %.6f", withSpread, base)
	}

	zero := tbl.Reprice(bond.Overrides{ZSpreadBps: bond.Given(0), CouponRate: bond.Given(0)})
	want := 500/math.Pow(1.05, 182.0/365.0) + 500/1.05
	if math.Abs(zero-want) > 1e-9 {
		t.Fatalf("zero-coupon price mismatch: got %.12f want %.12f", zero, want)
	}
	for _, e := range tbl.Entries() {
		if e.InterestRate != 0 || e.InterestAmount != 0 {
			t.Fatalf("coupon override not stored: %+v", e)
		}
	}
}

func TestReprice_NaNPropagates(t *testing.T) {
	t.Parallel()

	tbl, err := bond.NewDiscountingTable(amortizingFlows(), curve.Flat{Date: asOf, Rate: 0.05})
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	if got := tbl.Reprice(bond.Overrides{Yield: bond.Given(math.NaN())}); !math.IsNaN(got) {
		t.Fatalf("expected NaN price, got %v", got)
	}
	// (1+y) < 0 with a fractional exponent is not clamped.
	if got := tbl.Reprice(bond.Overrides{Yield: bond.Given(-1.5), ZSpreadBps: bond.Given(0)}); !math.IsNaN(got) {
		t.Fatalf("expected NaN price, got %v", got)
	}
}

func TestReprice_DerivesRateFromAmount(t *testing.T) {
	t.Parallel()

	flows := bond.FlowSchedule{
		{Kind: bond.Coupon, StartDate: asOf, EndDate: date(2026, 1, 1), PeriodDays: 365, Payment: 45},
		{Kind: bond.Maturity, StartDate: asOf, EndDate: date(2026, 1, 1), PeriodDays: 365, Payment: 1000},
	}
	tbl, err := bond.NewDiscountingTable(flows, curve.Flat{Date: asOf, Rate: 0.045})
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	if got := tbl.CouponRate(); math.Abs(got-0.045) > 1e-15 {
		t.Fatalf("coupon rate mismatch: got %.15f", got)
	}
	if got := tbl.Price(); math.Abs(got-1000) > 1e-9 {
		t.Fatalf("par price mismatch: got %.12f", got)
	}
}

func TestSingleCouponBulletAtPar(t *testing.T) {
	t.Parallel()

	for _, c := range []float64{0.001, 0.02, 0.05, 0.1, 0.25} {
		flows := bond.FlowSchedule{
			{Kind: bond.Coupon, StartDate: asOf, EndDate: date(2026, 1, 1), PeriodDays: 365, Rate: c, Payment: 1000 * c},
			{Kind: bond.Maturity, StartDate: asOf, EndDate: date(2026, 1, 1), PeriodDays: 365, Payment: 1000},
		}
		tbl, err := bond.NewDiscountingTable(flows, curve.Flat{Date: asOf, Rate: c})
		if err != nil {
			t.Fatalf("NewDiscountingTable error: %v", err)
		}
		if got := tbl.Price(); math.Abs(got-1000) > 1e-6 {
			t.Fatalf("coupon %.3f: table price %.9f, want 1000", c, got)
		}
		got, err := bond.Price(flows, asOf, c)
		if err != nil {
			t.Fatalf("Price error: %v", err)
		}
		if math.Abs(got-1000) > 1e-6 {
			t.Fatalf("coupon %.3f: flat price %.9f, want 1000", c, got)
		}
	}
}

func TestDuration_Table(t *testing.T) {
	t.Parallel()

	tbl, err := bond.NewDiscountingTable(amortizingFlows(), curve.Flat{Date: asOf, Rate: 0.05})
	if err != nil {
		t.Fatalf("NewDiscountingTable error: %v", err)
	}
	rows := tbl.Entries()
	want := (rows[0].PresentValue*rows[0].TimeToFlow + rows[1].PresentValue*rows[1].TimeToFlow) /
		(rows[0].PresentValue + rows[1].PresentValue)
	if got := tbl.Duration(); math.Abs(got-want) > 1e-15 {
		t.Fatalf("duration mismatch: got %.15f want %.15f", got, want)
	}
}

func TestFlowSchedule_Sorted(t *testing.T) {
	t.Parallel()

	sorted := amortizingFlows().Sorted()
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.EndDate.Before(prev.EndDate) {
			t.Fatalf("not sorted by date at %d", i)
		}
		if cur.EndDate.Equal(prev.EndDate) && cur.Kind < prev.Kind {
			t.Fatalf("not sorted by kind at %d: %s after %s", i, cur.Kind, prev.Kind)
		}
	}
	if got := amortizingFlows().RedemptionTotal(); got != 1000 {
		t.Fatalf("RedemptionTotal mismatch: got %.2f", got)
	}
}

func TestParseFlowKind(t *testing.T) {
	t.Parallel()

	for _, k := range []bond.FlowKind{bond.Coupon, bond.Amortization, bond.Maturity, bond.Put, bond.Call} {
		got, err := bond.ParseFlowKind(k.String())
		if err != nil || got != k {
			t.Fatalf("round trip of %s: got %v, %v", k, got, err)
		}
	}
	if _, err := bond.ParseFlowKind("SINK"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
