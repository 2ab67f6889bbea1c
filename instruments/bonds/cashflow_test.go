package bonds

import (
	"testing"
	"time"

	"github.com/meenmo/fixedincome/bond"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestToFlowSchedule(t *testing.T) {
	t.Parallel()

	rows := []FeedRow{
		{Kind: "MATURITY", StartDate: d(2025, 1, 1), EndDate: d(2026, 1, 1), PaymentMinor: 100000},
		{Kind: "COUPON", StartDate: d(2025, 7, 1), EndDate: d(2026, 1, 1), RatePct: 4.25, PaymentMinor: 2142},
		{Kind: "COUPON", StartDate: d(2025, 1, 1), EndDate: d(2025, 7, 1), RatePct: 4.25, PaymentMinor: 2107},
	}
	flows, err := ToFlowSchedule(rows, Cents)
	if err != nil {
		t.Fatalf("ToFlowSchedule error: %v", err)
	}
	if len(flows) != 3 {
		t.Fatalf("flow count mismatch: got %d", len(flows))
	}
	first := flows[0]
	if first.Kind != bond.Coupon || !first.EndDate.Equal(d(2025, 7, 1)) {
		t.Fatalf("flows not sorted: %+v", flows)
	}
	if first.PeriodDays != 181 || first.Rate != 0.0425 || first.Payment != 21.07 {
		t.Fatalf("first coupon mismatch: %+v", first)
	}
	if flows[1].Kind != bond.Coupon || flows[2].Kind != bond.Maturity {
		t.Fatalf("coupon must precede maturity on the same date: %+v", flows)
	}
	if flows[2].Payment != 1000 {
		t.Fatalf("maturity payment mismatch: %v", flows[2].Payment)
	}
}

func TestToCashFlow_Won(t *testing.T) {
	t.Parallel()

	cf, err := FeedRow{Kind: "AMORTIZATION", StartDate: d(2025, 1, 1), EndDate: d(2025, 4, 1), PaymentMinor: 2500000}.ToCashFlow(Won)
	if err != nil {
		t.Fatalf("ToCashFlow error: %v", err)
	}
	if cf.Kind != bond.Amortization || cf.Payment != 2500000 || cf.PeriodDays != 90 {
		t.Fatalf("conversion mismatch: %+v", cf)
	}
}

func TestToCashFlow_Errors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		row  FeedRow
		unit MinorUnits
	}{
		"unknown kind":  {FeedRow{Kind: "SINK", StartDate: d(2025, 1, 1), EndDate: d(2025, 2, 1)}, Cents},
		"inverted":      {FeedRow{Kind: "COUPON", StartDate: d(2025, 2, 1), EndDate: d(2025, 1, 1)}, Cents},
		"no minor unit": {FeedRow{Kind: "COUPON", StartDate: d(2025, 1, 1), EndDate: d(2025, 2, 1)}, 0},
	} {
		if _, err := tc.row.ToCashFlow(tc.unit); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := ToFlowSchedule([]FeedRow{{Kind: "PUT", StartDate: d(2025, 1, 1), EndDate: d(2026, 1, 1)}, {Kind: "?"}}, Cents); err == nil {
		t.Fatalf("expected error from bad row")
	}
}

func TestFromCashFlow(t *testing.T) {
	t.Parallel()

	cf := bond.CashFlow{Kind: bond.Put, StartDate: d(2025, 1, 1), EndDate: d(2026, 1, 1), Rate: 0.035, Payment: 333.333333}
	row := FromCashFlow(cf, Cents)
	if row.Kind != "PUT" || row.PaymentMinor != 33333 || row.RatePct != 3.5 {
		t.Fatalf("conversion mismatch: %+v", row)
	}
}
