package bonds

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/utils"
)

// FeedRow mirrors a vendor cashflow feed where amounts are stored as integer
// minor units (e.g., cents for USD, won for KRW) and rates in percent.
type FeedRow struct {
	Kind         string // COUPON, AMORTIZATION, MATURITY, PUT, CALL
	StartDate    time.Time
	EndDate      time.Time
	RatePct      float64
	PaymentMinor int64
}

// MinorUnits is the number of minor units per currency unit.
type MinorUnits int64

const (
	Cents MinorUnits = 100
	Won   MinorUnits = 1
)

// ToCashFlow converts one feed row. PeriodDays is taken from the accrual dates.
func (r FeedRow) ToCashFlow(unit MinorUnits) (bond.CashFlow, error) {
	if unit <= 0 {
		return bond.CashFlow{}, fmt.Errorf("ToCashFlow: minor units must be positive, got %d", unit)
	}
	kind, err := bond.ParseFlowKind(r.Kind)
	if err != nil {
		return bond.CashFlow{}, fmt.Errorf("ToCashFlow: %w", err)
	}
	if r.EndDate.Before(r.StartDate) {
		return bond.CashFlow{}, fmt.Errorf("ToCashFlow: end %s before start %s",
			r.EndDate.Format(utils.DateLayout), r.StartDate.Format(utils.DateLayout))
	}

	payment := decimal.NewFromInt(r.PaymentMinor).Div(decimal.NewFromInt(int64(unit)))
	rate := decimal.NewFromFloat(r.RatePct).Shift(-2)
	return bond.CashFlow{
		Kind:       kind,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		PeriodDays: utils.WholeDays(r.StartDate, r.EndDate),
		Rate:       rate.InexactFloat64(),
		Payment:    payment.InexactFloat64(),
	}, nil
}

// ToFlowSchedule converts a feed into a schedule ordered by (EndDate, Kind).
func ToFlowSchedule(rows []FeedRow, unit MinorUnits) (bond.FlowSchedule, error) {
	out := make(bond.FlowSchedule, 0, len(rows))
	for i, row := range rows {
		cf, err := row.ToCashFlow(unit)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, cf)
	}
	return out.Sorted(), nil
}

// FromCashFlow converts a flow back into feed form, rounding the payment to the
// nearest minor unit.
func FromCashFlow(cf bond.CashFlow, unit MinorUnits) FeedRow {
	minor := decimal.NewFromFloat(cf.Payment).Mul(decimal.NewFromInt(int64(unit))).Round(0)
	return FeedRow{
		Kind:         cf.Kind.String(),
		StartDate:    cf.StartDate,
		EndDate:      cf.EndDate,
		RatePct:      decimal.NewFromFloat(cf.Rate).Shift(2).InexactFloat64(),
		PaymentMinor: minor.IntPart(),
	}
}
