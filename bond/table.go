package bond

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fixedincome/utils"
)

// ErrNilCurve is returned when a required curve argument is nil.
var ErrNilCurve = errors.New("nil curve")

// DiscountingEntry is one row of a DiscountingTable: every flow paying on Date,
// discounted back to the curve date.
type DiscountingEntry struct {
	Date               time.Time
	OutstandingFace    float64
	TenorDays          int
	TimeToFlow         float64 // years, ACT/365
	InterestRate       float64
	InterestAmount     float64
	AmortizationAmount float64
	TotalAmount        float64
	DiscountRate       float64
	SpreadBps          float64
	DiscountFactor     float64
	PresentValue       float64
}

// Overrides selects what Reprice substitutes for the values stored in each
// entry. A nil field keeps the entry's own value (for Yield: the curve rate).
type Overrides struct {
	Yield      *float64
	ZSpreadBps *float64
	CouponRate *float64
}

// Given returns a pointer to v, for filling Overrides and pricing inputs.
func Given(v float64) *float64 {
	return &v
}

// DiscountingTable holds the per-date discounting rows of one bond against one
// curve. It is mutated in place by Reprice and must not be shared between
// concurrent pricings.
type DiscountingTable struct {
	curve   YieldCurve
	entries []DiscountingEntry
}

// NewDiscountingTable groups the live flows of s by payment date and prices
// them off c with a zero spread.
//
// Flows paying on or before the curve date and CALL flows are ignored, and the
// horizon ends at the earliest PUT. Outstanding face starts at the sum of the
// live AMORTIZATION and MATURITY payments and steps down by each row's
// redemption amount.
func NewDiscountingTable(s FlowSchedule, c YieldCurve) (*DiscountingTable, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("NewDiscountingTable: %w", ErrMissingSchedule)
	}
	if c == nil {
		return nil, fmt.Errorf("NewDiscountingTable: %w", ErrNilCurve)
	}

	asOf := c.AsOf()
	live := make(FlowSchedule, 0, len(s))
	for _, cf := range s.Sorted() {
		if cf.EndDate.After(asOf) && cf.Kind != Call {
			live = append(live, cf)
		}
	}
	face := live.RedemptionTotal()
	flows := horizonFlows(live, asOf)

	entries := make([]DiscountingEntry, 0, len(flows))
	for i := 0; i < len(flows); {
		date := flows[i].EndDate
		e := DiscountingEntry{
			Date:            date,
			OutstandingFace: face,
			TimeToFlow:      utils.YearFraction(asOf, date),
		}
		for ; i < len(flows) && flows[i].EndDate.Equal(date); i++ {
			cf := flows[i]
			if cf.Kind == Coupon {
				e.InterestRate = cf.Rate
				e.InterestAmount = cf.Payment
				e.TenorDays = cf.PeriodDays
				continue
			}
			e.AmortizationAmount += cf.Payment
		}
		// Feeds sometimes carry the coupon amount without its rate.
		if e.InterestRate == 0 && e.InterestAmount != 0 && e.TenorDays > 0 && face > 0 {
			e.InterestRate = e.InterestAmount * utils.DaysPerYear / (face * float64(e.TenorDays))
		}
		e.TotalAmount = e.InterestAmount + e.AmortizationAmount
		face -= e.AmortizationAmount
		entries = append(entries, e)
	}

	t := &DiscountingTable{curve: c, entries: entries}
	t.Reprice(Overrides{})
	return t, nil
}

// Reprice recomputes every row in place and returns the resulting price.
//
// For a row at time t the discount factor is 1/(1+rate+spread/10000)^t, where
// rate is the override yield or the curve rate for t. The coupon amount is
// face × couponRate / 365 × tenorDays.
func (t *DiscountingTable) Reprice(o Overrides) float64 {
	price := 0.0
	for i := range t.entries {
		e := &t.entries[i]

		var rate float64
		if o.Yield != nil {
			rate = *o.Yield
		} else {
			rate = t.curve.RateForTenor(e.TimeToFlow)
		}
		spread := e.SpreadBps
		if o.ZSpreadBps != nil {
			spread = *o.ZSpreadBps
		}
		coupon := e.InterestRate
		if o.CouponRate != nil {
			coupon = *o.CouponRate
		}

		e.DiscountRate = rate
		e.SpreadBps = spread
		e.InterestRate = coupon
		e.InterestAmount = e.OutstandingFace * coupon / utils.DaysPerYear * float64(e.TenorDays)
		e.TotalAmount = e.InterestAmount + e.AmortizationAmount
		e.DiscountFactor = 1 / math.Pow(1+rate+spread/10000, e.TimeToFlow)
		e.PresentValue = e.TotalAmount * e.DiscountFactor
		price += e.PresentValue
	}
	return price
}

// Price is the sum of the rows' present values as last computed.
func (t *DiscountingTable) Price() float64 {
	price := 0.0
	for _, e := range t.entries {
		price += e.PresentValue
	}
	return price
}

// Duration is the present-value-weighted average time to flow, in years.
func (t *DiscountingTable) Duration() float64 {
	var weighted, total float64
	for _, e := range t.entries {
		weighted += e.PresentValue * e.TimeToFlow
		total += e.PresentValue
	}
	return weighted / total
}

// CouponRate returns the coupon rate of the first row paying interest, or 0.
func (t *DiscountingTable) CouponRate() float64 {
	for _, e := range t.entries {
		if e.TenorDays > 0 {
			return e.InterestRate
		}
	}
	return 0
}

// Entries returns a copy of the rows.
func (t *DiscountingTable) Entries() []DiscountingEntry {
	out := make([]DiscountingEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len is the number of rows.
func (t *DiscountingTable) Len() int {
	return len(t.entries)
}

// Curve is the curve the table was built from.
func (t *DiscountingTable) Curve() YieldCurve {
	return t.curve
}

// AsOf is the pricing date.
func (t *DiscountingTable) AsOf() time.Time {
	return t.curve.AsOf()
}
