package schedule

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/utils"
)

// ErrInvalidTenor is returned for non-positive tenors or tenors that fall
// outside the coupon schedule.
var ErrInvalidTenor = errors.New("invalid tenor")

// amortizationScale is the number of decimal places kept when face value is
// split across amortization dates. The last amortization absorbs the remainder.
const amortizationScale = 8

// Params describes a synthetic bond. All tenors are in calendar days, and put
// and amortization tenors are measured from Start.
type Params struct {
	ID    string
	Start time.Time

	// Either CouponTenors, or CouponTenorDays repeated CouponCount times. When
	// CouponCount is zero and Maturity is set, the count is derived from it.
	CouponTenors    []int
	CouponTenorDays int
	CouponCount     int
	Maturity        time.Time

	CouponRate         float64 // annual decimal rate
	AmortizationTenors []int
	PutTenorDays       int
	FaceValue          float64

	// Passed through to the instrument, not priced.
	Currency string
	Rating   string
}

// Build generates the coupon, put and redemption flows of p, ordered by
// (EndDate, Kind).
//
// Put and amortization dates longer than the first coupon period are rounded
// down onto the coupon payment grid. Coupons accrue on the face outstanding
// before the redemptions of their payment date.
func Build(p Params) (bond.Instrument, error) {
	if p.Start.IsZero() {
		return bond.Instrument{}, fmt.Errorf("Build: Start is required")
	}
	if p.FaceValue <= 0 {
		return bond.Instrument{}, fmt.Errorf("Build: FaceValue must be positive")
	}

	tenors, err := couponTenors(p)
	if err != nil {
		return bond.Instrument{}, fmt.Errorf("Build: %w", err)
	}
	grid := make([]int, len(tenors))
	total := 0
	for i, d := range tenors {
		total += d
		grid[i] = total
	}

	redemptions, err := redemptionFlows(p, grid)
	if err != nil {
		return bond.Instrument{}, fmt.Errorf("Build: %w", err)
	}

	flows := make(bond.FlowSchedule, 0, len(tenors)+len(redemptions)+1)
	flows = append(flows, couponFlows(p, tenors, redemptions)...)
	if p.PutTenorDays != 0 {
		put, err := putFlow(p, grid, redemptions)
		if err != nil {
			return bond.Instrument{}, fmt.Errorf("Build: %w", err)
		}
		flows = append(flows, put)
	}
	flows = append(flows, redemptions...)

	return bond.Instrument{
		ID:            p.ID,
		Flows:         flows.Sorted(),
		InitialFace:   p.FaceValue,
		PlacementDate: p.Start,
		MaturityDate:  utils.AddDays(p.Start, total),
		Currency:      p.Currency,
		Rating:        p.Rating,
	}, nil
}

func couponTenors(p Params) ([]int, error) {
	if len(p.CouponTenors) > 0 {
		for _, d := range p.CouponTenors {
			if d <= 0 {
				return nil, fmt.Errorf("coupon tenor %d: %w", d, ErrInvalidTenor)
			}
		}
		out := make([]int, len(p.CouponTenors))
		copy(out, p.CouponTenors)
		return out, nil
	}

	if p.CouponTenorDays <= 0 {
		return nil, fmt.Errorf("coupon tenor %d: %w", p.CouponTenorDays, ErrInvalidTenor)
	}
	count := p.CouponCount
	if count == 0 && !p.Maturity.IsZero() {
		count = int(math.Round(utils.Days(p.Start, p.Maturity) / float64(p.CouponTenorDays)))
	}
	if count <= 0 {
		return nil, fmt.Errorf("coupon count must be positive, got %d", count)
	}

	out := make([]int, count)
	for i := range out {
		out[i] = p.CouponTenorDays
	}
	return out, nil
}

// snapToGrid rounds tenorDays down to the latest coupon payment offset not
// after it. Tenors within the first coupon period keep their own date.
func snapToGrid(tenorDays int, grid []int) (int, error) {
	if tenorDays <= 0 || tenorDays > grid[len(grid)-1] {
		return 0, fmt.Errorf("tenor %d days outside schedule of %d days: %w", tenorDays, grid[len(grid)-1], ErrInvalidTenor)
	}
	if tenorDays <= grid[0] {
		return tenorDays, nil
	}
	i := sort.SearchInts(grid, tenorDays+1) // first offset > tenorDays
	return grid[i-1], nil
}

func redemptionFlows(p Params, grid []int) (bond.FlowSchedule, error) {
	maturityDays := grid[len(grid)-1]
	if len(p.AmortizationTenors) == 0 {
		return bond.FlowSchedule{{
			Kind:       bond.Maturity,
			StartDate:  p.Start,
			EndDate:    utils.AddDays(p.Start, maturityDays),
			PeriodDays: maturityDays,
			Payment:    p.FaceValue,
		}}, nil
	}

	face := decimal.NewFromFloat(p.FaceValue)
	n := int64(len(p.AmortizationTenors))
	part := face.DivRound(decimal.NewFromInt(n), amortizationScale)
	last := face.Sub(part.Mul(decimal.NewFromInt(n - 1)))

	flows := make(bond.FlowSchedule, 0, n)
	for i, tenor := range p.AmortizationTenors {
		days, err := snapToGrid(tenor, grid)
		if err != nil {
			return nil, fmt.Errorf("amortization: %w", err)
		}
		amount := part
		if int64(i) == n-1 {
			amount = last
		}
		flows = append(flows, bond.CashFlow{
			Kind:       bond.Amortization,
			StartDate:  p.Start,
			EndDate:    utils.AddDays(p.Start, days),
			PeriodDays: days,
			Payment:    amount.InexactFloat64(),
		})
	}
	return flows, nil
}

func putFlow(p Params, grid []int, redemptions bond.FlowSchedule) (bond.CashFlow, error) {
	days, err := snapToGrid(p.PutTenorDays, grid)
	if err != nil {
		return bond.CashFlow{}, fmt.Errorf("put: %w", err)
	}
	if days == grid[len(grid)-1] {
		return bond.CashFlow{}, fmt.Errorf("put: tenor %d days falls on maturity: %w", p.PutTenorDays, ErrInvalidTenor)
	}
	date := utils.AddDays(p.Start, days)
	return bond.CashFlow{
		Kind:       bond.Put,
		StartDate:  p.Start,
		EndDate:    date,
		PeriodDays: days,
		Payment:    outstanding(p.FaceValue, redemptions, func(d time.Time) bool { return !d.After(date) }),
	}, nil
}

func couponFlows(p Params, tenors []int, redemptions bond.FlowSchedule) bond.FlowSchedule {
	flows := make(bond.FlowSchedule, 0, len(tenors))
	start := p.Start
	for _, d := range tenors {
		end := utils.AddDays(start, d)
		face := outstanding(p.FaceValue, redemptions, func(r time.Time) bool { return r.Before(end) })
		flows = append(flows, bond.CashFlow{
			Kind:       bond.Coupon,
			StartDate:  start,
			EndDate:    end,
			PeriodDays: d,
			Rate:       p.CouponRate,
			Payment:    face * p.CouponRate / utils.DaysPerYear * float64(d),
		})
		start = end
	}
	return flows
}

// outstanding is face less the redemptions whose date satisfies paid.
func outstanding(face float64, redemptions bond.FlowSchedule, paid func(time.Time) bool) float64 {
	for _, r := range redemptions {
		if paid(r.EndDate) {
			face -= r.Payment
		}
	}
	return face
}
