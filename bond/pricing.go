package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fixedincome/config"
	"github.com/meenmo/fixedincome/solver"
	"github.com/meenmo/fixedincome/utils"
)

// Starting points for the standalone inversions.
const (
	yieldGuessLow   = -0.75
	yieldGuessHigh  = 0.25
	spreadGuessLow  = -7500.0
	spreadGuessHigh = 500.0
)

// Price discounts the live flows of s at a flat annual yield ytm:
//
//	PV = Σ payment / (1+ytm)^t,   t = days(asOf, endDate) / 365
//
// Flows after the first PUT are not priced.
func Price(s FlowSchedule, asOf time.Time, ytm float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("Price: %w", ErrMissingSchedule)
	}
	return discount(horizonFlows(s, asOf), asOf, func(float64) float64 { return ytm }), nil
}

// PriceWithCurve discounts the live flows of s at the curve rate for each
// flow's tenor plus a constant spread in basis points.
func PriceWithCurve(s FlowSchedule, c YieldCurve, zspreadBps float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("PriceWithCurve: %w", ErrMissingSchedule)
	}
	if c == nil {
		return 0, fmt.Errorf("PriceWithCurve: %w", ErrNilCurve)
	}
	asOf := c.AsOf()
	return discount(horizonFlows(s, asOf), asOf, func(t float64) float64 {
		return c.RateForTenor(t) + zspreadBps/10000
	}), nil
}

// ImpliedYield solves Price(s, asOf, y) == target for y. A search that does
// not converge yields NaN with a nil error.
func ImpliedYield(s FlowSchedule, asOf time.Time, target float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("ImpliedYield: %w", ErrMissingSchedule)
	}
	flows := horizonFlows(s, asOf)
	return impliedYield(flows, asOf, target), nil
}

// ImpliedZSpread solves PriceWithCurve(s, c, z) == target for z in basis points.
// A search that does not converge yields NaN with a nil error.
func ImpliedZSpread(s FlowSchedule, c YieldCurve, target float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("ImpliedZSpread: %w", ErrMissingSchedule)
	}
	if c == nil {
		return 0, fmt.Errorf("ImpliedZSpread: %w", ErrNilCurve)
	}

	cfg := config.GetConfig().Normalized()
	asOf := c.AsOf()
	flows := horizonFlows(s, asOf)
	f := func(z float64) float64 {
		return discount(flows, asOf, func(t float64) float64 {
			return c.RateForTenor(t) + z/10000
		}) - target
	}
	return solver.New(cfg, cfg.SpreadTolerance).Solve(f, spreadGuessLow, spreadGuessHigh), nil
}

// Duration is the Macaulay duration of s at the yield implied by price:
//
//	D = Σ (payment/(1+y)^t)·t / price
func Duration(s FlowSchedule, c YieldCurve, price float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("Duration: %w", ErrMissingSchedule)
	}
	if c == nil {
		return 0, fmt.Errorf("Duration: %w", ErrNilCurve)
	}
	asOf := c.AsOf()
	flows := horizonFlows(s, asOf)
	return duration(flows, asOf, impliedYield(flows, asOf, price), price), nil
}

// GSpread is the spread in basis points of ytm over the curve rate at the
// bond's duration, the duration being measured at ytm.
func GSpread(s FlowSchedule, c YieldCurve, ytm, price float64) (float64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("GSpread: %w", ErrMissingSchedule)
	}
	if c == nil {
		return 0, fmt.Errorf("GSpread: %w", ErrNilCurve)
	}
	asOf := c.AsOf()
	d := duration(horizonFlows(s, asOf), asOf, ytm, price)
	return GSpreadAt(ytm, c, d), nil
}

// GSpreadAt is (ytm - c.RateForTenor(duration)) × 10000.
func GSpreadAt(ytm float64, c YieldCurve, duration float64) float64 {
	return (ytm - c.RateForTenor(duration)) * 10000
}

func impliedYield(flows FlowSchedule, asOf time.Time, target float64) float64 {
	f := func(y float64) float64 {
		return discount(flows, asOf, func(float64) float64 { return y }) - target
	}
	return solver.Default().Solve(f, yieldGuessLow, yieldGuessHigh)
}

func discount(flows FlowSchedule, asOf time.Time, rateAt func(t float64) float64) float64 {
	pv := 0.0
	for _, cf := range flows {
		t := utils.YearFraction(asOf, cf.EndDate)
		pv += cf.Payment / math.Pow(1+rateAt(t), t)
	}
	return pv
}

func duration(flows FlowSchedule, asOf time.Time, ytm, price float64) float64 {
	weighted := 0.0
	for _, cf := range flows {
		t := utils.YearFraction(asOf, cf.EndDate)
		weighted += cf.Payment / math.Pow(1+ytm, t) * t
	}
	return weighted / price
}
