package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/config"
	"github.com/meenmo/fixedincome/solver"
)

// ErrInsufficientInputs is returned when the known inputs do not determine a price.
var ErrInsufficientInputs = errors.New("insufficient inputs for pricing")

// Starting points for the orchestrated searches.
const (
	yieldGuessLow   = -0.25
	yieldGuessHigh  = 0.25
	couponGuessLow  = -0.25
	couponGuessHigh = 0.25
	spreadGuessLow  = -400.0
	spreadGuessHigh = 500.0
)

// smallest positive normal float64
const minNormal = 0x1p-1022

// Inputs lists what is known about a bond before pricing. Nil fields are unknown.
type Inputs struct {
	Price      *float64
	Yield      *float64
	ZSpreadBps *float64
	CouponRate *float64

	// CouponsObserved marks the coupon rates already carried by the discounting
	// table as contractual, so the coupon structure is known without CouponRate.
	CouponsObserved bool
}

// Result is the outcome of PriceVanillaBond.
type Result struct {
	PricingDate      time.Time
	Price            float64
	PriceAdjustment  float64
	Duration         float64
	ModifiedDuration float64
	DV01             float64
	YTM              float64
	GSpread          float64 // bp
	ZSpread          float64 // bp
	CouponRate       float64
	Case             Case
	Curve            bond.YieldCurve
}

// HasBadResult reports whether any of duration, yield, g-spread or z-spread is
// NaN, infinite or subnormal. Such a result must not be used.
func (r Result) HasBadResult() bool {
	for _, v := range []float64{r.Duration, r.YTM, r.GSpread, r.ZSpread} {
		if !usable(v) {
			return true
		}
	}
	return false
}

func usable(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v == 0 || math.Abs(v) >= minNormal
}

// Engine resolves the unknown inputs of a bond with secant searches over a
// DiscountingTable.
type Engine struct {
	cfg config.Config
}

// NewEngine returns an Engine with the given solver settings. Zero fields take
// the defaults.
func NewEngine(cfg config.Config) *Engine {
	return &Engine{cfg: cfg.Normalized()}
}

// PriceVanillaBond prices t with an Engine built from the active configuration.
func PriceVanillaBond(t *bond.DiscountingTable, in Inputs) (Result, error) {
	return NewEngine(config.GetConfig()).PriceVanillaBond(t, in)
}

// PriceInstrument builds the discounting table of inst against c and prices it.
func (e *Engine) PriceInstrument(inst bond.Instrument, c bond.YieldCurve, in Inputs) (Result, error) {
	t, err := bond.NewDiscountingTable(inst.Flows, c)
	if err != nil {
		return Result{}, fmt.Errorf("PriceInstrument %s: %w", inst.ID, err)
	}
	return e.PriceVanillaBond(t, in)
}

// PriceVanillaBond determines the missing members of {price, yield, z-spread,
// coupon rate} from the known ones, then derives duration, modified
// duration, DV01 and g-spread from the resolved price and yield.
//
// t is repriced in place throughout. Searches that fail to converge leave NaN
// in the result; check HasBadResult.
func (e *Engine) PriceVanillaBond(t *bond.DiscountingTable, in Inputs) (Result, error) {
	if t == nil {
		return Result{}, fmt.Errorf("PriceVanillaBond: %w", bond.ErrMissingSchedule)
	}

	c := Classify(in)
	res := Result{
		PricingDate: t.AsOf(),
		Case:        c,
		Curve:       t.Curve(),
	}

	switch c {
	case CaseCalibrate:
		res.Price = t.Reprice(knownBasis(in))
		res.PriceAdjustment = res.Price - *in.Price
	case CaseTheoretical:
		res.Price = t.Reprice(knownBasis(in))
	case CaseSolveRate:
		res.Price = *in.Price
		if in.CouponRate != nil {
			t.Reprice(bond.Overrides{CouponRate: in.CouponRate})
		}
	case CaseSolveCoupon:
		res.Price = *in.Price
		coupon := e.solveCoupon(t, in, res.Price)
		t.Reprice(bond.Overrides{CouponRate: &coupon})
	default:
		return Result{}, fmt.Errorf("PriceVanillaBond: %w", ErrInsufficientInputs)
	}
	res.CouponRate = t.CouponRate()

	if in.Yield != nil {
		res.YTM = *in.Yield
	} else {
		res.YTM = e.solveYield(t, res.Price)
	}
	if in.ZSpreadBps != nil {
		res.ZSpread = *in.ZSpreadBps
	} else {
		res.ZSpread = e.solveSpread(t, res.Price)
	}

	t.Reprice(bond.Overrides{Yield: &res.YTM, ZSpreadBps: bond.Given(0)})
	res.Duration = t.Duration()
	res.ModifiedDuration = res.Duration / (1 + res.YTM)
	res.DV01 = res.ModifiedDuration * res.Price * 0.0001
	res.GSpread = bond.GSpreadAt(res.YTM, t.Curve(), res.Duration)
	return res, nil
}

// knownBasis discounts at the given yield when there is one, otherwise at the
// curve plus the given spread.
func knownBasis(in Inputs) bond.Overrides {
	o := bond.Overrides{CouponRate: in.CouponRate}
	if in.Yield != nil {
		o.Yield = in.Yield
		o.ZSpreadBps = bond.Given(0)
		return o
	}
	o.ZSpreadBps = in.ZSpreadBps
	return o
}

func (e *Engine) solveYield(t *bond.DiscountingTable, price float64) float64 {
	zero := 0.0
	f := func(y float64) float64 {
		return t.Reprice(bond.Overrides{Yield: &y, ZSpreadBps: &zero}) - price
	}
	return solver.New(e.cfg, e.cfg.Tolerance).Solve(f, yieldGuessLow, yieldGuessHigh)
}

func (e *Engine) solveSpread(t *bond.DiscountingTable, price float64) float64 {
	f := func(z float64) float64 {
		return t.Reprice(bond.Overrides{ZSpreadBps: &z}) - price
	}
	return solver.New(e.cfg, e.cfg.SpreadTolerance).Solve(f, spreadGuessLow, spreadGuessHigh)
}

func (e *Engine) solveCoupon(t *bond.DiscountingTable, in Inputs, price float64) float64 {
	o := knownBasis(in)
	f := func(c float64) float64 {
		o.CouponRate = &c
		return t.Reprice(o) - price
	}
	return solver.New(e.cfg, e.cfg.Tolerance).Solve(f, couponGuessLow, couponGuessHigh)
}
