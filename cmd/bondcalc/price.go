package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/instruments/bonds"
	"github.com/meenmo/fixedincome/pricing"
	"github.com/meenmo/fixedincome/utils"
)

type priceInput struct {
	TaskID          string        `json:"task_id,omitempty"`
	Curve           curveJSON     `json:"curve"`
	MinorUnits      int64         `json:"minor_units,omitempty"` // per currency unit, default 100
	Cashflows       []feedRowJSON `json:"cashflows"`
	Price           *float64      `json:"price,omitempty"`
	Yield           *float64      `json:"yield,omitempty"`
	ZSpreadBps      *float64      `json:"z_spread_bps,omitempty"`
	CouponRate      *float64      `json:"coupon_rate,omitempty"`
	CouponsObserved bool          `json:"coupons_observed,omitempty"`
}

type priceOutput struct {
	TaskID           string    `json:"task_id,omitempty"`
	PricingDate      string    `json:"pricing_date,omitempty"`
	Case             string    `json:"case,omitempty"`
	Price            float64   `json:"price"`
	PriceAdjustment  float64   `json:"price_adjustment"`
	YTM              float64   `json:"ytm"`
	ZSpread          float64   `json:"z_spread_bps"`
	GSpread          float64   `json:"g_spread_bps"`
	CouponRate       float64   `json:"coupon_rate"`
	Duration         float64   `json:"duration"`
	ModifiedDuration float64   `json:"modified_duration"`
	DV01             float64   `json:"dv01"`
	Rows             []rowJSON `json:"rows,omitempty"`
	Error            string    `json:"error,omitempty"`
}

type rowJSON struct {
	Date               string  `json:"date"`
	OutstandingFace    float64 `json:"outstanding_face"`
	TimeToFlow         float64 `json:"time_to_flow"`
	InterestAmount     float64 `json:"interest_amount"`
	AmortizationAmount float64 `json:"amortization_amount"`
	DiscountFactor     float64 `json:"discount_factor"`
	PresentValue       float64 `json:"present_value"`
}

type priceCmd struct {
	app   *app
	input string
	rows  bool
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "price bonds from cashflows and a curve" }
func (*priceCmd) Usage() string {
	return `bondcalc price [-input <path>] [-rows]

  Reads one bond or an array of bonds as JSON and resolves whichever of
  price, yield, z-spread and coupon rate is missing. NaN results are
  reported as errors.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "JSON input path (reads stdin if omitted)")
	f.BoolVar(&c.rows, "rows", false, "Include the discounting rows in the output")
}

func (c *priceCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := c.app.logger.Named("price")
	env, err := c.app.loadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return subcommands.ExitUsageError
	}

	raw, err := readInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return subcommands.ExitUsageError
	}
	inputs, isArray, err := parseInputs[priceInput](raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
		return subcommands.ExitUsageError
	}

	engine := pricing.NewEngine(env.Solver)
	hadError := false
	outputs := make([]priceOutput, 0, len(inputs))
	for _, in := range inputs {
		out, err := c.process(engine, in)
		if err != nil {
			hadError = true
			logger.Error("pricing failed", zap.String("task", in.TaskID), zap.Error(err))
			out = priceOutput{TaskID: in.TaskID, Error: err.Error()}
		}
		outputs = append(outputs, out)
	}

	if err := writeOutputs(os.Stdout, outputs, isArray); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return subcommands.ExitFailure
	}
	if hadError {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *priceCmd) process(engine *pricing.Engine, in priceInput) (priceOutput, error) {
	crv, err := in.Curve.build()
	if err != nil {
		return priceOutput{}, err
	}
	rows := make([]bonds.FeedRow, 0, len(in.Cashflows))
	for i, r := range in.Cashflows {
		row, err := r.toFeedRow()
		if err != nil {
			return priceOutput{}, fmt.Errorf("cashflow %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	flows, err := bonds.ToFlowSchedule(rows, minorUnits(in.MinorUnits))
	if err != nil {
		return priceOutput{}, err
	}

	table, err := bond.NewDiscountingTable(flows, crv)
	if err != nil {
		return priceOutput{}, err
	}
	res, err := engine.PriceVanillaBond(table, pricing.Inputs{
		Price:           in.Price,
		Yield:           in.Yield,
		ZSpreadBps:      in.ZSpreadBps,
		CouponRate:      in.CouponRate,
		CouponsObserved: in.CouponsObserved,
	})
	if err != nil {
		return priceOutput{}, err
	}
	// encoding/json rejects NaN.
	if res.HasBadResult() {
		return priceOutput{}, fmt.Errorf("%s: no usable solution", res.Case)
	}

	out := priceOutput{
		TaskID:           in.TaskID,
		PricingDate:      res.PricingDate.Format(utils.DateLayout),
		Case:             res.Case.String(),
		Price:            res.Price,
		PriceAdjustment:  res.PriceAdjustment,
		YTM:              res.YTM,
		ZSpread:          res.ZSpread,
		GSpread:          res.GSpread,
		CouponRate:       res.CouponRate,
		Duration:         res.Duration,
		ModifiedDuration: res.ModifiedDuration,
		DV01:             res.DV01,
	}
	if c.rows {
		for _, e := range table.Entries() {
			out.Rows = append(out.Rows, rowJSON{
				Date:               e.Date.Format(utils.DateLayout),
				OutstandingFace:    e.OutstandingFace,
				TimeToFlow:         e.TimeToFlow,
				InterestAmount:     e.InterestAmount,
				AmortizationAmount: e.AmortizationAmount,
				DiscountFactor:     e.DiscountFactor,
				PresentValue:       e.PresentValue,
			})
		}
	}
	return out, nil
}
