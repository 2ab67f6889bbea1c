package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/meenmo/fixedincome/instruments/bonds"
	"github.com/meenmo/fixedincome/schedule"
	"github.com/meenmo/fixedincome/utils"
)

type buildInput struct {
	TaskID             string  `json:"task_id,omitempty"`
	ID                 string  `json:"id,omitempty"`
	StartDate          string  `json:"start_date"`
	MaturityDate       string  `json:"maturity_date,omitempty"`
	CouponTenors       []int   `json:"coupon_tenors,omitempty"`
	CouponTenorDays    int     `json:"coupon_tenor_days,omitempty"`
	CouponCount        int     `json:"coupon_count,omitempty"`
	CouponRate         float64 `json:"coupon_rate"`
	AmortizationTenors []int   `json:"amortization_tenors,omitempty"`
	PutTenorDays       int     `json:"put_tenor_days,omitempty"`
	FaceValue          float64 `json:"face_value"`
	MinorUnits         int64   `json:"minor_units,omitempty"`
}

type buildOutput struct {
	TaskID       string        `json:"task_id,omitempty"`
	ID           string        `json:"id,omitempty"`
	MaturityDate string        `json:"maturity_date,omitempty"`
	Cashflows    []feedRowJSON `json:"cashflows,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type buildCmd struct {
	input string
}

func (*buildCmd) Name() string     { return "build" }
func (*buildCmd) Synopsis() string { return "generate the cashflows of a synthetic bond" }
func (*buildCmd) Usage() string {
	return `bondcalc build [-input <path>]

  Generates coupon, amortization, maturity and put flows from tenors given
  in days. The output cashflows can be fed to "bondcalc price".
`
}

func (c *buildCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "JSON input path (reads stdin if omitted)")
}

func (c *buildCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	raw, err := readInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return subcommands.ExitUsageError
	}
	inputs, isArray, err := parseInputs[buildInput](raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
		return subcommands.ExitUsageError
	}

	hadError := false
	outputs := make([]buildOutput, 0, len(inputs))
	for _, in := range inputs {
		out, err := buildOne(in)
		if err != nil {
			hadError = true
			out = buildOutput{TaskID: in.TaskID, Error: err.Error()}
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

func buildOne(in buildInput) (buildOutput, error) {
	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return buildOutput{}, fmt.Errorf("start_date: %w", err)
	}
	p := schedule.Params{
		ID:                 in.ID,
		Start:              start,
		CouponTenors:       in.CouponTenors,
		CouponTenorDays:    in.CouponTenorDays,
		CouponCount:        in.CouponCount,
		CouponRate:         in.CouponRate,
		AmortizationTenors: in.AmortizationTenors,
		PutTenorDays:       in.PutTenorDays,
		FaceValue:          in.FaceValue,
	}
	if in.MaturityDate != "" {
		if p.Maturity, err = utils.ParseDate(in.MaturityDate); err != nil {
			return buildOutput{}, fmt.Errorf("maturity_date: %w", err)
		}
	}

	inst, err := schedule.Build(p)
	if err != nil {
		return buildOutput{}, err
	}
	unit := minorUnits(in.MinorUnits)
	out := buildOutput{
		TaskID:       in.TaskID,
		ID:           inst.ID,
		MaturityDate: inst.MaturityDate.Format(utils.DateLayout),
		Cashflows:    make([]feedRowJSON, 0, len(inst.Flows)),
	}
	for _, cf := range inst.Flows {
		out.Cashflows = append(out.Cashflows, fromFeedRow(bonds.FromCashFlow(cf, unit)))
	}
	return out, nil
}
