package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/comparables"
	"github.com/meenmo/fixedincome/config"
	"github.com/meenmo/fixedincome/marketdata/postgres"
	"github.com/meenmo/fixedincome/pricing"
	"github.com/meenmo/fixedincome/utils"
)

type quoteJSON struct {
	InstrumentID string  `json:"instrument_id"`
	Date         string  `json:"date"`
	Price        float64 `json:"price"`
	Volume       float64 `json:"volume"`
}

type reportJSON struct {
	InstrumentID string   `json:"instrument_id"`
	Date         string   `json:"date"`
	Price        float64  `json:"price"`
	YTM          *float64 `json:"ytm,omitempty"`
	ZSpread      *float64 `json:"z_spread_bps,omitempty"`
	GSpread      *float64 `json:"g_spread_bps,omitempty"`
	Duration     *float64 `json:"duration,omitempty"`
	Issues       []string `json:"issues,omitempty"`
}

type scanCmd struct {
	app      *app
	input    string
	provider string
	flagged  bool
}

func (*scanCmd) Name() string     { return "scan" }
func (*scanCmd) Synopsis() string { return "price traded quotes and flag unusable comparables" }
func (*scanCmd) Usage() string {
	return `bondcalc scan [-input <path>] [-provider <name>] [-flagged]

  Reads an array of quotes, loads schedules and curves from DATABASE_DSN
  and prints one report per quote.
`
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "input", "", "JSON input path (reads stdin if omitted)")
	f.StringVar(&c.provider, "provider", "", "Curve provider. Defaults to CURVE_PROVIDER.")
	f.BoolVar(&c.flagged, "flagged", false, "Print only flagged quotes")
}

func (c *scanCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := c.app.logger.Named("scan")
	env, err := c.app.loadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return subcommands.ExitUsageError
	}
	scanEnv, err := config.LoadScanEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := env.RequireDSN(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitUsageError
	}

	raw, err := readInput(c.input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return subcommands.ExitUsageError
	}
	in, _, err := parseInputs[quoteJSON](raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
		return subcommands.ExitUsageError
	}
	quotes := make([]comparables.Quote, 0, len(in))
	for i, q := range in {
		d, err := utils.ParseDate(q.Date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "quote %d: %v\n", i, err)
			return subcommands.ExitUsageError
		}
		quotes = append(quotes, comparables.Quote{InstrumentID: q.InstrumentID, Date: d, Price: q.Price, Volume: q.Volume})
	}

	cal, err := calendar.Parse(env.Holidays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "SCAN_HOLIDAYS: %v\n", err)
		return subcommands.ExitUsageError
	}

	store, err := postgres.Open(ctx, env.DatabaseDSN, logger)
	if err != nil {
		logger.Error("open database", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer store.Close()

	provider := c.provider
	if provider == "" {
		provider = env.CurveProvider
	}
	scanner := &comparables.Scanner{
		Instruments: store,
		Curves:      store,
		Provider:    provider,
		Engine:      pricing.NewEngine(env.Solver),
		Logger:      logger,
		MinVolume:   scanEnv.MinVolume,
		Workers:     scanEnv.Workers,
		Calendar:    cal,
	}
	reports, err := scanner.Scan(ctx, quotes)
	if err != nil {
		logger.Error("scan", zap.Error(err))
		return subcommands.ExitFailure
	}

	out := make([]reportJSON, 0, len(reports))
	for _, r := range reports {
		if c.flagged && len(r.Issues) == 0 {
			continue
		}
		out = append(out, toReportJSON(r))
	}
	if err := writeOutputs(os.Stdout, out, true); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func toReportJSON(r comparables.Report) reportJSON {
	out := reportJSON{
		InstrumentID: r.Quote.InstrumentID,
		Date:         r.Quote.Date.Format(utils.DateLayout),
		Price:        r.Quote.Price,
	}
	for _, issue := range r.Issues {
		out.Issues = append(out.Issues, string(issue))
	}
	// NaN cannot be encoded; unusable results keep only their flags.
	if r.Result == nil || r.Result.HasBadResult() {
		return out
	}
	res := *r.Result
	out.YTM, out.ZSpread, out.GSpread, out.Duration = &res.YTM, &res.ZSpread, &res.GSpread, &res.Duration
	return out
}
