package comparables

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/calendar"
	"github.com/meenmo/fixedincome/config"
	"github.com/meenmo/fixedincome/marketdata"
	"github.com/meenmo/fixedincome/pricing"
	"github.com/meenmo/fixedincome/utils"
)

const defaultWorkers = 4

// Quote is one observed trade of a bond.
type Quote struct {
	InstrumentID string
	Date         time.Time
	Price        float64
	Volume       float64
}

// Issue is a data-quality flag attached to a quote.
type Issue string

const (
	IssueNonPositivePrice  Issue = "non-positive price"
	IssueYieldAbove100     Issue = "yield above 100%"
	IssueThinVolume        Issue = "volume below threshold"
	IssueBadResult         Issue = "unusable pricing result"
	IssueMissingCurve      Issue = "missing curve"
	IssueMissingInstrument Issue = "missing instrument"
	IssuePricingFailed     Issue = "pricing failed"
	IssueNonBusinessDay    Issue = "traded on a non-business day"
	IssuePriorDayCurve     Issue = "priced on the prior business day curve"
)

// Report is the outcome for one quote. Result is nil when the quote could not
// be priced.
type Report struct {
	Quote  Quote
	Result *pricing.Result
	Issues []Issue
}

// Clean reports whether the quote priced without any data-quality flag.
func (r Report) Clean() bool {
	return r.Result != nil && len(r.Issues) == 0
}

// Scanner prices a batch of traded quotes against the curve of their trade
// date and flags those that should not be used as comparables.
type Scanner struct {
	Instruments marketdata.InstrumentSource
	Curves      marketdata.CurveSource
	Provider    string
	Engine      *pricing.Engine
	Logger      *zap.Logger

	// MinVolume flags quotes traded below it. Zero disables the check.
	MinVolume float64
	// Workers bounds concurrent pricings. Zero means 4.
	Workers int
	// Calendar, when set, flags quotes dated on weekends or holidays and
	// lets a quote without a curve fall back to the prior business day.
	Calendar *calendar.Calendar
}

// Scan returns one report per quote, in input order. Missing instruments or
// curves are flagged on the affected quotes; only source failures abort.
func (s *Scanner) Scan(ctx context.Context, quotes []Quote) ([]Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("comparables")
	engine := s.Engine
	if engine == nil {
		engine = pricing.NewEngine(config.GetConfig())
	}

	ids := make([]string, len(quotes))
	dates := make([]time.Time, len(quotes))
	for i, q := range quotes {
		ids[i] = q.InstrumentID
		dates[i] = q.Date
	}

	g, gctx := errgroup.WithContext(ctx)
	var instruments map[string]bond.Instrument
	var curves map[string]bond.YieldCurve
	g.Go(func() error {
		var err error
		instruments, err = marketdata.FetchInstruments(gctx, s.Instruments, ids)
		return err
	})
	g.Go(func() error {
		var err error
		curves, err = marketdata.FetchCurves(gctx, s.Curves, dates, s.Provider)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("fetch market data", zap.Error(err))
		return nil, fmt.Errorf("Scan: %w", err)
	}
	prior, err := s.priorDayCurves(ctx, quotes, curves)
	if err != nil {
		logger.Error("fetch prior day curves", zap.Error(err))
		return nil, fmt.Errorf("Scan: %w", err)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	reports := make([]Report, len(quotes))
	pg, pctx := errgroup.WithContext(ctx)
	pg.SetLimit(workers)
	for i, q := range quotes {
		i, q := i, q
		pg.Go(func() error {
			if err := pctx.Err(); err != nil {
				return err
			}
			inst, haveInst := instruments[q.InstrumentID]
			key := q.Date.Format(utils.DateLayout)
			crv, haveCurve := curves[key]
			stale := false
			if !haveCurve {
				crv, stale = prior[key]
				haveCurve = stale
			}
			r := s.scanOne(engine, q, inst, haveInst, crv, haveCurve)
			if stale {
				r.Issues = append(r.Issues, IssuePriorDayCurve)
			}
			reports[i] = r
			return nil
		})
	}
	if err := pg.Wait(); err != nil {
		return nil, fmt.Errorf("Scan: %w", err)
	}

	flagged := 0
	for _, r := range reports {
		if len(r.Issues) == 0 {
			continue
		}
		flagged++
		logger.Warn("comparable flagged",
			zap.String("instrument", r.Quote.InstrumentID),
			zap.String("date", r.Quote.Date.Format(utils.DateLayout)),
			zap.Any("issues", r.Issues))
	}
	logger.Info("scan complete", zap.Int("quotes", len(quotes)), zap.Int("flagged", flagged))
	return reports, nil
}

// priorDayCurves loads, for each quote date missing from curves, the curve of
// the business day before it. The result is keyed by the quote date.
func (s *Scanner) priorDayCurves(ctx context.Context, quotes []Quote, curves map[string]bond.YieldCurve) (map[string]bond.YieldCurve, error) {
	if s.Calendar == nil {
		return nil, nil
	}
	fallback := make(map[string]string)
	var dates []time.Time
	for _, q := range quotes {
		key := q.Date.Format(utils.DateLayout)
		if _, ok := curves[key]; ok {
			continue
		}
		if _, ok := fallback[key]; ok {
			continue
		}
		prev := s.Calendar.AddBusinessDays(q.Date, -1)
		fallback[key] = prev.Format(utils.DateLayout)
		dates = append(dates, prev)
	}
	if len(dates) == 0 {
		return nil, nil
	}

	found, err := marketdata.FetchCurves(ctx, s.Curves, dates, s.Provider)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bond.YieldCurve, len(fallback))
	for key, prev := range fallback {
		if c, ok := found[prev]; ok {
			out[key] = c
		}
	}
	return out, nil
}

func (s *Scanner) scanOne(engine *pricing.Engine, q Quote, inst bond.Instrument, haveInst bool, crv bond.YieldCurve, haveCurve bool) Report {
	r := Report{Quote: q}
	if s.MinVolume > 0 && q.Volume < s.MinVolume {
		r.Issues = append(r.Issues, IssueThinVolume)
	}
	if q.Price <= 0 {
		r.Issues = append(r.Issues, IssueNonPositivePrice)
	}
	if s.Calendar != nil && !s.Calendar.IsBusinessDay(q.Date) {
		r.Issues = append(r.Issues, IssueNonBusinessDay)
	}
	if !haveInst {
		r.Issues = append(r.Issues, IssueMissingInstrument)
	}
	if !haveCurve {
		r.Issues = append(r.Issues, IssueMissingCurve)
	}
	if !haveInst || !haveCurve || q.Price <= 0 {
		return r
	}

	res, err := engine.PriceInstrument(inst, crv, pricing.Inputs{
		Price:           bond.Given(q.Price),
		CouponsObserved: true,
	})
	if err != nil {
		r.Issues = append(r.Issues, IssuePricingFailed)
		return r
	}
	r.Result = &res
	if res.HasBadResult() {
		r.Issues = append(r.Issues, IssueBadResult)
	} else if res.YTM > 1 {
		r.Issues = append(r.Issues, IssueYieldAbove100)
	}
	return r
}
