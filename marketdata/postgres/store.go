package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/marketdata"
	"github.com/meenmo/fixedincome/utils"
)

// Store reads bond schedules and curve quotes from Postgres.
//
// Expected tables:
//
//	bonds(instrument_id, initial_face, placement_date, maturity_date, currency, rating)
//	bond_cashflows(instrument_id, kind, start_date, end_date, period_days, rate, payment)
//	curve_quotes(provider, curve_date, tenor, rate_pct)
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var (
	_ marketdata.BatchInstrumentSource = (*Store)(nil)
	_ marketdata.CurveSource           = (*Store)(nil)
)

// rowScanner is the part of *sql.Rows the scan loops use.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("postgres")}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectBondsQuery = `
	SELECT instrument_id, initial_face, placement_date, maturity_date, currency, rating
	FROM bonds
	WHERE instrument_id = ANY($1)`

const selectCashflowsQuery = `
	SELECT instrument_id, kind, start_date, end_date, period_days, rate, payment
	FROM bond_cashflows
	WHERE instrument_id = ANY($1)
	ORDER BY instrument_id, end_date`

const selectCurveQuery = `
	SELECT tenor, rate_pct
	FROM curve_quotes
	WHERE provider = $1 AND curve_date = $2`

// FetchInstrument implements marketdata.InstrumentSource.
func (s *Store) FetchInstrument(ctx context.Context, id string) (bond.Instrument, error) {
	found, err := s.FetchInstruments(ctx, []string{id})
	if err != nil {
		return bond.Instrument{}, err
	}
	inst, ok := found[id]
	if !ok {
		return bond.Instrument{}, fmt.Errorf("FetchInstrument %s: %w", id, marketdata.ErrNotFound)
	}
	return inst, nil
}

// FetchInstruments loads several bonds in two queries. Unknown ids are absent
// from the result.
func (s *Store) FetchInstruments(ctx context.Context, ids []string) (map[string]bond.Instrument, error) {
	if len(ids) == 0 {
		return map[string]bond.Instrument{}, nil
	}

	headers, err := s.queryHeaders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("FetchInstruments: %w", err)
	}
	flows, err := s.queryFlows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("FetchInstruments: %w", err)
	}

	out, err := assemble(headers, flows)
	if err != nil {
		return nil, fmt.Errorf("FetchInstruments: %w", err)
	}
	if len(out) < len(ids) {
		s.logger.Debug("instruments missing",
			zap.Int("requested", len(ids)),
			zap.Int("found", len(out)))
	}
	return out, nil
}

// FetchCurve implements marketdata.CurveSource. Quotes are stored in percent.
func (s *Store) FetchCurve(ctx context.Context, date time.Time, provider string) (bond.YieldCurve, error) {
	rows, err := s.db.QueryContext(ctx, selectCurveQuery, provider, date.Format(utils.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("FetchCurve: %w", err)
	}
	defer rows.Close()

	quotes, err := scanQuotes(rows)
	if err != nil {
		return nil, fmt.Errorf("FetchCurve: %w", err)
	}
	return curveFromQuotes(date, provider, quotes)
}

type header struct {
	id            string
	initialFace   float64
	placementDate time.Time
	maturityDate  time.Time
	currency      sql.NullString
	rating        sql.NullString
}

type flowRow struct {
	id         string
	kind       string
	startDate  time.Time
	endDate    time.Time
	periodDays int
	rate       sql.NullFloat64
	payment    float64
}

func (s *Store) queryHeaders(ctx context.Context, ids []string) ([]header, error) {
	rows, err := s.db.QueryContext(ctx, selectBondsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHeaders(rows)
}

func (s *Store) queryFlows(ctx context.Context, ids []string) ([]flowRow, error) {
	rows, err := s.db.QueryContext(ctx, selectCashflowsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFlows(rows)
}

func scanHeaders(rows rowScanner) ([]header, error) {
	var out []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.initialFace, &h.placementDate, &h.maturityDate, &h.currency, &h.rating); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanFlows(rows rowScanner) ([]flowRow, error) {
	var out []flowRow
	for rows.Next() {
		var r flowRow
		if err := rows.Scan(&r.id, &r.kind, &r.startDate, &r.endDate, &r.periodDays, &r.rate, &r.payment); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanQuotes(rows rowScanner) (map[string]float64, error) {
	quotes := make(map[string]float64)
	for rows.Next() {
		var tenor string
		var pct float64
		if err := rows.Scan(&tenor, &pct); err != nil {
			return nil, err
		}
		quotes[tenor] = pct
	}
	return quotes, rows.Err()
}

// assemble joins header and flow rows into instruments. A bond without flows
// is reported with an empty schedule; pricing rejects it later.
func assemble(headers []header, flows []flowRow) (map[string]bond.Instrument, error) {
	out := make(map[string]bond.Instrument, len(headers))
	for _, h := range headers {
		out[h.id] = bond.Instrument{
			ID:            h.id,
			InitialFace:   h.initialFace,
			PlacementDate: h.placementDate,
			MaturityDate:  h.maturityDate,
			Currency:      h.currency.String,
			Rating:        h.rating.String,
		}
	}
	for _, r := range flows {
		inst, ok := out[r.id]
		if !ok {
			continue
		}
		kind, err := bond.ParseFlowKind(r.kind)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: %w", r.id, err)
		}
		inst.Flows = append(inst.Flows, bond.CashFlow{
			Kind:       kind,
			StartDate:  r.startDate,
			EndDate:    r.endDate,
			PeriodDays: r.periodDays,
			Rate:       r.rate.Float64,
			Payment:    r.payment,
		})
		out[r.id] = inst
	}
	for id, inst := range out {
		inst.Flows = inst.Flows.Sorted()
		out[id] = inst
	}
	return out, nil
}

func curveFromQuotes(date time.Time, provider string, quotes map[string]float64) (bond.YieldCurve, error) {
	if len(quotes) == 0 {
		return nil, fmt.Errorf("curve %s %s: %w", provider, date.Format(utils.DateLayout), marketdata.ErrNotFound)
	}
	c, err := curve.FromQuotes(date, quotes)
	if err != nil {
		return nil, fmt.Errorf("curve %s %s: %w", provider, date.Format(utils.DateLayout), err)
	}
	return c, nil
}
