package bond

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrMissingSchedule is returned when a bond carries no cash-flow data.
var ErrMissingSchedule = errors.New("missing cash-flow schedule")

// FlowKind classifies a contractual payment. The declaration order is the
// tie-break used when two flows share an end date.
type FlowKind int

const (
	Coupon FlowKind = iota
	Amortization
	Maturity
	Put
	Call
)

var flowKindNames = [...]string{"COUPON", "AMORTIZATION", "MATURITY", "PUT", "CALL"}

func (k FlowKind) String() string {
	if k < 0 || int(k) >= len(flowKindNames) {
		return fmt.Sprintf("FlowKind(%d)", int(k))
	}
	return flowKindNames[k]
}

// ParseFlowKind maps "COUPON", "AMORTIZATION", ... back to a FlowKind.
func ParseFlowKind(s string) (FlowKind, error) {
	for i, name := range flowKindNames {
		if name == s {
			return FlowKind(i), nil
		}
	}
	return 0, fmt.Errorf("ParseFlowKind: unknown flow kind %q", s)
}

// CashFlow is a single contractual payment of a bond.
//
// Rate is an annual decimal rate (0.05 == 5%). Payment is in currency units.
type CashFlow struct {
	Kind       FlowKind
	StartDate  time.Time
	EndDate    time.Time
	PeriodDays int
	Rate       float64
	Payment    float64
}

// FlowSchedule is the ordered list of a bond's cash flows.
type FlowSchedule []CashFlow

// Sorted returns a copy ordered by EndDate, then Kind.
func (s FlowSchedule) Sorted() FlowSchedule {
	out := make(FlowSchedule, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// RedemptionTotal sums AMORTIZATION and MATURITY payments. For a well-formed
// bond this equals the initial face value.
func (s FlowSchedule) RedemptionTotal() float64 {
	total := 0.0
	for _, cf := range s {
		if cf.Kind == Amortization || cf.Kind == Maturity {
			total += cf.Payment
		}
	}
	return total
}

// Instrument is a bond as returned by the market-data collaborator or the
// schedule builder.
type Instrument struct {
	ID            string
	Flows         FlowSchedule
	InitialFace   float64
	PlacementDate time.Time
	MaturityDate  time.Time
	Currency      string
	Rating        string
}

// YieldCurve maps a tenor in years to an annual decimal discount rate. A curve
// is an immutable snapshot for AsOf.
type YieldCurve interface {
	AsOf() time.Time
	RateForTenor(years float64) float64
}

// horizonFlows filters and truncates a schedule for pricing as of asOf.
//
// Flows paying on or before asOf and CALL flows are dropped. The remainder is
// sorted and cut after the earliest PUT date: a bond priced to worst is
// assumed redeemed at its first put.
func horizonFlows(s FlowSchedule, asOf time.Time) FlowSchedule {
	live := make(FlowSchedule, 0, len(s))
	for _, cf := range s.Sorted() {
		if !cf.EndDate.After(asOf) || cf.Kind == Call {
			continue
		}
		live = append(live, cf)
	}

	putDate, ok := nearestPut(live)
	if !ok {
		return live
	}
	for i, cf := range live {
		if cf.EndDate.After(putDate) {
			return live[:i]
		}
	}
	return live
}

// nearestPut returns the earliest PUT end date in s.
func nearestPut(s FlowSchedule) (time.Time, bool) {
	var put time.Time
	found := false
	for _, cf := range s {
		if cf.Kind != Put {
			continue
		}
		if !found || cf.EndDate.Before(put) {
			put = cf.EndDate
			found = true
		}
	}
	return put, found
}
