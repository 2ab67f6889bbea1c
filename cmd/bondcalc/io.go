package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/curve"
	"github.com/meenmo/fixedincome/instruments/bonds"
	"github.com/meenmo/fixedincome/utils"
)

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

// parseInputs accepts a single JSON object or an array of them.
func parseInputs[T any](raw []byte) ([]T, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var inputs []T
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input T
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []T{input}, false, nil
}

// writeOutputs prints outputs as an array when the input was one, otherwise
// the single element.
func writeOutputs[T any](w io.Writer, outputs []T, isArray bool) error {
	enc := json.NewEncoder(w)
	if isArray || len(outputs) != 1 {
		return enc.Encode(outputs)
	}
	return enc.Encode(outputs[0])
}

type curveJSON struct {
	Date     string             `json:"date"`
	FlatRate *float64           `json:"flat_rate,omitempty"`
	Quotes   map[string]float64 `json:"quotes,omitempty"` // tenor -> percent
}

func (c curveJSON) build() (bond.YieldCurve, error) {
	date, err := utils.ParseDate(c.Date)
	if err != nil {
		return nil, fmt.Errorf("curve date: %w", err)
	}
	switch {
	case c.FlatRate != nil:
		return curve.Flat{Date: date, Rate: *c.FlatRate}, nil
	case len(c.Quotes) > 0:
		return curve.FromQuotes(date, c.Quotes)
	default:
		return nil, fmt.Errorf("curve needs flat_rate or quotes")
	}
}

// feedRowJSON is a cashflow row in minor units, as produced by build and
// consumed by price.
type feedRowJSON struct {
	Kind         string  `json:"kind"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	RatePct      float64 `json:"rate_pct"`
	PaymentMinor int64   `json:"payment_minor"`
}

func (r feedRowJSON) toFeedRow() (bonds.FeedRow, error) {
	start, err := utils.ParseDate(r.StartDate)
	if err != nil {
		return bonds.FeedRow{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := utils.ParseDate(r.EndDate)
	if err != nil {
		return bonds.FeedRow{}, fmt.Errorf("end_date: %w", err)
	}
	return bonds.FeedRow{
		Kind:         r.Kind,
		StartDate:    start,
		EndDate:      end,
		RatePct:      r.RatePct,
		PaymentMinor: r.PaymentMinor,
	}, nil
}

func fromFeedRow(r bonds.FeedRow) feedRowJSON {
	return feedRowJSON{
		Kind:         r.Kind,
		StartDate:    r.StartDate.Format(utils.DateLayout),
		EndDate:      r.EndDate.Format(utils.DateLayout),
		RatePct:      r.RatePct,
		PaymentMinor: r.PaymentMinor,
	}
}

func minorUnits(v int64) bonds.MinorUnits {
	if v <= 0 {
		return bonds.Cents
	}
	return bonds.MinorUnits(v)
}
