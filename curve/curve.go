package curve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Flat is a curve with the same rate at every tenor.
type Flat struct {
	Date time.Time
	Rate float64
}

func (f Flat) AsOf() time.Time                    { return f.Date }
func (f Flat) RateForTenor(years float64) float64 { return f.Rate }

// Node is one quoted point of a curve: an annual decimal rate at a tenor in years.
type Node struct {
	Years float64
	Rate  float64
}

// Points is a piecewise-linear curve through its nodes, flat beyond the first
// and last node.
type Points struct {
	date  time.Time
	nodes []Node
}

// NewPoints builds a curve from nodes in any order. Duplicate tenors keep the
// last rate given.
func NewPoints(asOf time.Time, nodes []Node) (*Points, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("NewPoints: at least one node is required")
	}
	byTenor := make(map[float64]float64, len(nodes))
	for _, n := range nodes {
		if n.Years < 0 {
			return nil, fmt.Errorf("NewPoints: negative tenor %v", n.Years)
		}
		byTenor[n.Years] = n.Rate
	}
	sorted := make([]Node, 0, len(byTenor))
	for years, rate := range byTenor {
		sorted = append(sorted, Node{Years: years, Rate: rate})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Years < sorted[j].Years })
	return &Points{date: asOf, nodes: sorted}, nil
}

// FromQuotes builds a curve from tenor strings ("1W", "3M", "10Y") to rates in
// percent, as quoted on screens.
func FromQuotes(asOf time.Time, quotes map[string]float64) (*Points, error) {
	nodes := make([]Node, 0, len(quotes))
	for tenor, pct := range quotes {
		years, err := TenorToYears(tenor)
		if err != nil {
			return nil, fmt.Errorf("FromQuotes: %w", err)
		}
		nodes = append(nodes, Node{Years: years, Rate: pct / 100})
	}
	return NewPoints(asOf, nodes)
}

func (p *Points) AsOf() time.Time { return p.date }

// RateForTenor interpolates linearly between the bracketing nodes.
func (p *Points) RateForTenor(years float64) float64 {
	n := len(p.nodes)
	if years <= p.nodes[0].Years {
		return p.nodes[0].Rate
	}
	if years >= p.nodes[n-1].Years {
		return p.nodes[n-1].Rate
	}

	// First node with Years >= target.
	i := sort.Search(n, func(i int) bool { return p.nodes[i].Years >= years })
	hi := p.nodes[i]
	if hi.Years == years {
		return hi.Rate
	}
	lo := p.nodes[i-1]
	return lo.Rate + (hi.Rate-lo.Rate)*(years-lo.Years)/(hi.Years-lo.Years)
}

// TenorToYears converts tenor strings like "1W", "3M", "10Y", "91D" or a bare
// number of years to a year fraction.
func TenorToYears(tenor string) (float64, error) {
	t := strings.TrimSpace(strings.ToUpper(tenor))
	if t == "" {
		return 0, fmt.Errorf("empty tenor")
	}

	parse := func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("tenor %q: %w", tenor, err)
		}
		return v, nil
	}

	switch {
	case strings.HasSuffix(t, "W"):
		v, err := parse(strings.TrimSuffix(t, "W"))
		return v * 7.0 / 365.0, err
	case strings.HasSuffix(t, "M"):
		v, err := parse(strings.TrimSuffix(t, "M"))
		return v / 12.0, err
	case strings.HasSuffix(t, "Y"):
		return parse(strings.TrimSuffix(t, "Y"))
	case strings.HasSuffix(t, "D"):
		v, err := parse(strings.TrimSuffix(t, "D"))
		return v / 365.0, err
	default:
		return parse(t)
	}
}
