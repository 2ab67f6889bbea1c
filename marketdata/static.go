package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/utils"
)

// Static is a map-backed source for development and testing.
type Static struct {
	mu          sync.RWMutex
	instruments map[string]bond.Instrument
	curves      map[string]bond.YieldCurve
}

func NewStatic() *Static {
	return &Static{
		instruments: make(map[string]bond.Instrument),
		curves:      make(map[string]bond.YieldCurve),
	}
}

// AddInstrument registers inst under its ID.
func (s *Static) AddInstrument(inst bond.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[inst.ID] = inst
}

// AddCurve registers c for provider on the curve's own date.
func (s *Static) AddCurve(provider string, c bond.YieldCurve) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves[curveKey(c.AsOf(), provider)] = c
}

func (s *Static) FetchInstrument(ctx context.Context, id string) (bond.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return bond.Instrument{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instruments[id]
	if !ok {
		return bond.Instrument{}, fmt.Errorf("instrument %s: %w", id, ErrNotFound)
	}
	return inst, nil
}

func (s *Static) FetchCurve(ctx context.Context, date time.Time, provider string) (bond.YieldCurve, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.curves[curveKey(date, provider)]
	if !ok {
		return nil, fmt.Errorf("curve %s %s: %w", provider, date.Format(utils.DateLayout), ErrNotFound)
	}
	return c, nil
}

func curveKey(date time.Time, provider string) string {
	return provider + "|" + date.Format(utils.DateLayout)
}
