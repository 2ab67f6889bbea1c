package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/fixedincome/bond"
	"github.com/meenmo/fixedincome/utils"
)

// fetchLimit bounds the requests in flight for one batch.
const fetchLimit = 8

// ErrNotFound is returned when a source has no data for the request.
var ErrNotFound = errors.New("marketdata: not found")

// InstrumentSource supplies bond cash-flow schedules and attributes.
type InstrumentSource interface {
	FetchInstrument(ctx context.Context, id string) (bond.Instrument, error)
}

// BatchInstrumentSource is implemented by sources that load many instruments
// in one round trip. Unknown ids are absent from the result.
type BatchInstrumentSource interface {
	InstrumentSource
	FetchInstruments(ctx context.Context, ids []string) (map[string]bond.Instrument, error)
}

// CurveSource supplies the yield curve of a provider on a date.
type CurveSource interface {
	FetchCurve(ctx context.Context, date time.Time, provider string) (bond.YieldCurve, error)
}

// FetchCurves loads the curves for dates concurrently, one request per distinct
// day and at most fetchLimit at a time. The result is keyed by YYYY-MM-DD. Days without a curve (ErrNotFound)
// are left out; any other error aborts the batch.
func FetchCurves(ctx context.Context, src CurveSource, dates []time.Time, provider string) (map[string]bond.YieldCurve, error) {
	distinct := make(map[string]time.Time, len(dates))
	for _, d := range dates {
		distinct[d.Format(utils.DateLayout)] = d
	}

	out := make(map[string]bond.YieldCurve, len(distinct))
	err := fetchAll(ctx, sortedKeys(distinct), out, func(ctx context.Context, key string) (bond.YieldCurve, error) {
		c, err := src.FetchCurve(ctx, distinct[key], provider)
		if err != nil {
			return nil, fmt.Errorf("FetchCurves %s %s: %w", provider, key, err)
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FetchInstruments loads the distinct ids, in a single call when src is a
// BatchInstrumentSource and concurrently otherwise. Unknown ids are left out
// of the result; any other error aborts the batch.
func FetchInstruments(ctx context.Context, src InstrumentSource, ids []string) (map[string]bond.Instrument, error) {
	distinct := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		distinct[id] = struct{}{}
	}

	if batch, ok := src.(BatchInstrumentSource); ok {
		found, err := batch.FetchInstruments(ctx, sortedKeys(distinct))
		if err != nil {
			return nil, fmt.Errorf("FetchInstruments: %w", err)
		}
		return found, nil
	}

	out := make(map[string]bond.Instrument, len(distinct))
	err := fetchAll(ctx, sortedKeys(distinct), out, func(ctx context.Context, id string) (bond.Instrument, error) {
		inst, err := src.FetchInstrument(ctx, id)
		if err != nil {
			return bond.Instrument{}, fmt.Errorf("FetchInstruments %s: %w", id, err)
		}
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fetchAll[V any](ctx context.Context, keys []string, out map[string]V, fetch func(context.Context, string) (V, error)) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			v, err := fetch(gctx, key)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = v
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
