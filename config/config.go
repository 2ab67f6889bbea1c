package config

// Config holds root-finding parameters shared by the yield, spread and coupon solvers.
type Config struct {
	// MaxIterations caps every secant search. A search that has not converged
	// after this many steps reports NaN.
	MaxIterations int

	// Tolerance is the absolute step size (in rate units) at which yield and
	// coupon searches stop.
	Tolerance float64

	// SpreadTolerance is the stop criterion for z-spread searches. Spreads are
	// quoted in basis points, so the step is much coarser than Tolerance.
	SpreadTolerance float64
}

// DefaultConfig provides the production defaults.
var DefaultConfig = Config{
	MaxIterations:   250,
	Tolerance:       1e-10,
	SpreadTolerance: 0.1,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}

// Normalized fills zero fields of c from DefaultConfig.
func (c Config) Normalized() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultConfig.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultConfig.Tolerance
	}
	if c.SpreadTolerance <= 0 {
		c.SpreadTolerance = DefaultConfig.SpreadTolerance
	}
	return c
}
