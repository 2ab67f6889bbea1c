package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultCurveProvider = "BVAL"
	defaultScanWorkers   = 4
	defaultMinVolume     = 0
)

// Env keeps the runtime configuration shared by the pricing commands.
type Env struct {
	DatabaseDSN   string
	CurveProvider string
	Holidays      []string // YYYY-MM-DD
	Solver        Config
}

// ScanEnv holds the settings only the comparables scan reads.
type ScanEnv struct {
	Workers   int
	MinVolume float64
}

// ErrMissingDSN is returned by RequireDSN when DATABASE_DSN is not set.
var ErrMissingDSN = errors.New("DATABASE_DSN is required")

// LoadEnv builds Env from environment variables. Unset solver variables fall back
// to the active solver configuration.
func LoadEnv() (*Env, error) {
	active := GetConfig()
	maxIter, err := getInt("SOLVER_MAX_ITERATIONS", active.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("parse SOLVER_MAX_ITERATIONS: %w", err)
	}
	tol, err := getFloat("SOLVER_TOLERANCE", active.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("parse SOLVER_TOLERANCE: %w", err)
	}
	spreadTol, err := getFloat("SOLVER_SPREAD_TOLERANCE", active.SpreadTolerance)
	if err != nil {
		return nil, fmt.Errorf("parse SOLVER_SPREAD_TOLERANCE: %w", err)
	}

	return &Env{
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		CurveProvider: getString("CURVE_PROVIDER", defaultCurveProvider),
		Holidays:      getList("SCAN_HOLIDAYS"),
		Solver: Config{
			MaxIterations:   maxIter,
			Tolerance:       tol,
			SpreadTolerance: spreadTol,
		}.Normalized(),
	}, nil
}

// LoadScanEnv reads SCAN_WORKERS and SCAN_MIN_VOLUME.
func LoadScanEnv() (ScanEnv, error) {
	workers, err := getInt("SCAN_WORKERS", defaultScanWorkers)
	if err != nil {
		return ScanEnv{}, fmt.Errorf("parse SCAN_WORKERS: %w", err)
	}
	if workers <= 0 {
		return ScanEnv{}, fmt.Errorf("SCAN_WORKERS must be positive, got %d", workers)
	}

	minVolume, err := getFloat("SCAN_MIN_VOLUME", defaultMinVolume)
	if err != nil {
		return ScanEnv{}, fmt.Errorf("parse SCAN_MIN_VOLUME: %w", err)
	}
	return ScanEnv{Workers: workers, MinVolume: minVolume}, nil
}

// RequireDSN reports ErrMissingDSN when no database is configured.
func (e *Env) RequireDSN() error {
	if e.DatabaseDSN == "" {
		return ErrMissingDSN
	}
	return nil
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to float: %w", key, value, err)
	}
	return parsed, nil
}

// getList splits a comma separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
