// Package synth generates synthetic OHLC bar data for strategy development
// and testing, using a Brownian random walk sampled at sub-bar resolution.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"osaka/internal/domain"
)

// Config describes one synthetic price series.
type Config struct {
	Symbol      string
	Bars        int     // number of OHLC bars to generate
	StepsPerBar int     // sub-bar price points per bar
	StartPrice  float64 // first open
	Drift       float64 // per-step drift
	Volatility  float64 // per-step standard deviation, relative to price
	Start       time.Time
	Period      time.Duration // bar duration, e.g. 24h
	Seed        int64
}

// DefaultConfig returns a daily BTC-like series.
func DefaultConfig() Config {
	return Config{
		Symbol:      "SYNTH",
		Bars:        1000,
		StepsPerBar: 24,
		StartPrice:  30000,
		Drift:       0,
		Volatility:  0.004,
		Start:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Period:      24 * time.Hour,
	}
}

// Generate produces an OHLC bar series from a geometric Brownian walk. The
// walk has Bars*StepsPerBar+1 points; bar i aggregates the points from
// i*StepsPerBar through (i+1)*StepsPerBar inclusive, so each close equals
// the next open. The same seed always yields the same series.
func Generate(cfg Config) ([]domain.Bar, error) {
	if cfg.Bars <= 0 {
		return nil, fmt.Errorf("bars must be positive, got %d", cfg.Bars)
	}
	if cfg.StepsPerBar <= 0 {
		return nil, fmt.Errorf("steps per bar must be positive, got %d", cfg.StepsPerBar)
	}
	if cfg.StartPrice <= 0 {
		return nil, fmt.Errorf("start price must be positive, got %v", cfg.StartPrice)
	}
	if cfg.Period <= 0 {
		cfg.Period = 24 * time.Hour
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	points := make([]float64, cfg.Bars*cfg.StepsPerBar+1)
	points[0] = cfg.StartPrice
	for i := 1; i < len(points); i++ {
		step := cfg.Drift + cfg.Volatility*rng.NormFloat64()
		points[i] = points[i-1] * math.Exp(step)
	}

	bars := make([]domain.Bar, cfg.Bars)
	for i := range bars {
		lo := i * cfg.StepsPerBar
		hi := (i + 1) * cfg.StepsPerBar

		b := domain.Bar{
			Symbol:    cfg.Symbol,
			Timestamp: cfg.Start.Add(time.Duration(i) * cfg.Period),
			Open:      points[lo],
			Close:     points[hi],
			High:      points[lo],
			Low:       points[lo],
		}
		for _, p := range points[lo : hi+1] {
			if p > b.High {
				b.High = p
			}
			if p < b.Low {
				b.Low = p
			}
		}
		bars[i] = b
	}
	return bars, nil
}
