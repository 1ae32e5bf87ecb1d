package engine

import (
	"fmt"

	"osaka/internal/domain"
)

// MarketData is the aligned per-symbol input of a run: OHLC series plus one
// indicator snapshot per bar. Every symbol must carry the same number of
// bars; the engine acts on the open of bar t, resolves fills against its
// high/low, and marks to its close.
type MarketData struct {
	Opens  map[string][]float64
	Highs  map[string][]float64
	Lows   map[string][]float64
	Closes map[string][]float64

	// Indicators[symbol][t] is the indicator snapshot at bar t. Optional;
	// strategies see an empty map when absent.
	Indicators map[string][]map[string]float64
}

// MarketDataFromBars builds MarketData (without indicators) from per-symbol
// bar slices, verifying cross-symbol alignment.
func MarketDataFromBars(bars map[string][]domain.Bar) (*MarketData, error) {
	d := &MarketData{
		Opens:  make(map[string][]float64, len(bars)),
		Highs:  make(map[string][]float64, len(bars)),
		Lows:   make(map[string][]float64, len(bars)),
		Closes: make(map[string][]float64, len(bars)),
	}
	n := -1
	for symbol, bs := range bars {
		if n == -1 {
			n = len(bs)
		} else if len(bs) != n {
			return nil, fmt.Errorf("symbol %s has %d bars, others have %d", symbol, len(bs), n)
		}
		opens := make([]float64, len(bs))
		highs := make([]float64, len(bs))
		lows := make([]float64, len(bs))
		closes := make([]float64, len(bs))
		for i, b := range bs {
			opens[i], highs[i], lows[i], closes[i] = b.Open, b.High, b.Low, b.Close
		}
		d.Opens[symbol] = opens
		d.Highs[symbol] = highs
		d.Lows[symbol] = lows
		d.Closes[symbol] = closes
	}
	return d, nil
}

// Len returns the number of bars, zero for empty data.
func (d *MarketData) Len() int {
	for _, s := range d.Opens {
		return len(s)
	}
	return 0
}

// validate checks that every required symbol is present with aligned series.
func (d *MarketData) validate(symbols []string) error {
	n := d.Len()
	if n == 0 {
		return fmt.Errorf("no market data")
	}
	for _, symbol := range symbols {
		for name, series := range map[string][]float64{
			"opens":  d.Opens[symbol],
			"highs":  d.Highs[symbol],
			"lows":   d.Lows[symbol],
			"closes": d.Closes[symbol],
		} {
			if len(series) != n {
				return fmt.Errorf("symbol %s: %s has %d entries, want %d", symbol, name, len(series), n)
			}
		}
		if ind, ok := d.Indicators[symbol]; ok && len(ind) != n {
			return fmt.Errorf("symbol %s: indicators have %d entries, want %d", symbol, len(ind), n)
		}
	}
	return nil
}

// indicatorsAt returns the indicator snapshot for symbol at bar t, or an
// empty map.
func (d *MarketData) indicatorsAt(symbol string, t int) map[string]float64 {
	if series, ok := d.Indicators[symbol]; ok && t < len(series) {
		if snap := series[t]; snap != nil {
			return snap
		}
	}
	return map[string]float64{}
}
