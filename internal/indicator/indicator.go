// Package indicator computes the rolling per-bar indicators strategies quote
// against: volatility of log returns, momentum, SMA deviation, and the
// high-low range moving average and standard deviation. All indicators are
// computed from bar opens (the price the engine acts on); the high-low family
// uses the previous bar's range to avoid lookahead. Values are NaN until the
// window has enough data.
package indicator

import (
	"fmt"
	"math"

	"osaka/internal/strategy"
)

// Names of the built-in indicators, as they appear in strategy inputs.
const (
	NameVolatility   = "volatility"
	NameMomentum     = "momentum"
	NameSMADeviation = "sma_deviation"
	NameHighLowMA    = "hlma"
	NameHighLowSD    = "hlsd"
)

// Set holds every indicator series for one symbol, aligned with the input
// bars.
type Set map[string][]float64

// Compute builds the full indicator Set for one symbol from aligned open,
// high, and low series, using the windows in p.
func Compute(opens, highs, lows []float64, p strategy.Params) (Set, error) {
	if len(opens) != len(highs) || len(opens) != len(lows) {
		return nil, fmt.Errorf("misaligned series: opens=%d highs=%d lows=%d", len(opens), len(highs), len(lows))
	}
	hlRange := highLowRange(opens, highs, lows)
	return Set{
		NameVolatility:   Volatility(opens, p.WindowVolatility),
		NameMomentum:     Momentum(opens, p.WindowMomentum),
		NameSMADeviation: SMADeviation(opens, p.WindowSMA),
		NameHighLowMA:    rollingNaNMean(hlRange, p.WindowHighLow),
		NameHighLowSD:    rollingNaNStd(hlRange, p.WindowHighLow),
	}, nil
}

// At returns the indicator snapshot for bar index t.
func (s Set) At(t int) map[string]float64 {
	snap := make(map[string]float64, len(s))
	for name, series := range s {
		if t < len(series) {
			snap[name] = series[t]
		}
	}
	return snap
}

// Snapshots returns one indicator map per bar index.
func (s Set) Snapshots(n int) []map[string]float64 {
	out := make([]map[string]float64, n)
	for t := 0; t < n; t++ {
		out[t] = s.At(t)
	}
	return out
}

// Volatility is the rolling standard deviation of log returns of the opens.
// The first return is undefined, so values start at index window.
func Volatility(opens []float64, window int) []float64 {
	logReturns := nanSlice(len(opens))
	for i := 1; i < len(opens); i++ {
		logReturns[i] = math.Log(opens[i] / opens[i-1])
	}
	return rollingNaNStd(logReturns, window)
}

// Momentum is the relative change of the open over the window:
// (open[t] - open[t-window]) / open[t-window].
func Momentum(opens []float64, window int) []float64 {
	out := nanSlice(len(opens))
	for i := window; i < len(opens); i++ {
		out[i] = (opens[i] - opens[i-window]) / opens[i-window]
	}
	return out
}

// SMADeviation is the open's relative deviation from its simple moving
// average: (open - sma) / sma.
func SMADeviation(opens []float64, window int) []float64 {
	out := nanSlice(len(opens))
	for i := window - 1; i < len(opens); i++ {
		sum := 0.0
		for _, v := range opens[i-window+1 : i+1] {
			sum += v
		}
		sma := sum / float64(window)
		out[i] = (opens[i] - sma) / sma
	}
	return out
}

// highLowRange is the previous bar's high-low range normalized by the
// current open. Index 0 is NaN: there is no previous bar.
func highLowRange(opens, highs, lows []float64) []float64 {
	out := nanSlice(len(opens))
	for i := 1; i < len(opens); i++ {
		out[i] = (highs[i-1] - lows[i-1]) / opens[i]
	}
	return out
}

// rollingNaNMean computes the rolling mean over the trailing window, ignoring
// NaN entries, and requires at least half the window to be present.
func rollingNaNMean(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	for i := window; i < len(series); i++ {
		mean, _, n := nanMoments(series[i-window+1 : i+1])
		if n >= window/2 {
			out[i] = mean
		}
	}
	return out
}

// rollingNaNStd is the rolling population standard deviation over the
// trailing window, with the same NaN handling as rollingNaNMean.
func rollingNaNStd(series []float64, window int) []float64 {
	out := nanSlice(len(series))
	for i := window; i < len(series); i++ {
		_, std, n := nanMoments(series[i-window+1 : i+1])
		if n >= window/2 {
			out[i] = std
		}
	}
	return out
}

// nanMoments returns the mean, population standard deviation, and count of
// the non-NaN entries of window.
func nanMoments(window []float64) (mean, std float64, n int) {
	sum := 0.0
	for _, v := range window {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), math.NaN(), 0
	}
	mean = sum / float64(n)
	varSum := 0.0
	for _, v := range window {
		if !math.IsNaN(v) {
			d := v - mean
			varSum += d * d
		}
	}
	return mean, math.Sqrt(varSum / float64(n)), n
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
