// Package strategy defines the quoting-strategy contract of the backtester:
// the per-bar input snapshot a strategy receives, the quote ladder it emits,
// the tunable parameter set, and a Registry mapping strategy names to
// constructors so every symbol can run its own parameterized instance.
package strategy

import (
	"fmt"
	"math"
	"sort"
)

// Params holds every tunable a built-in strategy understands. Each strategy
// reads the subset it cares about; the rest is ignored. Zero values are not
// meaningful defaults, start from DefaultParams.
type Params struct {
	// Shared.
	MaxOrders        int     `yaml:"max_orders"`
	MinimalSpread    float64 `yaml:"minimal_spread"`
	UseAdaptiveSizes bool    `yaml:"use_adaptive_sizes"`

	// Indicator windows.
	WindowVolatility int `yaml:"window_volatility"`
	WindowSMA        int `yaml:"window_sma"`
	WindowMomentum   int `yaml:"window_momentum"`
	WindowHighLow    int `yaml:"window_high_low"`

	// Stoikov.
	RiskAversion float64 `yaml:"risk_aversion"`
	GammaSpread  float64 `yaml:"gamma_spread"`

	// Mexico.
	QFactor              float64 `yaml:"q_factor"`
	UPnLFactor           float64 `yaml:"upnl_factor"`
	MeanRevertFactor     float64 `yaml:"mean_revert_factor"`
	MomentumFactor       float64 `yaml:"momentum_factor"`
	ConstantSpread       float64 `yaml:"constant_spread"`
	VolatilityFactor     float64 `yaml:"volatility_factor"`
	SpreadMomentumFactor float64 `yaml:"spread_momentum_factor"`
}

// DefaultParams returns the baseline parameter set. MinimalSpread defaults to
// four times the maker fee so a round trip at the minimum spread is still
// profitable after fees.
func DefaultParams() Params {
	return Params{
		MaxOrders:        1,
		MinimalSpread:    4 * 0.0002,
		UseAdaptiveSizes: false,

		WindowVolatility: 7,
		WindowSMA:        7,
		WindowMomentum:   7,
		WindowHighLow:    3,

		RiskAversion: 0.1,
		GammaSpread:  0.1,

		QFactor:              0.01,
		UPnLFactor:           0.1,
		MeanRevertFactor:     0.2,
		MomentumFactor:       0.1,
		ConstantSpread:       0.005,
		VolatilityFactor:     0.1,
		SpreadMomentumFactor: 0.05,
	}
}

// WarmupBars returns the number of leading bars the engine must skip before
// any of the given parameter sets has fully formed indicators. The high-low
// indicators consume one extra bar because they reference the previous bar's
// range.
func WarmupBars(params ...Params) int {
	warmup := 0
	for _, p := range params {
		for _, w := range []int{p.WindowVolatility, p.WindowSMA, p.WindowMomentum, p.WindowHighLow + 1} {
			if w > warmup {
				warmup = w
			}
		}
	}
	return warmup
}

// Level is one rung of a quote ladder: a limit price and a size in asset
// units. Sizes may come out zero when inventory is capped; the order manager
// drops those.
type Level struct {
	Price float64
	Size  float64
}

// Input is the snapshot a strategy quotes against at one timestamp. Prices
// are bar opens. UnrealizedPnL is normalized by the per-symbol margin so
// strategies see it as a fraction of allocated capital. Indicators may hold
// NaN before their windows are warm; strategies must tolerate that.
type Input struct {
	Timestamp     int
	Price         float64
	Inventory     float64
	MaxInventory  float64
	UnrealizedPnL float64
	Aggressivity  float64
	Indicators    map[string]float64
}

// Indicator returns the named indicator value, or 0 when absent.
func (in Input) Indicator(name string) float64 {
	if v, ok := in.Indicators[name]; ok {
		return v
	}
	return 0
}

// Output is a strategy's quotes for one symbol at one timestamp. Levels are
// ordered closest-to-price first. ReservationPrice is the strategy's
// inventory-adjusted fair value, used as the reference for risk validation.
// Spread is the distance between the innermost bid and ask, recorded for
// analysis.
type Output struct {
	ReservationPrice float64
	BuyLevels        []Level
	SellLevels       []Level
	Spread           float64
}

// Strategy generates quote ladders. Implementations are pure functions of
// their parameters and the Input; they hold no mutable per-run state, so one
// instance is safe to reuse across runs of the same symbol.
type Strategy interface {
	Name() string
	Params() Params

	// Quotes produces the ladder for one timestamp. All prices must be
	// rounded to ticksize.
	Quotes(ticksize float64, in Input) Output
}

// Constructor builds a strategy instance from a parameter set.
type Constructor func(Params) Strategy

// Registry maps strategy names to constructors.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor under name, replacing any previous entry.
func (r *Registry) Register(name string, c Constructor) {
	r.ctors[name] = c
}

// New builds a strategy by name.
func (r *Registry) New(name string, p Params) (Strategy, error) {
	c, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, r.List())
	}
	return c(p), nil
}

// List returns the sorted registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoundToTick rounds price to the nearest multiple of ticksize. A
// non-positive ticksize leaves the price untouched.
func RoundToTick(price, ticksize float64) float64 {
	if ticksize <= 0 {
		return price
	}
	return math.Round(price/ticksize) * ticksize
}
