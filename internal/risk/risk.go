// Package risk defines the risk-management contract of the simulation: order
// validation against leverage and size limits, emergency position exits,
// early termination of a losing run, and the quote-cancellation policy.
package risk

import (
	"log/slog"
	"math"

	"osaka/internal/domain"
)

// Metrics is the per-symbol risk snapshot the engine recomputes whenever
// prices move. Margin is the symbol's share of the portfolio margin pool and
// stays fixed within a timestamp.
type Metrics struct {
	Leverage      float64
	Margin        float64
	PositionValue float64
}

// Parameters tunes a risk strategy. Leverage limits are portfolio-wide and
// divided evenly across symbols where a per-symbol limit is needed.
type Parameters struct {
	MaxLeverage           float64 `yaml:"max_leverage"`
	MinOrderValueUSD      float64 `yaml:"min_order_value_usd"`
	Aggressivity          float64 `yaml:"aggressivity"`
	EmergencyExitLeverage float64 `yaml:"emergency_exit_leverage"`
	EarlyStoppingMargin   float64 `yaml:"early_stopping_margin"`
	CancelEveryBar        bool    `yaml:"cancel_every_bar"`
	// MaxOrderAge cancels quotes older than this many bars when
	// CancelEveryBar is off. Zero disables age-based cancellation.
	MaxOrderAge int `yaml:"max_order_age"`
}

// DefaultParameters returns the baseline risk configuration.
func DefaultParameters() Parameters {
	return Parameters{
		MaxLeverage:           1,
		MinOrderValueUSD:      10,
		Aggressivity:          0.33,
		EmergencyExitLeverage: 2,
		EarlyStoppingMargin:   0.1,
		CancelEveryBar:        true,
	}
}

// Exits reports which positions must be force-closed. Total supersedes the
// per-symbol flags: when set, every position closes.
type Exits struct {
	Total   bool
	Symbols map[string]bool
}

// Any reports whether at least one exit is flagged.
func (e Exits) Any() bool {
	if e.Total {
		return true
	}
	for _, v := range e.Symbols {
		if v {
			return true
		}
	}
	return false
}

// Strategy is the risk-management contract consulted by the engine.
type Strategy interface {
	Parameters() Parameters

	// ValidateOrder reports whether a candidate order passes the minimum
	// order value and per-symbol leverage checks. refPrice is the strategy's
	// reservation price, the engine's best estimate of fair value.
	ValidateOrder(order *domain.Order, refPrice float64, m Metrics, nSymbols int) bool

	// EmergencyExits flags positions whose leverage demands an immediate
	// market close.
	EmergencyExits(metrics map[string]Metrics) Exits

	// ContinueSimulation reports whether the run may proceed given the
	// current metrics; false stops the run early.
	ContinueSimulation(metrics map[string]Metrics, initialMargin float64) bool

	// ShouldCancel reports whether a pending quote created at orderTimestamp
	// is stale at timestamp.
	ShouldCancel(timestamp, orderTimestamp int) bool
}

// Compile-time interface check.
var _ Strategy = (*Basic)(nil)

// Basic is the standard implementation of Strategy.
type Basic struct {
	params Parameters
	log    *slog.Logger
}

// NewBasic creates a Basic risk strategy. A nil logger falls back to
// slog.Default.
func NewBasic(params Parameters, log *slog.Logger) *Basic {
	if log == nil {
		log = slog.Default()
	}
	return &Basic{params: params, log: log.With("component", "risk")}
}

func (b *Basic) Parameters() Parameters { return b.params }

func (b *Basic) ValidateOrder(order *domain.Order, refPrice float64, m Metrics, nSymbols int) bool {
	orderValue := order.Quantity * refPrice
	if orderValue < b.params.MinOrderValueUSD {
		b.log.Debug("order rejected: below minimum value",
			"symbol", order.Symbol, "side", order.Side,
			"order_value", orderValue, "min_order_value", b.params.MinOrderValueUSD)
		return false
	}

	newPositionValue := m.PositionValue
	if order.Side == domain.OrderSideBuy {
		newPositionValue += orderValue
	} else {
		newPositionValue -= orderValue
	}

	// m.Margin is the per-symbol slice of the margin pool, so the leverage
	// cap is divided across symbols too.
	newLeverage := math.Abs(newPositionValue) / m.Margin
	maxPerSymbol := b.params.MaxLeverage / float64(nSymbols)
	if newLeverage > maxPerSymbol {
		b.log.Debug("order rejected: leverage cap",
			"symbol", order.Symbol, "side", order.Side,
			"new_leverage", newLeverage, "max_leverage_per_symbol", maxPerSymbol)
		return false
	}

	return true
}

func (b *Basic) EmergencyExits(metrics map[string]Metrics) Exits {
	nSymbols := len(metrics)
	exits := Exits{Symbols: make(map[string]bool, nSymbols)}
	if nSymbols == 0 {
		return exits
	}

	perSymbolLimit := b.params.EmergencyExitLeverage / float64(nSymbols)
	totalLeverage := 0.0
	for symbol, m := range metrics {
		if math.Abs(m.Leverage) >= perSymbolLimit {
			exits.Symbols[symbol] = true
			b.log.Warn("emergency exit triggered",
				"symbol", symbol, "leverage", m.Leverage, "limit", perSymbolLimit)
		}
		totalLeverage += m.Leverage
	}

	if math.Abs(totalLeverage) >= b.params.MaxLeverage {
		exits.Total = true
		b.log.Warn("total emergency exit triggered",
			"total_leverage", totalLeverage, "limit", b.params.MaxLeverage)
	}

	return exits
}

func (b *Basic) ContinueSimulation(metrics map[string]Metrics, initialMargin float64) bool {
	totalMargin := 0.0
	for _, m := range metrics {
		totalMargin += m.Margin
	}
	marginRatio := totalMargin / initialMargin
	if marginRatio <= b.params.EarlyStoppingMargin {
		b.log.Warn("margin ratio below early stopping threshold",
			"margin_ratio", marginRatio, "threshold", b.params.EarlyStoppingMargin)
		return false
	}
	return true
}

func (b *Basic) ShouldCancel(timestamp, orderTimestamp int) bool {
	if b.params.CancelEveryBar {
		return true
	}
	if b.params.MaxOrderAge > 0 {
		return timestamp-orderTimestamp >= b.params.MaxOrderAge
	}
	return false
}
