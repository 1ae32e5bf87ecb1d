// Package builtins provides the built-in market-making quote generators and
// a helper to register them all.
package builtins

import (
	"osaka/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Stoikov)(nil)

// Stoikov quotes one level per side around an inventory-adjusted reservation
// price, after Avellaneda-Stoikov without a terminal horizon. The reservation
// price shifts against inventory by gamma * sigma^2 * q * S and the spread is
// S * (min_spread + gamma_spread * sigma^2), where sigma is the rolling
// volatility of log returns. Both quotes are pushed out to at least the
// minimal spread from the current price, so the strategy never crosses its
// own fee floor chasing the reservation price.
type Stoikov struct {
	params strategy.Params
}

// NewStoikov builds a Stoikov strategy from p.
func NewStoikov(p strategy.Params) strategy.Strategy {
	return &Stoikov{params: p}
}

func (s *Stoikov) Name() string            { return "stoikov" }
func (s *Stoikov) Params() strategy.Params { return s.params }

func (s *Stoikov) Quotes(ticksize float64, in strategy.Input) strategy.Output {
	p := s.params
	price := in.Price
	sigma := in.Indicator("volatility")

	size := in.MaxInventory * in.Aggressivity

	reservation := price - p.RiskAversion*sigma*sigma*in.Inventory*price
	spread := price * (p.MinimalSpread + p.GammaSpread*sigma*sigma)

	bid := strategy.RoundToTick(reservation-spread/2, ticksize)
	ask := strategy.RoundToTick(reservation+spread/2, ticksize)

	// The reservation price can drift so far that a quote would land inside
	// the minimal spread (or through the mid). Quote at the floor instead of
	// not at all.
	floorBid := strategy.RoundToTick(price*(1-p.MinimalSpread), ticksize)
	floorAsk := strategy.RoundToTick(price*(1+p.MinimalSpread), ticksize)
	if bid >= floorBid {
		bid = floorBid
	}
	if ask <= floorAsk {
		ask = floorAsk
	}

	return strategy.Output{
		ReservationPrice: reservation,
		BuyLevels:        []strategy.Level{{Price: bid, Size: size}},
		SellLevels:       []strategy.Level{{Price: ask, Size: size}},
		Spread:           spread,
	}
}
