package builtins

import (
	"osaka/internal/strategy"
)

var _ strategy.Strategy = (*Tokyo)(nil)

// Tokyo is the simplest possible market maker: a symmetric constant-spread
// ladder around the current price, same size at every level, no indicators.
// When inventory sits at its cap the capped side is dropped so the book can
// only unwind. Useful as a baseline and for sanity-checking the engine.
type Tokyo struct {
	params strategy.Params
}

// NewTokyo builds a Tokyo strategy from p.
func NewTokyo(p strategy.Params) strategy.Strategy {
	return &Tokyo{params: p}
}

func (t *Tokyo) Name() string            { return "tokyo" }
func (t *Tokyo) Params() strategy.Params { return t.params }

func (t *Tokyo) Quotes(ticksize float64, in strategy.Input) strategy.Output {
	p := t.params
	price := in.Price

	maxOrders := p.MaxOrders
	if maxOrders < 1 {
		maxOrders = 1
	}

	size := in.MaxInventory * in.Aggressivity / float64(maxOrders)
	buySize, sellSize := size, size
	if in.Inventory >= in.MaxInventory {
		buySize = 0
	}
	if in.Inventory <= -in.MaxInventory {
		sellSize = 0
	}

	levelSpread := p.MinimalSpread * price

	buys := make([]strategy.Level, 0, maxOrders)
	sells := make([]strategy.Level, 0, maxOrders)
	for i := 0; i < maxOrders; i++ {
		offset := float64(i)*levelSpread + levelSpread/2
		if buySize != 0 {
			buys = append(buys, strategy.Level{
				Price: strategy.RoundToTick(price-offset, ticksize),
				Size:  buySize,
			})
		}
		if sellSize != 0 {
			sells = append(sells, strategy.Level{
				Price: strategy.RoundToTick(price+offset, ticksize),
				Size:  sellSize,
			})
		}
	}

	return strategy.Output{
		ReservationPrice: price,
		BuyLevels:        buys,
		SellLevels:       sells,
		Spread:           levelSpread,
	}
}

// RegisterAll registers every built-in strategy on r.
func RegisterAll(r *strategy.Registry) {
	r.Register("stoikov", NewStoikov)
	r.Register("mexico", NewMexico)
	r.Register("tokyo", NewTokyo)
}
