package builtins

import (
	"math"

	"osaka/internal/strategy"
)

var _ strategy.Strategy = (*Mexico)(nil)

// Mexico is a general multi-factor market maker. The reservation price is the
// current price shifted by a linear combination of normalized inventory,
// normalized unrealized PnL, SMA deviation, and momentum. Levels ladder out
// from the reservation price with a spacing widened by volatility and recent
// |momentum|, floored at the minimal spread. Sizing is either fixed
// (max inventory / max orders) or adaptive on the remaining per-side
// capacity.
type Mexico struct {
	params strategy.Params
}

// NewMexico builds a Mexico strategy from p.
func NewMexico(p strategy.Params) strategy.Strategy {
	return &Mexico{params: p}
}

func (m *Mexico) Name() string            { return "mexico" }
func (m *Mexico) Params() strategy.Params { return m.params }

func (m *Mexico) Quotes(ticksize float64, in strategy.Input) strategy.Output {
	p := m.params
	price := in.Price

	smaDev := in.Indicator("sma_deviation")
	momentum := in.Indicator("momentum")
	volatility := in.Indicator("volatility")

	// Inventory enters as a fraction of the cap; uPnL is already normalized
	// by the per-symbol margin.
	delta := p.QFactor*in.Inventory/in.MaxInventory +
		p.UPnLFactor*in.UnrealizedPnL +
		p.MeanRevertFactor*smaDev +
		p.MomentumFactor*momentum
	reservation := price * (1 + delta)

	spacing := p.ConstantSpread + p.VolatilityFactor*volatility + p.SpreadMomentumFactor*math.Abs(momentum)
	if spacing < p.MinimalSpread {
		spacing = p.MinimalSpread
	}

	maxOrders := p.MaxOrders
	if maxOrders < 1 {
		maxOrders = 1
	}

	var buySize, sellSize float64
	if p.UseAdaptiveSizes {
		buySize = (in.MaxInventory - in.Inventory) * in.Aggressivity / float64(maxOrders)
		sellSize = (in.MaxInventory + in.Inventory) * in.Aggressivity / float64(maxOrders)
	} else {
		buySize = in.MaxInventory * in.Aggressivity / float64(maxOrders)
		sellSize = buySize
	}

	floorBid := strategy.RoundToTick(price*(1-p.MinimalSpread), ticksize)
	floorAsk := strategy.RoundToTick(price*(1+p.MinimalSpread), ticksize)

	buys := make([]strategy.Level, 0, maxOrders)
	sells := make([]strategy.Level, 0, maxOrders)
	for i := 1; i <= maxOrders; i++ {
		levelSpread := float64(i) * spacing * price

		bid := strategy.RoundToTick(reservation-levelSpread, ticksize)
		if bid >= floorBid {
			bid = floorBid
		}
		buys = append(buys, strategy.Level{Price: bid, Size: buySize})

		ask := strategy.RoundToTick(reservation+levelSpread, ticksize)
		if ask <= floorAsk {
			ask = floorAsk
		}
		sells = append(sells, strategy.Level{Price: ask, Size: sellSize})
	}

	return strategy.Output{
		ReservationPrice: reservation,
		BuyLevels:        buys,
		SellLevels:       sells,
		Spread:           spacing * price,
	}
}
