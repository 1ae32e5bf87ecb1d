package domain

import "fmt"

// Position is the per-symbol ledger. Quantity is signed (positive long,
// negative short). EntryPrice is the weighted-average entry of the open
// position and is zero whenever the position is flat. UnrealizedPnL is
// refreshed by Mark; realized PnL and fees accumulate over the whole run.
type Position struct {
	Symbol           string
	Quantity         float64
	EntryPrice       float64
	UnrealizedPnL    float64
	TotalRealizedPnL float64
	TotalFeePaid     float64
}

// NewPosition returns a flat position for symbol.
func NewPosition(symbol string) *Position {
	return &Position{Symbol: symbol}
}

// ApplyTrade transitions the ledger from its current quantity to newQuantity
// via a trade of tradeDelta units at execPrice, and returns the PnL realized
// by the trade and the fee charged on it. The fee is always
// |tradeDelta| * execPrice * feeRate, regardless of direction.
//
// Exactly one of eight transitions applies: open long/short from flat, extend
// long/short, reduce-or-close long/short, and the two flips through zero. A
// flip realizes PnL on the full old position and opens the remainder at
// execPrice. Any other combination means the caller fed inconsistent
// quantities, which is a fatal simulation bug, so it returns an error.
//
// The caller is responsible for newQuantity == p.Quantity + tradeDelta.
func (p *Position) ApplyTrade(execPrice, newQuantity, tradeDelta, feeRate float64) (realized, fee float64, err error) {
	old := p.Quantity
	fee = abs(tradeDelta) * execPrice * feeRate

	switch {
	case old == 0 && newQuantity > 0:
		// Open long.
		p.EntryPrice = execPrice

	case old == 0 && newQuantity < 0:
		// Open short.
		p.EntryPrice = execPrice

	case old > 0 && newQuantity > old:
		// Extend long: weighted-average entry.
		p.EntryPrice = (p.EntryPrice*old + execPrice*tradeDelta) / newQuantity

	case old > 0 && newQuantity >= 0 && newQuantity < old:
		// Reduce or close long: realize on the sold units, entry unchanged.
		realized = (execPrice - p.EntryPrice) * (old - newQuantity)
		if newQuantity == 0 {
			p.EntryPrice = 0
		}

	case old > 0 && newQuantity < 0:
		// Flip long to short.
		realized = (execPrice - p.EntryPrice) * old
		p.EntryPrice = execPrice

	case old < 0 && newQuantity < old:
		// Extend short: weighted-average entry over absolute sizes.
		p.EntryPrice = (p.EntryPrice*(-old) + execPrice*(-tradeDelta)) / (-newQuantity)

	case old < 0 && newQuantity <= 0 && newQuantity > old:
		// Reduce or close short: newQuantity-old is the bought-back size.
		realized = (p.EntryPrice - execPrice) * (newQuantity - old)
		if newQuantity == 0 {
			p.EntryPrice = 0
		}

	case old < 0 && newQuantity > 0:
		// Flip short to long.
		realized = (p.EntryPrice - execPrice) * (-old)
		p.EntryPrice = execPrice

	default:
		return 0, 0, fmt.Errorf("unhandled position transition for %s: old=%v new=%v delta=%v",
			p.Symbol, old, newQuantity, tradeDelta)
	}

	p.Quantity = newQuantity
	return realized, fee, nil
}

// Mark recomputes the unrealized PnL against price and returns it. A flat
// position always marks to zero.
func (p *Position) Mark(price float64) float64 {
	switch {
	case p.Quantity > 0:
		p.UnrealizedPnL = (price - p.EntryPrice) * p.Quantity
	case p.Quantity < 0:
		p.UnrealizedPnL = (p.EntryPrice - price) * (-p.Quantity)
	default:
		p.UnrealizedPnL = 0
	}
	return p.UnrealizedPnL
}

// IsFlat reports whether the position holds no inventory.
func (p *Position) IsFlat() bool {
	return p.Quantity == 0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
