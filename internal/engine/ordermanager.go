package engine

import (
	"fmt"
	"log/slog"

	"osaka/internal/domain"
	"osaka/internal/risk"
	"osaka/internal/strategy"
)

// OrderManager owns the simulated order books and the wallet. It turns
// strategy quote ladders into risk-validated pending orders, resolves fills
// against bar ranges, executes fills through the position ledger, and applies
// the cancellation policy.
type OrderManager struct {
	positions     map[string]*domain.Position
	walletBalance float64
	makerFee      float64
	takerFee      float64

	active  map[string][]*domain.Order
	history []*domain.Order

	log *slog.Logger
}

// NewOrderManager creates an order manager with the given fee schedule.
func NewOrderManager(makerFee, takerFee float64, log *slog.Logger) *OrderManager {
	if log == nil {
		log = slog.Default()
	}
	return &OrderManager{
		positions: make(map[string]*domain.Position),
		makerFee:  makerFee,
		takerFee:  takerFee,
		active:    make(map[string][]*domain.Order),
		log:       log.With("component", "orders"),
	}
}

// InitPosition creates a flat position for symbol if none exists.
func (m *OrderManager) InitPosition(symbol string) {
	if _, ok := m.positions[symbol]; !ok {
		m.positions[symbol] = domain.NewPosition(symbol)
	}
}

// SetWalletBalance sets the starting cash balance.
func (m *OrderManager) SetWalletBalance(balance float64) { m.walletBalance = balance }

// WalletBalance returns the current cash balance.
func (m *OrderManager) WalletBalance() float64 { return m.walletBalance }

// Position returns the ledger for symbol, or nil if it was never initialized.
func (m *OrderManager) Position(symbol string) *domain.Position { return m.positions[symbol] }

// Positions returns the full ledger map.
func (m *OrderManager) Positions() map[string]*domain.Position { return m.positions }

// History returns every order ever created, in creation order.
func (m *OrderManager) History() []*domain.Order { return m.history }

// pendingQuantity sums the pending order quantity per side for symbol.
func (m *OrderManager) pendingQuantity(symbol string) (buy, sell float64) {
	for _, o := range m.active[symbol] {
		if o.Status != domain.OrderStatusPending {
			continue
		}
		if o.Side == domain.OrderSideBuy {
			buy += o.Quantity
		} else {
			sell += o.Quantity
		}
	}
	return buy, sell
}

// GenerateOrders converts a quote ladder into pending limit orders. Each side
// works against its remaining capacity (max position less current inventory
// less already-pending same-direction quantity), walking levels inner to
// outer and stopping once capacity runs out. Surviving candidates then pass
// through risk validation against the reservation price; accepted orders
// join the active book and the history.
func (m *OrderManager) GenerateOrders(
	t int,
	symbol string,
	out strategy.Output,
	currentPosition, maxPosition float64,
	metrics risk.Metrics,
	nSymbols int,
	rs risk.Strategy,
) []*domain.Order {
	pendingBuy, pendingSell := m.pendingQuantity(symbol)
	longCapacity := maxPosition - currentPosition - pendingBuy
	shortCapacity := maxPosition + currentPosition - pendingSell

	var candidates []*domain.Order
	for _, lvl := range out.BuyLevels {
		if longCapacity <= 0 || lvl.Size <= 0 {
			continue
		}
		candidates = append(candidates, domain.NewLimitOrder(t, symbol, domain.OrderSideBuy, lvl.Price, lvl.Size))
		longCapacity -= lvl.Size
	}
	for _, lvl := range out.SellLevels {
		if shortCapacity <= 0 || lvl.Size <= 0 {
			continue
		}
		candidates = append(candidates, domain.NewLimitOrder(t, symbol, domain.OrderSideSell, lvl.Price, lvl.Size))
		shortCapacity -= lvl.Size
	}

	var accepted []*domain.Order
	for _, o := range candidates {
		if rs.ValidateOrder(o, out.ReservationPrice, metrics, nSymbols) {
			accepted = append(accepted, o)
		}
	}

	m.active[symbol] = append(m.active[symbol], accepted...)
	m.history = append(m.history, accepted...)

	m.log.Debug("orders generated",
		"t", t, "symbol", symbol,
		"candidates", len(candidates), "accepted", len(accepted))
	return accepted
}

// CreateMarketClose creates a pending market order that flattens the given
// position, or nil if it is already flat. The order joins the active book
// and the history like any other order.
func (m *OrderManager) CreateMarketClose(t int, symbol string, positionSize, refPrice float64, reason string) *domain.Order {
	if positionSize == 0 {
		return nil
	}
	side := domain.OrderSideSell
	if positionSize < 0 {
		side = domain.OrderSideBuy
	}
	o := domain.NewMarketOrder(t, symbol, side, refPrice, abs(positionSize), reason)

	m.active[symbol] = append(m.active[symbol], o)
	m.history = append(m.history, o)

	m.log.Info("closing position",
		"t", t, "symbol", symbol, "reason", reason,
		"position", positionSize, "ref_price", refPrice)
	return o
}

// CheckFills runs the fill check for every pending order of symbol against
// the bar's range, in insertion order, and returns the orders that filled.
// Filled orders stay in the active book until Execute removes them.
func (m *OrderManager) CheckFills(symbol string, high, low float64, t int, ticksize float64) []*domain.Order {
	var filled []*domain.Order
	for _, o := range m.active[symbol] {
		if o.CheckFill(high, low, t, ticksize) {
			filled = append(filled, o)
		}
	}
	return filled
}

// Execute applies a filled order to its position ledger and the wallet. An
// order that is still pending (the end-of-data close path, which bypasses the
// fill check) fills here at its reference price. Limit orders pay the maker
// fee, market orders the taker fee; the wallet is credited realized PnL net
// of the fee.
func (m *OrderManager) Execute(o *domain.Order) error {
	position := m.positions[o.Symbol]
	if position == nil {
		return fmt.Errorf("executing order for unknown symbol %s", o.Symbol)
	}

	if o.Status == domain.OrderStatusPending {
		// Direct execution at the reference price.
		if !o.CheckFill(o.Price, o.Price, o.Timestamp, 0) {
			return fmt.Errorf("direct execution of non-fillable %s order for %s", o.Type, o.Symbol)
		}
	}

	tradeSize := o.SignedQuantity()
	newQuantity := position.Quantity + tradeSize
	feeRate := m.makerFee
	if o.Type == domain.OrderTypeMarket {
		feeRate = m.takerFee
	}

	realized, fee, err := position.ApplyTrade(o.Price, newQuantity, tradeSize, feeRate)
	if err != nil {
		return fmt.Errorf("executing %s %s: %w", o.Side, o.Symbol, err)
	}

	m.walletBalance += realized - fee
	position.TotalRealizedPnL += realized
	position.TotalFeePaid += fee
	o.Fee = fee

	m.removeActive(o)

	m.log.Debug("trade executed",
		"t", o.FilledTimestamp, "symbol", o.Symbol, "side", o.Side, "type", o.Type,
		"price", o.Price, "quantity", o.Quantity,
		"realized_pnl", realized, "fee", fee)
	return nil
}

// CancelStale cancels pending limit orders the risk policy deems stale at
// timestamp t. Market orders are never stale: they exist to flatten a
// position and must survive to the fill check.
func (m *OrderManager) CancelStale(t int, rs risk.Strategy) {
	for symbol, orders := range m.active {
		kept := orders[:0]
		for _, o := range orders {
			if o.Type == domain.OrderTypeLimit && o.Status == domain.OrderStatusPending && rs.ShouldCancel(t, o.Timestamp) {
				o.Cancel()
				continue
			}
			kept = append(kept, o)
		}
		m.active[symbol] = kept
	}
}

func (m *OrderManager) removeActive(o *domain.Order) {
	orders := m.active[o.Symbol]
	for i, cur := range orders {
		if cur == o {
			m.active[o.Symbol] = append(orders[:i], orders[i+1:]...)
			return
		}
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
