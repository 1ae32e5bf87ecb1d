// Package domain defines the core market data and trading types shared by
// the simulation engine, stores, and strategies: OHLC bars, the order model
// with its fill rules, and the position ledger.
package domain

import "time"

// Bar represents a single OHLC bar for one symbol.
type Bar struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	TradeCount int64     `json:"trade_count"`
	VWAP       float64   `json:"vwap"`
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus is the lifecycle state of an order. PENDING is the only
// non-terminal state; FILLED and CANCELLED orders never change again.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderType distinguishes resting limit quotes from forced market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// Order is a simulated order. Timestamp is the bar index at which the order
// was created; FilledTimestamp the bar index at which it filled. Quantity is
// always positive, the side carries the sign. For market orders Price holds
// the reference price at creation and is overwritten with the actual fill
// price when the order executes.
type Order struct {
	Symbol          string
	Timestamp       int
	Side            OrderSide
	Type            OrderType
	Price           float64
	Quantity        float64
	Status          OrderStatus
	FilledTimestamp int
	Fee             float64
	Reason          string
}

// NewLimitOrder creates a pending limit order.
func NewLimitOrder(timestamp int, symbol string, side OrderSide, price, quantity float64) *Order {
	return &Order{
		Symbol:          symbol,
		Timestamp:       timestamp,
		Side:            side,
		Type:            OrderTypeLimit,
		Price:           price,
		Quantity:        quantity,
		Status:          OrderStatusPending,
		FilledTimestamp: -1,
	}
}

// NewMarketOrder creates a pending market order. refPrice is the price the
// order was sized against; the fill check replaces it with the bar extreme.
func NewMarketOrder(timestamp int, symbol string, side OrderSide, refPrice, quantity float64, reason string) *Order {
	return &Order{
		Symbol:          symbol,
		Timestamp:       timestamp,
		Side:            side,
		Type:            OrderTypeMarket,
		Price:           refPrice,
		Quantity:        quantity,
		Status:          OrderStatusPending,
		FilledTimestamp: -1,
		Reason:          reason,
	}
}

// CheckFill tests the order against one bar's range and marks it filled if it
// would have traded. A limit BUY fills only when the bar's low trades strictly
// through the quote by at least one tick (low <= price - ticksize); a limit
// SELL symmetrically against the high. This requires the market to trade
// through the level, a conservative stand-in for queue position. Market orders
// always fill, at the worst price of the bar for their side.
//
// Returns true if the order transitioned to FILLED during this call.
func (o *Order) CheckFill(high, low float64, timestamp int, ticksize float64) bool {
	if o.Status != OrderStatusPending {
		return false
	}

	switch o.Type {
	case OrderTypeLimit:
		switch o.Side {
		case OrderSideBuy:
			if low <= o.Price-ticksize {
				o.fill(o.Price, timestamp)
				return true
			}
		case OrderSideSell:
			if high >= o.Price+ticksize {
				o.fill(o.Price, timestamp)
				return true
			}
		}
	case OrderTypeMarket:
		// Pessimistic: a market buy pays the high, a market sell hits the low.
		if o.Side == OrderSideBuy {
			o.fill(high, timestamp)
		} else {
			o.fill(low, timestamp)
		}
		return true
	}

	return false
}

func (o *Order) fill(price float64, timestamp int) {
	o.Price = price
	o.Status = OrderStatusFilled
	o.FilledTimestamp = timestamp
}

// Cancel moves a pending order to CANCELLED. Filled or already-cancelled
// orders are left untouched.
func (o *Order) Cancel() {
	if o.Status == OrderStatusPending {
		o.Status = OrderStatusCancelled
	}
}

// SignedQuantity returns the position delta the order applies when it fills:
// positive for buys, negative for sells.
func (o *Order) SignedQuantity() float64 {
	if o.Side == OrderSideSell {
		return -o.Quantity
	}
	return o.Quantity
}
