// Package engine implements the event-driven market-making simulation: a
// per-bar state machine that sizes a margin pool, applies risk gates, asks
// each symbol's strategy for quotes, resolves fills against bar ranges, and
// tracks every portfolio series for later analysis.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"osaka/internal/domain"
	"osaka/internal/risk"
	"osaka/internal/strategy"
)

// Config holds the run-level settings of a simulation.
type Config struct {
	InitialCash float64
	MakerFee    float64
	TakerFee    float64

	// MinStart is the number of leading bars skipped for indicator warm-up;
	// positions still mark to market during warm-up but nothing trades.
	MinStart int

	// Ticksizes maps each traded symbol to its minimum price increment.
	Ticksizes map[string]float64
}

// Result is everything a finished run produces.
type Result struct {
	WalletBalance float64
	Positions     map[string]*domain.Position
	Orders        []*domain.Order
	History       *History
}

// Simulation is a single backtest run over one set of market data. It is not
// safe for concurrent use; parallel parameter searches run independent
// Simulation instances.
type Simulation struct {
	cfg        Config
	strategies map[string]strategy.Strategy
	symbols    []string
	risk       risk.Strategy
	orders     *OrderManager
	hist       *History
	log        *slog.Logger

	// Per-bar state. The margin pool is sized once at the top of each bar
	// from the previous bar's close and stays fixed for the whole bar.
	margin          float64
	perSymbolMargin float64
	metrics         map[string]risk.Metrics
}

// New validates the configuration and builds a ready-to-run simulation.
// strategies maps each traded symbol to its quoting strategy.
func New(cfg Config, strategies map[string]strategy.Strategy, rs risk.Strategy, log *slog.Logger) (*Simulation, error) {
	if len(strategies) == 0 {
		return nil, fmt.Errorf("no symbols to trade")
	}
	if cfg.InitialCash <= 0 {
		return nil, fmt.Errorf("initial cash must be positive, got %v", cfg.InitialCash)
	}
	if cfg.MakerFee < 0 || cfg.TakerFee < 0 {
		return nil, fmt.Errorf("fees must be non-negative, got maker=%v taker=%v", cfg.MakerFee, cfg.TakerFee)
	}
	if rs == nil {
		return nil, fmt.Errorf("risk strategy is required")
	}
	if log == nil {
		log = slog.Default()
	}

	symbols := make([]string, 0, len(strategies))
	for symbol := range strategies {
		if ts, ok := cfg.Ticksizes[symbol]; !ok || ts <= 0 {
			return nil, fmt.Errorf("missing or invalid ticksize for %s", symbol)
		}
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	om := NewOrderManager(cfg.MakerFee, cfg.TakerFee, log)
	om.SetWalletBalance(cfg.InitialCash)
	for _, symbol := range symbols {
		om.InitPosition(symbol)
	}

	return &Simulation{
		cfg:        cfg,
		strategies: strategies,
		symbols:    symbols,
		risk:       rs,
		orders:     om,
		log:        log.With("component", "engine"),
	}, nil
}

// Run executes the simulation over data and returns the assembled result.
// The context is checked once per bar. Internal inconsistencies (an
// impossible position transition, unrealized PnL surviving a full close)
// abort the run with an error.
func (s *Simulation) Run(ctx context.Context, data *MarketData) (*Result, error) {
	if err := data.validate(s.symbols); err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	n := data.Len()
	s.hist = newHistory(s.symbols, n)
	for _, symbol := range s.symbols {
		s.hist.Price[symbol] = append([]float64(nil), data.Opens[symbol]...)
	}

	for t := 0; t < n; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Size the margin pool from the previous bar's close.
		if len(s.hist.Margin) > 0 {
			s.margin = s.hist.Margin[len(s.hist.Margin)-1]
		} else {
			s.margin = s.orders.WalletBalance()
		}
		s.perSymbolMargin = s.margin / float64(len(s.symbols))

		opens := s.pricesAt(data.Opens, t)
		s.metrics = s.riskMetrics(opens)

		if stop, err := s.step(t, n, data, opens); err != nil {
			return nil, err
		} else if stop {
			break
		}
	}

	return &Result{
		WalletBalance: s.orders.WalletBalance(),
		Positions:     s.orders.Positions(),
		Orders:        s.orders.History(),
		History:       s.hist,
	}, nil
}

// step advances one bar. It returns stop=true when the run is over (margin
// stop or final bar).
func (s *Simulation) step(t, n int, data *MarketData, opens map[string]float64) (stop bool, err error) {
	// Margin stop check.
	initialMargin := s.orders.WalletBalance()
	if len(s.hist.Margin) > 0 {
		initialMargin = s.hist.Margin[0]
	}
	if !s.risk.ContinueSimulation(s.metrics, initialMargin) || s.margin <= 0 {
		s.log.Warn("stopping early: margin depleted", "t", t, "margin", s.margin)
		s.hist.padRemaining(s.symbols, n)
		return true, nil
	}

	// Final bar: flatten everything at the opening price.
	if t == n-1 {
		return true, s.closeAll(t, opens)
	}

	// Warm-up: no quoting, but positions still mark to market.
	if t < s.cfg.MinStart {
		for _, symbol := range s.symbols {
			s.hist.ReservationPrice[symbol] = append(s.hist.ReservationPrice[symbol], opens[symbol])
			s.hist.Spread[symbol] = append(s.hist.Spread[symbol], 0)
		}
		s.endOfBar(t, data)
		return false, nil
	}

	// Active trading.
	exits := s.risk.EmergencyExits(s.metrics)
	s.processEmergencyExits(t, exits, opens)
	s.orders.CancelStale(t, s.risk)

	for _, symbol := range s.symbols {
		s.quoteSymbol(t, symbol, opens[symbol], data)
	}

	var filled []*domain.Order
	for _, symbol := range s.symbols {
		filled = append(filled, s.orders.CheckFills(
			symbol, data.Highs[symbol][t], data.Lows[symbol][t], t, s.cfg.Ticksizes[symbol])...)
	}
	for _, o := range filled {
		if err := s.orders.Execute(o); err != nil {
			return true, err
		}
	}

	s.endOfBar(t, data)
	return false, nil
}

// quoteSymbol asks one symbol's strategy for quotes at bar t and feeds them
// to the order manager.
func (s *Simulation) quoteSymbol(t int, symbol string, open float64, data *MarketData) {
	strat := s.strategies[symbol]
	position := s.orders.Position(symbol)
	upnl := position.Mark(open)

	params := s.risk.Parameters()
	maxInventory := params.MaxLeverage * s.perSymbolMargin / open

	in := strategy.Input{
		Timestamp:     t,
		Price:         open,
		Inventory:     position.Quantity,
		MaxInventory:  maxInventory,
		UnrealizedPnL: upnl / s.perSymbolMargin,
		Aggressivity:  params.Aggressivity,
		Indicators:    data.indicatorsAt(symbol, t),
	}
	out := strat.Quotes(s.cfg.Ticksizes[symbol], in)

	s.hist.ReservationPrice[symbol] = append(s.hist.ReservationPrice[symbol], out.ReservationPrice)
	s.hist.Spread[symbol] = append(s.hist.Spread[symbol], out.Spread)

	s.orders.GenerateOrders(t, symbol, out, position.Quantity, maxInventory,
		s.metrics[symbol], len(s.symbols), s.risk)
}

// processEmergencyExits creates market close orders for flagged positions.
// They stay pending and resolve in this bar's fill check at the bar extreme.
// A total exit closes every position and supersedes the per-symbol flags.
func (s *Simulation) processEmergencyExits(t int, exits risk.Exits, opens map[string]float64) {
	const reason = "emergency exit: risk limit exceeded"
	if exits.Total {
		for _, symbol := range s.symbols {
			s.orders.CreateMarketClose(t, symbol, s.orders.Position(symbol).Quantity, opens[symbol], reason)
		}
		return
	}
	for _, symbol := range s.symbols {
		if exits.Symbols[symbol] {
			s.orders.CreateMarketClose(t, symbol, s.orders.Position(symbol).Quantity, opens[symbol], reason)
		}
	}
}

// closeAll flattens every position at the final bar's opening price and
// appends the final history entries.
func (s *Simulation) closeAll(t int, opens map[string]float64) error {
	s.log.Info("end of data: closing all positions", "t", t)

	for _, symbol := range s.symbols {
		o := s.orders.CreateMarketClose(t, symbol, s.orders.Position(symbol).Quantity, opens[symbol], "end of simulation")
		if o == nil {
			continue
		}
		if err := s.orders.Execute(o); err != nil {
			return err
		}
	}

	totalUpnl := 0.0
	for _, symbol := range s.symbols {
		position := s.orders.Position(symbol)
		s.hist.RealizedPnL[symbol] = append(s.hist.RealizedPnL[symbol], position.TotalRealizedPnL)
		totalUpnl += position.Mark(opens[symbol])
	}
	if totalUpnl != 0 {
		return fmt.Errorf("unrealized pnl %v survived closing all positions", totalUpnl)
	}

	wallet := s.orders.WalletBalance()
	s.hist.WalletBalance = append(s.hist.WalletBalance, wallet)
	s.hist.Margin = append(s.hist.Margin, wallet+totalUpnl)
	for _, symbol := range s.symbols {
		s.hist.Leverage[symbol] = append(s.hist.Leverage[symbol], 0)
		s.hist.ReservationPrice[symbol] = append(s.hist.ReservationPrice[symbol], opens[symbol])
		s.hist.Spread[symbol] = append(s.hist.Spread[symbol], 0)
	}
	s.hist.GlobalLeverage = append(s.hist.GlobalLeverage, 0)

	s.log.Info("simulation finished", "wallet_balance", wallet)
	return nil
}

// endOfBar marks every position to the close, appends the bar's history
// entries, and recomputes risk metrics at closing prices.
func (s *Simulation) endOfBar(t int, data *MarketData) {
	closes := s.pricesAt(data.Closes, t)

	totalUpnl := 0.0
	for _, symbol := range s.symbols {
		position := s.orders.Position(symbol)
		s.hist.RealizedPnL[symbol] = append(s.hist.RealizedPnL[symbol], position.TotalRealizedPnL)
		totalUpnl += position.Mark(closes[symbol])
	}

	wallet := s.orders.WalletBalance()
	margin := wallet + totalUpnl
	s.hist.WalletBalance = append(s.hist.WalletBalance, wallet)
	s.hist.Margin = append(s.hist.Margin, margin)

	s.metrics = s.riskMetrics(closes)
	for _, symbol := range s.symbols {
		s.hist.Leverage[symbol] = append(s.hist.Leverage[symbol], s.metrics[symbol].Leverage)
	}
	s.hist.GlobalLeverage = append(s.hist.GlobalLeverage, s.globalLeverage(closes))

	s.log.Debug("bar complete",
		"t", t, "wallet_balance", wallet, "margin", margin, "unrealized_pnl", totalUpnl)
}

// riskMetrics computes the per-symbol snapshot at the given prices, against
// the bar's fixed per-symbol margin slice.
func (s *Simulation) riskMetrics(prices map[string]float64) map[string]risk.Metrics {
	metrics := make(map[string]risk.Metrics, len(s.symbols))
	for _, symbol := range s.symbols {
		positionValue := s.orders.Position(symbol).Quantity * prices[symbol]
		leverage := math.Inf(1)
		if s.perSymbolMargin > 0 {
			leverage = positionValue / s.perSymbolMargin
		}
		metrics[symbol] = risk.Metrics{
			Leverage:      leverage,
			Margin:        s.perSymbolMargin,
			PositionValue: positionValue,
		}
	}
	return metrics
}

func (s *Simulation) globalLeverage(prices map[string]float64) float64 {
	total := 0.0
	for _, symbol := range s.symbols {
		total += s.orders.Position(symbol).Quantity * prices[symbol]
	}
	if s.margin <= 0 {
		return math.Inf(1)
	}
	return total / s.margin
}

func (s *Simulation) pricesAt(series map[string][]float64, t int) map[string]float64 {
	out := make(map[string]float64, len(s.symbols))
	for _, symbol := range s.symbols {
		out[symbol] = series[symbol][t]
	}
	return out
}
