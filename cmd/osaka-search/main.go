// Command osaka-search sweeps strategy and risk parameters for one symbol
// and prints the best candidates by risk-adjusted score.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"osaka/internal/config"
	"osaka/internal/domain"
	"osaka/internal/engine"
	"osaka/internal/indicator"
	"osaka/internal/report"
	"osaka/internal/risk"
	"osaka/internal/search"
	"osaka/internal/store"
	"osaka/internal/strategy"
	"osaka/internal/strategy/builtins"
	"osaka/internal/synth"
	"osaka/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	symbol := flag.String("symbol", "", "symbol to sweep (default: first configured)")
	workers := flag.Int("workers", runtime.NumCPU(), "concurrent backtests")
	top := flag.Int("top", 10, "number of best candidates to print")
	riskFree := flag.Float64("risk-free", 0, "annualized risk-free rate for ratio metrics")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	sc, err := pickSymbol(cfg, *symbol)
	if err != nil {
		log.Fatal(err)
	}

	registry := strategy.NewRegistry()
	builtins.RegisterAll(registry)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bars, err := loadSymbolBars(ctx, cfg, sc)
	if err != nil {
		log.Fatalf("failed to load bars: %v", err)
	}
	logger.Info("data loaded", "symbol", sc.Name, "bars", len(bars))

	base, err := engine.MarketDataFromBars(map[string][]domain.Bar{sc.Name: bars})
	if err != nil {
		log.Fatalf("failed to build market data: %v", err)
	}

	runner := func(ctx context.Context, c search.Candidate) (report.Summary, error) {
		strat, err := registry.New(sc.Strategy, c.Strategy)
		if err != nil {
			return report.Summary{}, err
		}

		set, err := indicator.Compute(base.Opens[sc.Name], base.Highs[sc.Name], base.Lows[sc.Name], c.Strategy)
		if err != nil {
			return report.Summary{}, err
		}
		data := &engine.MarketData{
			Opens:      base.Opens,
			Highs:      base.Highs,
			Lows:       base.Lows,
			Closes:     base.Closes,
			Indicators: map[string][]map[string]float64{sc.Name: set.Snapshots(base.Len())},
		}

		sim, err := engine.New(engine.Config{
			InitialCash: cfg.Simulation.InitialCash,
			MakerFee:    cfg.Simulation.MakerFee,
			TakerFee:    cfg.Simulation.TakerFee,
			MinStart:    strategy.WarmupBars(c.Strategy),
			Ticksizes:   map[string]float64{sc.Name: sc.Ticksize},
		}, map[string]strategy.Strategy{sc.Name: strat}, risk.NewBasic(c.Risk, logger), logger)
		if err != nil {
			return report.Summary{}, err
		}
		res, err := sim.Run(ctx, data)
		if err != nil {
			return report.Summary{}, err
		}
		return report.Summarize(cfg.Simulation.InitialCash, res.History.WalletBalance, res.Orders, *riskFree), nil
	}

	candidates := search.Grid(sc.Strategy, sc.Params, cfg.Risk)
	logger.Info("starting sweep",
		"symbol", sc.Name, "strategy", sc.Strategy,
		"candidates", len(candidates), "workers", *workers)

	results := search.Run(ctx, candidates, runner, *workers, logger)

	n := *top
	if n > len(results) {
		n = len(results)
	}
	for i := 0; i < n; i++ {
		r := results[i]
		if r.Err != nil {
			fmt.Printf("%2d. failed: %v\n", i+1, r.Err)
			continue
		}
		fmt.Printf("%2d. score=%.4f sharpe=%.4f drawdown=%.2f%% return=%.2f%% leverage=%.2f aggr=%.2f\n",
			i+1, r.Score, r.Summary.Sharpe, r.Summary.MaxDrawdown*100, r.Summary.TotalReturn*100,
			r.Candidate.Risk.MaxLeverage, r.Candidate.Risk.Aggressivity)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("OSAKA_CONFIG"); p != "" {
		return p
	}
	return "config/osaka.yaml"
}

func pickSymbol(cfg *config.Config, name string) (config.SymbolConfig, error) {
	if name == "" {
		return cfg.Symbols[0], nil
	}
	for _, sc := range cfg.Symbols {
		if sc.Name == name {
			return sc, nil
		}
	}
	return config.SymbolConfig{}, fmt.Errorf("symbol %s not in config", name)
}

func loadSymbolBars(ctx context.Context, cfg *config.Config, sc config.SymbolConfig) ([]domain.Bar, error) {
	var bars []domain.Bar
	var err error
	switch cfg.Data.Source {
	case "parquet":
		ps := store.NewParquetStore(cfg.Storage.DataDir)
		start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		bars, err = ps.ReadBars(ctx, sc.Name, cfg.Data.Period, start, time.Now().UTC())
	case "csv":
		bars, err = store.LoadCSVBars(cfg.Storage.DataDir, sc.Name, cfg.Data.Period, cfg.Data.Size, cfg.Data.Revert)
	case "synthetic":
		scfg := synth.DefaultConfig()
		scfg.Symbol = sc.Name
		scfg.Seed = 1
		if cfg.Data.Size > 0 {
			scfg.Bars = cfg.Data.Size
		}
		bars, err = synth.Generate(scfg)
	default:
		err = fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Data.Size > 0 && len(bars) > cfg.Data.Size {
		bars = bars[len(bars)-cfg.Data.Size:]
	}
	return bars, nil
}
