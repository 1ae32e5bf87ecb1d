// Command osaka-backtest runs one market-making backtest over the configured
// symbols and prints a performance summary. With -save the run, its orders,
// and every history series are persisted to SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"osaka/internal/config"
	"osaka/internal/domain"
	"osaka/internal/engine"
	"osaka/internal/indicator"
	"osaka/internal/report"
	"osaka/internal/risk"
	"osaka/internal/store"
	"osaka/internal/strategy"
	"osaka/internal/strategy/builtins"
	"osaka/internal/synth"
	"osaka/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	label := flag.String("label", "", "label stored with the run (default: strategies and symbols)")
	save := flag.Bool("save", false, "persist the run to SQLite")
	riskFree := flag.Float64("risk-free", 0, "annualized risk-free rate for ratio metrics")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	registry := strategy.NewRegistry()
	builtins.RegisterAll(registry)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bars, err := loadBars(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to load bars: %v", err)
	}
	if err := store.CheckAlignment(bars); err != nil {
		log.Fatalf("bar data misaligned: %v", err)
	}

	data, err := engine.MarketDataFromBars(bars)
	if err != nil {
		log.Fatalf("failed to build market data: %v", err)
	}

	strategies := make(map[string]strategy.Strategy, len(cfg.Symbols))
	ticksizes := make(map[string]float64, len(cfg.Symbols))
	allParams := make([]strategy.Params, 0, len(cfg.Symbols))
	data.Indicators = make(map[string][]map[string]float64, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		strat, err := registry.New(sc.Strategy, sc.Params)
		if err != nil {
			log.Fatalf("symbol %s: %v", sc.Name, err)
		}
		strategies[sc.Name] = strat
		ticksizes[sc.Name] = sc.Ticksize
		allParams = append(allParams, sc.Params)

		set, err := indicator.Compute(data.Opens[sc.Name], data.Highs[sc.Name], data.Lows[sc.Name], sc.Params)
		if err != nil {
			log.Fatalf("symbol %s: computing indicators: %v", sc.Name, err)
		}
		data.Indicators[sc.Name] = set.Snapshots(data.Len())
	}

	sim, err := engine.New(engine.Config{
		InitialCash: cfg.Simulation.InitialCash,
		MakerFee:    cfg.Simulation.MakerFee,
		TakerFee:    cfg.Simulation.TakerFee,
		MinStart:    strategy.WarmupBars(allParams...),
		Ticksizes:   ticksizes,
	}, strategies, risk.NewBasic(cfg.Risk, logger), logger)
	if err != nil {
		log.Fatalf("failed to build simulation: %v", err)
	}

	res, err := sim.Run(ctx, data)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	summary := report.Summarize(cfg.Simulation.InitialCash, res.History.WalletBalance, res.Orders, *riskFree)
	fmt.Print(summary)

	if !*save {
		return
	}
	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open result store: %v", err)
	}
	defer st.Close()

	runID, err := st.SaveRun(ctx, store.RunRecord{
		Label:       runLabel(*label, cfg),
		CreatedAt:   time.Now().UTC(),
		InitialCash: cfg.Simulation.InitialCash,
		FinalWallet: summary.FinalWallet,
		Sharpe:      summary.Sharpe,
		Sortino:     summary.Sortino,
		MaxDrawdown: summary.MaxDrawdown,
		Trades:      summary.Fees.MakerFills + summary.Fees.TakerFills,
	}, res)
	if err != nil {
		log.Fatalf("failed to save run: %v", err)
	}
	fmt.Printf("saved run %d to %s\n", runID, cfg.Storage.SQLitePath)
}

func defaultConfigPath() string {
	if p := os.Getenv("OSAKA_CONFIG"); p != "" {
		return p
	}
	return "config/osaka.yaml"
}

func runLabel(label string, cfg *config.Config) string {
	if label != "" {
		return label
	}
	parts := make([]string, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		parts = append(parts, fmt.Sprintf("%s/%s", sc.Strategy, sc.Name))
	}
	return strings.Join(parts, " ")
}

// loadBars fetches the configured bar data for every symbol from the
// configured source.
func loadBars(ctx context.Context, cfg *config.Config) (map[string][]domain.Bar, error) {
	bars := make(map[string][]domain.Bar, len(cfg.Symbols))

	switch cfg.Data.Source {
	case "parquet":
		ps := store.NewParquetStore(cfg.Storage.DataDir)
		start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Now().UTC()
		for _, sc := range cfg.Symbols {
			bs, err := ps.ReadBars(ctx, sc.Name, cfg.Data.Period, start, end)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", sc.Name, err)
			}
			bars[sc.Name] = bs
		}
	case "csv":
		for _, sc := range cfg.Symbols {
			bs, err := store.LoadCSVBars(cfg.Storage.DataDir, sc.Name, cfg.Data.Period, cfg.Data.Size, cfg.Data.Revert)
			if err != nil {
				return nil, err
			}
			bars[sc.Name] = bs
		}
	case "synthetic":
		for i, sc := range cfg.Symbols {
			scfg := synth.DefaultConfig()
			scfg.Symbol = sc.Name
			scfg.Seed = int64(i + 1)
			if cfg.Data.Size > 0 {
				scfg.Bars = cfg.Data.Size
			}
			bs, err := synth.Generate(scfg)
			if err != nil {
				return nil, fmt.Errorf("generating %s: %w", sc.Name, err)
			}
			bars[sc.Name] = bs
		}
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}

	// The size cap keeps the most recent bars.
	if cfg.Data.Size > 0 {
		for symbol, bs := range bars {
			if len(bs) > cfg.Data.Size {
				bars[symbol] = bs[len(bs)-cfg.Data.Size:]
			}
		}
	}
	return bars, nil
}
