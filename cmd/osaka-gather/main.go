// Command osaka-gather fetches historical crypto bars from the Alpaca
// market-data API into the Parquet bar store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"osaka/internal/config"
	"osaka/internal/gather"
	"osaka/internal/store"
	"osaka/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	pairs := flag.String("pairs", "BTC/USD,ETH/USD", "comma-separated Alpaca crypto pairs")
	startStr := flag.String("start", "2021-01-01", "first day to fetch (YYYY-MM-DD)")
	endStr := flag.String("end", "", "last day to fetch (YYYY-MM-DD, default today)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", *startStr, err)
	}
	end := time.Now().UTC()
	if *endStr != "" {
		if end, err = time.Parse("2006-01-02", *endStr); err != nil {
			log.Fatalf("invalid end date %q: %v", *endStr, err)
		}
	}

	var symbols []string
	for _, p := range strings.Split(*pairs, ",") {
		if p = strings.TrimSpace(p); p != "" {
			symbols = append(symbols, p)
		}
	}

	g := gather.NewCryptoBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		store.NewParquetStore(cfg.Storage.DataDir),
		symbols,
		cfg.Data.Period,
		gather.DateRange{Start: start, End: end},
		logger,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := g.Run(ctx); err != nil {
		log.Fatalf("gather failed: %v", err)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("OSAKA_CONFIG"); p != "" {
		return p
	}
	return "config/osaka.yaml"
}
