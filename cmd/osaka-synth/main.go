// Command osaka-synth generates a synthetic OHLC bar series and writes it to
// the Parquet bar store, where backtests can pick it up like real data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"osaka/internal/config"
	"osaka/internal/store"
	"osaka/internal/synth"
	"osaka/internal/util"
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "path to the YAML config")
	symbol := flag.String("symbol", "SYNTH", "symbol to store the series under")
	bars := flag.Int("bars", 1000, "number of bars to generate")
	steps := flag.Int("steps", 24, "sub-bar price points per bar")
	price := flag.Float64("price", 30000, "starting price")
	drift := flag.Float64("drift", 0, "per-step drift")
	vol := flag.Float64("vol", 0.004, "per-step volatility")
	seed := flag.Int64("seed", 1, "random seed")
	startStr := flag.String("start", "2023-01-01", "first bar date (YYYY-MM-DD)")
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

	series, err := synth.Generate(synth.Config{
		Symbol:      *symbol,
		Bars:        *bars,
		StepsPerBar: *steps,
		StartPrice:  *price,
		Drift:       *drift,
		Volatility:  *vol,
		Start:       start,
		Period:      24 * time.Hour,
		Seed:        *seed,
	})
	if err != nil {
		log.Fatalf("failed to generate series: %v", err)
	}

	ps := store.NewParquetStore(cfg.Storage.DataDir)
	if err := ps.WriteBars(context.Background(), series, cfg.Data.Period); err != nil {
		log.Fatalf("failed to write bars: %v", err)
	}

	last := series[len(series)-1]
	fmt.Printf("wrote %d bars for %s to %s (%s through %s, final close %.2f)\n",
		len(series), *symbol, cfg.Storage.DataDir,
		series[0].Timestamp.Format("2006-01-02"), last.Timestamp.Format("2006-01-02"), last.Close)
}

func defaultConfigPath() string {
	if p := os.Getenv("OSAKA_CONFIG"); p != "" {
		return p
	}
	return "config/osaka.yaml"
}
