package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"osaka/internal/domain"
	"osaka/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*CryptoBarGatherer)(nil)

// BarWriter is the subset of the bar store a gatherer needs.
type BarWriter interface {
	WriteBars(ctx context.Context, bars []domain.Bar, period string) error
}

// CryptoBarGatherer fetches daily crypto OHLCV bars from the Alpaca
// market-data API and writes them to the Parquet store. Crypto data needs no
// API key for historical bars, but credentials raise the rate limits.
type CryptoBarGatherer struct {
	client  *marketdata.Client
	store   BarWriter
	symbols []string // Alpaca pair notation, e.g. "BTC/USD"
	period  string
	rng     DateRange
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewCryptoBarGatherer creates a CryptoBarGatherer for the given symbols and
// date range. period names the target store partition, e.g. "1d".
func NewCryptoBarGatherer(apiKey, apiSecret, dataURL string, s BarWriter, symbols []string, period string, rng DateRange, log *slog.Logger) *CryptoBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if log == nil {
		log = slog.Default()
	}

	return &CryptoBarGatherer{
		client:  marketdata.NewClient(opts),
		store:   s,
		symbols: symbols,
		period:  period,
		rng:     rng,
		limiter: util.NewRateLimiter(200), // unauthenticated API limit
		log:     log.With("gatherer", "crypto-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *CryptoBarGatherer) Name() string { return "crypto-daily" }

// Run fetches daily bars for every configured pair and writes them to the
// store. Fetches are retried with backoff; a pair that still fails after
// retries fails the whole run.
func (g *CryptoBarGatherer) Run(ctx context.Context) error {
	if len(g.symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	runStart := time.Now()
	g.log.Info("starting crypto-daily",
		"symbols", len(g.symbols),
		"start", g.rng.Start.Format("2006-01-02"),
		"end", g.rng.End.Format("2006-01-02"),
	)

	var total int
	for _, pair := range g.symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var cryptoBars []marketdata.CryptoBar
		err := util.Retry(ctx, 5, 2*time.Second, func() error {
			var ferr error
			cryptoBars, ferr = g.client.GetCryptoBars(pair, marketdata.GetCryptoBarsRequest{
				TimeFrame: marketdata.OneDay,
				Start:     g.rng.Start,
				End:       g.rng.End,
			})
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching bars for %s: %w", pair, err)
		}

		symbol := storeSymbol(pair)
		bars := make([]domain.Bar, 0, len(cryptoBars))
		for _, cb := range cryptoBars {
			bars = append(bars, domain.Bar{
				Symbol:     symbol,
				Timestamp:  cb.Timestamp,
				Open:       cb.Open,
				High:       cb.High,
				Low:        cb.Low,
				Close:      cb.Close,
				Volume:     cb.Volume,
				TradeCount: int64(cb.TradeCount),
				VWAP:       cb.VWAP,
			})
		}
		if len(bars) == 0 {
			g.log.Warn("no bars returned", "pair", pair)
			continue
		}
		if err := g.store.WriteBars(ctx, bars, g.period); err != nil {
			return fmt.Errorf("writing bars for %s: %w", pair, err)
		}
		total += len(bars)
		g.log.Info("pair done", "pair", pair, "bars", len(bars))
	}

	g.log.Info("complete", "bars", total, "elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// storeSymbol flattens Alpaca pair notation ("BTC/USD") into the store's
// symbol form ("BTCUSD").
func storeSymbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}
