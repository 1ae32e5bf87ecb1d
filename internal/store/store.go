// Package store persists and retrieves the backtester's data: OHLC bars in
// Parquet year files, CSV bar imports, and finished simulation runs (orders
// and all aligned series) in SQLite.
package store

import (
	"context"
	"time"

	"osaka/internal/domain"
	"osaka/internal/engine"
)

// BarStore persists and retrieves OHLC bar data per symbol and period.
type BarStore interface {
	// WriteBars persists a batch of bars under the given period (e.g. "1d").
	WriteBars(ctx context.Context, bars []domain.Bar, period string) error

	// ReadBars returns bars for the symbol and period within [start, end],
	// sorted by timestamp.
	ReadBars(ctx context.Context, symbol, period string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all symbols with data for the given period.
	ListSymbols(ctx context.Context, period string) ([]string, error)
}

// RunRecord summarizes one persisted simulation run.
type RunRecord struct {
	ID          int64
	Label       string
	CreatedAt   time.Time
	InitialCash float64
	FinalWallet float64
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64
	Trades      int
}

// ResultStore persists finished simulation runs.
type ResultStore interface {
	// SaveRun stores the run summary, its full order history, and every
	// history series in one transaction, returning the new run ID.
	SaveRun(ctx context.Context, rec RunRecord, res *engine.Result) (int64, error)

	// ListRuns returns all stored run summaries, newest first.
	ListRuns(ctx context.Context) ([]RunRecord, error)

	Close() error
}
