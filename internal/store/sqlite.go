package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"osaka/internal/domain"
	"osaka/internal/engine"
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	label         TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	initial_cash  REAL NOT NULL,
	final_wallet  REAL NOT NULL,
	sharpe        REAL NOT NULL,
	sortino       REAL NOT NULL,
	max_drawdown  REAL NOT NULL,
	trades        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	symbol     TEXT NOT NULL,
	t          INTEGER NOT NULL,
	side       TEXT NOT NULL,
	type       TEXT NOT NULL,
	price      REAL NOT NULL,
	quantity   REAL NOT NULL,
	status     TEXT NOT NULL,
	filled_t   INTEGER NOT NULL,
	fee        REAL NOT NULL,
	reason     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS series (
	run_id  INTEGER NOT NULL REFERENCES runs(id),
	metric  TEXT NOT NULL,
	symbol  TEXT NOT NULL,
	t       INTEGER NOT NULL,
	value   REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
CREATE INDEX IF NOT EXISTS idx_series_run ON series(run_id, metric, symbol);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the run summary, the full order history, and every history
// series in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec RunRecord, res *engine.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (label, created_at, initial_cash, final_wallet, sharpe, sortino, max_drawdown, trades)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Label, created.Format(time.RFC3339), rec.InitialCash, rec.FinalWallet,
		rec.Sharpe, rec.Sortino, rec.MaxDrawdown, rec.Trades)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	orderStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders (run_id, symbol, t, side, type, price, quantity, status, filled_t, fee, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer orderStmt.Close()
	for _, o := range res.Orders {
		if _, err := orderStmt.ExecContext(ctx,
			runID, o.Symbol, o.Timestamp, string(o.Side), string(o.Type),
			o.Price, o.Quantity, string(o.Status), o.FilledTimestamp, o.Fee, o.Reason); err != nil {
			return 0, fmt.Errorf("inserting order: %w", err)
		}
	}

	seriesStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO series (run_id, metric, symbol, t, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer seriesStmt.Close()

	insertSeries := func(metric, symbol string, values []float64) error {
		for t, v := range values {
			if _, err := seriesStmt.ExecContext(ctx, runID, metric, symbol, t, v); err != nil {
				return fmt.Errorf("inserting %s series: %w", metric, err)
			}
		}
		return nil
	}

	h := res.History
	if err := insertSeries("wallet_balance", "", h.WalletBalance); err != nil {
		return 0, err
	}
	if err := insertSeries("margin", "", h.Margin); err != nil {
		return 0, err
	}
	if err := insertSeries("global_leverage", "", h.GlobalLeverage); err != nil {
		return 0, err
	}
	perSymbol := map[string]map[string][]float64{
		"leverage":          h.Leverage,
		"reservation_price": h.ReservationPrice,
		"spread":            h.Spread,
		"realized_pnl":      h.RealizedPnL,
		"price":             h.Price,
	}
	for metric, bySymbol := range perSymbol {
		for symbol, values := range bySymbol {
			if err := insertSeries(metric, symbol, values); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns all stored run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, created_at, initial_cash, final_wallet, sharpe, sortino, max_drawdown, trades
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.Label, &created, &rec.InitialCash, &rec.FinalWallet,
			&rec.Sharpe, &rec.Sortino, &rec.MaxDrawdown, &rec.Trades); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			rec.CreatedAt = ts
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Orders returns the stored order history of a run in creation order.
func (s *SQLiteStore) Orders(ctx context.Context, runID int64) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, t, side, type, price, quantity, status, filled_t, fee, reason
		 FROM orders WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var side, otype, status string
		if err := rows.Scan(&o.Symbol, &o.Timestamp, &side, &otype,
			&o.Price, &o.Quantity, &status, &o.FilledTimestamp, &o.Fee, &o.Reason); err != nil {
			return nil, err
		}
		o.Side = domain.OrderSide(side)
		o.Type = domain.OrderType(otype)
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Series returns one stored series of a run, ordered by bar index. The
// symbol is empty for portfolio-level metrics.
func (s *SQLiteStore) Series(ctx context.Context, runID int64, metric, symbol string) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM series WHERE run_id = ? AND metric = ? AND symbol = ? ORDER BY t`,
		runID, metric, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
