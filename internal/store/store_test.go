package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"osaka/internal/domain"
	"osaka/internal/engine"
)

func TestParquetStorePath(t *testing.T) {
	ps := NewParquetStore("/data")

	bp := ps.barPath("btcusdt", "1d", 2024)
	want := filepath.Join("/data", "BTCUSDT", "1d", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetStoreWriteReadBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{
			Symbol:    "BTCUSDT",
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:      42000, High: 42500, Low: 41800, Close: 42200,
			Volume: 1234.5, TradeCount: 88000, VWAP: 42150,
		},
		{
			Symbol:    "BTCUSDT",
			Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:      42200, High: 43000, Low: 42100, Close: 42900,
			Volume: 1500.25, TradeCount: 91000, VWAP: 42600,
		},
	}

	if err := ps.WriteBars(ctx, bars, "1d"); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "BTCUSDT", "1d", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 42200 {
		t.Errorf("first bar Close = %v, want 42200", got[0].Close)
	}
	if got[1].Volume != 1500.25 {
		t.Errorf("second bar Volume = %v, want 1500.25", got[1].Volume)
	}
}

func TestParquetStoreMergeBars(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	first := []domain.Bar{
		{Symbol: "ETHUSDT", Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open: 3400, High: 3450, Low: 3380, Close: 3420, Volume: 900},
	}
	if err := ps.WriteBars(ctx, first, "1d"); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Same symbol and year must merge, not overwrite.
	second := []domain.Bar{
		{Symbol: "ETHUSDT", Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Open: 3420, High: 3500, Low: 3410, Close: 3480, Volume: 1100},
	}
	if err := ps.WriteBars(ctx, second, "1d"); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := ps.ReadBars(ctx, "ETHUSDT", "1d", start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("merged bars not sorted by timestamp")
	}
}

func TestParquetStoreListSymbols(t *testing.T) {
	dir := t.TempDir()
	ps := NewParquetStore(dir)
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "BTCUSDT", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 42000, High: 42500, Low: 41800, Close: 42200},
		{Symbol: "ETHUSDT", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 3400, High: 3450, Low: 3380, Close: 3420},
	}
	if err := ps.WriteBars(ctx, bars, "1d"); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := ps.ListSymbols(ctx, "1d")
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Errorf("ListSymbols = %v, want [BTCUSDT ETHUSDT]", symbols)
	}

	// A period with no data yields nothing.
	other, err := ps.ListSymbols(ctx, "1h")
	if err != nil {
		t.Fatalf("ListSymbols (1h): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListSymbols(1h) = %v, want empty", other)
	}
}

func TestReadCSVBars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	csvData := "Unix,Date,Open,High,Low,Close,Volume\n" +
		"1700006400,2023-11-15,42000,42500,41800,42200,1234.5\n" +
		"1699920000,2023-11-14,41500,42100,41400,42000,1100\n" +
		"1699833600,2023-11-13,41000,41600,40900,41500,980\n"
	if err := os.WriteFile(path, []byte(csvData), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	// File is newest-first; revert puts it in chronological order.
	bars, err := ReadCSVBars(path, "BTCUSDT", 0, true)
	if err != nil {
		t.Fatalf("ReadCSVBars: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	if !bars[0].Timestamp.Before(bars[1].Timestamp) {
		t.Error("bars not chronological after revert")
	}
	if bars[0].Open != 41000 || bars[2].Close != 42200 {
		t.Errorf("unexpected bar values: first open %v, last close %v", bars[0].Open, bars[2].Close)
	}
	if bars[0].Volume != 980 {
		t.Errorf("volume = %v, want 980", bars[0].Volume)
	}

	// Row cap applies after reversal.
	capped, err := ReadCSVBars(path, "BTCUSDT", 2, true)
	if err != nil {
		t.Fatalf("ReadCSVBars (capped): %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("got %d bars with limit 2, want 2", len(capped))
	}
	if capped[0].Open != 41000 {
		t.Errorf("capped first open = %v, want 41000", capped[0].Open)
	}
}

func TestReadCSVBarsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("Unix,Open,High,Low\n1,2,3,4\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := ReadCSVBars(path, "BTCUSDT", 0, false); err == nil {
		t.Fatal("expected error for missing close column")
	}
}

func TestCheckAlignment(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 0, 1)

	aligned := map[string][]domain.Bar{
		"BTCUSDT": {{Timestamp: t0}, {Timestamp: t1}},
		"ETHUSDT": {{Timestamp: t0}, {Timestamp: t1}},
	}
	if err := CheckAlignment(aligned); err != nil {
		t.Errorf("CheckAlignment(aligned) = %v, want nil", err)
	}

	mismatched := map[string][]domain.Bar{
		"BTCUSDT": {{Timestamp: t0}, {Timestamp: t1}},
		"ETHUSDT": {{Timestamp: t0}},
	}
	if err := CheckAlignment(mismatched); err == nil {
		t.Error("CheckAlignment should fail on length mismatch")
	}

	skewed := map[string][]domain.Bar{
		"BTCUSDT": {{Timestamp: t0}, {Timestamp: t1}},
		"ETHUSDT": {{Timestamp: t0}, {Timestamp: t1.Add(time.Hour)}},
	}
	if err := CheckAlignment(skewed); err == nil {
		t.Error("CheckAlignment should fail on timestamp mismatch")
	}
}

func TestSQLiteStoreSaveAndListRuns(t *testing.T) {
	dir := t.TempDir()
	st, err := NewSQLiteStore(filepath.Join(dir, "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			t.Errorf("Close: %v", cerr)
		}
	}()
	ctx := context.Background()

	res := &engine.Result{
		WalletBalance: 100150,
		Orders: []*domain.Order{
			{Symbol: "BTCUSDT", Timestamp: 5, Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit,
				Price: 99, Quantity: 1, Status: domain.OrderStatusFilled, FilledTimestamp: 5, Fee: 0.0198},
			{Symbol: "BTCUSDT", Timestamp: 6, Side: domain.OrderSideSell, Type: domain.OrderTypeLimit,
				Price: 101, Quantity: 1, Status: domain.OrderStatusCancelled, FilledTimestamp: -1},
		},
		History: &engine.History{
			WalletBalance:    []float64{100000, 100150},
			Margin:           []float64{100000, 100150},
			GlobalLeverage:   []float64{0, 0.1},
			Leverage:         map[string][]float64{"BTCUSDT": {0, 0.1}},
			ReservationPrice: map[string][]float64{"BTCUSDT": {100, 100.5}},
			Spread:           map[string][]float64{"BTCUSDT": {0.2, 0.2}},
			RealizedPnL:      map[string][]float64{"BTCUSDT": {0, 150}},
			Price:            map[string][]float64{"BTCUSDT": {100, 100.2}},
		},
	}
	rec := RunRecord{
		Label:       "stoikov BTCUSDT 1d",
		InitialCash: 100000,
		FinalWallet: 100150,
		Sharpe:      1.2,
		MaxDrawdown: 0.05,
		Trades:      1,
	}

	runID, err := st.SaveRun(ctx, rec, res)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("SaveRun returned zero run ID")
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns returned %d runs, want 1", len(runs))
	}
	if runs[0].Label != "stoikov BTCUSDT 1d" || runs[0].FinalWallet != 100150 {
		t.Errorf("run = %+v, want saved label and final wallet", runs[0])
	}
	if runs[0].CreatedAt.IsZero() {
		t.Error("run created_at not set")
	}

	orders, err := st.Orders(ctx, runID)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Orders returned %d rows, want 2", len(orders))
	}
	if orders[0].Status != domain.OrderStatusFilled || orders[0].Fee != 0.0198 {
		t.Errorf("first order = %+v, want the filled buy with its fee", orders[0])
	}
	if orders[1].FilledTimestamp != -1 {
		t.Errorf("cancelled order filled_t = %d, want -1", orders[1].FilledTimestamp)
	}

	wallet, err := st.Series(ctx, runID, "wallet_balance", "")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(wallet) != 2 || wallet[1] != 100150 {
		t.Errorf("wallet series = %v, want [100000 100150]", wallet)
	}

	lev, err := st.Series(ctx, runID, "leverage", "BTCUSDT")
	if err != nil {
		t.Fatalf("Series (leverage): %v", err)
	}
	if len(lev) != 2 || lev[1] != 0.1 {
		t.Errorf("leverage series = %v, want [0 0.1]", lev)
	}
}
