package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"osaka/internal/domain"
)

// LoadCSVBars reads bars for one symbol from the conventional CSV layout
// <dataDir>/<SYMBOL>/<period>/data.csv. Files exported newest-first are
// flipped with revert; limit caps the number of rows kept (0 keeps all,
// applied after any reversal).
func LoadCSVBars(dataDir, symbol, period string, limit int, revert bool) ([]domain.Bar, error) {
	path := filepath.Join(dataDir, strings.ToUpper(symbol), period, "data.csv")
	return ReadCSVBars(path, symbol, limit, revert)
}

// ReadCSVBars parses a CSV bar file with a header containing at least the
// unix, open, high, low, and close columns (case-insensitive).
func ReadCSVBars(path, symbol string, limit int, revert bool) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bar data for %s: %w", symbol, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"unix", "open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%s: missing column %q (header %v)", path, required, header)
		}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for i, row := range rows {
		field := func(name string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col[name]]), 64)
			if err != nil {
				return 0, fmt.Errorf("%s row %d: parsing %s: %w", path, i+2, name, err)
			}
			return v, nil
		}

		unix, err := field("unix")
		if err != nil {
			return nil, err
		}
		b := domain.Bar{Symbol: symbol, Timestamp: time.Unix(int64(unix), 0).UTC()}
		if b.Open, err = field("open"); err != nil {
			return nil, err
		}
		if b.High, err = field("high"); err != nil {
			return nil, err
		}
		if b.Low, err = field("low"); err != nil {
			return nil, err
		}
		if b.Close, err = field("close"); err != nil {
			return nil, err
		}
		if vi, ok := col["volume"]; ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[vi]), 64); err == nil {
				b.Volume = v
			}
		}
		bars = append(bars, b)
	}

	if revert {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[:limit]
	}
	return bars, nil
}

// CheckAlignment verifies that every symbol carries the same number of bars
// with matching timestamps, which the simulation requires. Mismatches are
// configuration errors and fail fast.
func CheckAlignment(bars map[string][]domain.Bar) error {
	var refSymbol string
	var ref []domain.Bar
	for symbol, bs := range bars {
		if ref == nil {
			refSymbol, ref = symbol, bs
			continue
		}
		if len(bs) != len(ref) {
			return fmt.Errorf("symbol %s has %d bars, %s has %d", symbol, len(bs), refSymbol, len(ref))
		}
		for i := range bs {
			if !bs[i].Timestamp.Equal(ref[i].Timestamp) {
				return fmt.Errorf("timestamp mismatch at row %d: %s has %s, %s has %s",
					i, symbol, bs[i].Timestamp, refSymbol, ref[i].Timestamp)
			}
		}
	}
	return nil
}
