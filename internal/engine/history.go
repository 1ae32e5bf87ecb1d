package engine

// History holds every tracked time series of a run. All series are aligned:
// after a run each has exactly one entry per input bar, padded out if the run
// stopped early. Per-symbol maps are keyed by symbol.
type History struct {
	WalletBalance  []float64
	Margin         []float64
	GlobalLeverage []float64

	Leverage         map[string][]float64
	ReservationPrice map[string][]float64
	Spread           map[string][]float64
	RealizedPnL      map[string][]float64
	Price            map[string][]float64
}

func newHistory(symbols []string, n int) *History {
	h := &History{
		WalletBalance:    make([]float64, 0, n),
		Margin:           make([]float64, 0, n),
		GlobalLeverage:   make([]float64, 0, n),
		Leverage:         make(map[string][]float64, len(symbols)),
		ReservationPrice: make(map[string][]float64, len(symbols)),
		Spread:           make(map[string][]float64, len(symbols)),
		RealizedPnL:      make(map[string][]float64, len(symbols)),
		Price:            make(map[string][]float64, len(symbols)),
	}
	for _, s := range symbols {
		h.Leverage[s] = make([]float64, 0, n)
		h.ReservationPrice[s] = make([]float64, 0, n)
		h.Spread[s] = make([]float64, 0, n)
		h.RealizedPnL[s] = make([]float64, 0, n)
	}
	return h
}

// padRemaining fills every series (except Price, which always holds the full
// input series) up to total entries: zeros everywhere, realized PnL carries
// its last known value forward.
func (h *History) padRemaining(symbols []string, total int) {
	h.WalletBalance = padZeros(h.WalletBalance, total)
	h.Margin = padZeros(h.Margin, total)
	h.GlobalLeverage = padZeros(h.GlobalLeverage, total)
	for _, s := range symbols {
		h.Leverage[s] = padZeros(h.Leverage[s], total)
		h.ReservationPrice[s] = padZeros(h.ReservationPrice[s], total)
		h.Spread[s] = padZeros(h.Spread[s], total)
		h.RealizedPnL[s] = padLast(h.RealizedPnL[s], total)
	}
}

func padZeros(series []float64, total int) []float64 {
	for len(series) < total {
		series = append(series, 0)
	}
	return series
}

func padLast(series []float64, total int) []float64 {
	last := 0.0
	if len(series) > 0 {
		last = series[len(series)-1]
	}
	for len(series) < total {
		series = append(series, last)
	}
	return series
}
