package report

import (
	"math"
	"strings"
	"testing"

	"osaka/internal/domain"
)

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	want := []float64{0.1, -0.1}
	if len(got) != len(want) {
		t.Fatalf("got %d returns, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("return[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := Returns([]float64{100}); got != nil {
		t.Errorf("single-point series returns = %v, want nil", got)
	}

	// Zero padding after an early stop contributes zero returns.
	padded := Returns([]float64{100, 0, 0})
	if padded[1] != 0 {
		t.Errorf("padded return = %v, want 0", padded[1])
	}
}

func TestSharpeRatio(t *testing.T) {
	if got := SharpeRatio([]float64{0.01}, 0); got != 0 {
		t.Errorf("short series sharpe = %v, want 0", got)
	}

	// Constant positive returns: mean 0.01, sample std 0, sharpe bounded by
	// the epsilon in the denominator but strongly positive.
	if got := SharpeRatio([]float64{0.01, 0.01, 0.01}, 0); got <= 0 {
		t.Errorf("constant-gain sharpe = %v, want positive", got)
	}

	// Alternating returns: mean 0, sharpe 0.
	if got := SharpeRatio([]float64{0.01, -0.01, 0.01, -0.01}, 0); math.Abs(got) > 1e-6 {
		t.Errorf("zero-mean sharpe = %v, want ~0", got)
	}

	// A risk-free rate above the returns drives the ratio negative.
	if got := SharpeRatio([]float64{0.0001, 0.0001, 0.0001}, 0.50); got >= 0 {
		t.Errorf("sharpe with dominating risk-free rate = %v, want negative", got)
	}
}

func TestSortinoRatio(t *testing.T) {
	// All-positive returns have no downside, so sortino far exceeds sharpe.
	rets := []float64{0.01, 0.02, 0.01, 0.03}
	sortino := SortinoRatio(rets, 0)
	sharpe := SharpeRatio(rets, 0)
	if sortino <= sharpe {
		t.Errorf("sortino %v should exceed sharpe %v without downside", sortino, sharpe)
	}

	if got := SortinoRatio([]float64{-0.01, -0.02}, 0); got >= 0 {
		t.Errorf("all-loss sortino = %v, want negative", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	for _, tc := range []struct {
		name   string
		wallet []float64
		want   float64
	}{
		{"monotonic gain", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 0.25},
		{"later deeper dip", []float64{100, 80, 120, 60}, 0.5},
		{"empty", nil, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaxDrawdown(tc.wallet); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("MaxDrawdown = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFees(t *testing.T) {
	orders := []*domain.Order{
		{Type: domain.OrderTypeLimit, Status: domain.OrderStatusFilled, Price: 100, Quantity: 2, Fee: 0.04},
		{Type: domain.OrderTypeMarket, Status: domain.OrderStatusFilled, Price: 100, Quantity: -1, Fee: 0.06},
		{Type: domain.OrderTypeLimit, Status: domain.OrderStatusCancelled, Price: 100, Quantity: 5, Fee: 0},
	}
	fb := Fees(orders)

	if fb.MakerFees != 0.04 || fb.TakerFees != 0.06 {
		t.Errorf("maker/taker fees = %v/%v, want 0.04/0.06", fb.MakerFees, fb.TakerFees)
	}
	if math.Abs(fb.TotalFees-0.10) > 1e-12 {
		t.Errorf("total fees = %v, want 0.10", fb.TotalFees)
	}
	if fb.TotalVolume != 300 {
		t.Errorf("volume = %v, want 300 (cancelled order excluded)", fb.TotalVolume)
	}
	wantBps := 0.10 / 300 * 10000
	if math.Abs(fb.FeePerVolumeBps-wantBps) > 1e-9 {
		t.Errorf("fee bps = %v, want %v", fb.FeePerVolumeBps, wantBps)
	}
	if fb.MakerFills != 1 || fb.TakerFills != 1 {
		t.Errorf("fills = %d maker / %d taker, want 1/1", fb.MakerFills, fb.TakerFills)
	}
}

func TestSummarize(t *testing.T) {
	wallet := []float64{100000, 100500, 101000, 0, 0} // early stop padding
	s := Summarize(100000, wallet, nil, 0)

	if s.FinalWallet != 101000 {
		t.Errorf("final wallet = %v, want last non-padded 101000", s.FinalWallet)
	}
	if math.Abs(s.TotalReturn-0.01) > 1e-12 {
		t.Errorf("total return = %v, want 0.01", s.TotalReturn)
	}
	if s.MaxDrawdown != 1 {
		// The zero padding counts as a full drawdown; callers summarizing
		// stopped runs see that reflected honestly.
		t.Errorf("max drawdown = %v, want 1 with zero padding", s.MaxDrawdown)
	}

	out := s.String()
	for _, want := range []string{"final wallet", "sharpe", "max drawdown"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}
