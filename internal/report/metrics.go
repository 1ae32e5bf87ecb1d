// Package report computes performance metrics and summaries from finished
// simulation runs.
package report

import (
	"fmt"
	"math"
	"strings"

	"osaka/internal/domain"
)

// annualization assumes daily bars.
const tradingDaysPerYear = 252

// Returns converts a wallet balance series into per-bar simple returns.
// Bars where the preceding balance is zero (padding after an early stop)
// yield zero return.
func Returns(wallet []float64) []float64 {
	if len(wallet) < 2 {
		return nil
	}
	rets := make([]float64, 0, len(wallet)-1)
	for i := 1; i < len(wallet); i++ {
		if wallet[i-1] == 0 {
			rets = append(rets, 0)
			continue
		}
		rets = append(rets, wallet[i]/wallet[i-1]-1)
	}
	return rets
}

// SharpeRatio returns the annualized Sharpe ratio of a return series. A
// series shorter than two observations scores zero.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	perBar := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - perBar
	}
	mean, std := meanStd(excess)
	return math.Sqrt(tradingDaysPerYear) * mean / (std + 1e-10)
}

// SortinoRatio is the Sharpe variant that penalizes only downside deviation.
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	perBar := riskFreeRate / tradingDaysPerYear
	var sum float64
	var downsideSq float64
	for _, r := range returns {
		e := r - perBar
		sum += e
		if e < 0 {
			downsideSq += e * e
		}
	}
	mean := sum / float64(len(returns))
	downside := math.Sqrt(downsideSq / float64(len(returns)))
	return math.Sqrt(tradingDaysPerYear) * mean / (downside + 1e-10)
}

// MaxDrawdown returns the largest peak-to-trough decline of a balance
// series, as a fraction of the peak.
func MaxDrawdown(wallet []float64) float64 {
	var peak, maxDD float64
	for _, v := range wallet {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// FeeBreakdown aggregates trading costs over the filled orders of a run.
// Limit fills count as maker flow, market fills as taker flow.
type FeeBreakdown struct {
	MakerFees       float64
	TakerFees       float64
	TotalFees       float64
	TotalVolume     float64 // notional traded, in quote currency
	FeePerVolumeBps float64
	MakerFills      int
	TakerFills      int
}

// Fees computes the fee breakdown from an order history.
func Fees(orders []*domain.Order) FeeBreakdown {
	var fb FeeBreakdown
	for _, o := range orders {
		if o.Status != domain.OrderStatusFilled {
			continue
		}
		notional := math.Abs(o.Price * o.Quantity)
		fb.TotalVolume += notional
		fb.TotalFees += o.Fee
		if o.Type == domain.OrderTypeLimit {
			fb.MakerFees += o.Fee
			fb.MakerFills++
		} else {
			fb.TakerFees += o.Fee
			fb.TakerFills++
		}
	}
	if fb.TotalVolume > 0 {
		fb.FeePerVolumeBps = fb.TotalFees / fb.TotalVolume * 10000
	}
	return fb
}

// Summary collects the headline numbers of one run.
type Summary struct {
	InitialCash float64
	FinalWallet float64
	TotalReturn float64 // fraction, e.g. 0.12 for +12%
	Sharpe      float64
	Sortino     float64
	MaxDrawdown float64
	Fees        FeeBreakdown
}

// Summarize computes the summary for a run from its wallet series and order
// history. riskFreeRate is annualized.
func Summarize(initialCash float64, wallet []float64, orders []*domain.Order, riskFreeRate float64) Summary {
	rets := Returns(wallet)
	s := Summary{
		InitialCash: initialCash,
		Sharpe:      SharpeRatio(rets, riskFreeRate),
		Sortino:     SortinoRatio(rets, riskFreeRate),
		MaxDrawdown: MaxDrawdown(wallet),
		Fees:        Fees(orders),
	}
	// The last non-padded balance is the final wallet.
	for i := len(wallet) - 1; i >= 0; i-- {
		if wallet[i] != 0 {
			s.FinalWallet = wallet[i]
			break
		}
	}
	if initialCash > 0 {
		s.TotalReturn = s.FinalWallet/initialCash - 1
	}
	return s
}

// String renders the summary as a small fixed-width report.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "initial cash:   %14.2f\n", s.InitialCash)
	fmt.Fprintf(&b, "final wallet:   %14.2f\n", s.FinalWallet)
	fmt.Fprintf(&b, "total return:   %13.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(&b, "sharpe:         %14.3f\n", s.Sharpe)
	fmt.Fprintf(&b, "sortino:        %14.3f\n", s.Sortino)
	fmt.Fprintf(&b, "max drawdown:   %13.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(&b, "fees paid:      %14.2f (maker %.2f, taker %.2f)\n",
		s.Fees.TotalFees, s.Fees.MakerFees, s.Fees.TakerFees)
	fmt.Fprintf(&b, "volume traded:  %14.2f (%.2f bps in fees)\n",
		s.Fees.TotalVolume, s.Fees.FeePerVolumeBps)
	fmt.Fprintf(&b, "fills:          %8d maker, %d taker\n", s.Fees.MakerFills, s.Fees.TakerFills)
	return b.String()
}

func meanStd(xs []float64) (mean, std float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	// Sample standard deviation.
	std = math.Sqrt(sq / float64(len(xs)-1))
	return mean, std
}
