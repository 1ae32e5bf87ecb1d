// Package search runs parameter sweeps over strategy and risk parameters,
// scoring each candidate by its backtest performance.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"osaka/internal/report"
	"osaka/internal/risk"
	"osaka/internal/strategy"
)

// Candidate is one parameter combination to evaluate.
type Candidate struct {
	Strategy strategy.Params
	Risk     risk.Parameters
}

// Result pairs a candidate with its backtest outcome. Err is set when the
// run failed; failed candidates score negative infinity.
type Result struct {
	Candidate Candidate
	Summary   report.Summary
	Score     float64
	Err       error
}

// Runner executes one backtest for a candidate and summarizes it. Callers
// close over the market data and strategy constructor; every invocation must
// build a fresh simulation since runs are stateful.
type Runner func(ctx context.Context, c Candidate) (report.Summary, error)

// Score ranks a run: risk-adjusted return discounted by the worst drawdown.
func Score(s report.Summary) float64 {
	return s.Sharpe * (1 - s.MaxDrawdown)
}

// Grid builds the candidate set for a strategy: its tunables swept over two
// decades around the base values, crossed with a linear sweep of the risk
// limits. Unknown strategy names sweep only the risk parameters.
func Grid(strategyName string, base strategy.Params, baseRisk risk.Parameters) []Candidate {
	var variants []strategy.Params

	switch strategyName {
	case "stoikov":
		// RiskAversion and GammaSpread interact, so cross them.
		for _, ra := range logSpace(base.RiskAversion, 5) {
			for _, gs := range logSpace(base.GammaSpread, 5) {
				p := base
				p.RiskAversion = ra
				p.GammaSpread = gs
				variants = append(variants, p)
			}
		}
	case "mexico":
		// Seven tunables: a full cross is intractable, sweep one at a time.
		variants = append(variants, base)
		sweep := func(apply func(*strategy.Params, float64), baseValue float64) {
			for _, v := range logSpace(baseValue, 5) {
				if v == baseValue {
					continue
				}
				p := base
				apply(&p, v)
				variants = append(variants, p)
			}
		}
		sweep(func(p *strategy.Params, v float64) { p.QFactor = v }, base.QFactor)
		sweep(func(p *strategy.Params, v float64) { p.UPnLFactor = v }, base.UPnLFactor)
		sweep(func(p *strategy.Params, v float64) { p.MeanRevertFactor = v }, base.MeanRevertFactor)
		sweep(func(p *strategy.Params, v float64) { p.MomentumFactor = v }, base.MomentumFactor)
		sweep(func(p *strategy.Params, v float64) { p.ConstantSpread = v }, base.ConstantSpread)
		sweep(func(p *strategy.Params, v float64) { p.VolatilityFactor = v }, base.VolatilityFactor)
		sweep(func(p *strategy.Params, v float64) { p.SpreadMomentumFactor = v }, base.SpreadMomentumFactor)
	default:
		variants = append(variants, base)
	}

	var candidates []Candidate
	for _, lev := range linSpace(baseRisk.MaxLeverage*0.5, baseRisk.MaxLeverage*1.5, 3) {
		for _, aggr := range linSpace(baseRisk.Aggressivity*0.5, baseRisk.Aggressivity*1.5, 3) {
			r := baseRisk
			r.MaxLeverage = lev
			r.Aggressivity = aggr
			for _, p := range variants {
				candidates = append(candidates, Candidate{Strategy: p, Risk: r})
			}
		}
	}
	return candidates
}

// Run evaluates every candidate with up to maxWorkers concurrent backtests
// and returns the results sorted best-first. Candidates whose run failed
// sort last.
func Run(ctx context.Context, candidates []Candidate, runner Runner, maxWorkers int, log *slog.Logger) []Result {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "search")

	results := make([]Result, len(candidates))

	jobCh := make(chan int, len(candidates))
	for i := range candidates {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	runStart := time.Now()

	workers := maxWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				if ctx.Err() != nil {
					results[i] = Result{Candidate: candidates[i], Score: math.Inf(-1), Err: ctx.Err()}
					continue
				}
				summary, err := runner(ctx, candidates[i])
				if err != nil {
					log.Error("candidate failed", "candidate", i, "err", err)
					results[i] = Result{Candidate: candidates[i], Score: math.Inf(-1), Err: err}
					continue
				}
				results[i] = Result{Candidate: candidates[i], Summary: summary, Score: Score(summary)}
			}
		}()
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > 0 {
		best := results[0]
		log.Info("search complete",
			"candidates", len(candidates),
			"best_score", fmt.Sprintf("%.4f", best.Score),
			"best_sharpe", fmt.Sprintf("%.4f", best.Summary.Sharpe),
			"elapsed", time.Since(runStart).Round(time.Second),
		)
	}
	return results
}

// logSpace returns n values spanning [base/10, base*10] geometrically,
// centered on base. n must be odd for base itself to appear.
func logSpace(base float64, n int) []float64 {
	if base == 0 || n < 2 {
		return []float64{base}
	}
	out := make([]float64, n)
	for i := range out {
		exp := -1 + 2*float64(i)/float64(n-1)
		out[i] = base * math.Pow(10, exp)
	}
	if n%2 == 1 {
		out[n/2] = base // avoid float drift at the center
	}
	return out
}

// linSpace returns n evenly spaced values over [lo, hi].
func linSpace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
