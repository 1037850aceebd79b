package backtest

import (
	"math"
	"sort"
)

const tradingDaysPerYear = 252

// ComputeMetrics derives the full performance report from an equity
// curve and its trades. riskFreeRate is annual.
func ComputeMetrics(initialCapital float64, curve []EquityPoint, trades []Trade, riskFreeRate float64) Metrics {
	if len(curve) == 0 {
		return Metrics{}
	}

	equity := make([]float64, len(curve))
	for i, p := range curve {
		equity[i] = p.Equity
	}

	returns := dailyReturns(initialCapital, equity)
	days := len(returns)

	totalReturn := equity[len(equity)-1]/initialCapital - 1

	var annualReturn float64
	if days > 0 {
		annualReturn = math.Pow(1+totalReturn, tradingDaysPerYear/float64(days)) - 1
	}

	var volatility float64
	if len(returns) > 1 {
		volatility = popStd(returns) * math.Sqrt(tradingDaysPerYear)
	}

	sharpe := sharpeRatio(returns, riskFreeRate)
	sortino := sortinoRatio(returns, annualReturn, volatility, riskFreeRate)

	maxDD, ddDuration := drawdown(equity)

	var calmar float64
	if maxDD > 0 {
		calmar = annualReturn / maxDD
	}

	var95 := percentile(returns, 5)
	cvar95 := tailMean(returns, var95)

	m := Metrics{
		TotalReturn:         totalReturn,
		AnnualReturn:        annualReturn,
		Volatility:          volatility,
		SharpeRatio:         sharpe,
		SortinoRatio:        sortino,
		CalmarRatio:         calmar,
		MaxDrawdown:         maxDD,
		MaxDrawdownDuration: ddDuration,
		ValueAtRisk95:       var95,
		ConditionalVaR95:    cvar95,
	}
	fillTradeMetrics(&m, trades)
	return m
}

// dailyReturns builds day-over-day returns; the first day is measured
// against the initial capital.
func dailyReturns(initialCapital float64, equity []float64) []float64 {
	returns := make([]float64, 0, len(equity))
	prev := initialCapital
	for _, e := range equity {
		if prev != 0 {
			returns = append(returns, e/prev-1)
		}
		prev = e
	}
	return returns
}

func sharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeRate/tradingDaysPerYear
	}

	std := popStd(excess)
	if std == 0 {
		return 0
	}
	return mean(excess) / std * math.Sqrt(tradingDaysPerYear)
}

// sortinoRatio penalizes only downside volatility. With no negative
// days the downside deviation falls back to the full volatility.
func sortinoRatio(returns []float64, annualReturn, volatility, riskFreeRate float64) float64 {
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}

	downside := volatility
	if len(negative) > 0 {
		downside = popStd(negative) * math.Sqrt(tradingDaysPerYear)
	}
	if downside <= 0 {
		return 0
	}
	return (annualReturn - riskFreeRate) / downside
}

// drawdown returns the largest peak-to-trough decline of the equity
// series and the longest stretch of days spent below a prior peak.
func drawdown(equity []float64) (maxDD float64, maxDuration int) {
	if len(equity) == 0 {
		return 0, 0
	}

	peak := equity[0]
	duration := 0
	for _, e := range equity {
		if e > peak {
			peak = e
			duration = 0
		} else {
			duration++
			if duration > maxDuration {
				maxDuration = duration
			}
		}
		if peak > 0 {
			if dd := (peak - e) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD, maxDuration
}

// percentile computes the p-th percentile with linear interpolation
// between closest ranks.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// tailMean averages the returns at or below the threshold.
func tailMean(returns []float64, threshold float64) float64 {
	var tail []float64
	for _, r := range returns {
		if r <= threshold {
			tail = append(tail, r)
		}
	}
	if len(tail) == 0 {
		return 0
	}
	return mean(tail)
}

func fillTradeMetrics(m *Metrics, trades []Trade) {
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return
	}

	var wins, losses []float64
	var confSum float64
	for _, t := range trades {
		confSum += t.Confidence
		if t.IsWin() {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, math.Abs(t.PnL))
		}
	}

	m.WinningTrades = len(wins)
	m.LosingTrades = len(losses)
	m.WinRate = float64(len(wins)) / float64(len(trades))
	m.AvgSignalConfidence = confSum / float64(len(trades))

	if len(wins) > 0 {
		m.AvgWin = mean(wins)
		m.LargestWin = maxOf(wins)
	}
	if len(losses) > 0 {
		m.AvgLoss = mean(losses)
		m.LargestLoss = maxOf(losses)
	}

	switch {
	case len(wins) == 0:
		m.ProfitFactor = 0
	case len(losses) == 0 || sum(losses) == 0:
		// wins with no losses: unbounded profit factor
		m.ProfitFactor = math.Inf(1)
	default:
		m.ProfitFactor = sum(wins) / sum(losses)
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// popStd is the population standard deviation.
func popStd(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	mu := mean(vals)
	var variance float64
	for _, v := range vals {
		variance += (v - mu) * (v - mu)
	}
	return math.Sqrt(variance / float64(len(vals)))
}
