package indicator

import "math"

// BollingerPosition locates the last price inside its Bollinger bands
// (period-SMA ± 2 population standard deviations) as a percentage:
// 0 at the lower band, 100 at the upper band. Returns 50 when there is
// not enough data or the bands are degenerate.
func BollingerPosition(prices []float64, period int) float64 {
	if len(prices) < period {
		return 50.0
	}

	window := prices[len(prices)-period:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)

	var variance float64
	for _, p := range window {
		variance += (p - mean) * (p - mean)
	}
	std := math.Sqrt(variance / float64(period))

	upper := mean + 2*std
	lower := mean - 2*std
	if upper == lower {
		return 50.0
	}

	last := prices[len(prices)-1]
	return (last - lower) / (upper - lower) * 100
}
