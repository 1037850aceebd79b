package indicator

// SMA averages the last period prices. A window that is not filled yet
// falls back to the whole series, so early bars of a history still get
// a usable reading; an empty series yields 0.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}

	window := prices
	if len(prices) > period {
		window = prices[len(prices)-period:]
	}

	var sum float64
	for _, p := range window {
		sum += p
	}
	return sum / float64(len(window))
}
