package indicator

import "sort"

// neighbor window for local extrema detection
const levelWindow = 5

// SupportLevels finds up to 3 support levels from a series of lows.
// A support is a local minimum no higher than its 5 neighbors on each
// side. With fewer than 20 points the global minimum is the only level.
// Levels are returned in ascending order.
func SupportLevels(lows []float64) []float64 {
	if len(lows) == 0 {
		return nil
	}
	if len(lows) < 20 {
		min := lows[0]
		for _, v := range lows[1:] {
			if v < min {
				min = v
			}
		}
		return []float64{min}
	}

	var levels []float64
	for i := levelWindow; i < len(lows)-levelWindow; i++ {
		if isLocalMin(lows, i) {
			levels = append(levels, lows[i])
		}
	}
	sort.Float64s(levels)
	if len(levels) > 3 {
		levels = levels[:3]
	}
	return levels
}

// ResistanceLevels finds up to 3 resistance levels from a series of
// highs, mirroring SupportLevels. Levels are returned in descending
// order.
func ResistanceLevels(highs []float64) []float64 {
	if len(highs) == 0 {
		return nil
	}
	if len(highs) < 20 {
		max := highs[0]
		for _, v := range highs[1:] {
			if v > max {
				max = v
			}
		}
		return []float64{max}
	}

	var levels []float64
	for i := levelWindow; i < len(highs)-levelWindow; i++ {
		if isLocalMax(highs, i) {
			levels = append(levels, highs[i])
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels)))
	if len(levels) > 3 {
		levels = levels[:3]
	}
	return levels
}

func isLocalMin(vals []float64, i int) bool {
	for j := 1; j <= levelWindow; j++ {
		if vals[i] > vals[i-j] || vals[i] > vals[i+j] {
			return false
		}
	}
	return true
}

func isLocalMax(vals []float64, i int) bool {
	for j := 1; j <= levelWindow; j++ {
		if vals[i] < vals[i-j] || vals[i] < vals[i+j] {
			return false
		}
	}
	return true
}
