package marketdata

import (
	"fmt"

	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/indicator"
)

const yearBars = 252 // trading days in a year

// BuildSnapshot derives a MarketSnapshot from a chronological window of
// daily bars. The window must end at the as-of date: every field is
// computed from the given bars only.
func BuildSnapshot(symbol string, bars []core.Bar) (*core.MarketSnapshot, error) {
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("no bars for %s", symbol))
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = float64(b.Volume)
	}

	last := bars[len(bars)-1]
	price := last.Close

	var change float64
	if len(closes) >= 2 && closes[len(closes)-2] != 0 {
		prev := closes[len(closes)-2]
		change = (price - prev) / prev * 100
	}

	yearHighs := tail(highs, yearBars)
	yearLows := tail(lows, yearBars)

	sma50 := indicator.SMA(closes, 50)
	sma200 := indicator.SMA(closes, 200)

	macd := core.MACDBearish
	if price > sma50 {
		macd = core.MACDBullish
	}

	volRatio := 1.0
	if sma20 := indicator.SMA(volumes, 20); sma20 > 0 {
		volRatio = float64(last.Volume) / sma20
	}

	return &core.MarketSnapshot{
		Symbol:            symbol,
		CurrentPrice:      price,
		Change24h:         change,
		Volume24h:         float64(last.Volume),
		High52W:           maxOf(yearHighs),
		Low52W:            minOf(yearLows),
		RSI14:             indicator.RSI(closes, 14),
		MACDSignal:        macd,
		BollingerPosition: indicator.BollingerPosition(closes, 20),
		VolumeSMARatio:    volRatio,
		SMA50:             sma50,
		SMA200:            sma200,
		SupportLevels:     indicator.SupportLevels(lows),
		ResistanceLevels:  indicator.ResistanceLevels(highs),
		AsOf:              last.Time,
	}, nil
}

// tail returns the last n values, or all of them when fewer exist.
func tail(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	min := vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
