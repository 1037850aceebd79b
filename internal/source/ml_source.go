package source

import (
	"context"
	"fmt"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
)

// MLSource is the deterministic heuristic model. It stands in for a
// trained model behind the same SignalSource interface, so swapping in
// a real one later only changes predict.
type MLSource struct{}

// NewML creates the heuristic ML source, weighted under the name "ml".
func NewML() *MLSource {
	return &MLSource{}
}

func (s *MLSource) Name() string {
	return "ml"
}

// Generate derives a feature vector from the snapshot and applies the
// prediction rule. It never fails and ignores ctx: the model is local.
func (s *MLSource) Generate(_ context.Context, snap *core.MarketSnapshot) core.ModelOpinion {
	features := extractFeatures(snap)
	signal, probability, confidence := predict(features)

	return core.ModelOpinion{
		Source: s.Name(),
		Analysis: core.Analysis{
			Signal:      signal,
			Probability: probability,
			Reasoning:   fmt.Sprintf("heuristic model v1.0 over %d features", len(features)),
		},
		Confidence: confidence / 100,
		ProducedAt: time.Now(),
	}
}

// extractFeatures builds the 10-dimension feature vector.
func extractFeatures(snap *core.MarketSnapshot) []float64 {
	sma50Dist := 0.0
	if snap.SMA50 != 0 {
		sma50Dist = (snap.CurrentPrice - snap.SMA50) / snap.SMA50
	}
	sma200Dist := 0.0
	if snap.SMA200 != 0 {
		sma200Dist = (snap.CurrentPrice - snap.SMA200) / snap.SMA200
	}

	return []float64{
		snap.CurrentPrice,
		snap.Change24h,
		snap.Volume24h,
		snap.RSI14,
		snap.BollingerPosition,
		snap.VolumeSMARatio,
		sma50Dist,
		sma200Dist,
		float64(len(snap.SupportLevels)),
		float64(len(snap.ResistanceLevels)),
	}
}

// predict applies the oversold/overbought rule to the feature vector.
func predict(features []float64) (core.Signal, float64, float64) {
	rsi := 50.0
	if len(features) > 3 {
		rsi = features[3]
	}
	change := 0.0
	if len(features) > 1 {
		change = features[1]
	}

	switch {
	case rsi < 30 && change < -2:
		return core.SignalBuy, 75, 70
	case rsi > 70 && change > 2:
		return core.SignalSell, 70, 65
	default:
		return core.SignalHold, 60, 50
	}
}
