package ensemble

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/source"
)

// stubSource returns a fixed opinion, optionally after a delay.
type stubSource struct {
	name  string
	op    core.ModelOpinion
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Generate(ctx context.Context, _ *core.MarketSnapshot) core.ModelOpinion {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return core.ErrorOpinion(s.name, ctx.Err().Error())
		}
	}
	op := s.op
	op.Source = s.name
	return op
}

func opinion(sig core.Signal, conf float64) core.ModelOpinion {
	return core.ModelOpinion{
		Analysis:   core.Analysis{Signal: sig},
		Confidence: conf,
		ProducedAt: time.Now(),
	}
}

func failedOpinion() core.ModelOpinion {
	return core.ModelOpinion{
		Analysis:   core.Analysis{Signal: core.SignalHold, Err: "boom"},
		Confidence: 0,
	}
}

func defaultWeights() map[string]float64 {
	return map[string]float64{"gpt4": 0.40, "claude": 0.35, "ml": 0.25}
}

func testSnap() *core.MarketSnapshot {
	return &core.MarketSnapshot{
		Symbol:         "AAPL",
		CurrentPrice:   100,
		RSI14:          50,
		SMA200:         95,
		VolumeSMARatio: 1.0,
	}
}

func newTestCoordinator(t *testing.T, sources ...source.SignalSource) *Coordinator {
	t.Helper()
	c, err := New(Config{Weights: defaultWeights(), SourceTimeout: time.Second}, sources, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresSources(t *testing.T) {
	_, err := New(Config{Weights: defaultWeights()}, nil, nil, nil, nil, nil)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestNew_RejectsZeroTotalWeight(t *testing.T) {
	srcs := []source.SignalSource{&stubSource{name: "gpt4", op: opinion(core.SignalBuy, 0.8)}}
	_, err := New(Config{Weights: map[string]float64{"gpt4": 0}}, srcs, nil, nil, nil, nil)
	if !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestFuseSnapshot_WeightedConfidence(t *testing.T) {
	c := newTestCoordinator(t,
		&stubSource{name: "gpt4", op: opinion(core.SignalBuy, 0.8)},
		&stubSource{name: "claude", op: opinion(core.SignalBuy, 0.7)},
		&stubSource{name: "ml", op: opinion(core.SignalHold, 0.5)},
	)

	sig, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.8*0.40 + 0.7*0.35 + 0.5*0.25 = 0.69
	if math.Abs(sig.Confidence-0.69) > 1e-9 {
		t.Errorf("confidence = %f, want 0.69", sig.Confidence)
	}
	if sig.Band != core.BandMedium {
		t.Errorf("band = %s, want MEDIUM", sig.Band)
	}
	if sig.Signal != core.SignalBuy {
		t.Errorf("signal = %s, want BUY", sig.Signal)
	}
	if sig.ID == "" {
		t.Error("signal should carry an ID")
	}
	if got := sig.ExpiresAt.Sub(sig.CreatedAt); got != 24*time.Hour {
		t.Errorf("validity window = %v, want 24h", got)
	}
}

func TestFuseSnapshot_TieBreakOrder(t *testing.T) {
	equal := map[string]float64{"a": 0.5, "b": 0.5}

	tests := []struct {
		name string
		sigA core.Signal
		sigB core.Signal
		want core.Signal
	}{
		{"buy beats sell", core.SignalBuy, core.SignalSell, core.SignalBuy},
		{"buy beats hold", core.SignalHold, core.SignalBuy, core.SignalBuy},
		{"sell beats hold", core.SignalSell, core.SignalHold, core.SignalSell},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{Weights: equal, SourceTimeout: time.Second}, []source.SignalSource{
				&stubSource{name: "a", op: opinion(tt.sigA, 0.7)},
				&stubSource{name: "b", op: opinion(tt.sigB, 0.7)},
			}, nil, nil, nil, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			sig, err := c.FuseSnapshot(context.Background(), testSnap())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sig.Signal != tt.want {
				t.Errorf("signal = %s, want %s", sig.Signal, tt.want)
			}
		})
	}
}

func TestFuseSnapshot_AllSourcesFailed(t *testing.T) {
	c := newTestCoordinator(t,
		&stubSource{name: "gpt4", op: failedOpinion()},
		&stubSource{name: "claude", op: failedOpinion()},
	)

	_, err := c.FuseSnapshot(context.Background(), testSnap())
	if !errors.Is(err, core.ErrAllSourcesFailed) {
		t.Errorf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestFuseSnapshot_FailedSourceExcludedFromFusion(t *testing.T) {
	c := newTestCoordinator(t,
		&stubSource{name: "gpt4", op: opinion(core.SignalSell, 0.9)},
		&stubSource{name: "claude", op: failedOpinion()},
	)

	sig, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Signal != core.SignalSell {
		t.Errorf("signal = %s, want SELL", sig.Signal)
	}
	// only gpt4 contributes: 0.9*0.40/0.40 = 0.9
	if math.Abs(sig.Confidence-0.9) > 1e-9 {
		t.Errorf("confidence = %f, want 0.9", sig.Confidence)
	}
	// failed opinion is still reported for transparency
	if len(sig.Opinions) != 2 {
		t.Errorf("opinions = %d, want 2", len(sig.Opinions))
	}
}

func TestFuseSnapshot_UnknownSourceFallbackWeight(t *testing.T) {
	c := newTestCoordinator(t,
		&stubSource{name: "mystery", op: opinion(core.SignalBuy, 0.8)},
		&stubSource{name: "enigma", op: opinion(core.SignalBuy, 0.6)},
	)

	sig, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// both get weight 1/2: (0.8*0.5 + 0.6*0.5) / 1.0 = 0.7
	if math.Abs(sig.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %f, want 0.7", sig.Confidence)
	}
}

func TestFuseSnapshot_SourceTimeout(t *testing.T) {
	c, err := New(Config{Weights: defaultWeights(), SourceTimeout: 20 * time.Millisecond},
		[]source.SignalSource{
			&stubSource{name: "gpt4", op: opinion(core.SignalBuy, 0.9), delay: time.Second},
			&stubSource{name: "ml", op: opinion(core.SignalHold, 0.5)},
		}, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sig, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// slow source timed out, only ml contributes
	if sig.Signal != core.SignalHold {
		t.Errorf("signal = %s, want HOLD", sig.Signal)
	}
	if math.Abs(sig.Confidence-0.5) > 1e-9 {
		t.Errorf("confidence = %f, want 0.5", sig.Confidence)
	}
}

func TestFuseSnapshot_Deterministic(t *testing.T) {
	c := newTestCoordinator(t,
		&stubSource{name: "gpt4", op: opinion(core.SignalBuy, 0.8)},
		&stubSource{name: "claude", op: opinion(core.SignalSell, 0.7)},
		&stubSource{name: "ml", op: opinion(core.SignalHold, 0.5)},
	)

	a, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Signal != b.Signal || a.Confidence != b.Confidence || a.Band != b.Band {
		t.Errorf("fusion not deterministic: %s/%f vs %s/%f", a.Signal, a.Confidence, b.Signal, b.Confidence)
	}
}

func TestFuseSnapshot_TargetAveraging(t *testing.T) {
	t1, s1 := 120.0, 95.0
	t2 := 110.0

	op1 := opinion(core.SignalBuy, 0.8)
	op1.Analysis.TargetPrice = &t1
	op1.Analysis.StopLoss = &s1
	op2 := opinion(core.SignalBuy, 0.7)
	op2.Analysis.TargetPrice = &t2

	c := newTestCoordinator(t,
		&stubSource{name: "gpt4", op: op1},
		&stubSource{name: "claude", op: op2},
	)

	sig, err := c.FuseSnapshot(context.Background(), testSnap())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.TargetPrice == nil || math.Abs(*sig.TargetPrice-115.0) > 1e-9 {
		t.Errorf("target = %v, want 115", sig.TargetPrice)
	}
	if sig.StopLoss == nil || *sig.StopLoss != 95.0 {
		t.Errorf("stop = %v, want 95", sig.StopLoss)
	}
}

func TestMarketSentiment(t *testing.T) {
	tests := []struct {
		name string
		snap core.MarketSnapshot
		want core.MarketSentiment
	}{
		{
			// rsi>70 (+2), above sma200 (+1), high volume (+1) = 4
			"extremely bullish",
			core.MarketSnapshot{RSI14: 75, CurrentPrice: 100, SMA200: 90, VolumeSMARatio: 2.0},
			core.SentimentExtremelyBullish,
		},
		{
			// rsi>60 (+1), below sma200 (-1) = 0
			"neutral",
			core.MarketSnapshot{RSI14: 65, CurrentPrice: 80, SMA200: 90, VolumeSMARatio: 1.0},
			core.SentimentNeutral,
		},
		{
			// rsi<30 (-2), below sma200 (-1) = -3
			"extremely bearish",
			core.MarketSnapshot{RSI14: 25, CurrentPrice: 80, SMA200: 90, VolumeSMARatio: 1.0},
			core.SentimentExtremelyBearish,
		},
		{
			// rsi<40 (-1), above sma200 (+1), normal volume = 0 -> neutral;
			// drop below sma200 instead: -2 -> bearish
			"bearish",
			core.MarketSnapshot{RSI14: 35, CurrentPrice: 85, SMA200: 90, VolumeSMARatio: 1.0},
			core.SentimentBearish,
		},
		{
			// above sma200 (+1) = 1
			"bullish",
			core.MarketSnapshot{RSI14: 50, CurrentPrice: 100, SMA200: 90, VolumeSMARatio: 1.0},
			core.SentimentBullish,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := marketSentiment(&tt.snap); got != tt.want {
				t.Errorf("sentiment = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAssessRisk(t *testing.T) {
	calm := core.MarketSnapshot{Change24h: 1, VolumeSMARatio: 1.0}
	wild := core.MarketSnapshot{Change24h: 8, VolumeSMARatio: 0.3}

	tests := []struct {
		name string
		conf float64
		snap core.MarketSnapshot
		want core.RiskLevel
	}{
		{"high confidence calm market", 0.9, calm, core.RiskLow},
		{"mid confidence calm market", 0.7, calm, core.RiskMedium},
		{"low confidence calm market", 0.5, calm, core.RiskMedium},
		{"low confidence wild market", 0.5, wild, core.RiskHigh},
		{"high confidence wild market", 0.9, wild, core.RiskMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assessRisk(tt.conf, &tt.snap); got != tt.want {
				t.Errorf("risk = %s, want %s", got, tt.want)
			}
		})
	}
}
