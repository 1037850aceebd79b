// Package ensemble fuses opinions from heterogeneous signal sources
// into a single weighted trading signal per symbol.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/marketdata"
	"github.com/treumlabs/signalforge/internal/metrics"
	"github.com/treumlabs/signalforge/internal/source"
)

// signalValidity is how long a fused signal stays actionable.
const signalValidity = 24 * time.Hour

// tieBreakOrder resolves equal vote weights: the earlier signal wins.
var tieBreakOrder = []core.Signal{core.SignalBuy, core.SignalSell, core.SignalHold}

// Config holds coordinator settings.
type Config struct {
	Weights       map[string]float64 // vote weight per source name
	SourceTimeout time.Duration      // per-source generation budget
	MaxConcurrent int                // symbol fan-out bound for batches
}

// Coordinator owns the sources and runs coordination rounds. It holds
// no global state: two coordinators with the same inputs behave the
// same.
type Coordinator struct {
	cfg      Config
	sources  []source.SignalSource
	snapshot marketdata.SnapshotSource // optional, live mode only
	cache    *marketdata.Cache         // optional, nil disables caching
	registry *metrics.Registry         // optional
	logger   *zap.Logger
}

// New creates a coordinator. snapshot and cache may be nil when the
// caller always supplies snapshots directly (replay mode); registry
// may be nil when metrics are off.
func New(cfg Config, sources []source.SignalSource, snapshot marketdata.SnapshotSource, cache *marketdata.Cache, registry *metrics.Registry, logger *zap.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(sources) == 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("at least one signal source required"))
	}

	var total float64
	for _, w := range cfg.Weights {
		if w < 0 {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("negative source weight"))
		}
		total += w
	}
	if len(cfg.Weights) > 0 && total <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("total source weight must be positive"))
	}

	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	return &Coordinator{
		cfg:      cfg,
		sources:  sources,
		snapshot: snapshot,
		cache:    cache,
		registry: registry,
		logger:   logger,
	}, nil
}

// Generate runs one live coordination round for a symbol: snapshot
// (cache first), then fusion.
func (c *Coordinator) Generate(ctx context.Context, symbol string) (*core.EnsembleSignal, error) {
	snap, err := c.fetchSnapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return c.FuseSnapshot(ctx, snap)
}

func (c *Coordinator) fetchSnapshot(ctx context.Context, symbol string) (*core.MarketSnapshot, error) {
	if c.cache != nil {
		if snap, ok := c.cache.Get(symbol); ok {
			if c.registry != nil {
				c.registry.RecordCacheLookup(true)
			}
			return snap, nil
		}
		if c.registry != nil {
			c.registry.RecordCacheLookup(false)
		}
	}

	if c.snapshot == nil {
		return nil, core.WrapError(core.ErrMarketData, fmt.Errorf("no snapshot source configured"))
	}

	snap, err := c.snapshot.Snapshot(ctx, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrMarketData, err)
	}
	if c.cache != nil {
		c.cache.Put(symbol, snap)
	}
	return snap, nil
}

// FuseSnapshot fans the snapshot out to every source and fuses the
// opinions. The replay engine calls this directly with point-in-time
// snapshots.
func (c *Coordinator) FuseSnapshot(ctx context.Context, snap *core.MarketSnapshot) (*core.EnsembleSignal, error) {
	start := time.Now()

	opinions := c.collect(ctx, snap)
	sig, err := c.fuse(snap, opinions)
	if err != nil {
		return nil, err
	}

	if c.registry != nil {
		c.registry.RecordFusedSignal(string(sig.Signal), string(sig.Band), time.Since(start).Seconds())
	}
	c.logger.Info("signal fused",
		zap.String("symbol", snap.Symbol),
		zap.String("signal", string(sig.Signal)),
		zap.Float64("confidence", sig.Confidence),
		zap.String("band", string(sig.Band)))

	return sig, nil
}

// collect runs every source concurrently under its own timeout and
// returns opinions in source order.
func (c *Coordinator) collect(ctx context.Context, snap *core.MarketSnapshot) []core.ModelOpinion {
	type indexed struct {
		i  int
		op core.ModelOpinion
	}
	results := make(chan indexed, len(c.sources))

	for i, src := range c.sources {
		go func(i int, src source.SignalSource) {
			sctx, cancel := context.WithTimeout(ctx, c.cfg.SourceTimeout)
			defer cancel()

			done := make(chan core.ModelOpinion, 1)
			go func() {
				done <- src.Generate(sctx, snap)
			}()

			select {
			case op := <-done:
				results <- indexed{i, op}
			case <-sctx.Done():
				results <- indexed{i, core.ErrorOpinion(src.Name(),
					core.WrapError(core.ErrSourceTimeout, sctx.Err()).Error())}
			}
		}(i, src)
	}

	opinions := make([]core.ModelOpinion, len(c.sources))
	for range c.sources {
		r := <-results
		opinions[r.i] = r.op
	}

	for _, op := range opinions {
		if op.Analysis.Failed() {
			c.logger.Warn("source failed",
				zap.String("source", op.Source),
				zap.String("symbol", snap.Symbol),
				zap.String("reason", op.Analysis.Err))
			if c.registry != nil {
				c.registry.RecordSourceError(op.Source)
			}
			continue
		}
		if c.registry != nil {
			c.registry.RecordOpinion(op.Source, string(op.Analysis.Signal))
		}
	}

	return opinions
}

// fuse combines opinions into the final signal via weighted voting.
func (c *Coordinator) fuse(snap *core.MarketSnapshot, opinions []core.ModelOpinion) (*core.EnsembleSignal, error) {
	valid := make([]core.ModelOpinion, 0, len(opinions))
	for _, op := range opinions {
		if !op.Analysis.Failed() {
			valid = append(valid, op)
		}
	}
	if len(valid) == 0 {
		return nil, core.WrapError(core.ErrAllSourcesFailed,
			fmt.Errorf("no valid opinion for %s from %d sources", snap.Symbol, len(opinions)))
	}

	votes := make(map[core.Signal]float64)
	var weightedConf, weightSum float64
	var targets, stops []float64

	for _, op := range valid {
		w, ok := c.cfg.Weights[op.Source]
		if !ok {
			w = 1.0 / float64(len(valid))
		}
		votes[op.Analysis.Signal] += w
		weightedConf += op.Confidence * w
		weightSum += w

		if t := op.Analysis.TargetPrice; t != nil {
			targets = append(targets, *t)
		}
		if s := op.Analysis.StopLoss; s != nil {
			stops = append(stops, *s)
		}
	}

	final := core.SignalHold
	best := math.Inf(-1)
	for _, s := range tieBreakOrder {
		if votes[s] > best {
			best = votes[s]
			final = s
		}
	}

	confidence := weightedConf / weightSum
	now := time.Now()

	return &core.EnsembleSignal{
		ID:           uuid.NewString(),
		Symbol:       snap.Symbol,
		Signal:       final,
		Confidence:   confidence,
		Band:         core.BandFromScore(confidence),
		TargetPrice:  meanPtr(targets),
		StopLoss:     meanPtr(stops),
		CurrentPrice: snap.CurrentPrice,
		Opinions:     opinions,
		Sentiment:    marketSentiment(snap),
		RiskLevel:    assessRisk(confidence, snap),
		CreatedAt:    now,
		ExpiresAt:    now.Add(signalValidity),
	}, nil
}

// marketSentiment scores the technical posture of the snapshot.
func marketSentiment(snap *core.MarketSnapshot) core.MarketSentiment {
	score := 0

	switch {
	case snap.RSI14 > 70:
		score += 2
	case snap.RSI14 > 60:
		score++
	case snap.RSI14 < 30:
		score -= 2
	case snap.RSI14 < 40:
		score--
	}

	if snap.CurrentPrice > snap.SMA200 {
		score++
	} else {
		score--
	}

	if snap.VolumeSMARatio > 1.5 {
		score++
	}

	switch {
	case score >= 3:
		return core.SentimentExtremelyBullish
	case score >= 1:
		return core.SentimentBullish
	case score <= -3:
		return core.SentimentExtremelyBearish
	case score <= -1:
		return core.SentimentBearish
	default:
		return core.SentimentNeutral
	}
}

// assessRisk grades the fused signal's risk.
func assessRisk(confidence float64, snap *core.MarketSnapshot) core.RiskLevel {
	factors := 0

	if confidence < 0.6 {
		factors += 2
	} else if confidence < 0.8 {
		factors++
	}

	if math.Abs(snap.Change24h) > 5 {
		factors++
	}

	if snap.VolumeSMARatio < 0.5 {
		factors++
	}

	switch {
	case factors >= 3:
		return core.RiskHigh
	case factors >= 1:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

func meanPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}
