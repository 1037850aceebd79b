package source

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/llm"
)

// scorePolicy turns a parsed analysis into a confidence in [0,1].
type scorePolicy func(core.Analysis) float64

// LLMSource asks an LLM provider for a structured trading analysis.
type LLMSource struct {
	name     string
	provider llm.Provider
	system   string
	score    scorePolicy
	pace     *pacer
	logger   *zap.Logger
}

// NewPrimary creates the primary analyst source. Its vote is weighted
// under the name "gpt4" regardless of which provider backs it.
func NewPrimary(provider llm.Provider, minInterval time.Duration, logger *zap.Logger) *LLMSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSource{
		name:     "gpt4",
		provider: provider,
		system:   analystSystemPrompt,
		score:    factorScore,
		pace:     newPacer(minInterval),
		logger:   logger,
	}
}

// NewConservative creates the risk-focused analyst source, weighted
// under the name "claude".
func NewConservative(provider llm.Provider, minInterval time.Duration, logger *zap.Logger) *LLMSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSource{
		name:     "claude",
		provider: provider,
		system:   conservativeSystemPrompt,
		score:    conservativeScore,
		pace:     newPacer(minInterval),
		logger:   logger,
	}
}

func (s *LLMSource) Name() string {
	return s.name
}

// Generate asks the provider for an analysis of the snapshot. Transport
// or parse failures yield a zero-confidence error opinion.
func (s *LLMSource) Generate(ctx context.Context, snap *core.MarketSnapshot) core.ModelOpinion {
	if err := s.pace.wait(ctx); err != nil {
		return core.ErrorOpinion(s.name, err.Error())
	}

	resp, err := s.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: s.system,
		Messages: []llm.Message{
			{Role: "user", Content: buildAnalysisPrompt(snap)},
		},
		MaxTokens:   1024,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		s.logger.Warn("llm request failed",
			zap.String("source", s.name),
			zap.String("symbol", snap.Symbol),
			zap.Error(err))
		return core.ErrorOpinion(s.name, core.WrapError(core.ErrLLMFailed, err).Error())
	}

	analysis, err := parseAnalysis(resp.Content)
	if err != nil {
		s.logger.Warn("llm response unparseable",
			zap.String("source", s.name),
			zap.String("symbol", snap.Symbol),
			zap.Error(err))
		return core.ErrorOpinion(s.name, core.WrapError(core.ErrLLMFailed, err).Error())
	}

	return core.ModelOpinion{
		Source:     s.name,
		Analysis:   analysis,
		Confidence: s.score(analysis),
		ProducedAt: time.Now(),
	}
}

// parseAnalysis decodes the model's JSON reply. Models sometimes wrap
// the object in prose, so a failed decode retries on the outermost
// braces before giving up.
func parseAnalysis(content string) (core.Analysis, error) {
	var a core.Analysis
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return core.Analysis{}, err
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &a); err != nil {
			return core.Analysis{}, err
		}
	}
	if !a.Signal.Valid() {
		a.Signal = core.SignalHold
	}
	return a, nil
}

// factorScore averages six quality factors of the analysis.
func factorScore(a core.Analysis) float64 {
	if a.Failed() {
		return 0
	}

	factors := []float64{
		a.TechnicalScore / 100,
		a.FundamentalScore / 100,
		a.Probability / 100,
		a.Strength / 10,
		math.Max(0, 1-0.1*float64(len(a.RiskFactors))),
		math.Min(1, float64(len(a.Reasoning))/200),
	}

	var sum float64
	for _, f := range factors {
		sum += f
	}
	return clamp01(sum / float64(len(factors)))
}

// conservativeScore discounts the factor score by the stated risk.
func conservativeScore(a core.Analysis) float64 {
	base := factorScore(a)

	var mult float64
	switch a.RiskLevel {
	case core.RiskLow:
		mult = 1.0
	case core.RiskMedium:
		mult = 0.9
	case core.RiskHigh:
		mult = 0.8
	default:
		mult = 0.7
	}
	return clamp01(base * mult)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
