package core

import "time"

// Signal represents a trading signal direction.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Valid reports whether the signal is one of the known directions.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	}
	return false
}

// ConfidenceBand is the qualitative label for a fused confidence score.
type ConfidenceBand string

const (
	BandVeryHigh ConfidenceBand = "VERY_HIGH"
	BandHigh     ConfidenceBand = "HIGH"
	BandMedium   ConfidenceBand = "MEDIUM"
	BandLow      ConfidenceBand = "LOW"
	BandVeryLow  ConfidenceBand = "VERY_LOW"
)

// BandFromScore maps a confidence score in [0,1] to its band.
func BandFromScore(score float64) ConfidenceBand {
	switch {
	case score >= 0.90:
		return BandVeryHigh
	case score >= 0.80:
		return BandHigh
	case score >= 0.60:
		return BandMedium
	case score >= 0.40:
		return BandLow
	default:
		return BandVeryLow
	}
}

// MarketSentiment summarizes technical posture derived from a snapshot.
type MarketSentiment string

const (
	SentimentExtremelyBullish MarketSentiment = "EXTREMELY_BULLISH"
	SentimentBullish          MarketSentiment = "BULLISH"
	SentimentNeutral          MarketSentiment = "NEUTRAL"
	SentimentBearish          MarketSentiment = "BEARISH"
	SentimentExtremelyBearish MarketSentiment = "EXTREMELY_BEARISH"
)

// RiskLevel grades the risk attached to an analysis or fused signal.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// MACDSignal is the simplified trend reading carried on a snapshot.
type MACDSignal string

const (
	MACDBullish MACDSignal = "BULLISH"
	MACDBearish MACDSignal = "BEARISH"
)

// Bar represents a daily OHLCV candlestick.
type Bar struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// IsValid checks if the bar has required fields.
func (b Bar) IsValid() bool {
	return b.Symbol != "" && b.Close > 0
}

// MarketSnapshot is the full per-symbol input handed to signal sources.
// Fundamental fields are pointers because many symbols have no reading.
type MarketSnapshot struct {
	Symbol        string
	CurrentPrice  float64
	Change24h     float64 // percent
	Volume24h     float64
	High52W       float64
	Low52W        float64
	MarketCap     *float64
	PERatio       *float64
	DividendYield *float64
	Beta          *float64

	RSI14             float64
	MACDSignal        MACDSignal
	BollingerPosition float64 // 0..100, position inside the bands
	VolumeSMARatio    float64
	SMA50             float64
	SMA200            float64
	SupportLevels     []float64 // ascending, at most 3
	ResistanceLevels  []float64 // descending, at most 3

	AsOf time.Time
}

// Analysis is one model's structured opinion about a symbol.
type Analysis struct {
	Signal           Signal    `json:"signal"`
	TargetPrice      *float64  `json:"target_price,omitempty"`
	StopLoss         *float64  `json:"stop_loss,omitempty"`
	TimeHorizon      string    `json:"time_horizon,omitempty"`
	Reasoning        string    `json:"reasoning,omitempty"`
	RiskFactors      []string  `json:"risk_factors,omitempty"`
	RiskLevel        RiskLevel `json:"risk_level,omitempty"`
	TechnicalScore   float64   `json:"technical_score,omitempty"`
	FundamentalScore float64   `json:"fundamental_score,omitempty"`
	Probability      float64   `json:"probability,omitempty"`
	Strength         float64   `json:"strength,omitempty"`
	Err              string    `json:"error,omitempty"`
}

// Failed reports whether the analysis is an error placeholder.
func (a Analysis) Failed() bool {
	return a.Err != ""
}

// ModelOpinion pairs a source's analysis with its scored confidence.
type ModelOpinion struct {
	Source     string
	Analysis   Analysis
	Confidence float64
	ProducedAt time.Time
}

// ErrorOpinion builds the zero-confidence HOLD opinion a failed source
// contributes to fusion.
func ErrorOpinion(source, reason string) ModelOpinion {
	return ModelOpinion{
		Source:     source,
		Analysis:   Analysis{Signal: SignalHold, Err: reason},
		Confidence: 0,
		ProducedAt: time.Now(),
	}
}

// EnsembleSignal is the fused output of one coordination round.
type EnsembleSignal struct {
	ID           string
	Symbol       string
	Signal       Signal
	Confidence   float64
	Band         ConfidenceBand
	TargetPrice  *float64
	StopLoss     *float64
	CurrentPrice float64
	Opinions     []ModelOpinion
	Sentiment    MarketSentiment
	RiskLevel    RiskLevel
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the signal is past its validity window.
func (s *EnsembleSignal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
