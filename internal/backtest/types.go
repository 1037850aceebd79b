// Package backtest replays ensemble signals through a simulated market
// and measures the resulting portfolio performance.
package backtest

import (
	"encoding/json"
	"math"
	"time"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType selects the execution semantics of an order.
type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

// OrderStatus tracks an order through its lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRejected  OrderStatus = "REJECTED"
)

// Order is a simulated order awaiting execution.
type Order struct {
	ID         string
	Symbol     string
	Side       OrderSide
	Quantity   int
	Type       OrderType
	LimitPrice *float64 // LIMIT and STOP_LIMIT
	StopPrice  *float64 // STOP and STOP_LIMIT
	PlacedAt   time.Time
	Status     OrderStatus

	FilledPrice float64
	FilledQty   int
	Commission  float64

	SignalID   string
	Confidence float64

	triggered bool // stop orders: trigger observed, now executing
}

// Position is an open long position.
type Position struct {
	Symbol         string
	Quantity       int
	AvgPrice       float64
	CurrentPrice   float64
	UnrealizedPnL  float64
	CommissionPaid float64
	EntryTime      time.Time
}

// Trade is a completed round trip.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   int       `json:"quantity"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	Commission float64   `json:"commission"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	SignalID   string    `json:"signal_id,omitempty"`
	Confidence float64   `json:"confidence"`
}

// IsWin reports whether the trade was profitable after costs.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// EquityPoint is one day on the equity curve. Return is cumulative
// against the initial capital.
type EquityPoint struct {
	Date      time.Time `json:"date"`
	Equity    float64   `json:"equity"`
	Cash      float64   `json:"cash"`
	Positions int       `json:"positions"`
	Return    float64   `json:"return"`
}

// Metrics is the full performance report of a backtest.
type Metrics struct {
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	Volatility   float64 `json:"volatility"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`

	MaxDrawdown         float64 `json:"max_drawdown"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration"` // trading days below the previous peak
	ValueAtRisk95       float64 `json:"value_at_risk_95"`
	ConditionalVaR95    float64 `json:"conditional_var_95"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`

	AvgSignalConfidence float64 `json:"avg_signal_confidence"`
}

// MarshalJSON omits a non-finite profit factor: a run with wins and no
// losses reports +Inf in memory, which JSON cannot carry.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	out := struct {
		alias
		ProfitFactor *float64 `json:"profit_factor,omitempty"`
	}{alias: alias(m)}

	if !math.IsInf(m.ProfitFactor, 0) && !math.IsNaN(m.ProfitFactor) {
		out.ProfitFactor = &m.ProfitFactor
	}
	return json.Marshal(out)
}

// Result bundles everything a backtest run produced.
type Result struct {
	Symbols        []string      `json:"symbols"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	InitialCapital float64       `json:"initial_capital"`
	FinalEquity    float64       `json:"final_equity"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
	Trades         []Trade       `json:"trades"`
	Metrics        Metrics       `json:"metrics"`
}
