package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treumlabs/signalforge/internal/config"
	"github.com/treumlabs/signalforge/internal/core"
	"github.com/treumlabs/signalforge/internal/ensemble"
	"github.com/treumlabs/signalforge/internal/marketdata"
	"github.com/treumlabs/signalforge/internal/metrics"
)

// snapshotWindow is how many bars of history feed each replay snapshot.
const snapshotWindow = 252

// Engine replays signals day by day against stored bars.
type Engine struct {
	cfg      config.BacktestConfig
	coord    *ensemble.Coordinator
	store    *marketdata.MemoryStore
	sim      *Simulator
	registry *metrics.Registry
	logger   *zap.Logger
}

// NewEngine creates a backtest engine. The coordinator must be built
// without a snapshot cache: replay snapshots are point-in-time and a
// wall-clock TTL would leak data across simulated days. registry may
// be nil.
func NewEngine(cfg config.BacktestConfig, coord *ensemble.Coordinator, store *marketdata.MemoryStore, registry *metrics.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		coord:    coord,
		store:    store,
		sim:      NewSimulator(cfg.CommissionRate, cfg.SlippageRate, cfg.MinCommission),
		registry: registry,
		logger:   logger,
	}
}

// portfolio is the mutable state of one run.
type portfolio struct {
	cash      float64
	positions map[string]*Position
	pending   []*Order
	trades    []Trade
	curve     []EquityPoint
}

// Run replays the date range for the given symbols and returns the
// complete result.
func (e *Engine) Run(ctx context.Context, symbols []string, start, end time.Time) (*Result, error) {
	if end.Before(start) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end %v before start %v", end, start))
	}

	began := time.Now()
	e.logger.Info("backtest starting",
		zap.Strings("symbols", symbols),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Float64("capital", e.cfg.InitialCapital))

	p := &portfolio{
		cash:      e.cfg.InitialCapital,
		positions: make(map[string]*Position),
	}

	days := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.simulateDay(ctx, p, symbols, day)
		days++
	}

	if len(p.curve) == 0 {
		if e.registry != nil {
			e.registry.RecordBacktest("empty", 0, time.Since(began).Seconds())
		}
		return nil, core.WrapError(core.ErrEmptyBacktest, fmt.Errorf("no trading days between %v and %v", start, end))
	}

	result := &Result{
		Symbols:        symbols,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: e.cfg.InitialCapital,
		FinalEquity:    p.curve[len(p.curve)-1].Equity,
		EquityCurve:    p.curve,
		Trades:         p.trades,
		Metrics:        ComputeMetrics(e.cfg.InitialCapital, p.curve, p.trades, e.cfg.RiskFreeRate),
	}

	if e.registry != nil {
		e.registry.RecordBacktest("success", days, time.Since(began).Seconds())
	}
	e.logger.Info("backtest completed",
		zap.Int("days", days),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("total_return", result.Metrics.TotalReturn),
		zap.Float64("sharpe", result.Metrics.SharpeRatio),
		zap.Float64("max_drawdown", result.Metrics.MaxDrawdown))

	return result, nil
}

// simulateDay runs one trading day: fuse signals into orders, execute
// pending orders at the close, mark positions, sweep exits, record
// equity.
func (e *Engine) simulateDay(ctx context.Context, p *portfolio, symbols []string, day time.Time) {
	closes := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		bar, ok := e.store.BarOn(symbol, day)
		if !ok {
			continue
		}
		closes[symbol] = bar.Close
		e.processSignal(ctx, p, symbol, day)
	}

	e.executeOrders(p, closes, day)
	markPositions(p, closes)
	e.sweepExits(p, closes, day)
	recordEquity(p, day, e.cfg.InitialCapital)
}

// processSignal fuses a point-in-time snapshot and places an order
// when the signal clears the confidence threshold.
func (e *Engine) processSignal(ctx context.Context, p *portfolio, symbol string, day time.Time) {
	window := e.store.WindowTo(symbol, day, snapshotWindow)
	snap, err := marketdata.BuildSnapshot(symbol, window)
	if err != nil {
		return
	}

	sig, err := e.coord.FuseSnapshot(ctx, snap)
	if err != nil {
		e.logger.Warn("signal generation failed",
			zap.String("symbol", symbol),
			zap.Time("day", day),
			zap.Error(err))
		return
	}
	if sig.Confidence < e.cfg.MinConfidence {
		return
	}

	switch sig.Signal {
	case core.SignalBuy:
		if _, open := p.positions[symbol]; open {
			return
		}
		qty := e.positionSize(p.cash, sig.Confidence, snap.CurrentPrice)
		if qty == 0 {
			return
		}
		p.pending = append(p.pending, &Order{
			ID:         uuid.NewString(),
			Symbol:     symbol,
			Side:       SideBuy,
			Quantity:   qty,
			Type:       OrderMarket,
			PlacedAt:   day,
			Status:     StatusPending,
			SignalID:   sig.ID,
			Confidence: sig.Confidence,
		})

	case core.SignalSell:
		pos, open := p.positions[symbol]
		if !open {
			return
		}
		p.pending = append(p.pending, &Order{
			ID:         uuid.NewString(),
			Symbol:     symbol,
			Side:       SideSell,
			Quantity:   pos.Quantity,
			Type:       OrderMarket,
			PlacedAt:   day,
			Status:     StatusPending,
			SignalID:   sig.ID,
			Confidence: sig.Confidence,
		})
	}
}

// positionSize risks 2% of cash scaled by confidence, capped at 10%
// of cash per position.
func (e *Engine) positionSize(cash, confidence, price float64) int {
	if price <= 0 {
		return 0
	}

	base := cash * 0.02 / price
	scaled := base * (0.5 + confidence)
	limit := cash * 0.10 / price
	if scaled > limit {
		scaled = limit
	}
	return int(scaled)
}

// executeOrders tries every pending order against today's closes.
// Orders for symbols with no bar today stay pending.
func (e *Engine) executeOrders(p *portfolio, closes map[string]float64, day time.Time) {
	var remaining []*Order

	for _, order := range p.pending {
		price, ok := closes[order.Symbol]
		if !ok {
			remaining = append(remaining, order)
			continue
		}

		fillPrice, commission, filled := e.sim.Fill(order, price)
		if !filled {
			remaining = append(remaining, order)
			continue
		}

		order.Status = StatusFilled
		order.FilledPrice = fillPrice
		order.FilledQty = order.Quantity
		order.Commission = commission

		switch order.Side {
		case SideBuy:
			e.openPosition(p, order, day)
		case SideSell:
			e.closePosition(p, order, day)
		}
	}

	p.pending = remaining
}

func (e *Engine) openPosition(p *portfolio, order *Order, day time.Time) {
	cost := order.FilledPrice*float64(order.Quantity) + order.Commission
	if cost > p.cash {
		e.logger.Warn("insufficient capital, dropping order",
			zap.String("symbol", order.Symbol),
			zap.Float64("cost", cost),
			zap.Float64("cash", p.cash))
		order.Status = StatusRejected
		return
	}

	p.cash -= cost
	p.positions[order.Symbol] = &Position{
		Symbol:         order.Symbol,
		Quantity:       order.Quantity,
		AvgPrice:       order.FilledPrice,
		CurrentPrice:   order.FilledPrice,
		CommissionPaid: order.Commission,
		EntryTime:      day,
	}

	e.logger.Debug("position opened",
		zap.String("symbol", order.Symbol),
		zap.Int("quantity", order.Quantity),
		zap.Float64("price", order.FilledPrice))
}

func (e *Engine) closePosition(p *portfolio, order *Order, day time.Time) {
	pos, ok := p.positions[order.Symbol]
	if !ok {
		return
	}

	proceeds := order.FilledPrice*float64(order.Quantity) - order.Commission
	costBasis := pos.AvgPrice*float64(pos.Quantity) + pos.CommissionPaid
	pnl := proceeds - costBasis

	p.cash += proceeds
	p.trades = append(p.trades, Trade{
		ID:         uuid.NewString(),
		Symbol:     order.Symbol,
		EntryPrice: pos.AvgPrice,
		ExitPrice:  order.FilledPrice,
		Quantity:   pos.Quantity,
		PnL:        pnl,
		PnLPercent: pnl / costBasis * 100,
		Commission: pos.CommissionPaid + order.Commission,
		EntryTime:  pos.EntryTime,
		ExitTime:   day,
		SignalID:   order.SignalID,
		Confidence: order.Confidence,
	})
	delete(p.positions, order.Symbol)

	e.logger.Debug("position closed",
		zap.String("symbol", order.Symbol),
		zap.Float64("pnl", pnl))
}

// markPositions revalues open positions at today's closes.
func markPositions(p *portfolio, closes map[string]float64) {
	for symbol, pos := range p.positions {
		price, ok := closes[symbol]
		if !ok {
			continue
		}
		pos.CurrentPrice = price
		pos.UnrealizedPnL = (price - pos.AvgPrice) * float64(pos.Quantity)
	}
}

// sweepExits places market sell orders for positions beyond the
// stop-loss or take-profit thresholds. They execute at the next
// session's close.
func (e *Engine) sweepExits(p *portfolio, closes map[string]float64, day time.Time) {
	for symbol, pos := range p.positions {
		price, ok := closes[symbol]
		if !ok || pos.AvgPrice == 0 || hasPendingSell(p, symbol) {
			continue
		}

		ret := (price - pos.AvgPrice) / pos.AvgPrice
		if ret > e.cfg.StopLossPct && ret < e.cfg.TakeProfitPct {
			continue
		}

		e.logger.Debug("exit triggered",
			zap.String("symbol", symbol),
			zap.Float64("return", ret))
		p.pending = append(p.pending, &Order{
			ID:       uuid.NewString(),
			Symbol:   symbol,
			Side:     SideSell,
			Quantity: pos.Quantity,
			Type:     OrderMarket,
			PlacedAt: day,
			Status:   StatusPending,
		})
	}
}

func hasPendingSell(p *portfolio, symbol string) bool {
	for _, o := range p.pending {
		if o.Symbol == symbol && o.Side == SideSell {
			return true
		}
	}
	return false
}

// recordEquity appends today's equity point: cash plus marked value
// of every open position.
func recordEquity(p *portfolio, day time.Time, initialCapital float64) {
	equity := p.cash
	for _, pos := range p.positions {
		equity += pos.CurrentPrice * float64(pos.Quantity)
	}

	p.curve = append(p.curve, EquityPoint{
		Date:      day,
		Equity:    equity,
		Cash:      p.cash,
		Positions: len(p.positions),
		Return:    (equity - initialCapital) / initialCapital,
	})
}
