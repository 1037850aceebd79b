package backtest

import "math"

// Simulator models order execution against a daily close price with
// slippage and commission.
type Simulator struct {
	commissionRate float64
	slippageRate   float64
	minCommission  float64
}

// NewSimulator creates a market simulator. Rates are fractions
// (0.001 = 0.1%).
func NewSimulator(commissionRate, slippageRate, minCommission float64) *Simulator {
	return &Simulator{
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
		minCommission:  minCommission,
	}
}

// Fill computes the fill price and commission for an order at the
// given market price. ok is false when the order does not execute at
// this price (limit not crossed, stop not triggered).
func (s *Simulator) Fill(order *Order, marketPrice float64) (fillPrice, commission float64, ok bool) {
	switch order.Type {
	case OrderMarket:
		fillPrice = s.marketFill(order.Side, order.Quantity, marketPrice)

	case OrderLimit:
		fillPrice, ok = limitFill(order.Side, order.LimitPrice, marketPrice)
		if !ok {
			return 0, 0, false
		}

	case OrderStop:
		if !s.trigger(order, marketPrice) {
			return 0, 0, false
		}
		// once triggered a stop executes as a market order
		fillPrice = s.marketFill(order.Side, order.Quantity, marketPrice)

	case OrderStopLimit:
		if !s.trigger(order, marketPrice) {
			return 0, 0, false
		}
		fillPrice, ok = limitFill(order.Side, order.LimitPrice, marketPrice)
		if !ok {
			return 0, 0, false
		}

	default:
		return 0, 0, false
	}

	commission = math.Max(s.minCommission, fillPrice*float64(order.Quantity)*s.commissionRate)
	return fillPrice, commission, true
}

// marketFill applies size-scaled slippage to a market execution.
func (s *Simulator) marketFill(side OrderSide, quantity int, marketPrice float64) float64 {
	slippage := s.slippageRate * (1 + float64(quantity)/10000)
	if side == SideBuy {
		return marketPrice * (1 + slippage)
	}
	return marketPrice * (1 - slippage)
}

// limitFill executes at the limit price when the market crosses it.
func limitFill(side OrderSide, limit *float64, marketPrice float64) (float64, bool) {
	if limit == nil {
		return 0, false
	}
	if side == SideBuy && marketPrice <= *limit {
		return *limit, true
	}
	if side == SideSell && marketPrice >= *limit {
		return *limit, true
	}
	return 0, false
}

// trigger arms a stop order once the market crosses its stop price.
// A buy stop triggers at or above the stop, a sell stop at or below.
func (s *Simulator) trigger(order *Order, marketPrice float64) bool {
	if order.triggered {
		return true
	}
	if order.StopPrice == nil {
		return false
	}
	switch order.Side {
	case SideBuy:
		order.triggered = marketPrice >= *order.StopPrice
	case SideSell:
		order.triggered = marketPrice <= *order.StopPrice
	}
	return order.triggered
}
