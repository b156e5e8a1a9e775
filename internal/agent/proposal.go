package agent

import (
	"github.com/shopspring/decimal"

	"tradewind/internal/decision"
)

// 止损/止盈系数。价格运算全程走 decimal,最后一步才回到 float,
// 避免二进制浮点在分位上的漂移。
var (
	buyStopFactor    = decimal.NewFromFloat(0.95)
	buyTargetFactor  = decimal.NewFromFloat(1.10)
	sellStopFactor   = decimal.NewFromFloat(1.05)
	sellTargetFactor = decimal.NewFromFloat(0.90)
)

const defaultHoldingWindow = "3-7 days"

// buildProposal 由规范化决策和入场价构造提案,入场价取快照现价,
// 所有价格保留两位小数。只应在 BUY/SELL 时调用。
func buildProposal(d decision.Decision, symbol string, price float64) *TradeProposal {
	entry := decimal.NewFromFloat(price)

	var stop, target decimal.Decimal
	switch d.Action {
	case decision.ActionBuy:
		stop = entry.Mul(buyStopFactor)
		target = entry.Mul(buyTargetFactor)
	case decision.ActionSell:
		stop = entry.Mul(sellStopFactor)
		target = entry.Mul(sellTargetFactor)
	default:
		return nil
	}

	return &TradeProposal{
		Action:        d.Action,
		Symbol:        symbol,
		Quantity:      d.Quantity,
		EntryPrice:    entry.Round(2).InexactFloat64(),
		StopLoss:      stop.Round(2).InexactFloat64(),
		TargetPrice:   target.Round(2).InexactFloat64(),
		Confidence:    d.Confidence,
		HoldingWindow: defaultHoldingWindow,
	}
}
