package decision

import (
	"math"
	"strings"
)

// NormalizeAction 统一动作名称,兼容 long/short/exit 等同义词。
// 第二个返回值标记是否命中已知动作,未命中时调用方按 HOLD 兜底。
func NormalizeAction(a string) (string, bool) {
	replacer := strings.NewReplacer(" ", "_", "-", "_")
	a = replacer.Replace(strings.ToLower(strings.TrimSpace(a)))
	switch a {
	case "buy", "long", "open_long", "go_long", "enter_long", "accumulate", "add":
		return ActionBuy, true
	case "sell", "short", "open_short", "go_short", "exit", "close", "reduce", "trim":
		return ActionSell, true
	case "hold", "wait", "stay", "neutral", "flat", "none", "no_action":
		return ActionHold, true
	default:
		return ActionHold, false
	}
}

// NormalizeConfidence 把置信度压进 [0,1]:大于 1 视为百分数除以 100,
// 越界值截断而不是报错,非数值回落到中性 0.5。
func NormalizeConfidence(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return defaultConfidence
	}
	if v > 1 {
		v = v / 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeQuantity 非正数量回落到默认值。
func NormalizeQuantity(q, fallback int) int {
	if q <= 0 {
		return fallback
	}
	return q
}
