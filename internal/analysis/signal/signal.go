// Package signal 把快照和指标翻译成给推理引擎看的自然语言信号、
// 趋势判定与风险清单。与 indicator 一样是纯函数,便于直接断言。
package signal

import (
	"fmt"
	"strings"

	"tradewind/internal/analysis/indicator"
	"tradewind/internal/market"
)

const heavyVolumeShares = 1_000_000

// Assessment 单个标的的信号汇总,整体进入 prompt 与 trace。
type Assessment struct {
	Signals     []string `json:"signals"`
	Trend       string   `json:"trend"`
	Sentiment   string   `json:"sentiment"`
	RiskFactors []string `json:"risk_factors"`
}

// Assess 按固定顺序产出信号,再由信号推导趋势。
// 带方向的信号内嵌 bullish/bearish 字样,趋势投票直接数这两个词。
func Assess(q market.Quote, rep indicator.Report) Assessment {
	signals := technicalSignals(q, rep)
	return Assessment{
		Signals:     signals,
		Trend:       trend(signals),
		Sentiment:   sentiment(q.ChangePercent),
		RiskFactors: riskFactors(q, rep),
	}
}

func technicalSignals(q market.Quote, rep indicator.Report) []string {
	signals := make([]string, 0, 5)

	switch {
	case rep.RSI < 30:
		signals = append(signals, fmt.Sprintf("RSI %.1f: oversold (bullish reversal zone)", rep.RSI))
	case rep.RSI > 70:
		signals = append(signals, fmt.Sprintf("RSI %.1f: overbought (bearish reversal zone)", rep.RSI))
	default:
		signals = append(signals, fmt.Sprintf("RSI %.1f: neutral zone", rep.RSI))
	}

	switch {
	case rep.MACD.Value > 0:
		signals = append(signals, fmt.Sprintf("MACD %.2f above zero (bullish momentum)", rep.MACD.Value))
	case rep.MACD.Value < 0:
		signals = append(signals, fmt.Sprintf("MACD %.2f below zero (bearish momentum)", rep.MACD.Value))
	default:
		signals = append(signals, "MACD flat, momentum undecided")
	}

	switch {
	case q.Price > rep.SMA50:
		signals = append(signals, fmt.Sprintf("price %.2f above MA50 %.2f (bullish)", q.Price, rep.SMA50))
	case q.Price < rep.SMA50:
		signals = append(signals, fmt.Sprintf("price %.2f below MA50 %.2f (bearish)", q.Price, rep.SMA50))
	default:
		signals = append(signals, fmt.Sprintf("price sitting on MA50 %.2f", rep.SMA50))
	}

	switch {
	case rep.SMA50 > rep.SMA200:
		signals = append(signals, fmt.Sprintf("golden cross: MA50 %.2f above MA200 %.2f (bullish)", rep.SMA50, rep.SMA200))
	case rep.SMA50 < rep.SMA200:
		signals = append(signals, fmt.Sprintf("death cross: MA50 %.2f below MA200 %.2f (bearish)", rep.SMA50, rep.SMA200))
	default:
		signals = append(signals, "MA50 and MA200 converged")
	}

	if q.Volume > heavyVolumeShares {
		signals = append(signals, fmt.Sprintf("heavy trading volume (%d shares)", q.Volume))
	}
	return signals
}

// trend 多数票:bullish 多判多头,bearish 多判空头,平票中性。
func trend(signals []string) string {
	var bull, bear int
	for _, s := range signals {
		if strings.Contains(s, "bullish") {
			bull++
		}
		if strings.Contains(s, "bearish") {
			bear++
		}
	}
	switch {
	case bull > bear:
		return "bullish"
	case bear > bull:
		return "bearish"
	default:
		return "neutral"
	}
}

// sentiment 只是日内涨跌幅阈值,不是真实舆情模型。
func sentiment(changePercent float64) string {
	switch {
	case changePercent > 2:
		return "positive"
	case changePercent < -2:
		return "negative"
	default:
		return "neutral"
	}
}

func riskFactors(q market.Quote, rep indicator.Report) []string {
	risks := make([]string, 0, 4)

	if q.Price > 0 && q.DayHigh > q.DayLow {
		rangePct := (q.DayHigh - q.DayLow) / q.Price * 100
		if rangePct > 5 {
			risks = append(risks, fmt.Sprintf("wide intraday range (%.1f%% of price)", rangePct))
		}
	}
	if rep.RSI > 75 {
		risks = append(risks, fmt.Sprintf("RSI stretched overbought at %.1f", rep.RSI))
	} else if rep.RSI < 25 {
		risks = append(risks, fmt.Sprintf("RSI stretched oversold at %.1f", rep.RSI))
	}
	// 52 周边界缺失(为 0)时跳过邻近性判断。
	if q.Week52High > 0 && q.Price >= q.Week52High*0.95 {
		risks = append(risks, "price within 5% of 52-week high")
	}
	if q.Week52Low > 0 && q.Price <= q.Week52Low*1.05 {
		risks = append(risks, "price within 5% of 52-week low")
	}

	if len(risks) == 0 {
		risks = append(risks, "standard market risk")
	}
	return risks
}
