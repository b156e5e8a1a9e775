package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"tradewind/internal/analysis/indicator"
	"tradewind/internal/analysis/signal"
	"tradewind/internal/market"
)

// systemPrompt 固定系统轮:约束角色、风险姿态与输出契约。
// 每次 run 只追加一条用户轮,不携带历史会话。
const systemPrompt = `You are a disciplined equity trading analyst. You receive one user trading intent plus a market context document with a live quote, technical indicators and derived signals.

Decide on exactly one action: BUY, SELL or HOLD. Be conservative: prefer HOLD when the evidence is mixed or stale. Never invent data that is not in the context.

Respond with a single JSON object and nothing else:
{"action": "BUY|SELL|HOLD", "confidence": <number between 0 and 1>, "quantity": <positive integer number of shares>, "reasoning": "<one or two sentences>"}`

// promptContext 用户轮里的市场上下文,字段名就是给模型看的契约。
type promptContext struct {
	Quote      market.Quote      `json:"quote"`
	FetchedAt  string            `json:"fetched_at"`
	SeriesLen  int               `json:"daily_closes_available"`
	Indicators indicator.Report  `json:"indicators"`
	Assessment signal.Assessment `json:"assessment"`
}

// buildUserPrompt 渲染每次 run 的用户轮:意图原文加市场上下文 JSON。
func buildUserPrompt(intent string, snap market.Snapshot, rep indicator.Report, asmt signal.Assessment) string {
	pc := promptContext{
		Quote:      snap.Quote,
		FetchedAt:  snap.FetchedAt.UTC().Format("2006-01-02T15:04:05Z"),
		SeriesLen:  len(snap.Closes),
		Indicators: rep,
		Assessment: asmt,
	}
	ctxJSON, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		ctxJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("User intent:\n")
	b.WriteString(strings.TrimSpace(intent))
	b.WriteString("\n\nMarket context:\n")
	b.Write(ctxJSON)
	b.WriteString(fmt.Sprintf("\n\nAnalyze %s and reply with the JSON decision object only.", snap.Quote.Symbol))
	return b.String()
}
