// Package agent 实现交易决策流水线的编排:从自由文本意图到
// 可审批的交易提案,每一步都落在 run 的调用记录里。
package agent

import (
	"errors"
	"time"

	"tradewind/internal/analysis/indicator"
	"tradewind/internal/analysis/signal"
)

// Status 单调状态机 ANALYZING → PROPOSING → COMPLETED | ERROR,
// 后两者为终态,终态 run 不再变更。
type Status string

const (
	StatusAnalyzing Status = "ANALYZING"
	StatusProposing Status = "PROPOSING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// 终态错误码,trace 与 API 共用。
const (
	CodeSymbolNotIdentified   = "SYMBOL_NOT_IDENTIFIED"
	CodeMarketDataUnavailable = "MARKET_DATA_UNAVAILABLE"
	CodeReasoningEngineError  = "REASONING_ENGINE_ERROR"
)

// 工具名,ToolInvocation.Tool 的取值。
const (
	ToolMarketData = "get_market_data"
	ToolAnalyze    = "analyze_market"
)

var (
	ErrSymbolNotIdentified = errors.New("symbol not identified in intent")
	ErrRunNotFound         = errors.New("agent run not found")
)

// RunError 终态错误描述。
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToolInvocation 一次编排步骤的只追加记录。
type ToolInvocation struct {
	Tool       string         `json:"tool"`
	Symbol     string         `json:"symbol,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	CacheHit   bool           `json:"cache_hit"`
	DurationMS int64          `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RunDecision 解析归一化后的决策留档。HOLD 也有记录,
// Source 标记结构化/兜底哪条解析路径命中。
type RunDecision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Quantity   int     `json:"quantity"`
	Rationale  string  `json:"rationale,omitempty"`
	Source     string  `json:"source"`
}

// TradeProposal 候选交易,只在 BUY/SELL 决策时出现,
// 进入订单前还需要人工审批。
type TradeProposal struct {
	Action        string  `json:"action"`
	Symbol        string  `json:"symbol"`
	Quantity      int     `json:"quantity"`
	EntryPrice    float64 `json:"entry_price"`
	StopLoss      float64 `json:"stop_loss"`
	TargetPrice   float64 `json:"target_price"`
	Confidence    float64 `json:"confidence"`
	HoldingWindow string  `json:"holding_window"`
}

// Run 一次完整的流水线执行,trace 持久化的单位。
type Run struct {
	ID          string             `json:"run_id"`
	OwnerID     string             `json:"owner_id"`
	Intent      string             `json:"intent"`
	Symbol      string             `json:"symbol,omitempty"`
	Status      Status             `json:"status"`
	Invocations []ToolInvocation   `json:"invocations,omitempty"`
	Indicators  *indicator.Report  `json:"indicators,omitempty"`
	Assessment  *signal.Assessment `json:"assessment,omitempty"`
	RawReply    string             `json:"raw_reply,omitempty"`
	Decision    *RunDecision       `json:"decision,omitempty"`
	Proposal    *TradeProposal     `json:"proposal,omitempty"`
	Error       *RunError          `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	DurationMS  int64              `json:"duration_ms"`
}

// Terminal 是否已到终态。
func (r *Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

// InvocationCount 按工具名统计调用次数,测试与审计用。
func (r *Run) InvocationCount(tool string) int {
	n := 0
	for _, inv := range r.Invocations {
		if inv.Tool == tool {
			n++
		}
	}
	return n
}
