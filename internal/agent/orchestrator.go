package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradewind/internal/analysis/indicator"
	"tradewind/internal/analysis/signal"
	"tradewind/internal/decision"
	"tradewind/internal/gateway/notifier"
	"tradewind/internal/logger"
	"tradewind/internal/market"
	"tradewind/internal/metrics"
	"tradewind/internal/symbolbook"
)

// ReasoningClient 推理引擎抽象,OpenAI 兼容客户端是默认实现。
type ReasoningClient interface {
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SnapshotProvider 行情读路径抽象,market.DataService 是默认实现。
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string) (market.Snapshot, bool, error)
}

// Orchestrator 串起一次 run 的全部步骤。依赖全部注入,
// 本身不持有任何全局状态,可并发使用。
type Orchestrator struct {
	Book     *symbolbook.Book
	Data     SnapshotProvider
	Reasoner ReasoningClient
	Parser   *decision.Parser
	Traces   TraceRecorder
	Notifier notifier.TextNotifier
	Metrics  *metrics.Metrics

	// Model 只用于推理对话誊录的标头。
	Model            string
	ReasoningTimeout time.Duration

	nowFn func() time.Time
}

type Params struct {
	Book             *symbolbook.Book
	Data             SnapshotProvider
	Reasoner         ReasoningClient
	Parser           *decision.Parser
	Traces           TraceRecorder
	Notifier         notifier.TextNotifier
	Metrics          *metrics.Metrics
	Model            string
	ReasoningTimeout time.Duration
}

func New(p Params) *Orchestrator {
	o := &Orchestrator{
		Book:             p.Book,
		Data:             p.Data,
		Reasoner:         p.Reasoner,
		Parser:           p.Parser,
		Traces:           p.Traces,
		Notifier:         p.Notifier,
		Metrics:          p.Metrics,
		Model:            p.Model,
		ReasoningTimeout: p.ReasoningTimeout,
	}
	if o.Parser == nil {
		o.Parser = decision.NewParser(0)
	}
	if o.Notifier == nil {
		o.Notifier = notifier.Noop{}
	}
	if o.ReasoningTimeout <= 0 {
		o.ReasoningTimeout = 60 * time.Second
	}
	o.nowFn = time.Now
	return o
}

// Request 一次流水线请求。
type Request struct {
	OwnerID string `json:"owner_id"`
	Intent  string `json:"intent"`
}

// RunPipeline 执行完整决策流水线并返回终态 run。
// 流水线内部失败(无代码、无行情、推理失败)都体现为 run 的
// ERROR 终态,Go error 只留给非法请求本身。
func (o *Orchestrator) RunPipeline(ctx context.Context, req Request) (*Run, error) {
	owner := strings.TrimSpace(req.OwnerID)
	intent := strings.TrimSpace(req.Intent)
	if owner == "" {
		return nil, fmt.Errorf("owner_id is required")
	}
	if intent == "" {
		return nil, fmt.Errorf("intent is required")
	}

	start := o.nowFn()
	run := &Run{
		ID:        "run-" + uuid.NewString(),
		OwnerID:   owner,
		Intent:    intent,
		Status:    StatusAnalyzing,
		CreatedAt: start,
	}
	o.appendTrace(ctx, run)
	logger.Infof("[流水线] run=%s owner=%s intent=%q", run.ID, owner, truncate(intent, 120))

	// 步骤 1:识别标的。失败即终止,不触发任何外部调用。
	sym, ok := o.Book.Resolve(intent)
	if !ok {
		o.Metrics.ObserveSymbolMiss()
		return o.fail(ctx, run, start, CodeSymbolNotIdentified,
			fmt.Sprintf("%v: %q", ErrSymbolNotIdentified, truncate(intent, 80))), nil
	}
	run.Symbol = sym

	// 步骤 2:行情快照,缓存优先。
	t0 := o.nowFn()
	snap, cacheHit, err := o.Data.Snapshot(ctx, sym)
	inv := ToolInvocation{
		Tool:      ToolMarketData,
		Symbol:    sym,
		Params:    map[string]any{"symbol": sym},
		CacheHit:  cacheHit,
		Timestamp: t0,
	}
	inv.DurationMS = o.sinceMS(t0)
	if err != nil {
		inv.Result = map[string]any{"error": err.Error()}
		run.Invocations = append(run.Invocations, inv)
		return o.fail(ctx, run, start, CodeMarketDataUnavailable, err.Error()), nil
	}
	inv.Result = map[string]any{
		"price":          snap.Quote.Price,
		"change_percent": snap.Quote.ChangePercent,
		"volume":         snap.Quote.Volume,
		"series_len":     len(snap.Closes),
	}
	run.Invocations = append(run.Invocations, inv)
	o.Metrics.ObserveTool(ToolMarketData, float64(inv.DurationMS)/1000)

	// 步骤 3:指标与信号,纯计算。
	t1 := o.nowFn()
	rep := indicator.Compute(snap.Closes, snap.Quote.Price)
	asmt := signal.Assess(snap.Quote, rep)
	run.Indicators = &rep
	run.Assessment = &asmt
	ainv := ToolInvocation{
		Tool:       ToolAnalyze,
		Symbol:     sym,
		Timestamp:  t1,
		DurationMS: o.sinceMS(t1),
		Result: map[string]any{
			"rsi":       rep.RSI,
			"macd":      rep.MACD.Value,
			"trend":     asmt.Trend,
			"sentiment": asmt.Sentiment,
			"signals":   asmt.Signals,
			"risks":     asmt.RiskFactors,
		},
	}
	run.Invocations = append(run.Invocations, ainv)
	o.Metrics.ObserveTool(ToolAnalyze, float64(ainv.DurationMS)/1000)

	// 步骤 4:推理引擎,单次调用无流水线级重试。
	run.Status = StatusProposing
	userPrompt := buildUserPrompt(intent, snap, rep, asmt)
	logger.LogReasoningRequest(o.Model, run.ID, systemPrompt, userPrompt)

	rctx, cancel := context.WithTimeout(ctx, o.ReasoningTimeout)
	t2 := o.nowFn()
	reply, err := o.Reasoner.Call(rctx, systemPrompt, userPrompt)
	cancel()
	o.Metrics.ObserveReasoning(float64(o.sinceMS(t2)) / 1000)
	if err != nil {
		return o.fail(ctx, run, start, CodeReasoningEngineError, err.Error()), nil
	}
	logger.LogReasoningResponse(o.Model, run.ID, reply)
	run.RawReply = reply

	// 步骤 5:解析,容错路径保证必有决策。
	res := o.Parser.Parse(reply)
	run.Decision = &RunDecision{
		Action:     res.Decision.Action,
		Confidence: res.Decision.Confidence,
		Quantity:   res.Decision.Quantity,
		Rationale:  res.Decision.Reasoning,
		Source:     res.Source,
	}

	// 步骤 6:HOLD 直接收尾,BUY/SELL 产出待审批提案。
	if res.Decision.Action != decision.ActionHold {
		run.Proposal = buildProposal(res.Decision, sym, snap.Quote.Price)
	}
	run.Status = StatusCompleted
	run.DurationMS = o.sinceMS(start)

	o.completeTrace(ctx, run)
	o.Metrics.ObserveRun(string(StatusCompleted))
	o.notifyProposal(run)

	if run.Proposal != nil {
		logger.Infof("[流水线] run=%s 完成 %s %s x%d @%.2f conf=%.2f source=%s",
			run.ID, run.Proposal.Action, sym, run.Proposal.Quantity,
			run.Proposal.EntryPrice, run.Proposal.Confidence, res.Source)
	} else {
		logger.Infof("[流水线] run=%s 完成 HOLD %s conf=%.2f source=%s",
			run.ID, sym, res.Decision.Confidence, res.Source)
	}
	return run, nil
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, start time.Time, code, msg string) *Run {
	run.Status = StatusError
	run.Error = &RunError{Code: code, Message: msg}
	run.DurationMS = o.sinceMS(start)

	o.completeTrace(ctx, run)
	o.Metrics.ObserveRun(string(StatusError))
	logger.Warnf("[流水线] run=%s 终止 code=%s: %s", run.ID, code, msg)
	return run
}

func (o *Orchestrator) sinceMS(t time.Time) int64 {
	d := o.nowFn().Sub(t)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// appendTrace / completeTrace 都是尽力而为:写失败计数、记日志、
// 推送告警,但绝不改变 run 的业务结果。
func (o *Orchestrator) appendTrace(ctx context.Context, run *Run) {
	if o.Traces == nil {
		return
	}
	if err := o.Traces.Append(ctx, run); err != nil {
		o.traceFailure("append", run, err)
	}
}

func (o *Orchestrator) completeTrace(ctx context.Context, run *Run) {
	if o.Traces == nil {
		return
	}
	if err := o.Traces.Complete(ctx, run); err != nil {
		o.traceFailure("complete", run, err)
	}
}

func (o *Orchestrator) traceFailure(op string, run *Run, err error) {
	o.Metrics.ObserveTraceFailure()
	logger.Errorf("[审计] %s run=%s 写入失败(非致命): %v", op, run.ID, err)

	msg := notifier.Message{
		Icon:  "🚨",
		Title: "审计写入失败",
		Lines: []string{
			"run: " + run.ID,
			"op: " + op,
			"err: " + err.Error(),
		},
		Footer:    "run 结果不受影响,需要人工检查 trace 存储",
		Timestamp: o.nowFn(),
	}
	if serr := o.Notifier.SendText(msg.RenderMarkdown()); serr != nil {
		logger.Warnf("[审计] 告警推送失败: %v", serr)
	}
}

func (o *Orchestrator) notifyProposal(run *Run) {
	p := run.Proposal
	if p == nil {
		return
	}
	icon := "📈"
	if p.Action == decision.ActionSell {
		icon = "📉"
	}
	msg := notifier.Message{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s 提案待审批", p.Action, p.Symbol),
		Lines: []string{
			fmt.Sprintf("数量: %d", p.Quantity),
			fmt.Sprintf("入场: %.2f", p.EntryPrice),
			fmt.Sprintf("止损: %.2f", p.StopLoss),
			fmt.Sprintf("目标: %.2f", p.TargetPrice),
			fmt.Sprintf("置信度: %.2f", p.Confidence),
			"持有窗口: " + p.HoldingWindow,
			"run: " + run.ID,
		},
		Timestamp: o.nowFn(),
	}
	if err := o.Notifier.SendText(msg.RenderMarkdown()); err != nil {
		logger.Warnf("[通知] 提案推送失败: %v", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
