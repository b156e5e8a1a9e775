package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradewind/internal/decision"
	"tradewind/internal/market"
	"tradewind/internal/symbolbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSnapshots struct {
	mock.Mock
}

func (m *MockSnapshots) Snapshot(ctx context.Context, symbol string) (market.Snapshot, bool, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(market.Snapshot), args.Bool(1), args.Error(2)
}

type MockReasoner struct {
	mock.Mock
}

func (m *MockReasoner) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// recordingTraces 记录每次写入时 run 的状态,可注入失败。
type recordingTraces struct {
	appendErr   error
	completeErr error
	appended    []Status
	completed   []Status
}

func (r *recordingTraces) Append(_ context.Context, run *Run) error {
	r.appended = append(r.appended, run.Status)
	return r.appendErr
}

func (r *recordingTraces) Complete(_ context.Context, run *Run) error {
	r.completed = append(r.completed, run.Status)
	return r.completeErr
}

func (r *recordingTraces) Get(context.Context, string) (*Run, error) { return nil, ErrRunNotFound }

func (r *recordingTraces) ListByOwner(context.Context, string, int) ([]*Run, error) {
	return nil, nil
}

type recordingNotifier struct {
	texts []string
}

func (r *recordingNotifier) SendText(text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func nvdaSnapshot() market.Snapshot {
	closes := make([]float64, 0, 40)
	for i := 0; i < 40; i++ {
		closes = append(closes, 420+float64(i)*1.5)
	}
	return market.Snapshot{
		Quote: market.Quote{
			Symbol:        "NVDA",
			Name:          "NVIDIA Corporation",
			Price:         485.23,
			ChangePercent: 1.84,
			Volume:        42150000,
			DayHigh:       489.90,
			DayLow:        479.10,
			Week52High:    505.48,
			Week52Low:     222.97,
			MarketCap:     1.19e12,
		},
		Closes:    closes,
		FetchedAt: time.Now(),
	}
}

func TestRunPipelineBuyEndToEnd(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}
	sink := &recordingNotifier{}

	mockData.On("Snapshot", mock.Anything, "NVDA").Return(nvdaSnapshot(), true, nil)

	reply := strings.Join([]string{
		"Action: BUY",
		"Confidence: 78",
		"Quantity: 10",
		"Reasoning: Momentum and volume support an entry at current levels.",
	}, "\n")
	mockLLM.On("Call", mock.Anything, systemPrompt, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "NVDA") && strings.Contains(p, "485.23")
	})).Return(reply, nil)

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: sink,
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "Buy 10 shares of NVDA, momentum looks strong",
	})
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, StatusCompleted, run.Status)
	assert.True(t, run.Terminal())
	assert.Nil(t, run.Error)
	assert.Equal(t, "NVDA", run.Symbol)
	assert.Equal(t, reply, run.RawReply)
	require.NotNil(t, run.Decision)
	assert.Equal(t, decision.ActionBuy, run.Decision.Action)
	assert.InDelta(t, 0.78, run.Decision.Confidence, 1e-9)
	assert.Equal(t, decision.SourceLegacy, run.Decision.Source)
	assert.NotNil(t, run.Indicators)
	assert.NotNil(t, run.Assessment)
	assert.GreaterOrEqual(t, run.DurationMS, int64(0))

	require.Len(t, run.Invocations, 2)
	assert.Equal(t, 1, run.InvocationCount(ToolMarketData))
	assert.Equal(t, 1, run.InvocationCount(ToolAnalyze))
	mkt := run.Invocations[0]
	assert.Equal(t, ToolMarketData, mkt.Tool)
	assert.True(t, mkt.CacheHit)
	assert.Equal(t, 485.23, mkt.Result["price"])

	p := run.Proposal
	require.NotNil(t, p)
	assert.Equal(t, decision.ActionBuy, p.Action)
	assert.Equal(t, "NVDA", p.Symbol)
	assert.Equal(t, 10, p.Quantity)
	assert.InDelta(t, 485.23, p.EntryPrice, 1e-9)
	assert.InDelta(t, 460.97, p.StopLoss, 1e-9)
	assert.InDelta(t, 533.75, p.TargetPrice, 1e-9)
	assert.InDelta(t, 0.78, p.Confidence, 1e-9)
	assert.Equal(t, "3-7 days", p.HoldingWindow)

	assert.Equal(t, []Status{StatusAnalyzing}, traces.appended)
	assert.Equal(t, []Status{StatusCompleted}, traces.completed)

	require.Len(t, sink.texts, 1)
	assert.Contains(t, sink.texts[0], "BUY NVDA")
	assert.Contains(t, sink.texts[0], "485.23")
	assert.Contains(t, sink.texts[0], run.ID)

	mockData.AssertExpectations(t)
	mockLLM.AssertExpectations(t)
}

func TestRunPipelineStructuredSell(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}
	sink := &recordingNotifier{}

	snap := nvdaSnapshot()
	snap.Quote.Symbol = "TSLA"
	snap.Quote.Price = 200.00
	mockData.On("Snapshot", mock.Anything, "TSLA").Return(snap, false, nil)

	reply := "```json\n{\"action\": \"sell\", \"symbol\": \"TSLA\", \"confidence\": 0.42, \"quantity\": 25, \"reasoning\": \"Overheated after the run-up.\"}\n```"
	mockLLM.On("Call", mock.Anything, mock.Anything, mock.Anything).Return(reply, nil)

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: sink,
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-7",
		Intent:  "should I dump my tesla position?",
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, run.Status)
	require.NotNil(t, run.Decision)
	assert.Equal(t, decision.SourceStructured, run.Decision.Source)
	assert.Equal(t, "Overheated after the run-up.", run.Decision.Rationale)

	mkt := run.Invocations[0]
	assert.False(t, mkt.CacheHit)

	p := run.Proposal
	require.NotNil(t, p)
	assert.Equal(t, decision.ActionSell, p.Action)
	assert.Equal(t, "TSLA", p.Symbol)
	assert.Equal(t, 25, p.Quantity)
	assert.InDelta(t, 200.00, p.EntryPrice, 1e-9)
	assert.InDelta(t, 210.00, p.StopLoss, 1e-9)
	assert.InDelta(t, 180.00, p.TargetPrice, 1e-9)
	assert.InDelta(t, 0.42, p.Confidence, 1e-9)

	require.Len(t, sink.texts, 1)
	assert.Contains(t, sink.texts[0], "SELL TSLA")
}

func TestRunPipelineHoldNoProposal(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}
	sink := &recordingNotifier{}

	mockData.On("Snapshot", mock.Anything, "NVDA").Return(nvdaSnapshot(), true, nil)
	mockLLM.On("Call", mock.Anything, mock.Anything, mock.Anything).
		Return("Hold for now and wait for a clearer setup.", nil)

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: sink,
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "what about NVDA here?",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Nil(t, run.Proposal)
	assert.Nil(t, run.Error)

	// HOLD 没有提案,但决策记录仍要落在 run 上。
	require.NotNil(t, run.Decision)
	assert.Equal(t, decision.ActionHold, run.Decision.Action)
	assert.InDelta(t, 0.5, run.Decision.Confidence, 1e-9)
	assert.Equal(t, decision.SourceLegacy, run.Decision.Source)

	assert.Empty(t, sink.texts)
	assert.Equal(t, []Status{StatusCompleted}, traces.completed)
}

func TestRunPipelineNoSymbol(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: &recordingNotifier{},
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "I think the market is nice today",
	})
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, StatusError, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, CodeSymbolNotIdentified, run.Error.Code)
	assert.Empty(t, run.Symbol)
	assert.Empty(t, run.Invocations)
	assert.Equal(t, 0, run.InvocationCount(ToolMarketData))

	// 失败 run 同样落审计。
	assert.Equal(t, []Status{StatusAnalyzing}, traces.appended)
	assert.Equal(t, []Status{StatusError}, traces.completed)

	mockData.AssertNotCalled(t, "Snapshot", mock.Anything, mock.Anything)
	mockLLM.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPipelineMarketDataUnavailable(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}

	cause := errors.New("market data unavailable: yahoo quote for NVDA: connection refused")
	mockData.On("Snapshot", mock.Anything, "NVDA").Return(market.Snapshot{}, false, cause)

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: &recordingNotifier{},
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "load up on NVDA",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusError, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, CodeMarketDataUnavailable, run.Error.Code)
	assert.Contains(t, run.Error.Message, "connection refused")

	// 失败的取数调用也进记录。
	require.Len(t, run.Invocations, 1)
	assert.Equal(t, ToolMarketData, run.Invocations[0].Tool)
	assert.Contains(t, run.Invocations[0].Result["error"], "connection refused")

	mockLLM.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunPipelineReasoningFailure(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{}

	mockData.On("Snapshot", mock.Anything, "NVDA").Return(nvdaSnapshot(), true, nil)
	mockLLM.On("Call", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("reasoning engine: status 500"))

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: &recordingNotifier{},
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "go long NVDA",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusError, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, CodeReasoningEngineError, run.Error.Code)
	assert.Nil(t, run.Proposal)
	assert.Equal(t, 2, len(run.Invocations))
	assert.Equal(t, []Status{StatusError}, traces.completed)
}

func TestRunPipelineRejectsBlankRequest(t *testing.T) {
	traces := &recordingTraces{}
	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     new(MockSnapshots),
		Reasoner: new(MockReasoner),
		Traces:   traces,
		Notifier: &recordingNotifier{},
	})

	run, err := o.RunPipeline(context.Background(), Request{OwnerID: "", Intent: "buy NVDA"})
	require.Error(t, err)
	assert.Nil(t, run)

	run, err = o.RunPipeline(context.Background(), Request{OwnerID: "user-1", Intent: "   "})
	require.Error(t, err)
	assert.Nil(t, run)

	// 非法请求不产生任何审计记录。
	assert.Empty(t, traces.appended)
	assert.Empty(t, traces.completed)
}

func TestRunPipelineTraceFailureIsNonFatal(t *testing.T) {
	mockData := new(MockSnapshots)
	mockLLM := new(MockReasoner)
	traces := &recordingTraces{
		appendErr:   errors.New("disk full"),
		completeErr: errors.New("disk full"),
	}
	sink := &recordingNotifier{}

	mockData.On("Snapshot", mock.Anything, "NVDA").Return(nvdaSnapshot(), true, nil)
	mockLLM.On("Call", mock.Anything, mock.Anything, mock.Anything).
		Return("Hold for now and wait for a clearer setup.", nil)

	o := New(Params{
		Book:     symbolbook.Default(),
		Data:     mockData,
		Reasoner: mockLLM,
		Traces:   traces,
		Notifier: sink,
	})

	run, err := o.RunPipeline(context.Background(), Request{
		OwnerID: "user-1",
		Intent:  "thoughts on NVDA?",
	})
	require.NoError(t, err)
	require.NotNil(t, run)

	// 审计层故障不影响业务结果,但要发告警。
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Nil(t, run.Error)
	require.Len(t, sink.texts, 2)
	for _, text := range sink.texts {
		assert.Contains(t, text, "审计写入失败")
		assert.Contains(t, text, run.ID)
	}
}
