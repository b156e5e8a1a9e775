package tracedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tradewind/internal/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id, owner string, createdAt time.Time) *agent.Run {
	return &agent.Run{
		ID:        id,
		OwnerID:   owner,
		Intent:    "buy some NVDA",
		Symbol:    "NVDA",
		Status:    agent.StatusAnalyzing,
		CreatedAt: createdAt,
	}
}

func TestAppendAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", "user-1", time.Now())
	require.NoError(t, s.Append(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.Equal(t, agent.StatusAnalyzing, got.Status)
	assert.Equal(t, "buy some NVDA", got.Intent)

	_, err = s.Get(ctx, "run-missing")
	assert.ErrorIs(t, err, agent.ErrRunNotFound)
}

func TestCompleteUpsertsTerminalRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", "user-1", time.Now())
	require.NoError(t, s.Append(ctx, run))

	run.Status = agent.StatusCompleted
	run.DurationMS = 1200
	run.Invocations = []agent.ToolInvocation{{Tool: agent.ToolMarketData, Symbol: "NVDA", CacheHit: true}}
	run.Proposal = &agent.TradeProposal{
		Action:        "BUY",
		Symbol:        "NVDA",
		Quantity:      10,
		EntryPrice:    485.23,
		StopLoss:      460.97,
		TargetPrice:   533.75,
		Confidence:    0.78,
		HoldingWindow: "3-7 days",
	}
	require.NoError(t, s.Complete(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, got.Status)
	assert.Equal(t, int64(1200), got.DurationMS)
	require.Len(t, got.Invocations, 1)
	assert.True(t, got.Invocations[0].CacheHit)
	require.NotNil(t, got.Proposal)
	assert.InDelta(t, 460.97, got.Proposal.StopLoss, 1e-9)

	// 重复 Complete 幂等。
	require.NoError(t, s.Complete(ctx, run))
	again, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusCompleted, again.Status)
}

func TestCompleteWithoutAppendInserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-orphan", "user-1", time.Now())
	run.Status = agent.StatusError
	run.Error = &agent.RunError{Code: agent.CodeSymbolNotIdentified, Message: "no symbol"}
	require.NoError(t, s.Complete(ctx, run))

	got, err := s.Get(ctx, "run-orphan")
	require.NoError(t, err)
	assert.Equal(t, agent.StatusError, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, agent.CodeSymbolNotIdentified, got.Error.Code)
}

func TestAppendDoesNotOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", "user-1", time.Now())
	require.NoError(t, s.Append(ctx, run))

	mutated := sampleRun("run-1", "user-1", time.Now())
	mutated.Intent = "something else entirely"
	require.NoError(t, s.Append(ctx, mutated))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "buy some NVDA", got.Intent)
}

func TestListByOwnerRecencyOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, sampleRun("run-old", "user-1", base)))
	require.NoError(t, s.Append(ctx, sampleRun("run-mid", "user-1", base.Add(time.Minute))))
	require.NoError(t, s.Append(ctx, sampleRun("run-new", "user-1", base.Add(2*time.Minute))))
	require.NoError(t, s.Append(ctx, sampleRun("run-other", "user-2", base.Add(3*time.Minute))))

	runs, err := s.ListByOwner(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-mid", runs[1].ID)
	assert.Equal(t, "run-old", runs[2].ID)

	limited, err := s.ListByOwner(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-new", limited[0].ID)

	_, err = s.ListByOwner(ctx, "  ", 10)
	require.Error(t, err)
}
