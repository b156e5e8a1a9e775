package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"30s", 30 * time.Second, true},
		{"15m", 15 * time.Minute, true},
		{" 1H ", time.Hour, true},
		{"2d", 48 * time.Hour, true},
		{"", 0, false},
		{"m", 0, false},
		{"0m", 0, false},
		{"-5m", 0, false},
		{"10x", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInterval(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestNextAfterSkipsMissedTicks(t *testing.T) {
	anchor := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	interval := 10 * time.Minute

	// 任务跑过了两个点位,下一次应落在 14:30 而不是补跑 14:10/14:20。
	now := anchor.Add(25 * time.Minute)
	next := nextAfter(anchor, interval, now)
	assert.Equal(t, anchor.Add(30*time.Minute), next)

	// 尚未到达锚点时保持锚点不变。
	next = nextAfter(anchor, interval, anchor.Add(-time.Minute))
	assert.Equal(t, anchor, next)
}

func TestLoopRunImmediatelyAndCancel(t *testing.T) {
	loop := NewLoop("test", time.Hour)
	loop.RunImmediately = true

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx, func(context.Context) {
			calls++
			cancel()
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not exit after cancel")
	}
	require.Equal(t, 1, calls)
}
