package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("quote", 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New("quote", 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, Closed, b.State(), "连续失败计数被成功打断,不应熔断")
}

func TestCooldownLetsOneProbeThrough(t *testing.T) {
	b := New("quote", 1, time.Minute)
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.RecordFailure()
	require.Equal(t, Open, b.State())
	assert.False(t, b.Allow())

	// 冷却期过后放行一次探测
	clock = clock.Add(61 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, Closed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New("quote", 1, time.Minute)
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.RecordFailure()
	clock = clock.Add(2 * time.Minute)
	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

func TestOnOpenHookFires(t *testing.T) {
	b := New("quote", 1, time.Minute)
	tripped := make(chan string, 1)
	b.OnOpen(func(name string) { tripped <- name })

	b.RecordFailure()

	select {
	case name := <-tripped:
		assert.Equal(t, "quote", name)
	case <-time.After(time.Second):
		t.Fatal("熔断回调未触发")
	}
}
