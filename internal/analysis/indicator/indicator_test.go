package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func TestRsi(t *testing.T) {
	t.Run("insufficient samples returns neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, Rsi(seq(100, 14), RsiPeriod))
		assert.Equal(t, 50.0, Rsi(nil, RsiPeriod))
	})

	t.Run("all gains returns 100", func(t *testing.T) {
		assert.Equal(t, 100.0, Rsi(seq(100, 15), RsiPeriod))
	})

	t.Run("all losses returns 0", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = float64(200 - i)
		}
		assert.Equal(t, 0.0, Rsi(closes, RsiPeriod))
	})

	t.Run("balanced moves return 50", func(t *testing.T) {
		closes := make([]float64, 15)
		closes[0] = 100
		for i := 1; i < len(closes); i++ {
			if i%2 == 1 {
				closes[i] = closes[i-1] + 1
			} else {
				closes[i] = closes[i-1] - 1
			}
		}
		assert.InDelta(t, 50.0, Rsi(closes, RsiPeriod), 1e-9)
	})

	t.Run("two to one gain loss ratio", func(t *testing.T) {
		// 七次 +2 接七次 -1: avgGain=1, avgLoss=0.5, RS=2
		closes := []float64{100, 102, 104, 106, 108, 110, 112, 114, 113, 112, 111, 110, 109, 108, 107}
		assert.InDelta(t, 66.0+2.0/3.0, Rsi(closes, RsiPeriod), 1e-9)
	})

	t.Run("only last window counts", func(t *testing.T) {
		// 前段深跌不影响最近 14 个涨跌幅全为正的结果。
		closes := append(seq(500, 5), seq(100, 15)...)
		assert.Equal(t, 100.0, Rsi(closes, RsiPeriod))
	})
}

func TestSma(t *testing.T) {
	t.Run("mean of trailing window", func(t *testing.T) {
		// 1..60 的后 50 个均值 = (11+60)/2
		assert.InDelta(t, 35.5, Sma(seq(1, 60), 50, 60), 1e-9)
	})

	t.Run("short series falls back to last price", func(t *testing.T) {
		assert.Equal(t, 485.23, Sma(seq(1, 60), 200, 485.23))
		assert.Equal(t, 485.23, Sma(nil, 50, 485.23))
	})
}

func TestComputeMacd(t *testing.T) {
	t.Run("short series returns zero group", func(t *testing.T) {
		assert.Equal(t, Macd{}, ComputeMacd(seq(100, 25)))
	})

	t.Run("linear series has constant spread", func(t *testing.T) {
		// 等差序列上 SMA12-SMA26 恒等于 (26-12)/2 = 7。
		got := ComputeMacd(seq(100, 40))
		assert.InDelta(t, 7.0, got.Value, 1e-9)
		assert.InDelta(t, 7.0, got.Signal, 1e-9)
		assert.InDelta(t, 0.0, got.Histogram, 1e-9)
	})

	t.Run("signal equals value with few macd points", func(t *testing.T) {
		// 恰好 26 根时差值序列只有 1 个点,信号线退化为恒等。
		got := ComputeMacd(seq(100, 26))
		assert.Equal(t, got.Value, got.Signal)
		assert.Equal(t, 0.0, got.Histogram)
	})
}

func TestCompute(t *testing.T) {
	closes := seq(1, 60)
	rep := Compute(closes, 60)

	assert.Equal(t, 100.0, rep.RSI, "monotonic climb maxes rsi")
	assert.InDelta(t, 35.5, rep.SMA50, 1e-9)
	assert.Equal(t, 60.0, rep.SMA200, "fallback to last price under 200 samples")
	assert.InDelta(t, 7.0, rep.MACD.Value, 1e-9)
	assert.Equal(t, 60, rep.Samples)

	t.Run("empty series still yields usable report", func(t *testing.T) {
		rep := Compute(nil, 485.23)
		assert.Equal(t, 50.0, rep.RSI)
		assert.Equal(t, 485.23, rep.SMA50)
		assert.Equal(t, 485.23, rep.SMA200)
		assert.Equal(t, Macd{}, rep.MACD)
		assert.Zero(t, rep.Samples)
	})

	t.Run("deterministic for same input", func(t *testing.T) {
		assert.Equal(t, Compute(closes, 60), Compute(closes, 60))
	})
}
