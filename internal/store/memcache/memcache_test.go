package memcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewind/internal/market"
)

func sampleSnapshot(symbol string, price float64) market.Snapshot {
	return market.Snapshot{
		Quote: market.Quote{
			Symbol:        symbol,
			Price:         price,
			ChangePercent: 1.2,
			Volume:        2_000_000,
		},
		Closes:    []float64{price - 2, price - 1, price},
		FetchedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
}

func TestCachePutGet(t *testing.T) {
	c := New(15 * time.Minute)
	ctx := context.Background()

	c.Put(ctx, "NVDA", sampleSnapshot("NVDA", 485.23))

	got, ok := c.Get(ctx, "NVDA")
	require.True(t, ok)
	assert.Equal(t, 485.23, got.Quote.Price)
	assert.Equal(t, []float64{483.23, 484.23, 485.23}, got.Closes)

	_, ok = c.Get(ctx, "TSLA")
	assert.False(t, ok)
}

func TestCacheKeyNormalization(t *testing.T) {
	c := New(15 * time.Minute)
	ctx := context.Background()

	c.Put(ctx, "  nvda ", sampleSnapshot("NVDA", 485.23))

	got, ok := c.Get(ctx, "NvDa")
	require.True(t, ok)
	assert.Equal(t, "NVDA", got.Quote.Symbol)
}

func TestCacheExpiry(t *testing.T) {
	c := New(15 * time.Minute)
	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	c.nowFn = func() time.Time { return now }
	ctx := context.Background()

	c.Put(ctx, "AAPL", sampleSnapshot("AAPL", 190.11))

	now = now.Add(14 * time.Minute)
	_, ok := c.Get(ctx, "AAPL")
	assert.True(t, ok, "within ttl should hit")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "AAPL")
	assert.False(t, ok, "past ttl should miss")
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestCacheReturnsCopies(t *testing.T) {
	c := New(15 * time.Minute)
	ctx := context.Background()

	orig := sampleSnapshot("MSFT", 410.55)
	c.Put(ctx, "MSFT", orig)

	// 外部篡改放入前的对象和取出的对象都不应污染缓存。
	orig.Closes[0] = -1

	first, ok := c.Get(ctx, "MSFT")
	require.True(t, ok)
	first.Closes[1] = -1

	second, ok := c.Get(ctx, "MSFT")
	require.True(t, ok)
	assert.Equal(t, []float64{408.55, 409.55, 410.55}, second.Closes)
}
