package market

import (
	"context"
	"errors"
)

// ErrUnavailable marks a hard market-data failure: the pipeline cannot
// continue without a quote. History failures never carry this error,
// they degrade to an empty series instead.
var ErrUnavailable = errors.New("market data unavailable")

// Source 行情数据源抽象,yahoo/alphavantage/binance/synthetic 各实现一份。
type Source interface {
	// Name 返回 provider 标识,用于日志与失败计数。
	Name() string
	// Quote fetches the live quote for an uppercase ticker.
	Quote(ctx context.Context, symbol string) (Quote, error)
	// DailyCloses returns up to days daily closes in ascending time
	// order. A short or empty series is acceptable.
	DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error)
}

// SnapshotCache 快照缓存。实现必须把后端故障降级为 miss,
// 调用方永远不会因为缓存层失败而中断。
type SnapshotCache interface {
	Get(ctx context.Context, symbol string) (Snapshot, bool)
	Put(ctx context.Context, symbol string, snap Snapshot)
}
