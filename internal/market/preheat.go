package market

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tradewind/internal/logger"
	"tradewind/internal/scheduler"
)

// Preheater 按固定节奏预热自选列表的快照缓存,
// 让交互请求大概率命中缓存而不是现场拉 provider。
type Preheater struct {
	Data     *DataService
	Symbols  []string
	Interval time.Duration
	// Parallel 单轮预热的并发上限,0 取默认 4。
	Parallel int
}

func NewPreheater(data *DataService, symbols []string, interval time.Duration) *Preheater {
	return &Preheater{Data: data, Symbols: symbols, Interval: interval}
}

// Run blocks until ctx is cancelled, warming the watchlist on each
// aligned tick. Individual symbol failures are logged and skipped.
func (p *Preheater) Run(ctx context.Context) error {
	if p.Data == nil || len(p.Symbols) == 0 {
		logger.Infof("[预热] 未配置自选列表,预热协程退出")
		return nil
	}
	loop := scheduler.NewLoop("market-preheat", p.Interval)
	loop.RunImmediately = true
	return loop.Run(ctx, p.warmAll)
}

func (p *Preheater) warmAll(ctx context.Context) {
	limit := p.Parallel
	if limit <= 0 {
		limit = 4
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, raw := range p.Symbols {
		sym := NormalizeSymbol(raw)
		if sym == "" {
			continue
		}
		g.Go(func() error {
			if _, hit, err := p.Data.Snapshot(gctx, sym); err != nil {
				logger.Warnf("[预热] %s 失败: %v", sym, err)
			} else if !hit {
				logger.Debugf("[预热] %s 已刷新", sym)
			}
			return nil
		})
	}
	_ = g.Wait()
	logger.Infof("[预热] 本轮完成 symbols=%d 耗时=%s", len(p.Symbols), time.Since(start).Round(time.Millisecond))
}
