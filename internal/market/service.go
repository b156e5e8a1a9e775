package market

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/logger"
	"tradewind/internal/metrics"
	"tradewind/internal/pkg/circuit"
)

// DataService 是行情读路径的唯一入口:先查缓存,miss 再经熔断器
// 走 provider,成功后回填缓存。Quote 失败是硬错误,历史失败软降级。
type DataService struct {
	cache       SnapshotCache
	source      Source
	breaker     *circuit.Breaker
	metrics     *metrics.Metrics
	historyDays int
	callTimeout time.Duration
	nowFn       func() time.Time
}

type DataServiceParams struct {
	Cache       SnapshotCache
	Source      Source
	Breaker     *circuit.Breaker
	Metrics     *metrics.Metrics
	HistoryDays int
	CallTimeout time.Duration
}

func NewDataService(p DataServiceParams) *DataService {
	if p.HistoryDays <= 0 {
		p.HistoryDays = 250
	}
	if p.CallTimeout <= 0 {
		p.CallTimeout = 10 * time.Second
	}
	return &DataService{
		cache:       p.Cache,
		source:      p.Source,
		breaker:     p.Breaker,
		metrics:     p.Metrics,
		historyDays: p.HistoryDays,
		callTimeout: p.CallTimeout,
		nowFn:       time.Now,
	}
}

// Snapshot 返回标的快照与是否命中缓存。symbol 不区分大小写。
func (s *DataService) Snapshot(ctx context.Context, symbol string) (Snapshot, bool, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return Snapshot{}, false, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	if s.cache != nil {
		if snap, ok := s.cache.Get(ctx, sym); ok {
			s.metrics.ObserveCache(true)
			logger.Debugf("[行情] %s 缓存命中 (fetched_at=%s)", sym, snap.FetchedAt.Format(time.RFC3339))
			return snap, true, nil
		}
		s.metrics.ObserveCache(false)
	}

	snap, err := s.fetch(ctx, sym)
	if err != nil {
		return Snapshot{}, false, err
	}

	if s.cache != nil {
		s.cache.Put(ctx, sym, snap)
	}
	return snap, false, nil
}

func (s *DataService) fetch(ctx context.Context, sym string) (Snapshot, error) {
	if s.breaker != nil && !s.breaker.Allow() {
		return Snapshot{}, fmt.Errorf("%w: provider %s circuit open", ErrUnavailable, s.source.Name())
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	quote, err := s.source.Quote(callCtx, sym)
	if err == nil {
		err = quote.Validate()
	}
	if err != nil {
		if s.breaker != nil {
			s.breaker.RecordFailure()
		}
		s.metrics.ObserveProviderFailure(s.source.Name())
		return Snapshot{}, fmt.Errorf("%w: %s quote for %s: %v", ErrUnavailable, s.source.Name(), sym, err)
	}
	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}

	// 历史序列失败不阻断决策,指标层对空序列有兜底语义。
	closes, err := s.source.DailyCloses(callCtx, sym, s.historyDays)
	if err != nil {
		logger.Warnf("[行情] %s 历史收盘获取失败,指标将按空序列兜底: %v", sym, err)
		closes = nil
	}

	return Snapshot{Quote: quote, Closes: closes, FetchedAt: s.nowFn()}, nil
}
