// Package yahoo 基于 piquette/finance-go 的美股行情源,默认 provider。
package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"

	"tradewind/internal/market"
)

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return "yahoo" }

// Quote 拉实时报价。finance-go 不接收 ctx,调用前先检查取消状态,
// 传输层超时由 DataService 的调用超时兜底。
func (s *Source) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, err
	}
	q, err := equity.Get(symbol)
	if err != nil {
		return market.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if q == nil {
		return market.Quote{}, fmt.Errorf("yahoo quote %s: empty response", symbol)
	}
	return market.Quote{
		Symbol:        symbol,
		Name:          q.ShortName,
		Price:         q.RegularMarketPrice,
		ChangePercent: q.RegularMarketChangePercent,
		Volume:        int64(q.RegularMarketVolume),
		DayHigh:       q.RegularMarketDayHigh,
		DayLow:        q.RegularMarketDayLow,
		Week52High:    q.FiftyTwoWeekHigh,
		Week52Low:     q.FiftyTwoWeekLow,
		MarketCap:     float64(q.MarketCap),
	}, nil
}

// DailyCloses 取最近 days 个交易日收盘。交易日和自然日不等长,
// 窗口按 7/5 放大再截尾。
func (s *Source) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 250
	}
	end := time.Now()
	start := end.AddDate(0, 0, -(days*7/5 + 10))

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	closes := make([]float64, 0, days)
	for iter.Next() {
		b := iter.Bar()
		closes = append(closes, b.Close.InexactFloat64())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if len(closes) > days {
		closes = closes[len(closes)-days:]
	}
	return closes, nil
}

var _ market.Source = (*Source)(nil)
