// Package binance go-binance 行情源,让 BTC/ETH 这类意图也能走完
// 同一条决策流水线。现货 USDT 交易对,24h 统计充当日内字段。
package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"tradewind/internal/market"
	"tradewind/internal/pkg/convert"
)

type Source struct {
	client *binance.Client
}

// New 行情接口全部是公开端点,密钥可留空。
func New(baseURL string) *Source {
	cli := binance.NewClient("", "")
	if baseURL != "" {
		cli.BaseURL = baseURL
	}
	return &Source{client: cli}
}

func (s *Source) Name() string { return "binance" }

// pair 把裸币种映射成 USDT 现货交易对,已带计价后缀的原样返回。
func pair(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, quote := range []string{"USDT", "USDC", "FDUSD"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return symbol
		}
	}
	return symbol + "USDT"
}

func (s *Source) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	p := pair(symbol)
	stats, err := s.client.NewListPriceChangeStatsService().Symbol(p).Do(ctx)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance 24h stats %s: %w", p, err)
	}
	if len(stats) == 0 {
		return market.Quote{}, fmt.Errorf("binance 24h stats %s: empty response", p)
	}
	st := stats[0]

	price, err := convert.StrictFloat("last price", st.LastPrice)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance quote %s: %w", p, err)
	}
	changePct, err := convert.StrictFloat("change percent", st.PriceChangePercent)
	if err != nil {
		return market.Quote{}, fmt.Errorf("binance quote %s: %w", p, err)
	}
	high, _ := convert.StrictFloat("high", st.HighPrice)
	low, _ := convert.StrictFloat("low", st.LowPrice)
	vol, _ := convert.StrictFloat("volume", st.Volume)

	q := market.Quote{
		Symbol:        strings.ToUpper(strings.TrimSpace(symbol)),
		Name:          p + " spot",
		Price:         price,
		ChangePercent: changePct,
		Volume:        int64(vol),
		DayHigh:       high,
		DayLow:        low,
	}

	// 交易所不直接给 52 周区间,用一年日线高低点补上。
	// 失败不致命,风险规则对零值有跳过语义。
	if hi, lo, werr := s.yearRange(ctx, p); werr == nil {
		q.Week52High = hi
		q.Week52Low = lo
	}
	return q, nil
}

func (s *Source) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	if days <= 0 {
		days = 250
	}
	if days > 1000 {
		days = 1000
	}
	klines, err := s.client.NewKlinesService().
		Symbol(pair(symbol)).
		Interval("1d").
		Limit(days).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", pair(symbol), err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, cerr := convert.StrictFloat("close", k.Close)
		if cerr != nil {
			return nil, fmt.Errorf("binance klines %s: %w", pair(symbol), cerr)
		}
		closes = append(closes, c)
	}
	return closes, nil
}

func (s *Source) yearRange(ctx context.Context, p string) (high, low float64, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	klines, err := s.client.NewKlinesService().Symbol(p).Interval("1d").Limit(365).Do(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("binance year range %s: %w", p, err)
	}
	if len(klines) == 0 {
		return 0, 0, fmt.Errorf("binance year range %s: empty", p)
	}
	first := true
	for _, k := range klines {
		h, herr := convert.StrictFloat("high", k.High)
		l, lerr := convert.StrictFloat("low", k.Low)
		if herr != nil || lerr != nil {
			continue
		}
		if first || h > high {
			high = h
		}
		if first || l < low {
			low = l
		}
		first = false
	}
	return high, low, nil
}

var _ market.Source = (*Source)(nil)
