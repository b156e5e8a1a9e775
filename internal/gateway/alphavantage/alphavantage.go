// Package alphavantage Alpha Vantage 行情源。免费档限流很紧
// (5 req/min),适合做 yahoo 之外的备选而不是主力。
package alphavantage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"tradewind/internal/market"
	"tradewind/internal/pkg/convert"
)

const defaultBaseURL = "https://www.alphavantage.co"

type Source struct {
	apiKey string
	client *resty.Client
}

func New(apiKey string, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		apiKey: apiKey,
		client: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (s *Source) Name() string { return "alphavantage" }

func (s *Source) Quote(ctx context.Context, symbol string) (market.Quote, error) {
	body, err := s.query(ctx, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
	})
	if err != nil {
		return market.Quote{}, err
	}

	g := gjson.Get(body, "Global Quote")
	if !g.Exists() || len(g.Map()) == 0 {
		return market.Quote{}, fmt.Errorf("alphavantage quote %s: empty global quote", symbol)
	}

	price, err := convert.StrictFloat("price", g.Get(`05\. price`).String())
	if err != nil {
		return market.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, err)
	}
	changePct, err := convert.StrictFloat("change percent",
		strings.TrimSuffix(g.Get(`10\. change percent`).String(), "%"))
	if err != nil {
		return market.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, err)
	}
	volume, _ := strconv.ParseInt(g.Get(`06\. volume`).String(), 10, 64)
	high := g.Get(`03\. high`).Float()
	low := g.Get(`04\. low`).Float()

	// GLOBAL_QUOTE 不含 52 周区间,置零后风险规则会自动跳过。
	return market.Quote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePct,
		Volume:        volume,
		DayHigh:       high,
		DayLow:        low,
	}, nil
}

func (s *Source) DailyCloses(ctx context.Context, symbol string, days int) ([]float64, error) {
	if days <= 0 {
		days = 250
	}
	outputSize := "compact"
	if days > 100 {
		outputSize = "full"
	}
	body, err := s.query(ctx, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": outputSize,
	})
	if err != nil {
		return nil, err
	}

	series := gjson.Get(body, "Time Series (Daily)")
	if !series.Exists() {
		return nil, fmt.Errorf("alphavantage history %s: missing daily series", symbol)
	}

	// ISO 日期字典序即时间序,排好再取尾部窗口。
	dates := make([]string, 0, 128)
	series.ForEach(func(key, _ gjson.Result) bool {
		dates = append(dates, key.String())
		return true
	})
	sort.Strings(dates)
	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	closes := make([]float64, 0, len(dates))
	for _, d := range dates {
		c := series.Get(escapeKey(d) + `.4\. close`)
		closes = append(closes, c.Float())
	}
	return closes, nil
}

func (s *Source) query(ctx context.Context, params map[string]string) (string, error) {
	params["apikey"] = s.apiKey
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/query")
	if err != nil {
		return "", fmt.Errorf("alphavantage request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("alphavantage status=%d", resp.StatusCode())
	}

	body := string(resp.Body())
	// 限流和错误都走 200,必须按 payload 识别。
	if msg := gjson.Get(body, "Error Message").String(); msg != "" {
		return "", fmt.Errorf("alphavantage error: %s", msg)
	}
	if note := gjson.Get(body, "Note").String(); note != "" {
		return "", fmt.Errorf("alphavantage throttled: %s", note)
	}
	if info := gjson.Get(body, "Information").String(); info != "" {
		return "", fmt.Errorf("alphavantage rejected: %s", info)
	}
	return body, nil
}

func escapeKey(key string) string {
	key = strings.ReplaceAll(key, ".", `\.`)
	return strings.ReplaceAll(key, "*", `\*`)
}

var _ market.Source = (*Source)(nil)
