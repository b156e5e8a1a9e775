// Package market 定义行情快照模型与数据服务:
// 上游 provider 拉取 -> 校验 -> 缓存,下游只读快照。
package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Quote 单只标的的实时报价字段,由 provider 边界统一校验后进入流水线。
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	DayHigh       float64 `json:"day_high"`
	DayLow        float64 `json:"day_low"`
	Week52High    float64 `json:"week52_high"`
	Week52Low     float64 `json:"week52_low"`
	MarketCap     float64 `json:"market_cap,omitempty"`
}

// Validate 在数据源边界做一次性校验,流水线内部不再怀疑字段合法性。
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Symbol) == "" {
		return fmt.Errorf("quote missing symbol")
	}
	if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return fmt.Errorf("quote %s: invalid price %v", q.Symbol, q.Price)
	}
	if math.IsNaN(q.ChangePercent) || math.IsInf(q.ChangePercent, 0) {
		return fmt.Errorf("quote %s: invalid change percent", q.Symbol)
	}
	if q.Volume < 0 {
		return fmt.Errorf("quote %s: negative volume %d", q.Symbol, q.Volume)
	}
	return nil
}

// Snapshot 报价加日线收盘序列,缓存和编排层共享的不可变单位。
// Closes 按时间升序,最后一个元素是最近一个交易日。
type Snapshot struct {
	Quote     Quote     `json:"quote"`
	Closes    []float64 `json:"closes,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Clone returns a deep copy so cache readers can never mutate the
// stored snapshot through the shared slice.
func (s Snapshot) Clone() Snapshot {
	out := s
	if len(s.Closes) > 0 {
		out.Closes = make([]float64, len(s.Closes))
		copy(out.Closes, s.Closes)
	}
	return out
}

// NormalizeSymbol 统一主键口径:缓存、symbolbook、订单全部走大写。
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
