// Package indicator 纯函数技术指标引擎:输入日线收盘序列,
// 输出 RSI/SMA/MACD。无 IO、无时钟、无随机,同一输入永远同一输出。
package indicator

import (
	"github.com/markcheno/go-talib"
)

const (
	RsiPeriod        = 14
	MacdFastPeriod   = 12
	MacdSlowPeriod   = 26
	MacdSignalPeriod = 9
	TrendFastPeriod  = 50
	TrendSlowPeriod  = 200
)

// Macd 三元组。Value 为快慢均线差,Signal 为 Value 序列的 EMA 平滑,
// Histogram = Value - Signal。
type Macd struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Report 一次快照对应的全部指标。Samples 记录参与计算的收盘样本数,
// 落进审计轨迹后能看出指标是否在兜底值上算出来的。
type Report struct {
	RSI     float64 `json:"rsi"`
	SMA50   float64 `json:"sma50"`
	SMA200  float64 `json:"sma200"`
	MACD    Macd    `json:"macd"`
	Samples int     `json:"samples"`
}

// Compute 对收盘序列计算完整指标集。lastPrice 用于序列不足时的
// SMA 兜底,保证下游永远拿到可用数字而不是 NaN。
func Compute(closes []float64, lastPrice float64) Report {
	return Report{
		RSI:     Rsi(closes, RsiPeriod),
		SMA50:   Sma(closes, TrendFastPeriod, lastPrice),
		SMA200:  Sma(closes, TrendSlowPeriod, lastPrice),
		MACD:    ComputeMacd(closes),
		Samples: len(closes),
	}
}

// Rsi 以简单滑动窗口平均计算 RSI:取最近 period 个涨跌幅,
// 平均涨幅与平均跌幅都是窗口内的算术平均。样本不足 period+1
// 返回中性 50,窗口内没有下跌返回 100。
func Rsi(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	window := closes[len(closes)-period-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Sma 最近 period 根收盘的算术平均。样本不足时退回最新价,
// 新股或数据源只给短序列时仍能参与趋势对比。
func Sma(closes []float64, period int, lastPrice float64) float64 {
	if period <= 0 || len(closes) < period {
		return lastPrice
	}
	out := talib.Sma(closes, period)
	return out[len(out)-1]
}

// ComputeMacd 快慢线取 SMA12-SMA26 之差,信号线对差值序列做
// EMA9 平滑;差值点不足 9 个时信号线直接取当前差值,直方图为 0。
// 样本不足 26 根整组返回零值。
func ComputeMacd(closes []float64) Macd {
	if len(closes) < MacdSlowPeriod {
		return Macd{}
	}
	fast := talib.Sma(closes, MacdFastPeriod)
	slow := talib.Sma(closes, MacdSlowPeriod)

	// 从慢线首个有效点开始构造差值序列。
	line := make([]float64, 0, len(closes)-MacdSlowPeriod+1)
	for i := MacdSlowPeriod - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}

	value := line[len(line)-1]
	signal := value
	if len(line) >= MacdSignalPeriod {
		ema := talib.Ema(line, MacdSignalPeriod)
		signal = ema[len(ema)-1]
	}
	return Macd{
		Value:     value,
		Signal:    signal,
		Histogram: value - signal,
	}
}
