// Package decision 把推理引擎的回复解析成规范化交易决策。
// 首选路径是 JSON 结构化输出,解析失败退回自由文本扫描,
// 两条路径共享同一套归一化规则,保证任何回复都能得到可用决策。
package decision

import (
	"encoding/json"
	"strconv"
	"strings"

	"tradewind/internal/pkg/convert"
)

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

const (
	SourceStructured = "structured"
	SourceLegacy     = "legacy"

	defaultConfidence = 0.5
)

// Decision 规范化后的单笔决策。Confidence 恒在 [0,1]。
type Decision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Quantity   int     `json:"quantity"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Result 解析产物,Source 标记走了哪条路径,RawJSON 回填审计。
type Result struct {
	Decision Decision `json:"decision"`
	Source   string   `json:"source"`
	RawJSON  string   `json:"raw_json,omitempty"`
}

// UnmarshalJSON 宽松解码:数字可以是字符串,缺省字段给默认值。
// 未知字段由 schema 层拦截,这里只管类型弹性。
func (d *Decision) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Action = coerceString(raw["action"])
	d.Reasoning = coerceString(raw["reasoning"])
	if v, ok := raw["confidence"]; ok {
		d.Confidence = convert.ToFloat64(v)
	} else {
		d.Confidence = defaultConfidence
	}
	d.Quantity = convert.ToInt(raw["quantity"])
	return nil
}

func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
