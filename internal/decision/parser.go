package decision

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"tradewind/internal/logger"
	"tradewind/internal/pkg/jsonutil"
)

type Parser struct {
	DefaultQuantity int
}

func NewParser(defaultQuantity int) *Parser {
	if defaultQuantity <= 0 {
		defaultQuantity = 10
	}
	return &Parser{DefaultQuantity: defaultQuantity}
}

// Parse 永远返回一个可执行决策:结构化路径失败时退回文本扫描,
// 文本里什么都没有就是 HOLD 加默认值。解析本身从不让一次 run 失败。
func (p *Parser) Parse(raw string) Result {
	if block, ok := jsonutil.ExtractObject(raw); ok {
		d, err := p.parseStructured(block)
		if err == nil {
			return Result{Decision: d, Source: SourceStructured, RawJSON: block}
		}
		logger.Debugf("[决策] 结构化解析失败,退回文本扫描: %v", err)
	}
	return Result{Decision: p.parseLegacy(raw), Source: SourceLegacy}
}

func (p *Parser) parseStructured(block string) (Decision, error) {
	if !gjson.Valid(block) {
		return Decision{}, fmt.Errorf("json 格式无效")
	}
	var generic any
	if err := json.Unmarshal([]byte(block), &generic); err != nil {
		return Decision{}, fmt.Errorf("decode generic: %w", err)
	}
	if err := compiledDecisionSchema.Validate(generic); err != nil {
		return Decision{}, fmt.Errorf("schema: %w", err)
	}
	var d Decision
	if err := json.Unmarshal([]byte(block), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	return p.normalize(d), nil
}

func (p *Parser) normalize(d Decision) Decision {
	d.Action, _ = NormalizeAction(d.Action)
	d.Confidence = NormalizeConfidence(d.Confidence)
	d.Quantity = NormalizeQuantity(d.Quantity, p.DefaultQuantity)
	return d
}
