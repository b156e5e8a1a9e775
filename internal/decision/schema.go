package decision

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// decisionSchema 结构化输出契约:action 必填,数字字段允许字符串
// 形态(上游模型经常把数字带引号),未知字段直接判不合格走退路。
const decisionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action"],
  "additionalProperties": false,
  "properties": {
    "action": {"type": "string", "minLength": 1},
    "symbol": {"type": "string"},
    "confidence": {"type": ["number", "string"]},
    "quantity": {"type": ["integer", "string"]},
    "reasoning": {"type": "string"}
  }
}`

var compiledDecisionSchema = mustCompileDecisionSchema()

func mustCompileDecisionSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("decision.json", strings.NewReader(decisionSchema)); err != nil {
		panic(fmt.Sprintf("decision: add schema resource: %v", err))
	}
	sch, err := c.Compile("decision.json")
	if err != nil {
		panic(fmt.Sprintf("decision: compile schema: %v", err))
	}
	return sch
}
