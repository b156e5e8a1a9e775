package decision

import (
	"regexp"
	"strconv"
)

// 自由文本扫描的取值规则:带标签的值优先,标签缺失时
// 动作取第一个独立 BUY/SELL/HOLD 词,置信度取全文第一个数字。
var (
	actionLabelPattern     = regexp.MustCompile(`(?i)\baction\b[\s:*="'\-]*([A-Za-z][A-Za-z_\-]*)`)
	actionTokenPattern     = regexp.MustCompile(`(?i)\b(buy|sell|hold)\b`)
	confidenceLabelPattern = regexp.MustCompile(`(?i)\bconfidence\b[\s:*="'\-]*([0-9]+(?:\.[0-9]+)?)`)
	quantityLabelPattern   = regexp.MustCompile(`(?i)\bquantity\b[\s:*="'\-]*([0-9]+)`)
	firstNumberPattern     = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)
)

func (p *Parser) parseLegacy(raw string) Decision {
	d := Decision{
		Action:     ActionHold,
		Confidence: defaultConfidence,
		Quantity:   p.DefaultQuantity,
	}

	act, ok := "", false
	if m := actionLabelPattern.FindStringSubmatch(raw); m != nil {
		act, ok = NormalizeAction(m[1])
	}
	if !ok {
		if tok := actionTokenPattern.FindString(raw); tok != "" {
			act, ok = NormalizeAction(tok)
		}
	}
	if ok {
		d.Action = act
	}

	if m := confidenceLabelPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.Confidence = NormalizeConfidence(v)
		}
	} else if tok := firstNumberPattern.FindString(raw); tok != "" {
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			d.Confidence = NormalizeConfidence(v)
		}
	}

	if m := quantityLabelPattern.FindStringSubmatch(raw); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			d.Quantity = NormalizeQuantity(q, p.DefaultQuantity)
		}
	}
	return d
}
