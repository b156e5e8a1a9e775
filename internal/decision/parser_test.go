package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructured(t *testing.T) {
	p := NewParser(10)

	t.Run("clean json object", func(t *testing.T) {
		got := p.Parse(`{"action":"BUY","confidence":0.82,"quantity":25,"reasoning":"momentum setup"}`)
		assert.Equal(t, SourceStructured, got.Source)
		assert.Equal(t, ActionBuy, got.Decision.Action)
		assert.Equal(t, 0.82, got.Decision.Confidence)
		assert.Equal(t, 25, got.Decision.Quantity)
		assert.Equal(t, "momentum setup", got.Decision.Reasoning)
	})

	t.Run("fenced block with prose around", func(t *testing.T) {
		raw := "Here is my take.\n```json\n{\"action\":\"sell\",\"confidence\":64,\"quantity\":5}\n```\nGood luck."
		got := p.Parse(raw)
		assert.Equal(t, SourceStructured, got.Source)
		assert.Equal(t, ActionSell, got.Decision.Action)
		assert.Equal(t, 0.64, got.Decision.Confidence, "percent form divides by 100")
		assert.Equal(t, 5, got.Decision.Quantity)
	})

	t.Run("stringy numbers are coerced", func(t *testing.T) {
		got := p.Parse(`{"action":"hold","confidence":"0.42","quantity":"15"}`)
		assert.Equal(t, SourceStructured, got.Source)
		assert.Equal(t, ActionHold, got.Decision.Action)
		assert.Equal(t, 0.42, got.Decision.Confidence)
		assert.Equal(t, 15, got.Decision.Quantity)
	})

	t.Run("synonym actions normalize", func(t *testing.T) {
		got := p.Parse(`{"action":"go long","confidence":0.7}`)
		assert.Equal(t, ActionBuy, got.Decision.Action)
		assert.Equal(t, 10, got.Decision.Quantity, "missing quantity takes default")
	})

	t.Run("missing confidence defaults to neutral", func(t *testing.T) {
		got := p.Parse(`{"action":"BUY"}`)
		assert.Equal(t, SourceStructured, got.Source)
		assert.Equal(t, 0.5, got.Decision.Confidence)
	})

	t.Run("out of domain confidence clamps", func(t *testing.T) {
		got := p.Parse(`{"action":"BUY","confidence":250}`)
		assert.Equal(t, 1.0, got.Decision.Confidence)

		got = p.Parse(`{"action":"BUY","confidence":-3}`)
		assert.Equal(t, 0.0, got.Decision.Confidence)
	})
}

func TestParseFallsBackToLegacy(t *testing.T) {
	p := NewParser(10)

	t.Run("unknown field fails schema then scans text", func(t *testing.T) {
		got := p.Parse(`{"action":"BUY","confidence":0.8,"leverage":5}`)
		assert.Equal(t, SourceLegacy, got.Source)
		assert.Equal(t, ActionBuy, got.Decision.Action)
		assert.Equal(t, 0.8, got.Decision.Confidence)
	})

	t.Run("missing action fails schema", func(t *testing.T) {
		got := p.Parse(`{"confidence":0.9}`)
		assert.Equal(t, SourceLegacy, got.Source)
		assert.Equal(t, ActionHold, got.Decision.Action)
	})

	t.Run("truncated json", func(t *testing.T) {
		got := p.Parse(`{"action":"BUY","confidence":`)
		assert.Equal(t, SourceLegacy, got.Source)
		assert.Equal(t, ActionBuy, got.Decision.Action)
	})
}

func TestParseLegacyText(t *testing.T) {
	p := NewParser(10)

	t.Run("labelled fields", func(t *testing.T) {
		raw := "Analysis complete. Action: BUY because momentum is strong. Confidence: 78 out of 100. Quantity: 10 shares."
		got := p.Parse(raw)
		assert.Equal(t, SourceLegacy, got.Source)
		assert.Equal(t, ActionBuy, got.Decision.Action)
		assert.Equal(t, 0.78, got.Decision.Confidence)
		assert.Equal(t, 10, got.Decision.Quantity)
	})

	t.Run("fractional confidence stays", func(t *testing.T) {
		got := p.Parse("Action: SELL\nConfidence: 0.42")
		assert.Equal(t, ActionSell, got.Decision.Action)
		assert.Equal(t, 0.42, got.Decision.Confidence)
	})

	t.Run("unlabelled action token", func(t *testing.T) {
		got := p.Parse("The recommended move is to buy some and wait. 65% sure.")
		assert.Equal(t, ActionBuy, got.Decision.Action)
		assert.Equal(t, 0.65, got.Decision.Confidence, "first number in text")
	})

	t.Run("markdown labels", func(t *testing.T) {
		got := p.Parse("**Action:** HOLD\n**Confidence:** 55\n**Quantity:** 3")
		assert.Equal(t, ActionHold, got.Decision.Action)
		assert.Equal(t, 0.55, got.Decision.Confidence)
		assert.Equal(t, 3, got.Decision.Quantity)
	})

	t.Run("nothing usable defaults to hold", func(t *testing.T) {
		got := p.Parse("Market conditions are unclear at this time.")
		require.Equal(t, SourceLegacy, got.Source)
		assert.Equal(t, Decision{Action: ActionHold, Confidence: 0.5, Quantity: 10}, got.Decision)
	})

	t.Run("empty reply", func(t *testing.T) {
		got := p.Parse("")
		assert.Equal(t, Decision{Action: ActionHold, Confidence: 0.5, Quantity: 10}, got.Decision)
	})

	t.Run("label beats earlier free number", func(t *testing.T) {
		got := p.Parse("Price moved 3.1 percent today. Action: hold. Confidence: 40.")
		assert.Equal(t, ActionHold, got.Decision.Action)
		assert.Equal(t, 0.40, got.Decision.Confidence)
	})
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.42, 0.42},
		{78, 0.78},
		{1, 1},
		{100, 1},
		{250, 1},
		{0, 0},
		{-5, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeConfidence(tc.in), "in=%v", tc.in)
	}
}
