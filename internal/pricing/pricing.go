// Package pricing implements C2: a static per-model lookup of input/output
// cost per 1M tokens, with a default fallback for unlisted models.
package pricing

// Entry is one model's input/output cost, expressed in USD per 1M tokens.
type Entry struct {
	InputPer1M  float64
	OutputPer1M float64
}

// Default is applied to any model not present in Table.
var Default = Entry{InputPer1M: 1.00, OutputPer1M: 3.00}

// Table mirrors the reference cost_tracker's MODEL_PRICING.
var Table = map[string]Entry{
	"gpt-4o-mini":   {InputPer1M: 0.15, OutputPer1M: 0.60},
	"gpt-4o":        {InputPer1M: 2.50, OutputPer1M: 10.00},
	"gpt-4-turbo":   {InputPer1M: 10.00, OutputPer1M: 30.00},
	"gpt-3.5-turbo": {InputPer1M: 0.50, OutputPer1M: 1.50},
}

// Lookup returns the entry for model, falling back to Default.
func Lookup(model string) Entry {
	if e, ok := Table[model]; ok {
		return e
	}
	return Default
}

// Cost computes the USD cost of a completion for model given input/output
// token counts, rounded to 8 decimal places. Monotonic non-decreasing in
// both token counts; zero tokens of both kinds costs zero (P5).
func Cost(model string, inputTokens, outputTokens int) float64 {
	e := Lookup(model)
	raw := (float64(inputTokens)/1_000_000)*e.InputPer1M + (float64(outputTokens)/1_000_000)*e.OutputPer1M
	return round8(raw)
}

func round8(v float64) float64 {
	const scale = 1e8
	return float64(int64(v*scale+0.5)) / scale
}
