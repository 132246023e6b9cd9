package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost_ZeroTokensIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cost("gpt-4o", 0, 0))
}

func TestCost_UnknownModelUsesDefault(t *testing.T) {
	got := Cost("some-unlisted-model", 1_000_000, 1_000_000)
	assert.Equal(t, Default.InputPer1M+Default.OutputPer1M, got)
}

// P5: monotonic non-decreasing in both input and output tokens.
func TestCost_Monotonic(t *testing.T) {
	base := Cost("gpt-4o-mini", 100, 100)
	moreInput := Cost("gpt-4o-mini", 200, 100)
	moreOutput := Cost("gpt-4o-mini", 100, 200)
	assert.GreaterOrEqual(t, moreInput, base)
	assert.GreaterOrEqual(t, moreOutput, base)
}
