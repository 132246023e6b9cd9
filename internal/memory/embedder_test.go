package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicEmbedderIsDeterministic(t *testing.T) {
	e := NewDeterministicEmbedder(16)
	a, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeterministicEmbedderHasConfiguredDimension(t *testing.T) {
	e := NewDeterministicEmbedder(24)
	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, v, 24)
	assert.Equal(t, 24, e.Dimension())
}

func TestDeterministicEmbedderDiffersForDifferentText(t *testing.T) {
	e := NewDeterministicEmbedder(32)
	a, _ := e.Embed(context.Background(), "alpha")
	b, _ := e.Embed(context.Background(), "omega")
	assert.NotEqual(t, a, b)
}

func TestDeterministicEmbedderDefaultsDimensionWhenNonPositive(t *testing.T) {
	e := NewDeterministicEmbedder(0)
	assert.Equal(t, 32, e.Dimension())
}

func TestDeterministicEmbedderEmptyTextReturnsZeroVector(t *testing.T) {
	e := NewDeterministicEmbedder(8)
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}
