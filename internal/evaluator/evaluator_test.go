package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltd/feltd/internal/deck"
)

func cards(t *testing.T, names ...string) []deck.Card {
	t.Helper()
	out := make([]deck.Card, len(names))
	for i, n := range names {
		c, err := deck.Parse(n)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func TestEvaluateOrdering(t *testing.T) {
	royal, err := Evaluate(cards(t, "As", "Ks", "Qs", "Js", "Ts", "2c", "3d"))
	require.NoError(t, err)

	quads, err := Evaluate(cards(t, "Ah", "Ac", "Ad", "As", "Kc", "2c", "3d"))
	require.NoError(t, err)

	pair, err := Evaluate(cards(t, "Ah", "Ac", "7d", "5s", "Kc", "2c", "3d"))
	require.NoError(t, err)

	high, err := Evaluate(cards(t, "Ah", "Qc", "7d", "5s", "Kc", "2c", "3d"))
	require.NoError(t, err)

	assert.True(t, royal.Beats(quads))
	assert.True(t, quads.Beats(pair))
	assert.True(t, pair.Beats(high))
}

func TestEvaluateTies(t *testing.T) {
	// Board plays for both: the best five cards are identical.
	board := []string{"As", "Kd", "Qh", "Jc", "Th"}

	a, err := Evaluate(cards(t, append([]string{"2c", "3c"}, board...)...))
	require.NoError(t, err)
	b, err := Evaluate(cards(t, append([]string{"2d", "3d"}, board...)...))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	_, err := Evaluate(cards(t, "As", "Ks", "Qs", "Js"))
	assert.Error(t, err, "too few cards")

	_, err = Evaluate(cards(t, "As", "As", "Qs", "Js", "Ts"))
	assert.Error(t, err, "duplicate card")

	_, err = Evaluate([]deck.Card{0, 1, 2, 3, 99})
	assert.Error(t, err, "out of range code")
}

func TestCategoryLabels(t *testing.T) {
	flush, err := Evaluate(cards(t, "As", "Qs", "8s", "5s", "2s", "3d", "4c"))
	require.NoError(t, err)
	assert.Equal(t, "Flush", flush.Category())
}
