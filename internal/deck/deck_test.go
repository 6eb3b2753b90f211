package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleIsPermutation(t *testing.T) {
	seeds := []string{"hand-1-1700000000000-abc123xyz", "", "x", "hand-2-0-aaaaaaaaa"}
	for _, seed := range seeds {
		cards := Shuffle(seed)
		require.Len(t, cards, NumCards)

		seen := make(map[Card]bool)
		for _, c := range cards {
			require.True(t, c.Valid(), "seed %q produced invalid card %d", seed, c)
			require.False(t, seen[c], "seed %q produced duplicate card %s", seed, c)
			seen[c] = true
		}
	}
}

func TestShuffleIsDeterministic(t *testing.T) {
	a := Shuffle("hand-7-1700000000000-deadbeef0")
	b := Shuffle("hand-7-1700000000000-deadbeef0")
	assert.Equal(t, a, b)

	c := Shuffle("hand-8-1700000000000-deadbeef0")
	assert.NotEqual(t, a, c, "different seeds should reorder the deck")
}

func TestCommitmentIsPureFunctionOfSeed(t *testing.T) {
	h1 := Commitment(Shuffle("seed-a"))
	h2 := Commitment(Shuffle("seed-a"))
	h3 := Commitment(Shuffle("seed-b"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestDraw(t *testing.T) {
	cards := Shuffle("draw-test")

	got, idx, err := Draw(cards, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	assert.Equal(t, cards[:3], got)

	got, idx, err = Draw(cards, idx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, idx)
	assert.Equal(t, cards[3], got[0])

	_, _, err = Draw(cards, 50, 3)
	assert.ErrorIs(t, err, ErrExhausted)

	_, _, err = Draw(cards, -1, 1)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestCardEncoding(t *testing.T) {
	// rank*4 + suit with suit order c,d,h,s and ranks 2..A
	assert.Equal(t, "2c", Card(0).String())
	assert.Equal(t, "2s", Card(3).String())
	assert.Equal(t, "3c", Card(4).String())
	assert.Equal(t, "As", Card(51).String())
	assert.Equal(t, "Ah", Card(50).String())

	for code := 0; code < NumCards; code++ {
		c := Card(code)
		parsed, err := Parse(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := Parse("Xx")
	assert.Error(t, err)
	_, err = Parse("A")
	assert.Error(t, err)
}
