package deck

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ErrExhausted is returned when a draw would run past the end of the deck.
var ErrExhausted = fmt.Errorf("deck exhausted")

// Shuffle produces the full 52-card ordering for a seed string. The same
// seed always yields the same ordering: the seed is mixed with an
// xmur3-style hash whose output keys a mulberry32 stream driving a
// Fisher-Yates pass.
func Shuffle(seed string) []Card {
	cards := make([]Card, NumCards)
	for i := range cards {
		cards[i] = Card(i)
	}
	next := mulberry32(xmur3(seed)())
	for i := len(cards) - 1; i > 0; i-- {
		j := int(next() % uint32(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
	return cards
}

// Draw returns the next n cards starting at index idx and the advanced
// index.
func Draw(cards []Card, idx, n int) ([]Card, int, error) {
	if idx < 0 || n < 0 || idx+n > len(cards) {
		return nil, idx, fmt.Errorf("draw %d at index %d: %w", n, idx, ErrExhausted)
	}
	out := make([]Card, n)
	copy(out, cards[idx:idx+n])
	return out, idx + n, nil
}

// Commitment returns the hex SHA-256 of the deck ordering, one byte per
// card code. It is recorded at hand start so the shuffle can be audited
// after the hand.
func Commitment(cards []Card) string {
	buf := make([]byte, len(cards))
	for i, c := range cards {
		buf[i] = byte(c)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// xmur3 hashes a seed string into a stream of 32-bit values.
func xmur3(s string) func() uint32 {
	h := uint32(1779033703) ^ uint32(len(s))
	for i := 0; i < len(s); i++ {
		h = (h ^ uint32(s[i])) * 3432918353
		h = h<<13 | h>>19
	}
	return func() uint32 {
		h = (h ^ (h >> 16)) * 2246822507
		h = (h ^ (h >> 13)) * 3266489909
		h ^= h >> 16
		return h
	}
}

// mulberry32 is a small deterministic PRNG keyed by a 32-bit state.
func mulberry32(a uint32) func() uint32 {
	return func() uint32 {
		a += 0x6D2B79F5
		t := a
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return t ^ (t >> 14)
	}
}
