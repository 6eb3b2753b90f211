// Package evaluator scores seven-card poker hands. The table engine only
// depends on the integer score (lower is better); the category label is a
// display convenience derived from the score.
package evaluator

import (
	"fmt"

	"github.com/chehsunliu/poker"

	"github.com/feltd/feltd/internal/deck"
)

// Score is an absolute hand strength where lower is better. Equal scores
// are exact ties including kickers.
type Score int32

// Evaluate scores the best five-card hand out of the given cards. It
// accepts 5, 6 or 7 cards and rejects duplicates and out-of-range codes.
func Evaluate(cards []deck.Card) (Score, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return 0, fmt.Errorf("evaluate: want 5-7 cards, got %d", len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	converted := make([]poker.Card, len(cards))
	for i, c := range cards {
		if !c.Valid() {
			return 0, fmt.Errorf("evaluate: card code %d out of range", int(c))
		}
		if seen[c] {
			return 0, fmt.Errorf("evaluate: duplicate card %s", c)
		}
		seen[c] = true
		converted[i] = poker.NewCard(c.String())
	}
	return Score(poker.Evaluate(converted)), nil
}

// Category returns a display label for a score, e.g. "Straight Flush".
// It is not part of the engine contract.
func (s Score) Category() string {
	return poker.RankString(int32(s))
}

// Beats reports whether s is strictly stronger than other.
func (s Score) Beats(other Score) bool {
	return s < other
}
