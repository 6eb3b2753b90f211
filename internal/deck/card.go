package deck

import "fmt"

// Card is an integer card code in [0, 51], encoded as rank*4 + suit.
// Suit order is clubs, diamonds, hearts, spades; rank order is 2 through A.
type Card int

// Suit indices within a rank group.
const (
	Clubs = iota
	Diamonds
	Hearts
	Spades
)

const (
	// NumCards is the size of a standard deck.
	NumCards = 52

	// HoleCards is the number of hole cards dealt per seat.
	HoleCards = 2
)

var (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// NewCard builds a card code from a rank index (0 = deuce, 12 = ace) and a
// suit index.
func NewCard(rank, suit int) Card {
	return Card(rank*4 + suit)
}

// Rank returns the rank index, 0 (deuce) through 12 (ace).
func (c Card) Rank() int {
	return int(c) / 4
}

// Suit returns the suit index.
func (c Card) Suit() int {
	return int(c) % 4
}

// Valid reports whether the code is inside the deck range.
func (c Card) Valid() bool {
	return c >= 0 && c < NumCards
}

// String renders the card in compact rank-suit form, e.g. "As" or "2c".
func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("card(%d)", int(c))
	}
	return string(rankChars[c.Rank()]) + string(suitChars[c.Suit()])
}

// Parse converts a compact rank-suit string back into a card code.
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("malformed card %q", s)
	}
	rank := -1
	for i := 0; i < len(rankChars); i++ {
		if rankChars[i] == s[0] {
			rank = i
			break
		}
	}
	suit := -1
	for i := 0; i < len(suitChars); i++ {
		if suitChars[i] == s[1] {
			suit = i
			break
		}
	}
	if rank < 0 || suit < 0 {
		return 0, fmt.Errorf("malformed card %q", s)
	}
	return NewCard(rank, suit), nil
}
