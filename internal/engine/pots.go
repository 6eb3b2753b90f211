package engine

import "sort"

// buildPots runs the commitment-level algorithm over every seat's total
// hand commitment and returns the full pot layering, main pot first.
// Folded seats contribute dead money but are never eligible.
func (t *Table) buildPots() []Pot {
	levels := make([]int, 0, NumSeats)
	seen := make(map[int]bool)
	for i := range t.Seats {
		c := t.Seats[i].Committed
		if c > 0 && !seen[c] {
			seen[c] = true
			levels = append(levels, c)
		}
	}
	sort.Ints(levels)

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		width := level - prev
		amount := 0
		var eligible []string
		for i := range t.Seats {
			s := &t.Seats[i]
			if s.Committed < level {
				continue
			}
			amount += width
			if s.InHand() {
				eligible = append(eligible, s.PlayerID)
			}
		}
		prev = level
		if amount == 0 {
			continue
		}
		if len(eligible) == 0 {
			// Only the top layers can lose all claimants (a departed
			// seat's unmatched chips). They fall into the pot below so
			// no chips leave the hand.
			if len(pots) > 0 {
				pots[len(pots)-1].Amount += amount
			}
			continue
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible, Cap: level})
	}
	return pots
}

// collectPots rebuilds the table's pots from commitments. Rebuilding from
// scratch after each street is equivalent to merging fresh layers into
// existing pots because commitments only grow and eligibility only
// shrinks.
func (t *Table) collectPots() {
	t.Pots = t.buildPots()
}

// UncalledRefund returns the seat index and amount of an uncalled bet:
// the excess of the highest commitment over the second-highest among all
// seats. Returns (-1, 0) when every chip is matched.
func (t *Table) UncalledRefund() (int, int) {
	top, second, topSeat := 0, 0, -1
	for i := range t.Seats {
		c := t.Seats[i].Committed
		if c > top {
			second = top
			top = c
			topSeat = i
		} else if c > second {
			second = c
		}
	}
	if topSeat >= 0 && top > second {
		return topSeat, top - second
	}
	return -1, 0
}
