package exchange

import (
	"fmt"

	"clearcore/native/assets"
)

// foldSlotTotals transposes the matrix so each row is one asset-kind slot
// across the participating offers, then folds each row with that slot's With.
func foldSlotTotals(strategies []assets.Strategy, matrix [][]assets.Quantity) ([]assets.Quantity, error) {
	totals := make([]assets.Quantity, len(strategies))
	for slot, strategy := range strategies {
		total := strategy.Empty()
		for _, row := range matrix {
			if len(row) != len(strategies) {
				return nil, fmt.Errorf("exchange: quantity row has %d slots, want %d", len(row), len(strategies))
			}
			combined, err := strategy.With(total, row[slot])
			if err != nil {
				return nil, err
			}
			total = combined
		}
		totals[slot] = total
	}
	return totals, nil
}

// rightsConserved verifies that the proposed matrix preserves the per-slot
// totals of the current matrix for the same offers. It is a pure function
// with no side effects and must run on every proposed reallocation before any
// payout.
func rightsConserved(strategies []assets.Strategy, current, proposed [][]assets.Quantity) error {
	if len(current) != len(proposed) {
		return fmt.Errorf("%w: %d offers before, %d after", ErrRightsNotConserved, len(current), len(proposed))
	}
	before, err := foldSlotTotals(strategies, current)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRightsNotConserved, err)
	}
	after, err := foldSlotTotals(strategies, proposed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRightsNotConserved, err)
	}
	for slot, strategy := range strategies {
		if !strategy.Equals(before[slot], after[slot]) {
			return fmt.Errorf("%w: slot %d total changed from %v to %v", ErrRightsNotConserved, slot, before[slot], after[slot])
		}
	}
	return nil
}
