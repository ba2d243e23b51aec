package exchange

import (
	"fmt"

	"clearcore/native/assets"
)

// offerSafe decides whether one participant's proposed allocation honours
// their stated rules. The outcome is safe iff the participant either gets
// back everything they put up (refundOk across every have slot) or gets
// everything they asked for (winningsOk across every want slot). Mixed
// partial outcomes across different rule types never count as safe, even when
// no individual slot violates its own rule; allowing them would let a
// reallocation pick which promises to honour per participant.
func offerSafe(strategies []assets.Strategy, desc OfferDescription, allocated []assets.Quantity) bool {
	refundOk := true
	winningsOk := true
	for slot, rule := range desc {
		if rule.Kind.IsHave() && !strategies[slot].Includes(allocated[slot], rule.Amount.Quantity) {
			refundOk = false
		}
		if rule.Kind.IsWant() && !strategies[slot].Includes(allocated[slot], rule.Amount.Quantity) {
			winningsOk = false
		}
	}
	return refundOk || winningsOk
}

// offerSafeForAll requires every participating offer to pass individually.
func offerSafeForAll(strategies []assets.Strategy, descs []OfferDescription, proposed [][]assets.Quantity) error {
	if len(descs) != len(proposed) {
		return fmt.Errorf("%w: %d descriptions for %d rows", ErrOfferNotSafe, len(descs), len(proposed))
	}
	for i, desc := range descs {
		if len(desc) != len(strategies) || len(proposed[i]) != len(strategies) {
			return fmt.Errorf("%w: offer %d has mismatched slot count", ErrOfferNotSafe, i)
		}
		if !offerSafe(strategies, desc, proposed[i]) {
			return fmt.Errorf("%w: offer %d", ErrOfferNotSafe, i)
		}
	}
	return nil
}
