package exchange

import (
	"fmt"

	"clearcore/native/assets"
)

// RuleKind enumerates the contractual expectations a participant can state
// for one asset-kind slot.
type RuleKind uint8

const (
	RuleHaveExactly RuleKind = iota
	RuleHaveAtMost
	RuleWantExactly
	RuleWantAtLeast
)

// Valid reports whether the kind is within the supported range.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleHaveExactly, RuleHaveAtMost, RuleWantExactly, RuleWantAtLeast:
		return true
	default:
		return false
	}
}

// IsHave reports whether the rule offers value up front.
func (k RuleKind) IsHave() bool { return k == RuleHaveExactly || k == RuleHaveAtMost }

// IsWant reports whether the rule demands value in return.
func (k RuleKind) IsWant() bool { return k == RuleWantExactly || k == RuleWantAtLeast }

func (k RuleKind) String() string {
	switch k {
	case RuleHaveExactly:
		return "haveExactly"
	case RuleHaveAtMost:
		return "haveAtMost"
	case RuleWantExactly:
		return "wantExactly"
	case RuleWantAtLeast:
		return "wantAtLeast"
	default:
		return fmt.Sprintf("ruleKind(%d)", uint8(k))
	}
}

// Rule expresses one participant's expectation for one asset-kind slot.
type Rule struct {
	Kind   RuleKind
	Amount assets.Amount
}

// OfferDescription is an ordered sequence of rules, one per asset-kind slot,
// in the fixed slot order established at exchange-instance creation.
type OfferDescription []Rule

// Conform validates the description against the instance's issuer row: one
// rule per slot, each amount labelled with that slot's asset kind, each
// quantity valid under the slot's strategy. It returns a sanitized copy with
// canonical quantities.
func (d OfferDescription) Conform(issuers []*assets.Issuer) (OfferDescription, error) {
	if len(d) != len(issuers) {
		return nil, fmt.Errorf("%w: %d rules for %d slots", ErrInvalidOfferFormat, len(d), len(issuers))
	}
	out := make(OfferDescription, len(d))
	for i, rule := range d {
		if !rule.Kind.Valid() {
			return nil, fmt.Errorf("%w: slot %d has unknown rule kind %d", ErrInvalidOfferFormat, i, rule.Kind)
		}
		if rule.Amount.Label != issuers[i].Label() {
			return nil, fmt.Errorf("%w: slot %d amount labelled %q, want %q", ErrInvalidOfferFormat, i, rule.Amount.Label, issuers[i].Label())
		}
		quantity, err := issuers[i].Strategy().Validate(rule.Amount.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d: %v", ErrInvalidOfferFormat, i, err)
		}
		out[i] = Rule{Kind: rule.Kind, Amount: assets.Amount{Label: rule.Amount.Label, Quantity: quantity}}
	}
	return out, nil
}
