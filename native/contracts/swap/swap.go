// Package swap implements the bilateral swap contract: exactly two offers
// whose rules are mirror images exchange their escrowed quantity vectors.
package swap

import (
	"errors"
	"fmt"
	"sync"

	"clearcore/native/assets"
	nativecommon "clearcore/native/common"
	"clearcore/native/exchange"
)

const moduleName = "swap"

var (
	errNilFacet     = errors.New("swap: governing facet not configured")
	errTwoSlots     = errors.New("swap: instance must have exactly two asset kinds")
	errNotCanceller = errors.New("swap: only the standing offer may cancel")
)

// Status is the contract phase. Closed and cancelled are terminal.
type Status uint8

const (
	StatusOpen Status = iota
	StatusClosed
	StatusCancelled
)

// Valid reports whether the status value is within the supported range.
func (s Status) Valid() bool { return s <= StatusCancelled }

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Contract is one bilateral swap over a two-kind exchange instance. The first
// valid offer stands until its mirror image arrives; the reallocation then
// simply exchanges the two quantity vectors.
type Contract struct {
	facet  *exchange.GoverningFacet
	pauses nativecommon.PauseView

	mu        sync.Mutex
	status    Status
	first     exchange.OfferID
	firstDesc exchange.OfferDescription
	hasFirst  bool
}

// New binds the contract to a governing facet over exactly two asset kinds.
func New(facet *exchange.GoverningFacet) (*Contract, error) {
	if facet == nil {
		return nil, errNilFacet
	}
	if len(facet.Issuers()) != 2 {
		return nil, errTwoSlots
	}
	return &Contract{facet: facet, status: StatusOpen}, nil
}

// SetPauses configures the operator pause view.
func (c *Contract) SetPauses(p nativecommon.PauseView) { c.pauses = p }

// Status returns the current contract phase.
func (c *Contract) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsValidOfferDescription checks structure only: two rules shaped
// haveExactly/wantExactly in either slot order, each labelled with the
// instance's asset kind for its slot. Cheap and side-effect-free.
func (c *Contract) IsValidOfferDescription(issuers []*assets.Issuer, desc exchange.OfferDescription) bool {
	if len(issuers) != 2 || len(desc) != 2 {
		return false
	}
	for i, rule := range desc {
		if rule.Amount.Label != issuers[i].Label() {
			return false
		}
	}
	haveThenWant := desc[0].Kind == exchange.RuleHaveExactly && desc[1].Kind == exchange.RuleWantExactly
	wantThenHave := desc[0].Kind == exchange.RuleWantExactly && desc[1].Kind == exchange.RuleHaveExactly
	return haveThenWant || wantThenHave
}

// CanReallocate reports whether the activation condition is met: an open
// contract holding a standing offer joined by a second one.
func (c *Contract) CanReallocate(ids []exchange.OfferID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusOpen && c.hasFirst && len(ids) == 2
}

// mirrors reports whether b is the mirror image of a: rule kinds swapped
// across slots, per-slot amounts equal.
func (c *Contract) mirrors(a, b exchange.OfferDescription) bool {
	if len(a) != 2 || len(b) != 2 {
		return false
	}
	if b[0].Kind != a[1].Kind || b[1].Kind != a[0].Kind {
		return false
	}
	strategies := c.facet.Strategies()
	for i := range a {
		if !a[i].Amount.SameLabel(b[i].Amount) {
			return false
		}
		if !strategies[i].Equals(a[i].Amount.Quantity, b[i].Amount.Quantity) {
			return false
		}
	}
	return true
}

// MakeOffer submits an escrowed offer to the swap. The first valid offer
// stands; the second must mirror it, at which point both vectors are
// exchanged, both offers paid out, and the contract closes. Invalid shapes
// reject the offer (with refund) rather than aborting the contract.
func (c *Contract) MakeOffer(id exchange.OfferID) error {
	if err := nativecommon.Guard(c.pauses, moduleName); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusOpen {
		if err := c.facet.RejectOffer(id, exchange.ErrAlreadyFinal); err != nil {
			return err
		}
		return exchange.ErrAlreadyFinal
	}
	descs, err := c.facet.DescriptionsFor([]exchange.OfferID{id})
	if err != nil {
		return err
	}
	desc := descs[0]
	if !c.IsValidOfferDescription(c.facet.Issuers(), desc) {
		if err := c.facet.RejectOffer(id, exchange.ErrInvalidOfferFormat); err != nil {
			return err
		}
		return exchange.ErrInvalidOfferFormat
	}
	if !c.hasFirst {
		c.first = id
		c.firstDesc = desc
		c.hasFirst = true
		return nil
	}
	if !c.mirrors(c.firstDesc, desc) {
		if err := c.facet.RejectOffer(id, exchange.ErrInvalidOfferFormat); err != nil {
			return err
		}
		return exchange.ErrInvalidOfferFormat
	}

	ids := []exchange.OfferID{c.first, id}
	current, err := c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	proposed := [][]assets.Quantity{current[1], current[0]}
	if err := c.facet.Reallocate(ids, proposed); err != nil {
		return err
	}
	if err := c.facet.Eject(ids); err != nil {
		return err
	}
	c.status = StatusClosed
	c.hasFirst = false
	return nil
}

// Cancel refunds the standing offer before a match arrives. The refund is an
// identity reallocation run through the full conservation and safety
// pipeline, not a bypass. Once the contract is terminal, cancellation fails
// with the local ErrAlreadyFinal condition.
func (c *Contract) Cancel(id exchange.OfferID) error {
	if err := nativecommon.Guard(c.pauses, moduleName); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusOpen {
		return exchange.ErrAlreadyFinal
	}
	if !c.hasFirst || c.first != id {
		return errNotCanceller
	}
	ids := []exchange.OfferID{id}
	current, err := c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	if err := c.facet.Reallocate(ids, current); err != nil {
		return err
	}
	if err := c.facet.Eject(ids); err != nil {
		return err
	}
	c.status = StatusCancelled
	c.hasFirst = false
	return nil
}
