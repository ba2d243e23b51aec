package exchange

import (
	"github.com/google/uuid"

	"clearcore/native/assets"
)

// GoverningFacet is the restricted capability handed to installed contract
// logic. Contract code can read ledger state and propose reallocations, but
// every write funnels through the kernel's conservation and safety checks;
// there is no other write path. Arbitrary, buggy contract logic therefore
// cannot violate conservation or offer safety no matter what matrix it
// proposes.
type GoverningFacet struct {
	x *Exchange
}

// InstanceID returns the owning instance's identity.
func (f *GoverningFacet) InstanceID() uuid.UUID { return f.x.id }

// Issuers returns the instance's issuer row in slot order.
func (f *GoverningFacet) Issuers() []*assets.Issuer { return f.x.Issuers() }

// Strategies returns the per-slot quantity strategies.
func (f *GoverningFacet) Strategies() []assets.Strategy {
	return append([]assets.Strategy(nil), f.x.ledger.strategies...)
}

// QuantitiesFor reads the current quantity vectors for the given offers.
func (f *GoverningFacet) QuantitiesFor(ids []OfferID) ([][]assets.Quantity, error) {
	return f.x.quantitiesFor(ids)
}

// DescriptionsFor reads the recorded offer descriptions for the given offers.
func (f *GoverningFacet) DescriptionsFor(ids []OfferID) ([]OfferDescription, error) {
	return f.x.descriptionsFor(ids)
}

// Reallocate proposes a new quantity matrix for the given offers. A failed
// check is fatal and leaves the ledger unmodified.
func (f *GoverningFacet) Reallocate(ids []OfferID, proposed [][]assets.Quantity) error {
	return f.x.reallocate(ids, proposed)
}

// Eject pays out and removes the given offers. Ejecting an offer twice fails
// fatally with ErrUnknownOffer.
func (f *GoverningFacet) Eject(ids []OfferID) error {
	return f.x.eject(ids)
}

// RejectOffer resolves one offer negatively with a user-correctable cause,
// refunding everything it escrowed.
func (f *GoverningFacet) RejectOffer(id OfferID, cause error) error {
	return f.x.rejectOffer(id, cause)
}

// EscrowEmptyOffer records a standing all-want offer for contract-owned
// positions such as AMM pools. The pool participates in the same conservation
// and safety machinery as every other offer.
func (f *GoverningFacet) EscrowEmptyOffer() (OfferID, *Payout, error) {
	return f.x.escrowEmptyOffer()
}

// DepositToOffer absorbs a contract-supplied payment into one slot of a live
// offer.
func (f *GoverningFacet) DepositToOffer(id OfferID, slot int, pmt *assets.Payment) (assets.Amount, error) {
	return f.x.depositToOffer(id, slot, pmt)
}
