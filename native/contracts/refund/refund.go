// Package refund implements the trivial governing contract: it gives every
// offer back exactly what it escrowed. It proposes an identity reallocation,
// which exercises the same conservation and safety pipeline as any other
// contract, then ejects the offer.
package refund

import (
	"errors"

	"clearcore/native/assets"
	nativecommon "clearcore/native/common"
	"clearcore/native/exchange"
)

const moduleName = "refund"

var errNilFacet = errors.New("refund: governing facet not configured")

// Contract is the automatic-refund contract bound to one exchange instance.
type Contract struct {
	facet  *exchange.GoverningFacet
	pauses nativecommon.PauseView
}

// New binds the contract to a governing facet.
func New(facet *exchange.GoverningFacet) (*Contract, error) {
	if facet == nil {
		return nil, errNilFacet
	}
	return &Contract{facet: facet}, nil
}

// SetPauses configures the operator pause view.
func (c *Contract) SetPauses(p nativecommon.PauseView) { c.pauses = p }

// IsValidOfferDescription accepts any description: every shape can be
// refunded.
func (c *Contract) IsValidOfferDescription(issuers []*assets.Issuer, desc exchange.OfferDescription) bool {
	return len(desc) == len(issuers)
}

// CanReallocate is true for every escrowed offer; a refund needs no
// counterparty.
func (c *Contract) CanReallocate(ids []exchange.OfferID) bool { return len(ids) > 0 }

// MakeOffer refunds the escrowed offer immediately.
func (c *Contract) MakeOffer(id exchange.OfferID) error {
	if err := nativecommon.Guard(c.pauses, moduleName); err != nil {
		return err
	}
	ids := []exchange.OfferID{id}
	current, err := c.facet.QuantitiesFor(ids)
	if err != nil {
		return err
	}
	if err := c.facet.Reallocate(ids, current); err != nil {
		return err
	}
	return c.facet.Eject(ids)
}
