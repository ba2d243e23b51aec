package exchange

import (
	"sync"

	"clearcore/native/assets"
)

// OfferMaker is a single-use invitation to escrow an offer with a description
// fixed in advance by contract logic. Unwrap once, then void: the second Make
// fails with ErrInviteUsed.
type OfferMaker struct {
	x    *Exchange
	desc OfferDescription

	mu   sync.Mutex
	used bool
}

// MakeOfferMaker binds an offer description to a fresh single-use invitation.
// This is the shape contract logic produces for each invite it mints.
func (x *Exchange) MakeOfferMaker(desc OfferDescription) (*OfferMaker, error) {
	sanitized, err := desc.Conform(x.issuers)
	if err != nil {
		return nil, err
	}
	return &OfferMaker{x: x, desc: sanitized}, nil
}

// Description returns the description the invitation is bound to.
func (m *OfferMaker) Description() OfferDescription {
	return append(OfferDescription(nil), m.desc...)
}

// Make escrows the supplied payments against the bound description.
func (m *OfferMaker) Make(payments []*assets.Payment) (OfferID, *Payout, error) {
	m.mu.Lock()
	if m.used {
		m.mu.Unlock()
		return OfferID{}, nil, ErrInviteUsed
	}
	m.used = true
	m.mu.Unlock()
	return m.x.Escrow(m.desc, payments)
}
