package exchange

import "github.com/google/uuid"

const (
	EventTypeOfferEscrowed = "exchange.offer.escrowed"
	EventTypeOfferRejected = "exchange.offer.rejected"
	EventTypeOfferEjected  = "exchange.offer.ejected"
	EventTypeReallocated   = "exchange.reallocated"
)

// OfferEscrowedEvent is emitted when an offer's payments have been escrowed
// and the offer recorded in the ledger.
type OfferEscrowedEvent struct {
	Instance uuid.UUID
	Offer    OfferID
}

func (OfferEscrowedEvent) EventType() string { return EventTypeOfferEscrowed }

// OfferRejectedEvent is emitted when an offer's pending result is resolved
// negatively and its escrowed funds returned.
type OfferRejectedEvent struct {
	Instance uuid.UUID
	Offer    OfferID
	Reason   string
}

func (OfferRejectedEvent) EventType() string { return EventTypeOfferRejected }

// OfferEjectedEvent is emitted when an offer's payout is issued and its
// ledger entry removed.
type OfferEjectedEvent struct {
	Instance uuid.UUID
	Offer    OfferID
}

func (OfferEjectedEvent) EventType() string { return EventTypeOfferEjected }

// ReallocatedEvent is emitted when a proposed reallocation passes both safety
// checks and commits.
type ReallocatedEvent struct {
	Instance uuid.UUID
	Offers   []OfferID
}

func (ReallocatedEvent) EventType() string { return EventTypeReallocated }
