package exchange

import (
	"fmt"

	"clearcore/native/assets"
)

// offerRecord is the authoritative state for one live offer: the rules it was
// made under, the quantities currently set aside for it, and its pending
// result.
type offerRecord struct {
	desc       OfferDescription
	quantities []assets.Quantity
	payout     *Payout
}

// ledger is the per-instance escrow record plus the underlying per-slot
// custody purses and their running balances. All lookups are pure reads;
// recordOffer, setQuantitiesFor and removeOffer are the only mutation points,
// and the owning kernel serializes every call.
type ledger struct {
	issuers    []*assets.Issuer
	strategies []assets.Strategy
	purses     []*assets.Purse
	// purseTotals mirrors the quantity actually escrowed per slot; the sum of
	// every live offer's vector must equal it between commits.
	purseTotals []assets.Quantity
	offers      map[OfferID]*offerRecord
}

func newLedger(issuers []*assets.Issuer) *ledger {
	strategies := make([]assets.Strategy, len(issuers))
	purses := make([]*assets.Purse, len(issuers))
	totals := make([]assets.Quantity, len(issuers))
	for i, issuer := range issuers {
		strategies[i] = issuer.Strategy()
		purses[i] = issuer.MakeEmptyPurse()
		totals[i] = strategies[i].Empty()
	}
	return &ledger{
		issuers:     issuers,
		strategies:  strategies,
		purses:      purses,
		purseTotals: totals,
		offers:      make(map[OfferID]*offerRecord),
	}
}

func (l *ledger) recordOffer(id OfferID, desc OfferDescription, quantities []assets.Quantity, payout *Payout) error {
	if _, exists := l.offers[id]; exists {
		// Structurally impossible with freshly generated handles, but checked.
		return fatal(fmt.Errorf("%w: %s", ErrDuplicateOffer, id))
	}
	l.offers[id] = &offerRecord{desc: desc, quantities: quantities, payout: payout}
	return nil
}

func (l *ledger) recordsFor(ids []OfferID) ([]*offerRecord, error) {
	records := make([]*offerRecord, len(ids))
	for i, id := range ids {
		record, ok := l.offers[id]
		if !ok {
			return nil, fatal(fmt.Errorf("%w: %s", ErrUnknownOffer, id))
		}
		records[i] = record
	}
	return records, nil
}

func (l *ledger) quantitiesFor(ids []OfferID) ([][]assets.Quantity, error) {
	records, err := l.recordsFor(ids)
	if err != nil {
		return nil, err
	}
	matrix := make([][]assets.Quantity, len(records))
	for i, record := range records {
		matrix[i] = append([]assets.Quantity(nil), record.quantities...)
	}
	return matrix, nil
}

func (l *ledger) descriptionsFor(ids []OfferID) ([]OfferDescription, error) {
	records, err := l.recordsFor(ids)
	if err != nil {
		return nil, err
	}
	descs := make([]OfferDescription, len(records))
	for i, record := range records {
		descs[i] = append(OfferDescription(nil), record.desc...)
	}
	return descs, nil
}

// setQuantitiesFor overwrites the vectors for the given offers. It is the
// sole reallocation mutation point and must only run after both safety checks
// pass.
func (l *ledger) setQuantitiesFor(ids []OfferID, matrix [][]assets.Quantity) error {
	records, err := l.recordsFor(ids)
	if err != nil {
		return err
	}
	if len(matrix) != len(records) {
		return fatal(fmt.Errorf("exchange: reallocation has %d rows for %d offers", len(matrix), len(records)))
	}
	for i, record := range records {
		record.quantities = append([]assets.Quantity(nil), matrix[i]...)
	}
	return nil
}

func (l *ledger) removeOffer(id OfferID) error {
	if _, ok := l.offers[id]; !ok {
		return fatal(fmt.Errorf("%w: %s", ErrUnknownOffer, id))
	}
	delete(l.offers, id)
	return nil
}

func (l *ledger) addToTotals(slot int, q assets.Quantity) error {
	combined, err := l.strategies[slot].With(l.purseTotals[slot], q)
	if err != nil {
		return err
	}
	l.purseTotals[slot] = combined
	return nil
}

func (l *ledger) subtractFromTotals(slot int, q assets.Quantity) error {
	remaining, err := l.strategies[slot].Without(l.purseTotals[slot], q)
	if err != nil {
		return err
	}
	l.purseTotals[slot] = remaining
	return nil
}

func (l *ledger) liveOffers() int { return len(l.offers) }
