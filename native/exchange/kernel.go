package exchange

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"clearcore/core/events"
	"clearcore/native/assets"
	nativecommon "clearcore/native/common"
	"clearcore/observability/metrics"
)

const moduleName = "exchange"

// Exchange is the trusted intermediary between untrusted contract logic and
// the asset layer. One mutex serializes every escrow, reallocation, ejection
// and rejection, so no two operations interleave their read-modify-write
// sequences on overlapping offers; readers never observe a half-updated
// matrix.
type Exchange struct {
	id      uuid.UUID
	issuers []*assets.Issuer

	mu     sync.Mutex
	ledger *ledger

	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
}

// New creates an exchange instance over a fixed, ordered row of asset kinds.
// The issuer order establishes the slot order every offer description must
// follow for the lifetime of the instance.
func New(issuers []*assets.Issuer) (*Exchange, error) {
	if len(issuers) == 0 {
		return nil, fmt.Errorf("exchange: at least one issuer required")
	}
	seen := make(map[string]struct{}, len(issuers))
	for _, issuer := range issuers {
		if issuer == nil {
			return nil, fmt.Errorf("exchange: nil issuer")
		}
		if _, dup := seen[issuer.Label()]; dup {
			return nil, fmt.Errorf("exchange: duplicate issuer label %q", issuer.Label())
		}
		seen[issuer.Label()] = struct{}{}
	}
	row := append([]*assets.Issuer(nil), issuers...)
	return &Exchange{
		id:      uuid.New(),
		issuers: row,
		ledger:  newLedger(row),
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
	}, nil
}

// InstanceID returns the long-lived identity of this exchange instance.
func (x *Exchange) InstanceID() uuid.UUID { return x.id }

// Issuers returns the instance's issuer row in slot order.
func (x *Exchange) Issuers() []*assets.Issuer {
	return append([]*assets.Issuer(nil), x.issuers...)
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (x *Exchange) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		x.emitter = events.NoopEmitter{}
		return
	}
	x.emitter = emitter
}

// SetPauses configures the pause view consulted before state changes.
func (x *Exchange) SetPauses(p nativecommon.PauseView) { x.pauses = p }

// SetLogger overrides the kernel logger. Passing nil resets to the default.
func (x *Exchange) SetLogger(logger *slog.Logger) {
	if logger == nil {
		x.logger = slog.Default()
		return
	}
	x.logger = logger
}

func (x *Exchange) emit(evt events.Event) {
	if x == nil || x.emitter == nil || evt == nil {
		return
	}
	x.emitter.Emit(evt)
}

// GoverningFacet returns the restricted facet handed to installed contract
// logic. It is never given to end users.
func (x *Exchange) GoverningFacet() *GoverningFacet { return &GoverningFacet{x: x} }

// Escrow deposits the payments backing an offer description and records the
// resulting offer. Have-rule slots consume their payment (HaveAtMost accepts
// any balance up to the stated amount); want-rule slots record the empty
// quantity and consume nothing. On any mismatch the already-deposited slots
// are unwound and returned inside a RejectedError; escrowed value is never
// retained across a failed attempt.
func (x *Exchange) Escrow(desc OfferDescription, payments []*assets.Payment) (OfferID, *Payout, error) {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return OfferID{}, nil, err
	}
	sanitized, err := desc.Conform(x.issuers)
	if err != nil {
		return OfferID{}, nil, err
	}
	if len(payments) != len(sanitized) {
		return OfferID{}, nil, fmt.Errorf("%w: %d payments for %d slots", ErrInvalidOfferFormat, len(payments), len(sanitized))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	quantities := make([]assets.Quantity, len(sanitized))
	var deposited []slotQuantity
	fail := func(cause error) (OfferID, *Payout, error) {
		return OfferID{}, nil, &RejectedError{Cause: cause, Refunds: x.unwind(deposited)}
	}

	for i, rule := range sanitized {
		strategy := x.ledger.strategies[i]
		switch rule.Kind {
		case RuleHaveExactly:
			if payments[i] == nil {
				return fail(fmt.Errorf("%w: slot %d requires a payment", ErrEscrowMismatch, i))
			}
			amt, err := x.ledger.purses[i].DepositExactly(rule.Amount, payments[i])
			if err != nil {
				return fail(fmt.Errorf("%w: slot %d: %v", ErrEscrowMismatch, i, err))
			}
			quantities[i] = amt.Quantity
		case RuleHaveAtMost:
			if payments[i] == nil {
				return fail(fmt.Errorf("%w: slot %d requires a payment", ErrEscrowMismatch, i))
			}
			amt, err := x.ledger.purses[i].DepositAll(payments[i])
			if err != nil {
				return fail(fmt.Errorf("%w: slot %d: %v", ErrEscrowMismatch, i, err))
			}
			quantities[i] = amt.Quantity
			deposited = append(deposited, slotQuantity{slot: i, quantity: amt.Quantity})
			if err := x.ledger.addToTotals(i, amt.Quantity); err != nil {
				return OfferID{}, nil, fatal(err)
			}
			if !strategy.Includes(rule.Amount.Quantity, amt.Quantity) {
				return fail(fmt.Errorf("%w: slot %d payment exceeds stated maximum", ErrEscrowMismatch, i))
			}
			continue
		default:
			quantities[i] = strategy.Empty()
			continue
		}
		deposited = append(deposited, slotQuantity{slot: i, quantity: quantities[i]})
		if err := x.ledger.addToTotals(i, quantities[i]); err != nil {
			return OfferID{}, nil, fatal(err)
		}
	}

	id, err := newOfferID(x.id)
	if err != nil {
		return OfferID{}, nil, fatal(err)
	}
	payout := newPayout()
	if err := x.ledger.recordOffer(id, sanitized, quantities, payout); err != nil {
		return OfferID{}, nil, err
	}
	metrics.Exchange().OfferEscrowed()
	metrics.Exchange().SetLiveOffers(x.ledger.liveOffers())
	x.emit(OfferEscrowedEvent{Instance: x.id, Offer: id})
	x.logger.Debug("offer escrowed", "instance", x.id, "offer", id.String())
	return id, payout, nil
}

type slotQuantity struct {
	slot     int
	quantity assets.Quantity
}

// unwind reverses deposits made during a failed escrow attempt and returns
// them as refund payments.
func (x *Exchange) unwind(deposited []slotQuantity) []*assets.Payment {
	refunds := make([]*assets.Payment, 0, len(deposited))
	for _, d := range deposited {
		if x.ledger.strategies[d.slot].IsEmpty(d.quantity) {
			continue
		}
		if err := x.ledger.subtractFromTotals(d.slot, d.quantity); err != nil {
			x.logger.Error("escrow unwind bookkeeping", "slot", d.slot, "err", err)
			continue
		}
		amount := assets.Amount{Label: x.issuers[d.slot].Label(), Quantity: d.quantity}
		pmt, err := x.ledger.purses[d.slot].Withdraw(amount)
		if err != nil {
			x.logger.Error("escrow unwind withdraw", "slot", d.slot, "err", err)
			continue
		}
		refunds = append(refunds, pmt)
	}
	return refunds
}

// escrowEmptyOffer records a standing all-want offer with empty quantities,
// used by contract logic for pool positions.
func (x *Exchange) escrowEmptyOffer() (OfferID, *Payout, error) {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return OfferID{}, nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	desc := make(OfferDescription, len(x.issuers))
	quantities := make([]assets.Quantity, len(x.issuers))
	for i, issuer := range x.issuers {
		desc[i] = Rule{Kind: RuleWantAtLeast, Amount: issuer.EmptyAmount()}
		quantities[i] = issuer.Strategy().Empty()
	}
	id, err := newOfferID(x.id)
	if err != nil {
		return OfferID{}, nil, fatal(err)
	}
	payout := newPayout()
	if err := x.ledger.recordOffer(id, desc, quantities, payout); err != nil {
		return OfferID{}, nil, err
	}
	metrics.Exchange().OfferEscrowed()
	metrics.Exchange().SetLiveOffers(x.ledger.liveOffers())
	x.emit(OfferEscrowedEvent{Instance: x.id, Offer: id})
	return id, payout, nil
}

// reallocate runs the conservation and safety checks against the proposed
// matrix and commits it. Any failure here is fatal: it indicates a bug in
// contract logic, and the ledger is left unmodified.
func (x *Exchange) reallocate(ids []OfferID, proposed [][]assets.Quantity) error {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.reallocateLocked(ids, proposed)
}

func (x *Exchange) reallocateLocked(ids []OfferID, proposed [][]assets.Quantity) error {
	if len(ids) == 0 {
		return fatal(fmt.Errorf("exchange: empty reallocation"))
	}
	current, err := x.ledger.quantitiesFor(ids)
	if err != nil {
		return err
	}
	if len(proposed) != len(ids) {
		return fatal(fmt.Errorf("exchange: reallocation has %d rows for %d offers", len(proposed), len(ids)))
	}
	sanitized := make([][]assets.Quantity, len(proposed))
	for i, row := range proposed {
		if len(row) != len(x.issuers) {
			return fatal(fmt.Errorf("exchange: reallocation row %d has %d slots, want %d", i, len(row), len(x.issuers)))
		}
		sanitized[i] = make([]assets.Quantity, len(row))
		for slot, q := range row {
			validated, err := x.ledger.strategies[slot].Validate(q)
			if err != nil {
				return fatal(err)
			}
			sanitized[i][slot] = validated
		}
	}
	if err := rightsConserved(x.ledger.strategies, current, sanitized); err != nil {
		return fatal(err)
	}
	descs, err := x.ledger.descriptionsFor(ids)
	if err != nil {
		return err
	}
	if err := offerSafeForAll(x.ledger.strategies, descs, sanitized); err != nil {
		return fatal(err)
	}
	if err := x.ledger.setQuantitiesFor(ids, sanitized); err != nil {
		return err
	}
	metrics.Exchange().ReallocationCommitted()
	x.emit(ReallocatedEvent{Instance: x.id, Offers: append([]OfferID(nil), ids...)})
	x.logger.Debug("reallocation committed", "instance", x.id, "offers", len(ids))
	return nil
}

// eject converts each offer's final vector into payments, resolves its
// pending result and removes it from the ledger. This is the only path by
// which escrowed value leaves custody.
func (x *Exchange) eject(ids []OfferID) error {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ejectLocked(ids)
}

func (x *Exchange) ejectLocked(ids []OfferID) error {
	records, err := x.ledger.recordsFor(ids)
	if err != nil {
		return err
	}
	for i, record := range records {
		payments, err := x.withdrawVector(record.quantities)
		if err != nil {
			return err
		}
		record.payout.resolve(payments)
		if err := x.ledger.removeOffer(ids[i]); err != nil {
			return err
		}
		metrics.Exchange().OfferEjected()
		x.emit(OfferEjectedEvent{Instance: x.id, Offer: ids[i]})
	}
	metrics.Exchange().SetLiveOffers(x.ledger.liveOffers())
	return nil
}

// rejectOffer resolves one offer's pending result negatively, returning its
// escrowed quantities as refunds and removing its ledger entry. Used for
// user-correctable conditions detected by contract logic after escrow.
func (x *Exchange) rejectOffer(id OfferID, cause error) error {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	records, err := x.ledger.recordsFor([]OfferID{id})
	if err != nil {
		return err
	}
	record := records[0]
	refunds, err := x.withdrawVector(record.quantities)
	if err != nil {
		return err
	}
	record.payout.reject(cause, refunds)
	if err := x.ledger.removeOffer(id); err != nil {
		return err
	}
	metrics.Exchange().OfferRejected(rejectionLabel(cause))
	metrics.Exchange().SetLiveOffers(x.ledger.liveOffers())
	x.emit(OfferRejectedEvent{Instance: x.id, Offer: id, Reason: cause.Error()})
	x.logger.Info("offer rejected", "instance", x.id, "offer", id.String(), "reason", cause.Error())
	return nil
}

// withdrawVector debits the purse totals and withdraws one payment per slot
// for the given quantity vector. Failures are fatal bookkeeping errors.
func (x *Exchange) withdrawVector(quantities []assets.Quantity) ([]*assets.Payment, error) {
	payments := make([]*assets.Payment, len(quantities))
	for slot, q := range quantities {
		if err := x.ledger.subtractFromTotals(slot, q); err != nil {
			return nil, fatal(err)
		}
		amount := assets.Amount{Label: x.issuers[slot].Label(), Quantity: q}
		pmt, err := x.ledger.purses[slot].Withdraw(amount)
		if err != nil {
			return nil, fatal(err)
		}
		payments[slot] = pmt
	}
	return payments, nil
}

// depositToOffer absorbs a payment into one slot of a live offer, growing its
// vector and the custody totals together. Contract logic uses it to escrow
// value it mints itself (e.g. liquidity tokens).
func (x *Exchange) depositToOffer(id OfferID, slot int, pmt *assets.Payment) (assets.Amount, error) {
	if err := nativecommon.Guard(x.pauses, moduleName); err != nil {
		return assets.Amount{}, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if slot < 0 || slot >= len(x.issuers) {
		return assets.Amount{}, fatal(fmt.Errorf("exchange: slot %d out of range", slot))
	}
	records, err := x.ledger.recordsFor([]OfferID{id})
	if err != nil {
		return assets.Amount{}, err
	}
	record := records[0]
	amt, err := x.ledger.purses[slot].DepositAll(pmt)
	if err != nil {
		return assets.Amount{}, fmt.Errorf("%w: slot %d: %v", ErrEscrowMismatch, slot, err)
	}
	if err := x.ledger.addToTotals(slot, amt.Quantity); err != nil {
		return assets.Amount{}, fatal(err)
	}
	combined, err := x.ledger.strategies[slot].With(record.quantities[slot], amt.Quantity)
	if err != nil {
		return assets.Amount{}, fatal(err)
	}
	record.quantities[slot] = combined
	return amt, nil
}

// quantitiesFor reads the current vectors for a set of offers, in input
// order. Pure read; the snapshot is a copy.
func (x *Exchange) quantitiesFor(ids []OfferID) ([][]assets.Quantity, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.quantitiesFor(ids)
}

func (x *Exchange) descriptionsFor(ids []OfferID) ([]OfferDescription, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ledger.descriptionsFor(ids)
}
