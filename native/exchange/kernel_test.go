package exchange

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"clearcore/core/events"
	"clearcore/native/assets"
	nativecommon "clearcore/native/common"
)

type testWorld struct {
	mints   []*assets.Mint
	issuers []*assets.Issuer
	x       *Exchange
}

func newTestWorld(t *testing.T, labels ...string) *testWorld {
	t.Helper()
	w := &testWorld{}
	for _, label := range labels {
		mint, err := assets.NewMint(label, assets.Natural())
		if err != nil {
			t.Fatalf("mint %s: %v", label, err)
		}
		w.mints = append(w.mints, mint)
		w.issuers = append(w.issuers, mint.Issuer())
	}
	x, err := New(w.issuers)
	if err != nil {
		t.Fatalf("new exchange: %v", err)
	}
	w.x = x
	return w
}

func (w *testWorld) pay(t *testing.T, slot int, n int64) *assets.Payment {
	t.Helper()
	pmt, err := w.mints[slot].MintPayment(big.NewInt(n))
	if err != nil {
		t.Fatalf("mint payment: %v", err)
	}
	return pmt
}

func wantNat(t *testing.T, q assets.Quantity, n int64) {
	t.Helper()
	got, ok := q.(*big.Int)
	if !ok {
		t.Fatalf("quantity %v (%T) is not *big.Int", q, q)
	}
	if got.Cmp(big.NewInt(n)) != 0 {
		t.Fatalf("quantity = %v, want %d", got, n)
	}
}

func TestEscrowReallocateEject(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	facet := w.x.GoverningFacet()

	aliceDesc := OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleWantExactly, "simoleans", 7),
	}
	bobDesc := OfferDescription{
		rule(RuleWantExactly, "moola", 3),
		rule(RuleHaveExactly, "simoleans", 7),
	}
	alice, alicePayout, err := w.x.Escrow(aliceDesc, []*assets.Payment{w.pay(t, 0, 3), nil})
	if err != nil {
		t.Fatalf("escrow alice: %v", err)
	}
	bob, bobPayout, err := w.x.Escrow(bobDesc, []*assets.Payment{nil, w.pay(t, 1, 7)})
	if err != nil {
		t.Fatalf("escrow bob: %v", err)
	}

	current, err := facet.QuantitiesFor([]OfferID{alice, bob})
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	// Swap the vectors: each side gets what the other put in.
	if err := facet.Reallocate([]OfferID{alice, bob}, [][]assets.Quantity{current[1], current[0]}); err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if err := facet.Eject([]OfferID{alice, bob}); err != nil {
		t.Fatalf("eject: %v", err)
	}

	if !alicePayout.Settled() || !bobPayout.Settled() {
		t.Fatal("payouts not settled after eject")
	}
	alicePayments, err := alicePayout.Await(context.Background())
	if err != nil {
		t.Fatalf("alice payout: %v", err)
	}
	wantNat(t, alicePayments[0].Balance().Quantity, 0)
	wantNat(t, alicePayments[1].Balance().Quantity, 7)
	bobPayments, err := bobPayout.Await(context.Background())
	if err != nil {
		t.Fatalf("bob payout: %v", err)
	}
	wantNat(t, bobPayments[0].Balance().Quantity, 3)
	wantNat(t, bobPayments[1].Balance().Quantity, 0)
}

func TestEscrowMismatchRefundsDeposited(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")

	desc := OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleHaveExactly, "simoleans", 5),
	}
	// Slot 0 matches, slot 1 is short. The slot 0 deposit must come back.
	_, _, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 3), w.pay(t, 1, 4)})
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if !errors.Is(rejected.Cause, ErrEscrowMismatch) {
		t.Fatalf("cause = %v, want ErrEscrowMismatch", rejected.Cause)
	}
	if len(rejected.Refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(rejected.Refunds))
	}
	wantNat(t, rejected.Refunds[0].Balance().Quantity, 3)
	if rejected.Refunds[0].Issuer() != w.issuers[0] {
		t.Fatal("refund issued by wrong issuer")
	}
}

func TestEscrowMismatchLeavesPaymentSpendable(t *testing.T) {
	w := newTestWorld(t, "moola")

	desc := OfferDescription{rule(RuleHaveExactly, "moola", 3)}
	pmt := w.pay(t, 0, 2)
	if _, _, err := w.x.Escrow(desc, []*assets.Payment{pmt}); err == nil {
		t.Fatal("short payment accepted")
	}
	// The failed exact deposit must not consume the payment.
	wantNat(t, pmt.Balance().Quantity, 2)
}

func TestEscrowHaveAtMost(t *testing.T) {
	w := newTestWorld(t, "moola")
	facet := w.x.GoverningFacet()

	desc := OfferDescription{rule(RuleHaveAtMost, "moola", 10)}
	id, _, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 4)})
	if err != nil {
		t.Fatalf("partial escrow: %v", err)
	}
	current, err := facet.QuantitiesFor([]OfferID{id})
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	wantNat(t, current[0][0], 4)

	// Over the stated maximum: rejected, full refund.
	_, _, err = w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 12)})
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if len(rejected.Refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(rejected.Refunds))
	}
	wantNat(t, rejected.Refunds[0].Balance().Quantity, 12)
}

func TestEscrowPaymentCountMismatch(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	desc := OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleWantExactly, "simoleans", 7),
	}
	if _, _, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 3)}); !errors.Is(err, ErrInvalidOfferFormat) {
		t.Fatalf("err = %v, want ErrInvalidOfferFormat", err)
	}
}

func TestReallocateFatalLeavesLedgerUnmodified(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	facet := w.x.GoverningFacet()

	desc := OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleWantExactly, "simoleans", 7),
	}
	id, _, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 3), nil})
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}

	// Conjuring value out of nothing.
	err = facet.Reallocate([]OfferID{id}, natMatrix([][]int64{{3, 7}}))
	if !errors.Is(err, ErrRightsNotConserved) || !IsFatal(err) {
		t.Fatalf("err = %v, want fatal ErrRightsNotConserved", err)
	}

	// Conserved but strands the participant mid-way.
	two, _, err := w.x.Escrow(OfferDescription{
		rule(RuleWantExactly, "moola", 3),
		rule(RuleHaveExactly, "simoleans", 7),
	}, []*assets.Payment{nil, w.pay(t, 1, 7)})
	if err != nil {
		t.Fatalf("escrow second: %v", err)
	}
	err = facet.Reallocate([]OfferID{id, two}, natMatrix([][]int64{{0, 6}, {3, 1}}))
	if !errors.Is(err, ErrOfferNotSafe) || !IsFatal(err) {
		t.Fatalf("err = %v, want fatal ErrOfferNotSafe", err)
	}

	current, err := facet.QuantitiesFor([]OfferID{id, two})
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	wantNat(t, current[0][0], 3)
	wantNat(t, current[0][1], 0)
	wantNat(t, current[1][0], 0)
	wantNat(t, current[1][1], 7)
}

func TestEjectUnknownOfferIsFatal(t *testing.T) {
	w := newTestWorld(t, "moola")
	facet := w.x.GoverningFacet()

	desc := OfferDescription{rule(RuleHaveExactly, "moola", 3)}
	id, _, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 3)})
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if err := facet.Eject([]OfferID{id}); err != nil {
		t.Fatalf("eject: %v", err)
	}
	err = facet.Eject([]OfferID{id})
	if !errors.Is(err, ErrUnknownOffer) || !IsFatal(err) {
		t.Fatalf("double eject err = %v, want fatal ErrUnknownOffer", err)
	}
}

func TestRejectOfferRefunds(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	facet := w.x.GoverningFacet()

	desc := OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleWantExactly, "simoleans", 7),
	}
	id, payout, err := w.x.Escrow(desc, []*assets.Payment{w.pay(t, 0, 3), nil})
	if err != nil {
		t.Fatalf("escrow: %v", err)
	}
	if err := facet.RejectOffer(id, ErrSlippageExceeded); err != nil {
		t.Fatalf("reject: %v", err)
	}
	refunds, err := payout.Await(context.Background())
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("payout err = %v, want ErrSlippageExceeded", err)
	}
	wantNat(t, refunds[0].Balance().Quantity, 3)
	wantNat(t, refunds[1].Balance().Quantity, 0)

	if _, err := facet.QuantitiesFor([]OfferID{id}); !errors.Is(err, ErrUnknownOffer) {
		t.Fatalf("rejected offer still in ledger: %v", err)
	}
}

func TestEscrowEmptyOffer(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	facet := w.x.GoverningFacet()

	id, payout, err := facet.EscrowEmptyOffer()
	if err != nil {
		t.Fatalf("empty offer: %v", err)
	}
	if payout.Settled() {
		t.Fatal("empty offer settled before eject")
	}
	current, err := facet.QuantitiesFor([]OfferID{id})
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	wantNat(t, current[0][0], 0)
	wantNat(t, current[0][1], 0)
	descs, err := facet.DescriptionsFor([]OfferID{id})
	if err != nil {
		t.Fatalf("descriptions: %v", err)
	}
	for _, r := range descs[0] {
		if r.Kind != RuleWantAtLeast {
			t.Fatalf("empty offer rule kind = %v, want RuleWantAtLeast", r.Kind)
		}
	}
}

func TestOfferMakerSingleUse(t *testing.T) {
	w := newTestWorld(t, "moola")

	maker, err := w.x.MakeOfferMaker(OfferDescription{rule(RuleHaveExactly, "moola", 3)})
	if err != nil {
		t.Fatalf("make offer maker: %v", err)
	}
	if _, _, err := maker.Make([]*assets.Payment{w.pay(t, 0, 3)}); err != nil {
		t.Fatalf("first make: %v", err)
	}
	if _, _, err := maker.Make([]*assets.Payment{w.pay(t, 0, 3)}); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("second make err = %v, want ErrInviteUsed", err)
	}
}

type pauseMap map[string]bool

func (p pauseMap) IsPaused(module string) bool { return p[module] }

func TestPauseGuard(t *testing.T) {
	w := newTestWorld(t, "moola")
	w.x.SetPauses(pauseMap{"exchange": true})

	desc := OfferDescription{rule(RuleHaveExactly, "moola", 3)}
	pmt := w.pay(t, 0, 3)
	if _, _, err := w.x.Escrow(desc, []*assets.Payment{pmt}); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("err = %v, want ErrModulePaused", err)
	}
	// Paused escrow must not touch the payment.
	wantNat(t, pmt.Balance().Quantity, 3)

	w.x.SetPauses(pauseMap{})
	if _, _, err := w.x.Escrow(desc, []*assets.Payment{pmt}); err != nil {
		t.Fatalf("escrow after unpause: %v", err)
	}
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func TestLifecycleEvents(t *testing.T) {
	w := newTestWorld(t, "moola", "simoleans")
	recorder := &recordingEmitter{}
	w.x.SetEmitter(recorder)
	facet := w.x.GoverningFacet()

	alice, _, err := w.x.Escrow(OfferDescription{
		rule(RuleHaveExactly, "moola", 3),
		rule(RuleWantExactly, "simoleans", 7),
	}, []*assets.Payment{w.pay(t, 0, 3), nil})
	if err != nil {
		t.Fatalf("escrow alice: %v", err)
	}
	bob, _, err := w.x.Escrow(OfferDescription{
		rule(RuleWantExactly, "moola", 3),
		rule(RuleHaveExactly, "simoleans", 7),
	}, []*assets.Payment{nil, w.pay(t, 1, 7)})
	if err != nil {
		t.Fatalf("escrow bob: %v", err)
	}
	current, err := facet.QuantitiesFor([]OfferID{alice, bob})
	if err != nil {
		t.Fatalf("quantities: %v", err)
	}
	if err := facet.Reallocate([]OfferID{alice, bob}, [][]assets.Quantity{current[1], current[0]}); err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if err := facet.Eject([]OfferID{alice, bob}); err != nil {
		t.Fatalf("eject: %v", err)
	}

	got := make([]string, len(recorder.events))
	for i, evt := range recorder.events {
		got[i] = evt.EventType()
	}
	want := []string{
		EventTypeOfferEscrowed,
		EventTypeOfferEscrowed,
		EventTypeReallocated,
		EventTypeOfferEjected,
		EventTypeOfferEjected,
	}
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}
