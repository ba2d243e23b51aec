package assets

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrAmountMismatch reports a depositExactly whose payment balance does
	// not equal the stated amount.
	ErrAmountMismatch = errors.New("assets: payment balance does not match amount")
	// ErrWrongIssuer reports an amount or payment presented to a purse of a
	// different asset kind.
	ErrWrongIssuer = errors.New("assets: wrong issuer")
	// ErrPaymentSpent reports reuse of an already-deposited payment.
	ErrPaymentSpent = errors.New("assets: payment already spent")
)

// Mint is the sole fabrication point for quantities of one asset kind. Hold
// it closely; anyone with the mint can create value.
type Mint struct {
	issuer *Issuer
}

// NewMint creates a mint and its long-lived issuer identity for one asset
// kind.
func NewMint(label string, strategy Strategy) (*Mint, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil, fmt.Errorf("assets: mint label must not be empty")
	}
	if strategy == nil {
		return nil, fmt.Errorf("assets: mint requires a strategy")
	}
	return &Mint{issuer: &Issuer{label: trimmed, strategy: strategy}}, nil
}

// Issuer returns the mint's public issuer identity.
func (m *Mint) Issuer() *Issuer { return m.issuer }

// MintPayment fabricates a payment holding the supplied quantity.
func (m *Mint) MintPayment(q Quantity) (*Payment, error) {
	validated, err := m.issuer.strategy.Validate(q)
	if err != nil {
		return nil, err
	}
	return &Payment{issuer: m.issuer, balance: validated}, nil
}

// Issuer is the immutable identity of one asset kind. It exposes the kind's
// quantity strategy and makes purses that hold the kind in custody.
type Issuer struct {
	label    string
	strategy Strategy
}

// Label names the asset kind.
func (i *Issuer) Label() string { return i.label }

// Strategy returns the quantity algebra for this kind.
func (i *Issuer) Strategy() Strategy { return i.strategy }

// MakeAmount validates the quantity and pairs it with this issuer's label.
func (i *Issuer) MakeAmount(q Quantity) (Amount, error) {
	validated, err := i.strategy.Validate(q)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Label: i.label, Quantity: validated}, nil
}

// EmptyAmount returns the identity amount for this kind.
func (i *Issuer) EmptyAmount() Amount {
	return Amount{Label: i.label, Quantity: i.strategy.Empty()}
}

// MakeEmptyPurse creates a custody purse with an empty balance.
func (i *Issuer) MakeEmptyPurse() *Purse {
	return &Purse{issuer: i, balance: i.strategy.Empty()}
}

// Purse holds a balance of one asset kind in custody. Deposits consume the
// payment exactly once; withdrawals produce fresh single-use payments.
type Purse struct {
	issuer *Issuer

	mu      sync.Mutex
	balance Quantity
}

// Issuer returns the asset kind this purse holds.
func (p *Purse) Issuer() *Issuer { return p.issuer }

// Balance returns the current custody balance.
func (p *Purse) Balance() Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Amount{Label: p.issuer.label, Quantity: p.balance}
}

// DepositExactly consumes the payment only if its balance equals the stated
// amount, crediting the purse. Fails with ErrAmountMismatch otherwise; the
// payment stays spendable on failure.
func (p *Purse) DepositExactly(amount Amount, pmt *Payment) (Amount, error) {
	if amount.Label != p.issuer.label {
		return Amount{}, fmt.Errorf("%w: amount %s into %s purse", ErrWrongIssuer, amount.Label, p.issuer.label)
	}
	expected, err := p.issuer.strategy.Validate(amount.Quantity)
	if err != nil {
		return Amount{}, err
	}
	got, err := pmt.take(p.issuer, expected, true)
	if err != nil {
		return Amount{}, err
	}
	return p.credit(got)
}

// DepositAll consumes the payment whatever its balance, crediting the purse.
func (p *Purse) DepositAll(pmt *Payment) (Amount, error) {
	got, err := pmt.take(p.issuer, nil, false)
	if err != nil {
		return Amount{}, err
	}
	return p.credit(got)
}

func (p *Purse) credit(q Quantity) (Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	combined, err := p.issuer.strategy.With(p.balance, q)
	if err != nil {
		return Amount{}, err
	}
	p.balance = combined
	return Amount{Label: p.issuer.label, Quantity: q}, nil
}

// Withdraw debits the purse and returns a fresh payment holding the amount.
func (p *Purse) Withdraw(amount Amount) (*Payment, error) {
	if amount.Label != p.issuer.label {
		return nil, fmt.Errorf("%w: amount %s from %s purse", ErrWrongIssuer, amount.Label, p.issuer.label)
	}
	quantity, err := p.issuer.strategy.Validate(amount.Quantity)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	remaining, err := p.issuer.strategy.Without(p.balance, quantity)
	if err != nil {
		return nil, err
	}
	p.balance = remaining
	return &Payment{issuer: p.issuer, balance: quantity}, nil
}

// Payment is a single-use claim on a quantity of one asset kind. Depositing
// it into a purse spends it; a spent payment cannot be deposited again.
type Payment struct {
	issuer *Issuer

	mu      sync.Mutex
	spent   bool
	balance Quantity
}

// Issuer returns the asset kind of the payment.
func (t *Payment) Issuer() *Issuer { return t.issuer }

// Balance returns the payment's remaining balance; spent payments report
// empty.
func (t *Payment) Balance() Amount {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spent {
		return Amount{Label: t.issuer.label, Quantity: t.issuer.strategy.Empty()}
	}
	return Amount{Label: t.issuer.label, Quantity: t.balance}
}

// take claims the payment's quantity exactly once. When exact is set the
// balance must equal expect or the payment is left unspent.
func (t *Payment) take(by *Issuer, expect Quantity, exact bool) (Quantity, error) {
	if t == nil {
		return nil, fmt.Errorf("assets: nil payment")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.issuer != by {
		return nil, fmt.Errorf("%w: payment of %s presented to %s", ErrWrongIssuer, t.issuer.label, by.label)
	}
	if t.spent {
		return nil, ErrPaymentSpent
	}
	if exact && !t.issuer.strategy.Equals(t.balance, expect) {
		return nil, fmt.Errorf("%w: have %v, stated %v", ErrAmountMismatch, t.balance, expect)
	}
	t.spent = true
	return t.balance, nil
}
