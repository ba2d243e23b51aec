package exchange

import (
	"context"
	"sync"

	"clearcore/native/assets"
)

// Payout is the single-resolution future for one offer's result. It is
// written exactly once, by eject or a reject path, and may be read any number
// of times afterwards. A rejection still carries the refund payments for
// whatever was escrowed.
type Payout struct {
	once sync.Once
	done chan struct{}

	payments []*assets.Payment
	err      error
}

func newPayout() *Payout {
	return &Payout{done: make(chan struct{})}
}

func (p *Payout) resolve(payments []*assets.Payment) {
	p.once.Do(func() {
		p.payments = payments
		close(p.done)
	})
}

func (p *Payout) reject(cause error, refunds []*assets.Payment) {
	p.once.Do(func() {
		p.payments = refunds
		p.err = cause
		close(p.done)
	})
}

// Done returns a channel closed once the payout settles.
func (p *Payout) Done() <-chan struct{} { return p.done }

// Settled reports whether the payout has been resolved or rejected.
func (p *Payout) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Await blocks until the payout settles or the context ends. On rejection the
// returned payments are the refunds and the error carries the cause.
func (p *Payout) Await(ctx context.Context) ([]*assets.Payment, error) {
	select {
	case <-p.done:
		return p.payments, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
