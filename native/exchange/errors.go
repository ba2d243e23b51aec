package exchange

import (
	"errors"
	"fmt"

	"clearcore/native/assets"
)

// User-correctable conditions. These reject a single offer's pending result
// and return its escrowed funds; the caller may retry with different input.
var (
	ErrInvalidOfferFormat = errors.New("exchange: invalid offer format")
	ErrEscrowMismatch     = errors.New("exchange: escrow payment mismatch")
	ErrSlippageExceeded   = errors.New("exchange: minimum out not met")
	ErrAlreadyFinal       = errors.New("exchange: instance already final")
	ErrInviteUsed         = errors.New("exchange: offer invite already used")
)

// Fatal conditions. Any of these means an invariant the whole system depends
// on has already been violated: a contract-logic or kernel bug, never a
// user-correctable state. They abort the enclosing operation and leave the
// ledger unmodified.
var (
	ErrRightsNotConserved = errors.New("exchange: rights not conserved in proposed reallocation")
	ErrOfferNotSafe       = errors.New("exchange: proposed reallocation not offer safe")
	ErrDuplicateOffer     = errors.New("exchange: duplicate offer")
	ErrUnknownOffer       = errors.New("exchange: unknown offer")
)

// FatalError marks an unrecoverable invariant violation. Contract logic must
// propagate it, never catch-and-continue.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("exchange: fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(err error) error {
	if err == nil {
		return nil
	}
	var f *FatalError
	if errors.As(err, &f) {
		return err
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err carries a fatal invariant violation.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// rejectionLabel buckets a rejection cause into the fixed metric label set.
// Contract logic may reject with arbitrary errors, so anything outside the
// kernel's sentinels reports as "other" to keep label cardinality bounded.
func rejectionLabel(cause error) string {
	switch {
	case errors.Is(cause, ErrInvalidOfferFormat):
		return "invalid_offer_format"
	case errors.Is(cause, ErrEscrowMismatch):
		return "escrow_mismatch"
	case errors.Is(cause, ErrSlippageExceeded):
		return "slippage_exceeded"
	case errors.Is(cause, ErrAlreadyFinal):
		return "already_final"
	case errors.Is(cause, ErrInviteUsed):
		return "invite_used"
	default:
		return "other"
	}
}

// RejectedError carries a user-correctable cause together with the refund
// payments for quantities escrowed before the failure was detected. Escrowed
// value is never retained on rejection.
type RejectedError struct {
	Cause   error
	Refunds []*assets.Payment
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("exchange: offer rejected: %v", e.Cause)
}

func (e *RejectedError) Unwrap() error { return e.Cause }
