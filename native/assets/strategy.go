package assets

import "errors"

var (
	// ErrInvalidQuantity reports a value that is not a valid quantity of the
	// strategy's kind (wrong type, negative natural, duplicate list element,
	// combining two non-empty unique tokens).
	ErrInvalidQuantity = errors.New("assets: invalid quantity")
	// ErrInsufficientQuantity reports a Without whose part is not included in
	// the whole.
	ErrInsufficientQuantity = errors.New("assets: insufficient quantity")
)

// Quantity is an opaque value of one asset kind's algebra. Exactly one
// Strategy understands any given representation; quantities of different
// kinds are never comparable or combinable with each other.
type Quantity any

// Strategy defines the arithmetic and comparison algebra for one asset kind.
// With must be commutative and associative with Empty as identity; Without is
// its inverse; Includes is the partial order "whole contains at least part".
type Strategy interface {
	// Validate coerces and checks a caller-supplied value, returning the
	// canonical representation or ErrInvalidQuantity.
	Validate(q Quantity) (Quantity, error)
	Empty() Quantity
	IsEmpty(q Quantity) bool
	Includes(whole, part Quantity) bool
	Equals(a, b Quantity) bool
	With(a, b Quantity) (Quantity, error)
	Without(whole, part Quantity) (Quantity, error)
}
