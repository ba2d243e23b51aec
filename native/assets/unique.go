package assets

import (
	"fmt"
	"reflect"
)

// UniqueStrategy implements the non-fungible algebra: a quantity is either
// the nil empty marker or a single opaque, comparable token. Two non-empty
// quantities can never be combined, even when identical.
type UniqueStrategy struct{}

// Unique returns the shared unique-token strategy.
func Unique() Strategy { return UniqueStrategy{} }

func (UniqueStrategy) Validate(q Quantity) (Quantity, error) {
	if q == nil {
		return nil, nil
	}
	if !reflect.TypeOf(q).Comparable() {
		return nil, fmt.Errorf("%w: unique token %T is not comparable", ErrInvalidQuantity, q)
	}
	return q, nil
}

func (UniqueStrategy) Empty() Quantity { return nil }

func (UniqueStrategy) IsEmpty(q Quantity) bool { return q == nil }

func (s UniqueStrategy) Includes(whole, part Quantity) bool {
	if part == nil {
		return true
	}
	if whole == nil {
		return false
	}
	return s.Equals(whole, part)
}

func (UniqueStrategy) Equals(a, b Quantity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func (s UniqueStrategy) With(a, b Quantity) (Quantity, error) {
	left, err := s.Validate(a)
	if err != nil {
		return nil, err
	}
	right, err := s.Validate(b)
	if err != nil {
		return nil, err
	}
	if left == nil {
		return right, nil
	}
	if right == nil {
		return left, nil
	}
	return nil, fmt.Errorf("%w: cannot combine non-fungible rights %v and %v", ErrInvalidQuantity, left, right)
}

func (s UniqueStrategy) Without(whole, part Quantity) (Quantity, error) {
	w, err := s.Validate(whole)
	if err != nil {
		return nil, err
	}
	p, err := s.Validate(part)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return w, nil
	}
	if w == nil || !s.Equals(w, p) {
		return nil, fmt.Errorf("%w: %v does not include %v", ErrInsufficientQuantity, w, p)
	}
	return nil, nil
}
