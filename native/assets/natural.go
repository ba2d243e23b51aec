package assets

import (
	"fmt"
	"math/big"
)

// NaturalStrategy implements the fungible algebra over non-negative integers.
// Quantities are *big.Int; With adds, Without subtracts with an underflow
// check. Natural numbers are used for fungible rights because rounding makes
// floats problematic; callers operate in the smallest whole unit.
type NaturalStrategy struct{}

// Natural returns the shared natural-number strategy.
func Natural() Strategy { return NaturalStrategy{} }

func asNat(q Quantity) (*big.Int, error) {
	switch v := q.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil natural", ErrInvalidQuantity)
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil natural", ErrInvalidQuantity)
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative natural %s", ErrInvalidQuantity, v)
		}
		return new(big.Int).Set(v), nil
	case int:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative natural %d", ErrInvalidQuantity, v)
		}
		return big.NewInt(int64(v)), nil
	case int64:
		if v < 0 {
			return nil, fmt.Errorf("%w: negative natural %d", ErrInvalidQuantity, v)
		}
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a natural", ErrInvalidQuantity, q)
	}
}

// Validate coerces int, int64, uint64 and *big.Int values to a defensive
// *big.Int copy, rejecting negatives.
func (NaturalStrategy) Validate(q Quantity) (Quantity, error) {
	n, err := asNat(q)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (NaturalStrategy) Empty() Quantity { return big.NewInt(0) }

func (NaturalStrategy) IsEmpty(q Quantity) bool {
	n, err := asNat(q)
	return err == nil && n.Sign() == 0
}

func (NaturalStrategy) Includes(whole, part Quantity) bool {
	w, err := asNat(whole)
	if err != nil {
		return false
	}
	p, err := asNat(part)
	if err != nil {
		return false
	}
	return w.Cmp(p) >= 0
}

func (NaturalStrategy) Equals(a, b Quantity) bool {
	x, err := asNat(a)
	if err != nil {
		return false
	}
	y, err := asNat(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

func (NaturalStrategy) With(a, b Quantity) (Quantity, error) {
	x, err := asNat(a)
	if err != nil {
		return nil, err
	}
	y, err := asNat(b)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(x, y), nil
}

func (NaturalStrategy) Without(whole, part Quantity) (Quantity, error) {
	w, err := asNat(whole)
	if err != nil {
		return nil, err
	}
	p, err := asNat(part)
	if err != nil {
		return nil, err
	}
	if w.Cmp(p) < 0 {
		return nil, fmt.Errorf("%w: %s does not include %s", ErrInsufficientQuantity, w, p)
	}
	return new(big.Int).Sub(w, p), nil
}
