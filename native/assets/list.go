package assets

import (
	"fmt"
	"sort"
)

// ListStrategy implements a set-like algebra over collections of unique
// elements. A quantity is a slice of elements held in canonical order by a
// caller-supplied ordering key; duplicates are forbidden, With is union and
// Without is difference.
type ListStrategy struct {
	key func(elem Quantity) (string, error)
}

// NewList builds a list strategy whose elements are identified and ordered by
// the supplied key function.
func NewList(key func(elem Quantity) (string, error)) ListStrategy {
	return ListStrategy{key: key}
}

// StringList returns a list strategy whose elements are plain strings.
func StringList() ListStrategy {
	return NewList(func(elem Quantity) (string, error) {
		s, ok := elem.(string)
		if !ok {
			return "", fmt.Errorf("%w: list element %T is not a string", ErrInvalidQuantity, elem)
		}
		return s, nil
	})
}

// canonical returns the element slice sorted by key with duplicates rejected.
func (s ListStrategy) canonical(q Quantity) ([]Quantity, []string, error) {
	if s.key == nil {
		return nil, nil, fmt.Errorf("%w: list strategy missing ordering key", ErrInvalidQuantity)
	}
	var elems []Quantity
	switch v := q.(type) {
	case nil:
		elems = nil
	case []Quantity:
		elems = v
	case []string:
		elems = make([]Quantity, len(v))
		for i, e := range v {
			elems[i] = e
		}
	default:
		return nil, nil, fmt.Errorf("%w: %T is not a list quantity", ErrInvalidQuantity, q)
	}
	type keyed struct {
		key  string
		elem Quantity
	}
	entries := make([]keyed, 0, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for _, elem := range elems {
		k, err := s.key(elem)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[k]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate list element %q", ErrInvalidQuantity, k)
		}
		seen[k] = struct{}{}
		entries = append(entries, keyed{key: k, elem: elem})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	sorted := make([]Quantity, len(entries))
	keys := make([]string, len(entries))
	for i, entry := range entries {
		sorted[i] = entry.elem
		keys[i] = entry.key
	}
	return sorted, keys, nil
}

func (s ListStrategy) Validate(q Quantity) (Quantity, error) {
	sorted, _, err := s.canonical(q)
	if err != nil {
		return nil, err
	}
	return sorted, nil
}

func (s ListStrategy) Empty() Quantity { return []Quantity{} }

func (s ListStrategy) IsEmpty(q Quantity) bool {
	sorted, _, err := s.canonical(q)
	return err == nil && len(sorted) == 0
}

func (s ListStrategy) Includes(whole, part Quantity) bool {
	_, wholeKeys, err := s.canonical(whole)
	if err != nil {
		return false
	}
	_, partKeys, err := s.canonical(part)
	if err != nil {
		return false
	}
	held := make(map[string]struct{}, len(wholeKeys))
	for _, k := range wholeKeys {
		held[k] = struct{}{}
	}
	for _, k := range partKeys {
		if _, ok := held[k]; !ok {
			return false
		}
	}
	return true
}

func (s ListStrategy) Equals(a, b Quantity) bool {
	_, aKeys, err := s.canonical(a)
	if err != nil {
		return false
	}
	_, bKeys, err := s.canonical(b)
	if err != nil {
		return false
	}
	if len(aKeys) != len(bKeys) {
		return false
	}
	for i := range aKeys {
		if aKeys[i] != bKeys[i] {
			return false
		}
	}
	return true
}

func (s ListStrategy) With(a, b Quantity) (Quantity, error) {
	left, leftKeys, err := s.canonical(a)
	if err != nil {
		return nil, err
	}
	right, rightKeys, err := s.canonical(b)
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(leftKeys))
	for _, k := range leftKeys {
		held[k] = struct{}{}
	}
	for _, k := range rightKeys {
		if _, dup := held[k]; dup {
			return nil, fmt.Errorf("%w: element %q present on both sides", ErrInvalidQuantity, k)
		}
	}
	return s.Validate(append(append([]Quantity{}, left...), right...))
}

func (s ListStrategy) Without(whole, part Quantity) (Quantity, error) {
	wholeElems, wholeKeys, err := s.canonical(whole)
	if err != nil {
		return nil, err
	}
	_, partKeys, err := s.canonical(part)
	if err != nil {
		return nil, err
	}
	remove := make(map[string]struct{}, len(partKeys))
	for _, k := range partKeys {
		remove[k] = struct{}{}
	}
	remaining := make([]Quantity, 0, len(wholeElems))
	removed := 0
	for i, elem := range wholeElems {
		if _, ok := remove[wholeKeys[i]]; ok {
			removed++
			continue
		}
		remaining = append(remaining, elem)
	}
	if removed != len(partKeys) {
		return nil, fmt.Errorf("%w: whole does not include every removed element", ErrInsufficientQuantity)
	}
	return remaining, nil
}
