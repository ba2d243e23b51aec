package assets

import "fmt"

// Amount pairs a label naming an asset kind with a quantity of that kind.
// Amounts are the unit exchanged between the asset layer and the exchange
// kernel; amounts with different labels never compare or combine.
type Amount struct {
	Label    string
	Quantity Quantity
}

// Amounts is one participant's per-slot row of amounts.
type Amounts []Amount

// SameLabel reports whether both amounts name the same asset kind.
func (a Amount) SameLabel(b Amount) bool { return a.Label == b.Label }

func (a Amount) String() string {
	return fmt.Sprintf("%v %s", a.Quantity, a.Label)
}
