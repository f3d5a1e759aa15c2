// Package cart is the shopping cart state machine. State is only ever
// produced by Reduce, so the derived totals cannot drift from the lines.
package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type Line struct {
	Product  storefront.Product `json:"product"`
	Quantity int                `json:"quantity"`
}

// UnmarshalJSON also accepts the older flat layout, where the product
// fields sit next to quantity instead of under "product".
func (l *Line) UnmarshalJSON(b []byte) error {
	var wrapped struct {
		Product  *storefront.Product `json:"product"`
		Quantity int                 `json:"quantity"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Product != nil {
		*l = Line{Product: *wrapped.Product, Quantity: wrapped.Quantity}
		return nil
	}
	var flat storefront.Product
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	*l = Line{Product: flat, Quantity: wrapped.Quantity}
	return nil
}

type State struct {
	lines     []Line
	itemCount int
	subtotal  decimal.Decimal
}

// newState is the only constructor; it recomputes the totals.
func newState(lines []Line) State {
	s := State{lines: lines, subtotal: decimal.Zero}
	for _, l := range lines {
		s.itemCount += l.Quantity
		s.subtotal = s.subtotal.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return s
}

// FromLines builds a state from stored lines, merging duplicates and
// dropping lines without a product id or with a non-positive quantity.
func FromLines(lines []Line) State {
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Product.ID == "" || l.Quantity <= 0 {
			continue
		}
		if i, ok := index[l.Product.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.Product.ID] = len(out)
		out = append(out, l)
	}
	return newState(out)
}

func (s State) Lines() []Line {
	return append([]Line(nil), s.lines...)
}

func (s State) Len() int                  { return len(s.lines) }
func (s State) ItemCount() int            { return s.itemCount }
func (s State) Subtotal() decimal.Decimal { return s.subtotal }
func (s State) Total() storefront.Money   { return storefront.INR(s.subtotal) }

func (s State) Quantity(productID string) int {
	if i := s.find(productID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

func (s State) Contains(productID string) bool { return s.find(productID) >= 0 }

func (s State) find(productID string) int {
	for i, l := range s.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

// Action is the closed set of cart mutations.
type Action interface{ isAction() }

type AddItem struct {
	Product  storefront.Product
	Quantity int
}

type RemoveItem struct{ ProductID string }

type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

type Clear struct{}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (Clear) isAction()          {}

// Reduce never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		if a.Product.ID == "" {
			return s
		}
		qty := a.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines := s.Lines()
		if i := s.find(a.Product.ID); i >= 0 {
			lines[i].Quantity += qty
		} else {
			lines = append(lines, Line{Product: a.Product, Quantity: qty})
		}
		return newState(lines)

	case RemoveItem:
		i := s.find(a.ProductID)
		if i < 0 {
			return s
		}
		lines := make([]Line, 0, len(s.lines)-1)
		lines = append(lines, s.lines[:i]...)
		lines = append(lines, s.lines[i+1:]...)
		return newState(lines)

	case UpdateQuantity:
		if a.Quantity <= 0 {
			return Reduce(s, RemoveItem{ProductID: a.ProductID})
		}
		i := s.find(a.ProductID)
		if i < 0 {
			return s
		}
		lines := s.Lines()
		lines[i].Quantity = a.Quantity
		return newState(lines)

	case Clear:
		return newState(nil)
	}
	return s
}
