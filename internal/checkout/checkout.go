// Package checkout turns the cart into an order.
package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/cart"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/security"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

var (
	ErrNotAuthenticated = errors.New("checkout requires a signed-in user")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidAddress   = errors.New("shipping address incomplete")
)

type ShippingAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Complete reports whether every required field is filled in.
func (a ShippingAddress) Complete() bool {
	for _, v := range []string{a.Name, a.Phone, a.Street, a.City, a.State, a.Pincode} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

type Poster interface {
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
}

type Sessions interface {
	IsAuthenticated() bool
}

type Carts interface {
	Snapshot() cart.State
	ClearSilently(ctx context.Context) cart.State
}

type Service struct {
	API       Poster
	Sessions  Sessions
	Cart      Carts
	Notifier  notify.Notifier
	Publisher activity.Publisher
	Log       *zap.Logger
	ID        string
}

type orderItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type orderRequest struct {
	Items           []orderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	Notes           string          `json:"notes"`
}

// PlaceOrder posts the cart as a cash-on-delivery order and clears the cart
// on success. On failure the cart is left untouched.
func (s *Service) PlaceOrder(ctx context.Context, addr ShippingAddress) (*storefront.Order, error) {
	n := notify.OrNop(s.Notifier)
	if s.Sessions == nil || !s.Sessions.IsAuthenticated() {
		n.Error("Please login to continue")
		return nil, ErrNotAuthenticated
	}
	snap := s.Cart.Snapshot()
	if snap.Len() == 0 {
		n.Error("Your cart is empty")
		return nil, ErrEmptyCart
	}
	if !addr.Complete() {
		n.Error("Please fill in all required address fields")
		return nil, ErrInvalidAddress
	}
	if !security.ValidPincode(strings.TrimSpace(addr.Pincode)) {
		n.Error("Please enter a valid 6-digit pincode")
		return nil, ErrInvalidAddress
	}

	req := orderRequest{ShippingAddress: addr, PaymentMethod: "COD", Notes: ""}
	for _, l := range snap.Lines() {
		req.Items = append(req.Items, orderItem{Product: l.Product.ID, Quantity: l.Quantity})
	}

	var res struct {
		Order *storefront.Order `json:"order"`
	}
	if err := s.API.Post(ctx, "/orders", req, &res); err != nil {
		if s.Log != nil {
			s.Log.Warn("place order", zap.Error(err))
		}
		n.Error(apiclient.Message(err, "Failed to place order"))
		return nil, err
	}

	n.Success("Order placed successfully!")
	s.Cart.ClearSilently(ctx)

	orderID := ""
	if res.Order != nil {
		orderID = res.Order.ID
	}
	pub := s.Publisher
	if pub == nil {
		pub = activity.Nop{}
	}
	pub.Publish(ctx, storefront.EventOrderPlaced, s.ID, storefront.OrderPlacedPayload{
		OrderID:   orderID,
		ItemCount: snap.ItemCount(),
		Subtotal:  snap.Subtotal().String(),
	})
	return res.Order, nil
}

var (
	freeShippingFrom = decimal.NewFromInt(999)
	flatShipping     = decimal.NewFromInt(49)
	gstRate          = decimal.RequireFromString("0.18")
)

// Quote is the price breakdown shown beside the cart.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteFor applies free shipping from 999, a flat 49 below that, and 18%
// GST rounded to whole rupees. An empty cart costs nothing.
func QuoteFor(subtotal decimal.Decimal) Quote {
	if !subtotal.IsPositive() {
		return Quote{Subtotal: decimal.Zero, Shipping: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	}
	shipping := flatShipping
	if subtotal.GreaterThanOrEqual(freeShippingFrom) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(gstRate).Round(0)
	return Quote{Subtotal: subtotal, Shipping: shipping, Tax: tax, Total: subtotal.Add(shipping).Add(tax)}
}
