package storefront

import (
	"encoding/json"
	"time"
)

const (
	EventCartItemAdded       = "CartItemAdded"
	EventCartItemRemoved     = "CartItemRemoved"
	EventCartQuantityUpdated = "CartQuantityUpdated"
	EventCartCleared         = "CartCleared"
	EventUserLoggedIn        = "UserLoggedIn"
	EventUserRegistered      = "UserRegistered"
	EventUserLoggedOut       = "UserLoggedOut"
	EventBookingSubmitted    = "BookingSubmitted"
	EventOrderPlaced         = "OrderPlaced"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type CartChangedPayload struct {
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
}

type SessionPayload struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Demo   bool   `json:"demo,omitempty"`
}

type BookingSubmittedPayload struct {
	Guest        bool   `json:"guest"`
	DeviceBrand  string `json:"device_brand"`
	ServiceType  string `json:"service_type"`
	Acknowledged string `json:"acknowledged"` // api | demo
}

type OrderPlacedPayload struct {
	OrderID   string `json:"order_id,omitempty"`
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
}
