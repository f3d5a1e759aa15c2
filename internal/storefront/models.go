package storefront

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency is the storefront's only currency; API prices are plain rupee amounts.
var Currency = currency.INR

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

func INR(amount decimal.Decimal) Money { return Money{Amount: amount, Currency: Currency} }

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.StringFixed(2))
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count,omitempty"`
}

// Product is the catalog entry a cart line refers to. The cart keeps its own copy,
// it never re-reads the live catalog.
type Product struct {
	ID            string           `json:"_id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	Category      string           `json:"category,omitempty"`
	Image         string           `json:"image,omitempty"`
	IsFeatured    bool             `json:"isFeatured,omitempty"`
	Rating        *Rating          `json:"rating,omitempty"`
	CreatedAt     time.Time        `json:"createdAt,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type CustomerDetails struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
}

// Booking is a repair booking as the API returns it to dashboards.
type Booking struct {
	ID               string          `json:"_id"`
	CustomerDetails  CustomerDetails `json:"customerDetails"`
	DeviceBrand      string          `json:"deviceBrand"`
	DeviceModel      string          `json:"deviceModel"`
	ServiceType      string          `json:"serviceType"`
	IssueDescription string          `json:"issueDescription,omitempty"`
	Status           BookingStatus   `json:"status"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type OrderProduct struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

type OrderItem struct {
	Product  OrderProduct `json:"product"`
	Quantity int          `json:"quantity"`
}

type Order struct {
	ID          string          `json:"_id"`
	OrderNumber string          `json:"orderNumber"`
	Items       []OrderItem     `json:"items"`
	OrderStatus string          `json:"orderStatus"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type DashboardStats struct {
	TotalBookings     int             `json:"totalBookings"`
	PendingBookings   int             `json:"pendingBookings"`
	CompletedBookings int             `json:"completedBookings"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}
