// Package account loads the signed-in user's dashboard.
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/auth"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type Getter interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
}

type Tokens interface {
	Token() string
}

type Dashboard struct {
	Bookings []storefront.Booking `json:"bookings"`
	Orders   []storefront.Order   `json:"orders"`
	Demo     bool                 `json:"demo,omitempty"`
}

type Stats struct {
	TotalBookings int `json:"totalBookings"`
	TotalOrders   int `json:"totalOrders"`
	ActiveRepairs int `json:"activeRepairs"`
	Completed     int `json:"completed"`
}

func (d Dashboard) Stats() Stats {
	s := Stats{TotalBookings: len(d.Bookings), TotalOrders: len(d.Orders)}
	for _, b := range d.Bookings {
		switch b.Status {
		case storefront.BookingPending, storefront.BookingAccepted, storefront.BookingInProgress:
			s.ActiveRepairs++
		case storefront.BookingCompleted:
			s.Completed++
		}
	}
	return s
}

type Service struct {
	API      Getter
	Tokens   Tokens
	Demo     *auth.Demo
	Notifier notify.Notifier
	Log      *zap.Logger
	Now      func() time.Time
}

// Load fetches bookings and orders in parallel. The demo session gets
// canned data without touching the network.
func (s *Service) Load(ctx context.Context) (Dashboard, error) {
	if s.Tokens != nil && s.Demo.IsToken(s.Tokens.Token()) {
		return demoDashboard(s.now()), nil
	}

	var (
		bookings struct {
			Bookings []storefront.Booking `json:"bookings"`
		}
		orders struct {
			Orders []storefront.Order `json:"orders"`
		}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.API.Get(gctx, "/repairs/my-bookings", &bookings); err != nil {
			return fmt.Errorf("my bookings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.API.Get(gctx, "/orders/my-orders", &orders); err != nil {
			return fmt.Errorf("my orders: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logging.OrNop(s.Log).Warn("load dashboard", zap.Error(err))
		notify.OrNop(s.Notifier).Error("Failed to load dashboard data")
		return Dashboard{}, err
	}

	d := Dashboard{Bookings: bookings.Bookings, Orders: orders.Orders}
	if d.Bookings == nil {
		d.Bookings = []storefront.Booking{}
	}
	if d.Orders == nil {
		d.Orders = []storefront.Order{}
	}
	return d, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func demoDashboard(now time.Time) Dashboard {
	day := 24 * time.Hour
	return Dashboard{
		Demo: true,
		Bookings: []storefront.Booking{
			{
				ID:          "1",
				DeviceBrand: "Apple",
				DeviceModel: "iPhone 15 Pro",
				ServiceType: "Display Replacement",
				Status:      storefront.BookingInProgress,
				TotalCost:   decimal.NewFromInt(12999),
				CreatedAt:   now,
			},
			{
				ID:          "2",
				DeviceBrand: "Samsung",
				DeviceModel: "Galaxy S24",
				ServiceType: "Battery Replacement",
				Status:      storefront.BookingCompleted,
				TotalCost:   decimal.NewFromInt(2999),
				CreatedAt:   now.Add(-day),
			},
		},
		Orders: []storefront.Order{
			{
				ID:          "1",
				OrderNumber: "GF202412300001",
				Items:       []storefront.OrderItem{{Product: storefront.OrderProduct{Name: "iPhone Case"}, Quantity: 1}},
				OrderStatus: "Delivered",
				Total:       decimal.NewFromInt(1999),
				CreatedAt:   now.Add(-2 * day),
			},
		},
	}
}
