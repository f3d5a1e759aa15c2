// Package admin drives the back-office dashboard. It holds its own bearer
// token, separate from the customer session.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/security"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

var (
	ErrSessionExpired     = errors.New("admin session expired")
	ErrInvalidCredentials = errors.New("invalid admin credentials")
)

type API interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
	Put(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
	Delete(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
}

type Dashboard struct {
	Stats    storefront.DashboardStats `json:"stats"`
	Bookings []storefront.Booking      `json:"bookings"`
}

type Service struct {
	api    API
	store  *kvstore.Store
	notify notify.Notifier
	log    *zap.Logger
}

// New takes the plain store; the admin token lives under its own keys.
func New(api API, store *kvstore.Store, n notify.Notifier, log *zap.Logger) *Service {
	return &Service{api: api, store: store, notify: notify.OrNop(n), log: logging.OrNop(log).Named("admin")}
}

// SignIn keeps an admin token and profile for later calls.
func (s *Service) SignIn(token string, user storefront.User) error {
	if token == "" {
		return ErrSessionExpired
	}
	if err := s.store.Set(kvstore.KeyAdminToken, token); err != nil {
		return err
	}
	return s.store.Set(kvstore.KeyAdminUser, user)
}

// Login exchanges admin credentials for a token and keeps it.
func (s *Service) Login(ctx context.Context, email, password string) (storefront.User, error) {
	email = security.Sanitize(strings.ToLower(email))
	if !security.ValidEmail(email) {
		s.notify.Error("Please enter a valid email address")
		return storefront.User{}, ErrInvalidCredentials
	}
	var res struct {
		Token string          `json:"token"`
		User  storefront.User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := s.api.Post(ctx, "/admin/login", body, &res); err != nil {
		s.log.Warn("admin login", zap.Error(err))
		s.notify.Error(apiclient.Message(err, "Admin login failed"))
		return storefront.User{}, err
	}
	if res.Token == "" {
		s.notify.Error("Admin login failed")
		return storefront.User{}, ErrInvalidCredentials
	}
	if err := s.SignIn(res.Token, res.User); err != nil {
		s.log.Warn("store admin session", zap.Error(err))
	}
	s.notify.Success("Admin login successful!")
	return res.User, nil
}

func (s *Service) User() (storefront.User, bool) {
	return kvstore.Get[storefront.User](s.store, kvstore.KeyAdminUser)
}

func (s *Service) Logout() {
	s.clear()
	s.notify.Success("Logged out successfully")
}

func (s *Service) clear() {
	for _, k := range []string{kvstore.KeyAdminToken, kvstore.KeyAdminUser} {
		if err := s.store.Remove(k); err != nil {
			s.log.Warn("remove admin key", zap.String("key", k), zap.Error(err))
		}
	}
}

func (s *Service) token() (string, bool) {
	tok, ok := kvstore.Get[string](s.store, kvstore.KeyAdminToken)
	return tok, ok && tok != ""
}

// Fetch loads the stats and the latest limit bookings in parallel.
func (s *Service) Fetch(ctx context.Context, limit int) (Dashboard, error) {
	tok, ok := s.token()
	if !ok {
		return Dashboard{}, ErrSessionExpired
	}
	if limit <= 0 {
		limit = 20
	}

	var (
		stats struct {
			Stats storefront.DashboardStats `json:"stats"`
		}
		list struct {
			Bookings []storefront.Booking `json:"bookings"`
		}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.api.Get(gctx, "/admin/dashboard", &stats, apiclient.Bearer(tok))
	})
	g.Go(func() error {
		return s.api.Get(gctx, fmt.Sprintf("/admin/bookings?limit=%d", limit), &list, apiclient.Bearer(tok))
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, s.failed("fetch dashboard", err, "Failed to load dashboard data")
	}

	d := Dashboard{Stats: stats.Stats, Bookings: list.Bookings}
	if d.Bookings == nil {
		d.Bookings = []storefront.Booking{}
	}
	return d, nil
}

func (s *Service) UpdateBookingStatus(ctx context.Context, id, status string) error {
	st, err := storefront.ParseBookingStatus(status)
	if err != nil {
		s.notify.Error("Invalid booking status")
		return err
	}
	tok, ok := s.token()
	if !ok {
		return ErrSessionExpired
	}

	var res struct {
		SMSNotification any `json:"smsNotification"`
	}
	body := map[string]string{"status": string(st)}
	if err := s.api.Put(ctx, "/admin/bookings/"+url.PathEscape(id), body, &res, apiclient.Bearer(tok)); err != nil {
		return s.failed("update booking status", err, "Failed to update booking status")
	}
	s.notify.Success("Booking status updated successfully")
	if res.SMSNotification != nil && res.SMSNotification != false {
		s.notify.Success("Customer notified via SMS")
	}
	return nil
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	tok, ok := s.token()
	if !ok {
		return ErrSessionExpired
	}
	if err := s.api.Delete(ctx, "/admin/bookings/"+url.PathEscape(id), nil, apiclient.Bearer(tok)); err != nil {
		fallback := "Failed to delete booking"
		if apiclient.StatusCode(err) == http.StatusBadRequest {
			fallback = apiclient.Message(err, "Cannot delete this booking")
		}
		return s.failed("delete booking", err, fallback)
	}
	s.notify.Success("Booking deleted successfully")
	return nil
}

func (s *Service) SendSMS(ctx context.Context, phone, customerName, message string) error {
	tok, ok := s.token()
	if !ok {
		return ErrSessionExpired
	}
	body := map[string]string{"phone": phone, "customerName": customerName, "message": message}
	if err := s.api.Post(ctx, "/admin/send-sms", body, nil, apiclient.Bearer(tok)); err != nil {
		return s.failed("send sms", err, "Failed to send SMS")
	}
	s.notify.Success("SMS sent successfully!")
	return nil
}

// failed maps a 401 to a logout. Anything else gets the given notice.
func (s *Service) failed(op string, err error, notice string) error {
	s.log.Warn(op, zap.Error(err))
	if apiclient.StatusCode(err) == http.StatusUnauthorized {
		s.notify.Error("Session expired. Please login again.")
		s.clear()
		return fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}
	s.notify.Error(notice)
	return err
}
