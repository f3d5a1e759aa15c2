package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/mobirepair-storefront/internal/app"
	"github.com/ariefcatur/mobirepair-storefront/internal/booking"
	"github.com/ariefcatur/mobirepair-storefront/internal/checkout"
	"github.com/ariefcatur/mobirepair-storefront/internal/config"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

type storefrontContext struct {
	api     *httptest.Server
	calls   atomic.Int32
	app     *app.App
	notices []string
}

func (c *storefrontContext) reset() {
	c.close()
	c.calls.Store(0)
	c.notices = nil
	c.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		c.calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
	}))
}

func (c *storefrontContext) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.api != nil {
		c.api.Close()
		c.api = nil
	}
}

func (c *storefrontContext) aFreshStorefront() error {
	cfg := config.Config{APIBaseURL: c.api.URL + "/api", StoreBackend: "memory", ServiceName: "features", DemoMode: true}
	a, err := app.New(context.Background(), cfg, nil, app.Deps{Backend: kvstore.NewMemory()})
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *storefrontContext) iAddToTheCart(qty int, id string, price int) error {
	p := storefront.Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(int64(price))}
	c.app.Cart.AddItem(context.Background(), p, qty)
	return nil
}

func (c *storefrontContext) iSetTheQuantity(id string, qty int) error {
	c.app.Cart.UpdateQuantity(context.Background(), id, qty)
	return nil
}

func (c *storefrontContext) theCartHoldsItems(n int) error {
	if got := c.app.Cart.Snapshot().ItemCount(); got != n {
		return fmt.Errorf("expected %d items, got %d", n, got)
	}
	return nil
}

func (c *storefrontContext) theCartHasLines(n int) error {
	if got := c.app.Cart.Snapshot().Len(); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *storefrontContext) theQuantityIs(id string, n int) error {
	if got := c.app.Cart.Quantity(id); got != n {
		return fmt.Errorf("expected quantity %d for %s, got %d", n, id, got)
	}
	return nil
}

func (c *storefrontContext) theSubtotalIs(v int) error {
	if got := c.app.Cart.Snapshot().Subtotal(); !got.Equal(decimal.NewFromInt(int64(v))) {
		return fmt.Errorf("expected subtotal %d, got %s", v, got)
	}
	return nil
}

func (c *storefrontContext) theQuoteTotalIs(v int) error {
	q := checkout.QuoteFor(c.app.Cart.Snapshot().Subtotal())
	if !q.Total.Equal(decimal.NewFromInt(int64(v))) {
		return fmt.Errorf("expected quote total %d, got %s", v, q.Total)
	}
	return nil
}

func (c *storefrontContext) iLogIn(email, password string) error {
	_, _ = c.app.Auth.Login(context.Background(), email, password)
	return nil
}

func (c *storefrontContext) iLogInTimes(n int, email, password string) error {
	for i := 0; i < n; i++ {
		_, _ = c.app.Auth.Login(context.Background(), email, password)
	}
	return nil
}

func (c *storefrontContext) theSessionIs(status string) error {
	if got := c.app.Auth.Session().Status; string(got) != status {
		return fmt.Errorf("expected session %q, got %q", status, got)
	}
	return nil
}

func (c *storefrontContext) theSignedInUserIs(id string) error {
	u := c.app.Auth.Session().User
	if u == nil || u.ID != id {
		return fmt.Errorf("expected user %q, got %+v", id, u)
	}
	return nil
}

func (c *storefrontContext) apiCallsWereMade(n int) error {
	if got := int(c.calls.Load()); got != n {
		return fmt.Errorf("expected %d API calls, got %d", n, got)
	}
	return nil
}

func (c *storefrontContext) theNoticeWasShown(msg string) error {
	c.notices = append(c.notices, c.app.Notices.Messages()...)
	if !slices.Contains(c.notices, msg) {
		return fmt.Errorf("notice %q not shown, got %q", msg, c.notices)
	}
	return nil
}

func draftFor(name, phone string) booking.Draft {
	return booking.Draft{
		Name: name, Phone: phone, DeviceBrand: "Samsung", IssueType: "Battery Problems", IssueDescription: "Drains by noon",
		Address: "1 MG Road, Kolkata", PreferredDate: "2026-11-01", PreferredTime: "10:00 AM - 12:00 PM",
	}
}

func (c *storefrontContext) iSubmitABookingWithPhone(phone string) error {
	_, err := c.app.Booking.Submit(context.Background(), draftFor("Asha", phone))
	if err == nil {
		return fmt.Errorf("expected the booking to be rejected")
	}
	return nil
}

func (c *storefrontContext) iSuspendADraftFor(name string) error {
	return c.app.Booking.Suspend(draftFor(name, "9876543210"))
}

func (c *storefrontContext) resumingRestoresName(name string) error {
	d, ok := c.app.Booking.Resume()
	if !ok || d.Name != name {
		return fmt.Errorf("expected draft for %q, got %+v (found=%v)", name, d, ok)
	}
	return nil
}

func (c *storefrontContext) resumingFindsNothing() error {
	if d, ok := c.app.Booking.Resume(); ok {
		return fmt.Errorf("expected no draft, got %+v", d)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &storefrontContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc.close()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a fresh storefront with demo mode on$`, tc.aFreshStorefront)

	// When steps
	ctx.Step(`^I add (\d+) of "([^"]*)" priced (\d+) to the cart$`, tc.iAddToTheCart)
	ctx.Step(`^I set the quantity of "([^"]*)" to (\d+)$`, tc.iSetTheQuantity)
	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, tc.iLogIn)
	ctx.Step(`^I log in (\d+) times as "([^"]*)" with password "([^"]*)"$`, tc.iLogInTimes)
	ctx.Step(`^I submit a booking with phone "([^"]*)"$`, tc.iSubmitABookingWithPhone)
	ctx.Step(`^I suspend a booking draft for "([^"]*)"$`, tc.iSuspendADraftFor)

	// Then steps
	ctx.Step(`^the cart holds (\d+) items$`, tc.theCartHoldsItems)
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^the quantity of "([^"]*)" is (\d+)$`, tc.theQuantityIs)
	ctx.Step(`^the subtotal is (\d+)$`, tc.theSubtotalIs)
	ctx.Step(`^the quote total is (\d+)$`, tc.theQuoteTotalIs)
	ctx.Step(`^the session is "([^"]*)"$`, tc.theSessionIs)
	ctx.Step(`^the signed-in user id is "([^"]*)"$`, tc.theSignedInUserIs)
	ctx.Step(`^(\d+) API calls were made$`, tc.apiCallsWereMade)
	ctx.Step(`^the notice "([^"]*)" was shown$`, tc.theNoticeWasShown)
	ctx.Step(`^resuming the draft restores the name "([^"]*)"$`, tc.resumingRestoresName)
	ctx.Step(`^resuming the draft again finds nothing$`, tc.resumingFindsNothing)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
