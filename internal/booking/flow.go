package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

var ErrInFlight = errors.New("booking submission already in flight")

type Poster interface {
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
}

type Sessions interface {
	IsAuthenticated() bool
}

// Demo acknowledges a booking locally when the API cannot be reached.
// A nil *Demo turns the fallback off.
type Demo struct {
	Delay time.Duration
}

func DefaultDemo() *Demo { return &Demo{Delay: 1500 * time.Millisecond} }

// Step is where the view goes after a successful submission.
type Step string

const (
	StepDashboard    Step = "dashboard"
	StepSignupPrompt Step = "signup-prompt"
	StepRegister     Step = "register"
	StepConfirmation Step = "confirmation"
)

const (
	dashboardDelay = 2 * time.Second
	promptDelay    = 3 * time.Second
)

type Outcome struct {
	Acknowledged string              `json:"acknowledged"` // api | demo
	Booking      *storefront.Booking `json:"booking,omitempty"`
	Next         Step                `json:"next"`
	After        time.Duration       `json:"after"`
	FollowUp     string              `json:"followUp,omitempty"`
}

// AnswerSignup resolves the guest sign-up prompt. Declining stays on the
// confirmation view.
func (o Outcome) AnswerSignup(accept bool) Step {
	if o.Next != StepSignupPrompt {
		return o.Next
	}
	if accept {
		return StepRegister
	}
	return StepConfirmation
}

type Config struct {
	API       Poster
	Store     *kvstore.Store // plain store for the pending draft
	Sessions  Sessions
	Demo      *Demo
	Notifier  notify.Notifier
	Publisher activity.Publisher
	Log       *zap.Logger
	ID        string
	// Sleep waits out the demo delay; it defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Flow struct {
	api      Poster
	store    *kvstore.Store
	sessions Sessions
	demo     *Demo
	notify   notify.Notifier
	pub      activity.Publisher
	log      *zap.Logger
	id       string
	sleep    func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	submitting bool
}

func New(cfg Config) *Flow {
	f := &Flow{
		api:      cfg.API,
		store:    cfg.Store,
		sessions: cfg.Sessions,
		demo:     cfg.Demo,
		notify:   notify.OrNop(cfg.Notifier),
		pub:      cfg.Publisher,
		log:      cfg.Log,
		id:       cfg.ID,
		sleep:    cfg.Sleep,
	}
	if f.pub == nil {
		f.pub = activity.Nop{}
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	if f.sleep == nil {
		f.sleep = sleepCtx
	}
	return f
}

// Suspend stores the draft before the user leaves to authenticate.
func (f *Flow) Suspend(d Draft) error {
	if f.store == nil {
		return nil
	}
	if err := f.store.Set(kvstore.KeyPendingBooking, d); err != nil {
		f.log.Warn("suspend booking draft", zap.Error(err))
		return err
	}
	return nil
}

// Resume returns the suspended draft once and deletes it. A malformed or
// empty draft is discarded and reported as absent.
func (f *Flow) Resume() (Draft, bool) {
	if f.store == nil {
		return Draft{}, false
	}
	d, ok := kvstore.Get[Draft](f.store, kvstore.KeyPendingBooking)
	f.discardDraft()
	if !ok || d.IsZero() {
		return Draft{}, false
	}
	f.notify.Success("Welcome back! Your form data has been restored.")
	return d, true
}

func (f *Flow) discardDraft() {
	if f.store == nil {
		return
	}
	if err := f.store.Remove(kvstore.KeyPendingBooking); err != nil {
		f.log.Warn("remove booking draft", zap.Error(err))
	}
}

func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

type request struct {
	CustomerDetails  storefront.CustomerDetails `json:"customerDetails"`
	DeviceBrand      string                     `json:"deviceBrand"`
	DeviceModel      string                     `json:"deviceModel"`
	ServiceType      string                     `json:"serviceType"`
	IssueDescription string                     `json:"issueDescription"`
	PreferredDate    string                     `json:"preferredDate"`
	PreferredTime    string                     `json:"preferredTime"`
	DeliveryOption   string                     `json:"deliveryOption"`
	Notes            string                     `json:"notes"`
	IsGuestBooking   bool                       `json:"isGuestBooking"`
}

func buildRequest(d Draft, guest bool) request {
	var email *string
	if d.Email != "" {
		e := d.Email
		email = &e
	}
	model := d.DeviceModel
	if model == "" {
		model = "Not specified"
	}
	return request{
		CustomerDetails:  storefront.CustomerDetails{Name: d.Name, Email: email, Phone: d.Phone, Address: d.Address},
		DeviceBrand:      d.DeviceBrand,
		DeviceModel:      model,
		ServiceType:      d.IssueType,
		IssueDescription: d.IssueDescription,
		PreferredDate:    d.PreferredDate,
		PreferredTime:    d.PreferredTime,
		DeliveryOption:   "doorstep-service",
		Notes:            fmt.Sprintf("Issue: %s. Description: %s", d.IssueType, d.IssueDescription),
		IsGuestBooking:   guest,
	}
}

// Submit validates then posts the booking. Validation failures never reach
// the network.
func (f *Flow) Submit(ctx context.Context, d Draft) (Outcome, error) {
	if err := Validate(d); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			f.notify.Error(ve.Notice)
		}
		return Outcome{}, err
	}

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Outcome{}, ErrInFlight
	}
	f.submitting = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	guest := f.sessions == nil || !f.sessions.IsAuthenticated()
	req := buildRequest(d, guest)

	out := Outcome{Acknowledged: "api"}
	var res struct {
		Booking *storefront.Booking `json:"booking"`
	}
	err := f.api.Post(ctx, "/repairs", req, &res)
	switch {
	case err == nil:
		out.Booking = res.Booking
	case f.demo != nil && apiclient.IsTransport(err) && ctx.Err() == nil:
		f.log.Info("repairs API unreachable, acknowledging in demo mode", zap.Error(err))
		if err := f.sleep(ctx, f.demo.Delay); err != nil {
			f.notify.Error("Failed to submit booking. Please try again.")
			return Outcome{}, err
		}
		out.Acknowledged = "demo"
	default:
		f.notify.Error(apiclient.Message(err, "Failed to submit booking. Please try again."))
		return Outcome{}, err
	}

	f.notify.Success("Repair booking submitted successfully!")
	f.notify.Success("We will contact you within 2 hours")
	f.discardDraft()

	if guest {
		out.Next, out.After = StepSignupPrompt, promptDelay
		out.FollowUp = "Booking confirmed! Check your email for details."
	} else {
		out.Next, out.After = StepDashboard, dashboardDelay
	}

	f.pub.Publish(ctx, storefront.EventBookingSubmitted, f.id, storefront.BookingSubmittedPayload{
		Guest:        guest,
		DeviceBrand:  d.DeviceBrand,
		ServiceType:  d.IssueType,
		Acknowledged: out.Acknowledged,
	})
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
