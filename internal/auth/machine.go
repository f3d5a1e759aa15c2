package auth

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/security"
	"github.com/ariefcatur/mobirepair-storefront/internal/storefront"
)

// Client is the slice of *apiclient.Client the machine needs.
type Client interface {
	Get(ctx context.Context, path string, out any, opts ...apiclient.CallOption) error
	Post(ctx context.Context, path string, body, out any, opts ...apiclient.CallOption) error
	SetToken(tok string)
	ClearToken()
}

type Config struct {
	API    Client
	Secure *kvstore.Store // holds the token
	// Compat, when set, also receives a plain copy of the token for older readers.
	Compat    *kvstore.Store
	Limiter   *security.RateLimiter
	CSRF      *security.CSRF
	Demo      *Demo
	Notifier  notify.Notifier
	Publisher activity.Publisher
	Log       *zap.Logger
	ID        string
}

type Machine struct {
	api     Client
	secure  *kvstore.Store
	compat  *kvstore.Store
	limiter *security.RateLimiter
	csrf    *security.CSRF
	demo    *Demo
	notify  notify.Notifier
	pub     activity.Publisher
	log     *zap.Logger
	id      string

	restores singleflight.Group

	mu      sync.Mutex
	session Session
	gen     uint64
}

// New reads the stored token. With one present the session starts in
// loading and RestoreSession must run before it can be trusted.
func New(cfg Config) *Machine {
	m := &Machine{
		api:     cfg.API,
		secure:  cfg.Secure,
		compat:  cfg.Compat,
		limiter: cfg.Limiter,
		csrf:    cfg.CSRF,
		demo:    cfg.Demo,
		notify:  notify.OrNop(cfg.Notifier),
		pub:     cfg.Publisher,
		log:     cfg.Log,
		id:      cfg.ID,
	}
	if m.limiter == nil {
		m.limiter = security.NewRateLimiter()
	}
	if m.csrf == nil {
		m.csrf = security.NewCSRF()
	}
	if m.pub == nil {
		m.pub = activity.Nop{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}

	m.session = unauthenticated()
	if tok := m.storedToken(); tok != "" {
		m.session = Reduce(m.session, RestoreStarted{Token: tok})
	}
	m.syncCredential()
	return m
}

func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Machine) Token() string         { return m.Session().Token }
func (m *Machine) IsAuthenticated() bool { return m.Session().IsAuthenticated() }
func (m *Machine) CSRF() *security.CSRF  { return m.csrf }

// RestoreSession loads the profile behind the stored token. Concurrent
// calls share one request. Without a stored token no request is made.
func (m *Machine) RestoreSession(ctx context.Context) (Session, error) {
	v, err, _ := m.restores.Do("restore", func() (any, error) {
		return m.restore(ctx)
	})
	s, _ := v.(Session)
	return s, err
}

func (m *Machine) restore(ctx context.Context) (Session, error) {
	gen := m.begin()
	tok := m.storedToken()
	if tok == "" {
		return m.settle(gen, AuthError{}, nil)
	}
	if _, ok := m.dispatch(gen, RestoreStarted{Token: tok}); !ok {
		return m.Session(), ErrSuperseded
	}

	if m.demo.IsToken(tok) {
		return m.settle(gen, UserLoaded{User: m.demo.User}, nil)
	}

	var res struct {
		User storefront.User `json:"user"`
	}
	if err := m.api.Get(ctx, "/auth/me", &res); err != nil {
		m.log.Info("session restore failed", zap.Error(err))
		return m.settle(gen, AuthError{}, err)
	}
	return m.settle(gen, UserLoaded{User: res.User}, nil)
}

// settle dispatches and turns a dropped result into ErrSuperseded.
func (m *Machine) settle(gen uint64, a Action, err error) (Session, error) {
	s, ok := m.dispatch(gen, a)
	if !ok {
		return s, ErrSuperseded
	}
	return s, err
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  storefront.User `json:"user"`
}

// Login returns the resulting session. Failures have already been
// notified; the error is for the caller to keep its form populated.
func (m *Machine) Login(ctx context.Context, email, password string) (Session, error) {
	if !m.limiter.Allow("login", security.LoginRule) {
		m.notify.Error("Too many login attempts. Please try again later.")
		return m.Session(), security.ErrRateLimited
	}
	email = security.Sanitize(strings.ToLower(email))
	if !security.ValidEmail(email) {
		m.notify.Error("Please enter a valid email address")
		return m.Session(), ErrInvalidEmail
	}

	gen := m.begin()
	if m.demo.Match(email, password) {
		s, _ := m.dispatch(gen, LoginSuccess{Token: m.demo.Token, User: m.demo.User})
		m.notify.Success("Login successful!")
		m.publish(ctx, storefront.EventUserLoggedIn, s, true)
		return s, nil
	}

	var res authResponse
	err := m.api.Post(ctx, "/auth/login", credentials{Email: email, Password: password}, &res, apiclient.CSRF())
	if err == nil && res.Token == "" {
		err = errNoToken
	}
	if err != nil {
		return m.fail(gen, LoginFail{Message: apiclient.Message(err, "Login failed")}, err)
	}

	s, ok := m.dispatch(gen, LoginSuccess{Token: res.Token, User: res.User})
	if !ok {
		return s, ErrSuperseded
	}
	m.notify.Success("Login successful!")
	m.publish(ctx, storefront.EventUserLoggedIn, s, false)
	return s, nil
}

// Register signs up and then reloads the canonical profile.
func (m *Machine) Register(ctx context.Context, name, email, phone, password string) (Session, error) {
	if !m.limiter.Allow("register", security.RegisterRule) {
		m.notify.Error("Too many registration attempts. Please try again later.")
		return m.Session(), security.ErrRateLimited
	}
	req := credentials{
		Name:     security.Sanitize(name),
		Email:    security.Sanitize(strings.ToLower(email)),
		Phone:    security.Sanitize(security.DigitsOnly(phone)),
		Password: password,
	}
	if !security.ValidEmail(req.Email) {
		m.notify.Error("Please enter a valid email address")
		return m.Session(), ErrInvalidEmail
	}
	if problems := security.PasswordProblems(password); len(problems) > 0 {
		m.notify.Error(strings.Join(problems, ". "))
		return m.Session(), &PasswordError{Problems: problems}
	}

	gen := m.begin()
	var res authResponse
	err := m.api.Post(ctx, "/auth/register", req, &res, apiclient.CSRF())
	if err == nil && res.Token == "" {
		err = errNoToken
	}
	if err != nil {
		return m.fail(gen, RegisterFail{Message: apiclient.Message(err, "Registration failed")}, err)
	}

	s, ok := m.dispatch(gen, RegisterSuccess{Token: res.Token, User: res.User})
	if !ok {
		return s, ErrSuperseded
	}
	m.notify.Success("Registration successful!")
	m.publish(ctx, storefront.EventUserRegistered, s, false)

	return m.reloadProfile(ctx, gen, s), nil
}

// reloadProfile swaps in the canonical profile for a freshly registered
// session. A failed fetch keeps the registered session and its token.
func (m *Machine) reloadProfile(ctx context.Context, gen uint64, s Session) Session {
	var res struct {
		User storefront.User `json:"user"`
	}
	if err := m.api.Get(ctx, "/auth/me", &res); err != nil {
		m.log.Warn("profile reload after register", zap.Error(err))
		return s
	}
	if loaded, ok := m.dispatch(gen, UserLoaded{User: res.User}); ok {
		return loaded
	}
	return m.Session()
}

// Logout cannot fail. It also rotates the anti-forgery token.
func (m *Machine) Logout(ctx context.Context) Session {
	prev := m.Session()
	s, _ := m.dispatch(m.begin(), Logout{})
	m.csrf.Rotate()
	m.notify.Success("Logged out successfully")
	if prev.User != nil {
		m.pub.Publish(ctx, storefront.EventUserLoggedOut, m.id, storefront.SessionPayload{UserID: prev.User.ID})
	} else {
		m.pub.Publish(ctx, storefront.EventUserLoggedOut, m.id, storefront.SessionPayload{})
	}
	return s
}

func (m *Machine) fail(gen uint64, a Action, cause error) (Session, error) {
	msg := ""
	switch a := a.(type) {
	case LoginFail:
		msg = a.Message
	case RegisterFail:
		msg = a.Message
	}
	s, ok := m.dispatch(gen, a)
	if !ok {
		return s, ErrSuperseded
	}
	m.notify.Error(msg)
	return s, cause
}

// begin starts a new operation; results of older ones are dropped.
func (m *Machine) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	return m.gen
}

// dispatch applies a to the session if gen is still current, then keeps the
// stored token and the request credential in step with the new session.
func (m *Machine) dispatch(gen uint64, a Action) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.log.Debug("dropping stale session result", zap.Uint64("gen", gen), zap.Uint64("latest", m.gen))
		return m.session, false
	}
	prev := m.session
	m.session = Reduce(prev, a)

	switch {
	case m.session.Token != "" && m.session.Token != prev.Token:
		m.storeToken(m.session.Token)
	case m.session.Token == "" && (prev.Token != "" || clearsToken(a)):
		m.removeToken()
	}
	m.syncCredential()
	return m.session, true
}

func (m *Machine) syncCredential() {
	if m.api == nil {
		return
	}
	if m.session.Token != "" {
		m.api.SetToken(m.session.Token)
	} else {
		m.api.ClearToken()
	}
}

func (m *Machine) storedToken() string {
	if m.secure == nil {
		return ""
	}
	tok, _ := kvstore.Get[string](m.secure, kvstore.KeyAuthToken)
	return tok
}

func (m *Machine) storeToken(tok string) {
	if m.secure != nil {
		if err := m.secure.Set(kvstore.KeyAuthToken, tok); err != nil {
			m.log.Warn("store token", zap.Error(err))
		}
	}
	if m.compat != nil {
		if err := m.compat.Set(kvstore.KeyPlainToken, tok); err != nil {
			m.log.Warn("store compat token", zap.Error(err))
		}
	}
}

func (m *Machine) removeToken() {
	if m.secure != nil {
		if err := m.secure.Remove(kvstore.KeyAuthToken); err != nil {
			m.log.Warn("remove token", zap.Error(err))
		}
	}
	if m.compat != nil {
		if err := m.compat.Remove(kvstore.KeyPlainToken); err != nil {
			m.log.Warn("remove compat token", zap.Error(err))
		}
	}
}

func (m *Machine) publish(ctx context.Context, eventType string, s Session, demo bool) {
	p := storefront.SessionPayload{Demo: demo}
	if s.User != nil {
		p.UserID, p.Email = s.User.ID, s.User.Email
	}
	m.pub.Publish(ctx, eventType, m.id, p)
}
