// Package app is the application-state container: one place that builds
// every machine with its collaborators, in place of ambient globals.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/mobirepair-storefront/internal/account"
	"github.com/ariefcatur/mobirepair-storefront/internal/activity"
	"github.com/ariefcatur/mobirepair-storefront/internal/admin"
	"github.com/ariefcatur/mobirepair-storefront/internal/apiclient"
	"github.com/ariefcatur/mobirepair-storefront/internal/auth"
	"github.com/ariefcatur/mobirepair-storefront/internal/booking"
	"github.com/ariefcatur/mobirepair-storefront/internal/cart"
	"github.com/ariefcatur/mobirepair-storefront/internal/catalog"
	"github.com/ariefcatur/mobirepair-storefront/internal/checkout"
	"github.com/ariefcatur/mobirepair-storefront/internal/config"
	kafkax "github.com/ariefcatur/mobirepair-storefront/internal/kafka"
	"github.com/ariefcatur/mobirepair-storefront/internal/kvstore"
	"github.com/ariefcatur/mobirepair-storefront/internal/logging"
	"github.com/ariefcatur/mobirepair-storefront/internal/notify"
	"github.com/ariefcatur/mobirepair-storefront/internal/postgres"
	"github.com/ariefcatur/mobirepair-storefront/internal/redisx"
	"github.com/ariefcatur/mobirepair-storefront/internal/security"
)

const noticeCap = 50

type App struct {
	Config  config.Config
	Log     *zap.Logger
	ID      string
	API     *apiclient.Client
	CSRF    *security.CSRF
	Notices *notify.Recorder

	Plain  *kvstore.Store
	Secure *kvstore.Store

	Auth     *auth.Machine
	Cart     *cart.Machine
	Booking  *booking.Flow
	Checkout *checkout.Service
	Catalog  *catalog.Catalog
	Account  *account.Service
	Admin    *admin.Service

	closers []func()
}

// Deps lets callers hand in prebuilt collaborators. Zero fields are built
// from the config.
type Deps struct {
	Backend   kvstore.Backend
	Publisher activity.Publisher
	API       *apiclient.Client
}

// New opens the configured backend and activity producer, then wires the
// machines. Close releases what New opened.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, deps Deps) (*App, error) {
	log = logging.OrNop(log)
	a := &App{Config: cfg, Log: log, ID: uuid.NewString()}

	backend := deps.Backend
	if backend == nil {
		b, closer, err := OpenBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend = b
		a.onClose(closer)
	}

	pub := deps.Publisher
	if pub == nil {
		pub = a.openPublisher(ctx)
	}

	a.CSRF = security.NewCSRF()
	a.API = deps.API
	if a.API == nil {
		a.API = apiclient.New(cfg.APIBaseURL, apiclient.WithLogger(log.Named("api")), apiclient.WithCSRF(a.CSRF))
	}
	if !security.IsSecureURL(cfg.APIBaseURL) {
		log.Warn("api base url is not https", zap.String("url", cfg.APIBaseURL))
	}

	a.Notices = notify.NewRecorder(noticeCap)
	notices := notify.Multi(a.Notices, notify.Log{L: log.Named("notice")})

	a.Plain = kvstore.NewPlain(backend, log)
	a.Secure = kvstore.NewSecure(backend, log)

	var (
		authDemo    *auth.Demo
		bookingDemo *booking.Demo
	)
	if cfg.DemoMode {
		authDemo = auth.DefaultDemo()
		bookingDemo = booking.DefaultDemo()
	}
	var compat *kvstore.Store
	if cfg.CompatPlainToken {
		compat = a.Plain
	}

	a.Auth = auth.New(auth.Config{
		API:       a.API,
		Secure:    a.Secure,
		Compat:    compat,
		CSRF:      a.CSRF,
		Demo:      authDemo,
		Notifier:  notices,
		Publisher: pub,
		Log:       log.Named("auth"),
		ID:        a.ID,
	})
	a.Cart = cart.New(cart.Config{
		Store:     a.Plain,
		Notifier:  notices,
		Publisher: pub,
		Log:       log.Named("cart"),
		ID:        a.ID,
	})
	a.Booking = booking.New(booking.Config{
		API:       a.API,
		Store:     a.Plain,
		Sessions:  a.Auth,
		Demo:      bookingDemo,
		Notifier:  notices,
		Publisher: pub,
		Log:       log.Named("booking"),
		ID:        a.ID,
	})
	a.Checkout = &checkout.Service{
		API:       a.API,
		Sessions:  a.Auth,
		Cart:      a.Cart,
		Notifier:  notices,
		Publisher: pub,
		Log:       log.Named("checkout"),
		ID:        a.ID,
	}
	a.Catalog = &catalog.Catalog{API: a.API, Notifier: notices, Log: log.Named("catalog")}
	a.Account = &account.Service{API: a.API, Tokens: a.Auth, Demo: authDemo, Notifier: notices, Log: log.Named("account")}
	a.Admin = admin.New(a.API, a.Plain, notices, log)
	return a, nil
}

// Start resolves a stored session. A rejected token is not a startup failure.
func (a *App) Start(ctx context.Context) auth.Session {
	s, err := a.Auth.RestoreSession(ctx)
	if err != nil {
		a.Log.Info("session not restored", zap.Error(err))
	}
	return s
}

// Close runs the closers in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

func (a *App) openPublisher(ctx context.Context) activity.Publisher {
	if len(a.Config.KafkaBrokers) == 0 {
		return activity.Nop{}
	}
	prod := kafkax.NewProducer(a.Config.KafkaBrokers, a.Config.ActivityTopic, 1024, a.Log.Named("producer"))
	prod.Start(ctx)
	a.onClose(func() {
		prod.Close()
		prod.WaitClosed()
	})
	return activity.NewKafkaPublisher(prod, a.Config.ServiceName, a.Log.Named("activity"))
}

// OpenBackend builds the backend named by STORE_BACKEND. The returned func
// releases its connections and may be nil.
func OpenBackend(ctx context.Context, cfg config.Config) (kvstore.Backend, func(), error) {
	switch cfg.StoreBackend {
	case "memory":
		return kvstore.NewMemory(), nil, nil
	case "", "file":
		f, err := kvstore.OpenFile(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	case "redis":
		rdb := redisx.New(cfg.RedisAddr)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return kvstore.NewRedis(rdb, cfg.ServiceName), func() { _ = rdb.Close() }, nil
	case "postgres":
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return nil, nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return kvstore.NewPostgres(pool, cfg.ServiceName), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
