// Package app wires configuration, infrastructure, services and the HTTP
// engine into one process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/analytics"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/application/identity"
	"github.com/stockitup/backend/internal/application/integration"
	"github.com/stockitup/backend/internal/application/notification"
	"github.com/stockitup/backend/internal/application/partner"
	"github.com/stockitup/backend/internal/application/trade"
	domainintegration "github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/event"
	"github.com/stockitup/backend/internal/infrastructure/i18n"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/infrastructure/mail"
	"github.com/stockitup/backend/internal/infrastructure/marketplace"
	"github.com/stockitup/backend/internal/infrastructure/persistence"
	"github.com/stockitup/backend/internal/infrastructure/realtime"
	"github.com/stockitup/backend/internal/infrastructure/scheduler"
	"github.com/stockitup/backend/internal/infrastructure/storage"
	"github.com/stockitup/backend/internal/infrastructure/telemetry"
	"github.com/stockitup/backend/internal/interfaces/http/handler"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	"github.com/stockitup/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// App holds the wired components of one process
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *persistence.Database
	Store  cache.Store
	Layer  realtime.Layer
	Events *event.InMemoryEventBus

	Auth       *identity.AuthService
	Products   *catalog.ProductService
	Orders     *trade.OrderService
	Channels   *integration.ChannelService
	Onboarding *partner.OnboardingService
	Analytics  *analytics.AnalyticsService

	// Scheduler is nil when periodic sync is disabled
	Scheduler *scheduler.SyncScheduler
	Engine    *gin.Engine

	tracer      *telemetry.TracerProvider
	broadcaster *notification.Broadcaster
}

type options struct {
	version      string
	marketplaces []domainintegration.Marketplace
	storage      storage.ObjectStorage
}

// Option customises New
type Option func(*options)

// WithVersion sets the version reported by the landing page
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// WithMarketplace registers a marketplace client in place of the configured one
func WithMarketplace(m domainintegration.Marketplace) Option {
	return func(o *options) { o.marketplaces = append(o.marketplaces, m) }
}

// WithStorage replaces the configured media storage
func WithStorage(s storage.ObjectStorage) Option {
	return func(o *options) { o.storage = s }
}

// OpenDatabase connects to the configured database with zap-backed gorm logging
// and, when telemetry is on, query tracing.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level, cfg.App.Debug), telemetry.DefaultSlowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	if cfg.Telemetry.Enabled {
		if err := telemetry.RegisterDBTracing(db.DB, db.Driver, telemetry.DefaultSlowQueryThreshold, log); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}
	return db, nil
}

// New builds every component. Nothing runs in the background until Start.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (_ *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Shutdown(context.Background())
		}
	}()

	if a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log); err != nil {
		return nil, err
	}
	if a.DB, err = OpenDatabase(cfg, log); err != nil {
		return nil, err
	}
	if a.Store, err = cache.NewFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx); err != nil {
		return nil, err
	}
	if redisStore, ok := a.Store.(*cache.RedisStore); ok {
		a.Layer = realtime.NewRedisLayer(redisStore.Client(), log)
	} else {
		a.Layer = realtime.NewMemoryLayer(log)
	}

	images := o.storage
	if images == nil {
		if images, err = storage.New(ctx, cfg.Storage, log); err != nil {
			return nil, err
		}
	}

	a.Events = event.NewInMemoryEventBus(log)

	users := persistence.NewGormUserRepository(a.DB.DB)
	addresses := persistence.NewGormAddressRepository(a.DB.DB)
	sellers := persistence.NewGormSellerRepository(a.DB.DB)
	fulfillers := persistence.NewGormFulfillerRepository(a.DB.DB)
	warehouses := persistence.NewGormWarehouseRepository(a.DB.DB)
	orderRepo := persistence.NewGormOrderRepository(a.DB.DB)

	jwtService := auth.NewJWTService(cfg.App.SecretKey, cfg.Session)
	authenticator := auth.NewAuthenticator(jwtService, auth.NewStoreTokenBlacklist(a.Store))
	a.Auth = identity.NewAuthService(users, jwtService, authenticator, log)

	a.Products = catalog.NewProductService(persistence.NewGormProductRepository(a.DB.DB), a.Events, images, cfg.Business, log)
	a.Orders = trade.NewOrderService(orderRepo, fulfillers, sellers, addresses, a.Products, a.Events, cfg.Business, cfg.App.Name, log)
	a.Onboarding = partner.NewOnboardingService(addresses, sellers, fulfillers, warehouses, log)
	a.Analytics = analytics.NewAnalyticsService(orderRepo, log)

	registry := marketplace.NewRegistry(cfg.Marketplaces, marketplace.WithLogger(log))
	for _, m := range o.marketplaces {
		registry.Register(m)
	}
	a.Channels = integration.NewChannelService(
		registry,
		persistence.NewGormChannelConnectionRepository(a.DB.DB),
		a.Store,
		a.Orders,
		a.Products,
		a.Events,
		cfg.Marketplaces.RedirectBaseURL,
		log,
	)

	a.broadcaster = notification.NewBroadcaster(
		a.Layer,
		mail.New(cfg.Email, log),
		users,
		i18n.Negotiate(cfg.App.LanguageCode, ""),
		cfg.App.Name,
		log,
	)
	a.Events.Subscribe(a.broadcaster)

	var schedule handler.Schedule
	if cfg.Sync.Enabled {
		if a.Scheduler, err = scheduler.NewSyncScheduler(cfg.Sync, a.Channels, log); err != nil {
			return nil, err
		}
		schedule = a.Scheduler
	}

	paging := handler.NewPaging(cfg.HTTP)
	cable := realtime.NewCableServer(a.Layer, log,
		realtime.WithHeartbeat(cfg.Business.HeartbeatInterval),
		realtime.WithOriginChecker(middleware.OriginTrusted(cfg.Security.CSRFTrustedOrigins)))

	a.Engine = router.NewEngine(router.Options{
		Config:        cfg,
		Logger:        log,
		Authenticator: authenticator,
		Store:         a.Store,
		Cable:         cable,
		Handlers: router.Handlers{
			System:     handler.NewSystemHandler(a.DB, cfg, o.version),
			Dashboard:  handler.NewDashboardHandler(a.Products, a.Orders, a.Channels, a.Analytics),
			Onboarding: handler.NewOnboardingHandler(a.Onboarding),
			Product:    handler.NewProductHandler(a.Products, paging),
			Order:      handler.NewOrderHandler(a.Orders, paging),
			Channel:    handler.NewChannelHandler(a.Channels),
			Analytics:  handler.NewAnalyticsHandler(a.Analytics),
			Fulfiller:  handler.NewFulfillerHandler(a.Onboarding),
			Warehouse:  handler.NewWarehouseHandler(a.Onboarding),
			Account:    handler.NewAccountHandler(a.Auth, cfg.Session, cfg.Security),
			Sync:       handler.NewSyncHandler(a.Channels, a.Products, schedule),
		},
	})
	return a, nil
}

// Start runs the event bus and, when enabled, the sync scheduler
func (a *App) Start(ctx context.Context) error {
	if err := a.Events.Start(ctx); err != nil {
		return err
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops background work and releases connections in reverse order of creation
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop(ctx))
	}
	if a.Events != nil {
		errs = append(errs, a.Events.Stop(ctx))
	}
	if a.broadcaster != nil {
		a.broadcaster.Wait()
	}
	if a.Layer != nil {
		errs = append(errs, a.Layer.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
