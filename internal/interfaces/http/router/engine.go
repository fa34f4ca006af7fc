package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/stockitup/backend/docs"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/interfaces/http/handler"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers holds one handler per route family
type Handlers struct {
	System     *handler.SystemHandler
	Dashboard  *handler.DashboardHandler
	Onboarding *handler.OnboardingHandler
	Product    *handler.ProductHandler
	Order      *handler.OrderHandler
	Channel    *handler.ChannelHandler
	Analytics  *handler.AnalyticsHandler
	Fulfiller  *handler.FulfillerHandler
	Warehouse  *handler.WarehouseHandler
	Account    *handler.AccountHandler
	Sync       *handler.SyncHandler
}

// Options carries what the engine needs besides the handlers
type Options struct {
	Config        *config.Config
	Logger        *zap.Logger
	Authenticator *auth.Authenticator
	// Store backs the login rate limiter
	Store cache.Store
	// Cable serves the real-time socket endpoint
	Cable    http.Handler
	Handlers Handlers
}

// NewEngine builds the gin engine with the middleware chain and every route family
func NewEngine(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := opts.Handlers

	engine := gin.New()
	engine.RedirectTrailingSlash = true

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log, h.System.ServerError),
		logger.GinMiddleware(log),
		middleware.AllowedHosts(cfg.App.AllowedHosts),
		middleware.SecureWithConfig(middleware.SecurityFromConfig(cfg.Security)),
		middleware.CORSWithConfig(middleware.CORSFromConfig(cfg.Security)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Locale(),
		middleware.Authentication(middleware.AuthConfig{
			Authenticator: opts.Authenticator,
			CookieName:    cfg.Session.CookieName,
			Logger:        log,
		}),
		middleware.TrustedOrigins(cfg.Security.CSRFTrustedOrigins),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
	)

	engine.NoRoute(h.System.NotFound)
	engine.NoMethod(h.System.NotFound)

	engine.GET("/", h.System.Home)
	engine.GET("/health/", h.System.Health)
	engine.GET("/manifest.json", h.System.Manifest)
	engine.GET("/sw.js", h.System.ServiceWorker)
	engine.GET("/favicon.ico", h.System.Favicon)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/dashboard/", middleware.LoginRequired(handler.LoginPath), h.Dashboard.Show)

	if opts.Cable != nil {
		engine.GET("/cable/*path", gin.WrapH(opts.Cable))
	}

	if cfg.App.Debug {
		if cfg.App.StaticRoot != "" {
			engine.Static(cfg.App.StaticURL, cfg.App.StaticRoot)
		}
		if cfg.Storage.Type == config.StorageLocal && cfg.Storage.MediaRoot != "" {
			engine.Static(cfg.Storage.MediaURL, cfg.Storage.MediaRoot)
		}
	}

	loginLimiter := middleware.NewRateLimiter(opts.Store, "login", cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow, log)
	pages := &engine.RouterGroup
	loginRequired := middleware.LoginRequired(handler.LoginPath)

	for _, group := range []*DomainGroup{
		accountRoutes(h.Account, middleware.RateLimit(loginLimiter)),
		onboardingRoutes(h.Onboarding).Use(loginRequired),
		productRoutes(h.Product).Use(loginRequired),
		orderRoutes(h.Order).Use(loginRequired),
		channelRoutes(h.Channel).Use(loginRequired),
		analyticsRoutes(h.Analytics).Use(loginRequired),
		fulfillerRoutes(h.Fulfiller).Use(loginRequired),
		warehouseRoutes(h.Warehouse).Use(loginRequired),
		syncRoutes(h.Sync).Use(middleware.RequireAuth()),
	} {
		group.RegisterRoutes(pages)
	}

	api := NewRouter(engine, WithAPIVersion("v1"), WithMiddleware(middleware.RequireAuth()))
	api.Register(productAPIRoutes(h.Product)).
		Register(orderAPIRoutes(h.Order)).
		Register(analyticsRoutes(h.Analytics).withPrefix("/analytics")).
		Register(channelAPIRoutes(h.Channel))
	api.Setup()

	return engine
}

// withPrefix moves a family to another prefix, dropping its aliases
func (dg *DomainGroup) withPrefix(prefix string) *DomainGroup {
	dg.prefix = prefix
	dg.aliases = nil
	return dg
}

func accountRoutes(h *handler.AccountHandler, loginLimit gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("accounts", "/accounts").
		GET("/login/", h.LoginPage).
		POST("/login/", loginLimit, h.Login).
		POST("/signup/", loginLimit, h.Signup).
		POST("/logout/", h.Logout).
		GET("/logout/", h.Logout).
		GET("/me/", middleware.RequireAuth(), h.Me).
		POST("/token/", middleware.RequireAuth(), h.Token)
}

func onboardingRoutes(h *handler.OnboardingHandler) *DomainGroup {
	return NewDomainGroup("onboarding", "/welkom").
		GET("/", h.Overview).
		GET("/:step/", h.Page).
		POST("/:step/create/", h.Create).
		POST("/:step/delete/", h.Delete)
}

func productRoutes(h *handler.ProductHandler) *DomainGroup {
	return NewDomainGroup("products", "/products").
		Alias("/inventory", "/zoeken").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/search/", h.Search).
		GET("/duplicates/", h.Duplicates).
		POST("/import/", h.Import).
		GET("/:id/", h.Get).
		POST("/:id/update/", h.Update).
		POST("/:id/delete/", h.Delete).
		POST("/:id/stock/", h.AdjustStock).
		POST("/:id/image/", h.UploadImage)
}

func productAPIRoutes(h *handler.ProductHandler) *DomainGroup {
	return NewDomainGroup("products-api", "/products").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/search/", h.Search).
		GET("/duplicates/", h.Duplicates).
		POST("/import/", h.Import).
		GET("/:id/", h.Get).
		PUT("/:id/", h.Update).
		PATCH("/:id/", h.Update).
		DELETE("/:id/", h.Destroy).
		POST("/:id/stock/", h.AdjustStock).
		POST("/:id/image/", h.UploadImage)
}

func orderRoutes(h *handler.OrderHandler) *DomainGroup {
	return NewDomainGroup("orders", "/orders").
		Alias("/orders2").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/batches/", h.Batches).
		GET("/:id/", h.Get).
		POST("/:id/status/", h.UpdateStatus).
		GET("/:id/label/", h.Label)
}

func orderAPIRoutes(h *handler.OrderHandler) *DomainGroup {
	return NewDomainGroup("orders-api", "/orders").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/batches/", h.Batches).
		GET("/:id/", h.Get).
		PUT("/:id/", h.UpdateStatus).
		PATCH("/:id/", h.UpdateStatus).
		DELETE("/:id/", h.Cancel).
		GET("/:id/label/", h.Label)
}

func channelRoutes(h *handler.ChannelHandler) *DomainGroup {
	return NewDomainGroup("channels", "/channels").
		GET("/", h.List).
		GET("/status/", h.Status).
		POST("/sync/", h.SyncAll).
		GET("/:marketplace/connect/", h.Connect).
		GET("/:marketplace/callback/", h.Callback).
		POST("/:marketplace/disconnect/", h.Disconnect).
		POST("/:marketplace/sync/", h.Sync)
}

// channelAPIRoutes serves /api/v1/channels/ and /api/v1/sellers/, the latter
// also being where the marketplace OAuth redirects land.
func channelAPIRoutes(h *handler.ChannelHandler) *DomainGroup {
	return channelRoutes(h).
		Alias("/sellers").
		GET("/:marketplace/", h.Get).
		DELETE("/:marketplace/", h.Disconnect)
}

func analyticsRoutes(h *handler.AnalyticsHandler) *DomainGroup {
	return NewDomainGroup("analytics", "/prestaties").
		GET("/", h.Overview).
		GET("/revenue/", h.Revenue).
		GET("/status/", h.Status).
		GET("/top-products/", h.TopProducts).
		GET("/trend/", h.Trend)
}

func fulfillerRoutes(h *handler.FulfillerHandler) *DomainGroup {
	return NewDomainGroup("fulfillers", "/fulfillers").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/:id/", h.Get).
		POST("/:id/update/", h.Update).
		POST("/:id/delete/", h.Delete)
}

func warehouseRoutes(h *handler.WarehouseHandler) *DomainGroup {
	return NewDomainGroup("warehouses", "/warehouses").
		GET("/", h.List).
		POST("/", h.Create).
		GET("/:id/", h.Get).
		POST("/:id/update/", h.Update).
		POST("/:id/delete/", h.Delete)
}

// syncRoutes are called by the service worker background sync
func syncRoutes(h *handler.SyncHandler) *DomainGroup {
	return NewDomainGroup("sync", "/api").
		POST("/orders/sync/", h.Orders).
		POST("/inventory/sync/", h.Inventory).
		POST("/notifications/sync/", h.Notifications).
		GET("/sync-status/", h.Status)
}
