package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/analytics"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/application/identity"
	"github.com/stockitup/backend/internal/application/integration"
	"github.com/stockitup/backend/internal/application/partner"
	"github.com/stockitup/backend/internal/application/trade"
	domainintegration "github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/infrastructure/auth"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/event"
	"github.com/stockitup/backend/internal/infrastructure/marketplace"
	"github.com/stockitup/backend/internal/infrastructure/persistence"
	"github.com/stockitup/backend/internal/infrastructure/storage"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse-42"

// stubMarketplace answers the OAuth and sync calls without a network
type stubMarketplace struct {
	code   domainintegration.MarketplaceCode
	orders []domainintegration.MarketplaceOrder
	pushed []domainintegration.StockUpdate
}

func (m *stubMarketplace) Code() domainintegration.MarketplaceCode { return m.code }
func (m *stubMarketplace) Configured() bool                        { return true }

func (m *stubMarketplace) AuthorizeURL(state, redirectURI string) (string, error) {
	return "https://consent.example/authorize?" + url.Values{"state": {state}, "redirect_uri": {redirectURI}}.Encode(), nil
}

func (m *stubMarketplace) ExchangeCode(_ context.Context, code, _ string) (*domainintegration.OAuthToken, error) {
	if code == "rejected" {
		return nil, domainintegration.ErrMarketplaceAuthFailed
	}
	return &domainintegration.OAuthToken{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
		SellerName:   "Winkel BV",
	}, nil
}

func (m *stubMarketplace) RefreshToken(_ context.Context, _ string) (*domainintegration.OAuthToken, error) {
	return &domainintegration.OAuthToken{AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *stubMarketplace) PullOrders(_ context.Context, _ string, _ time.Time) ([]domainintegration.MarketplaceOrder, error) {
	return m.orders, nil
}

func (m *stubMarketplace) PushStock(_ context.Context, _ string, updates []domainintegration.StockUpdate) (*domainintegration.StockPushResult, error) {
	m.pushed = updates
	return &domainintegration.StockPushResult{Updated: len(updates)}, nil
}

// testApp wires the real services on an in-memory database
type testApp struct {
	cfg        *config.Config
	db         *persistence.Database
	bol        *stubMarketplace
	auth       *identity.AuthService
	authn      *auth.Authenticator
	products   *catalog.ProductService
	orders     *trade.OrderService
	channels   *integration.ChannelService
	onboarding *partner.OnboardingService
	analytics  *analytics.AnalyticsService
	token      string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("DB_NAME", ":memory:")
	t.Setenv("DEBUG", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Engine: "sqlite3", Name: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })

	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	log := zap.NewNop()
	bus := event.NewInMemoryEventBus(log)

	jwtService := auth.NewJWTService("handler-test-secret", cfg.Session)
	authn := auth.NewAuthenticator(jwtService, auth.NewStoreTokenBlacklist(store))

	addresses := persistence.NewGormAddressRepository(db.DB)
	sellers := persistence.NewGormSellerRepository(db.DB)
	fulfillers := persistence.NewGormFulfillerRepository(db.DB)
	warehouses := persistence.NewGormWarehouseRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	products := catalog.NewProductService(
		persistence.NewGormProductRepository(db.DB),
		bus,
		storage.NewLocalStorage(t.TempDir(), cfg.Storage.MediaURL),
		cfg.Business,
		log,
	)
	orders := trade.NewOrderService(orderRepo, fulfillers, sellers, addresses, products, bus, cfg.Business, cfg.App.Name, log)

	bol := &stubMarketplace{code: domainintegration.MarketplaceBolCom}
	registry := marketplace.NewRegistry(cfg.Marketplaces)
	registry.Register(bol)
	channels := integration.NewChannelService(
		registry,
		persistence.NewGormChannelConnectionRepository(db.DB),
		store,
		orders,
		products,
		bus,
		cfg.Marketplaces.RedirectBaseURL,
		log,
	)

	app := &testApp{
		cfg:        cfg,
		db:         db,
		bol:        bol,
		auth:       identity.NewAuthService(persistence.NewGormUserRepository(db.DB), jwtService, authn, log),
		authn:      authn,
		products:   products,
		orders:     orders,
		channels:   channels,
		onboarding: partner.NewOnboardingService(addresses, sellers, fulfillers, warehouses, log),
		analytics:  analytics.NewAnalyticsService(orderRepo, log),
	}

	_, err = app.auth.CreateUser(context.Background(), "staff@example.com", "Staff", testPassword)
	require.NoError(t, err)
	login, err := app.auth.Login(context.Background(), identity.LoginRequest{Email: "staff@example.com", Password: testPassword})
	require.NoError(t, err)
	app.token = login.Token

	return app
}

// engine returns a bare engine with the request id and authentication middleware
func (a *testApp) engine() *gin.Engine {
	middleware.SetupValidator()
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Locale(),
		middleware.Authentication(middleware.AuthConfig{Authenticator: a.authn, CookieName: a.cfg.Session.CookieName}),
	)
	return r
}

func (a *testApp) paging() Paging {
	return NewPaging(a.cfg.HTTP)
}

func (a *testApp) createProduct(t *testing.T, sku string, stock, threshold int) catalog.ProductResponse {
	t.Helper()
	p, err := a.products.Create(context.Background(), catalog.CreateProductRequest{
		SKU:               sku,
		Name:              "Product " + sku,
		StockQuantity:     stock,
		LowStockThreshold: threshold,
	})
	require.NoError(t, err)
	return *p
}

// request sends a request authenticated with the session token
func (a *testApp) request(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
