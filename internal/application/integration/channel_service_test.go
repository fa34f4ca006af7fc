package integration

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarketplace struct {
	code        integration.MarketplaceCode
	configured  bool
	orders      []integration.MarketplaceOrder
	pullErr     error
	pushErr     error
	pushed      []integration.StockUpdate
	refreshed   int
	lastSince   time.Time
	exchangeErr error
}

func (f *fakeMarketplace) Code() integration.MarketplaceCode { return f.code }
func (f *fakeMarketplace) Configured() bool                  { return f.configured }

func (f *fakeMarketplace) AuthorizeURL(state, redirectURI string) (string, error) {
	return "https://auth.example/authorize?" + url.Values{"state": {state}, "redirect_uri": {redirectURI}}.Encode(), nil
}

func (f *fakeMarketplace) ExchangeCode(_ context.Context, code, _ string) (*integration.OAuthToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &integration.OAuthToken{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
		SellerName:   "Winkel BV",
	}, nil
}

func (f *fakeMarketplace) RefreshToken(_ context.Context, refreshToken string) (*integration.OAuthToken, error) {
	f.refreshed++
	return &integration.OAuthToken{AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeMarketplace) PullOrders(_ context.Context, _ string, since time.Time) ([]integration.MarketplaceOrder, error) {
	f.lastSince = since
	return f.orders, f.pullErr
}

func (f *fakeMarketplace) PushStock(_ context.Context, _ string, updates []integration.StockUpdate) (*integration.StockPushResult, error) {
	if f.pushErr != nil {
		return &integration.StockPushResult{}, f.pushErr
	}
	f.pushed = updates
	return &integration.StockPushResult{
		Updated: len(updates) - 1,
		Failed:  []integration.SyncFailure{{Item: updates[len(updates)-1].SKU, Message: "unknown offer"}},
	}, nil
}

type fakeRegistry struct {
	markets []integration.Marketplace
}

func (r *fakeRegistry) Get(code integration.MarketplaceCode) (integration.Marketplace, error) {
	for _, m := range r.markets {
		if m.Code() == code {
			return m, nil
		}
	}
	return nil, integration.ErrUnknownMarketplace
}

func (r *fakeRegistry) List() []integration.Marketplace { return r.markets }

type fakeConnRepo struct {
	mu    sync.Mutex
	conns map[integration.MarketplaceCode]integration.ChannelConnection
}

func (r *fakeConnRepo) FindByMarketplace(_ context.Context, code integration.MarketplaceCode) (*integration.ChannelConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[code]
	if !ok {
		return nil, shared.NotFound("channel connection")
	}
	return &c, nil
}

func (r *fakeConnRepo) FindAll(_ context.Context) ([]integration.ChannelConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []integration.ChannelConnection
	for _, code := range integration.AllMarketplaces {
		if c, ok := r.conns[code]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConnRepo) Save(_ context.Context, conn *integration.ChannelConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.Marketplace] = *conn
	return nil
}

type fakeImporter struct {
	seen map[string]bool
	fail string
}

func (f *fakeImporter) Import(_ context.Context, _ integration.MarketplaceCode, o integration.MarketplaceOrder) (bool, error) {
	if o.ExternalID == f.fail {
		return false, shared.InvalidInput("order must have at least one item")
	}
	if f.seen[o.ExternalID] {
		return false, nil
	}
	f.seen[o.ExternalID] = true
	return true, nil
}

type fakeStockSource struct{}

func (fakeStockSource) StockLevels(_ context.Context) ([]integration.StockUpdate, error) {
	return []integration.StockUpdate{{SKU: "MUG", Quantity: 4}, {SKU: "GONE", Quantity: 0}}, nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type fixture struct {
	svc      *ChannelService
	bol      *fakeMarketplace
	ebay     *fakeMarketplace
	conns    *fakeConnRepo
	store    *cache.MemoryStore
	importer *fakeImporter
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bol:      &fakeMarketplace{code: integration.MarketplaceBolCom, configured: true},
		ebay:     &fakeMarketplace{code: integration.MarketplaceEBay},
		conns:    &fakeConnRepo{conns: map[integration.MarketplaceCode]integration.ChannelConnection{}},
		store:    cache.NewMemoryStore(),
		importer: &fakeImporter{seen: map[string]bool{}},
		events:   &recordingPublisher{},
	}
	t.Cleanup(func() { _ = f.store.Close() })
	registry := &fakeRegistry{markets: []integration.Marketplace{f.bol, f.ebay}}
	f.svc = NewChannelService(registry, f.conns, f.store, f.importer, fakeStockSource{}, f.events, "http://localhost:8000/", nil)
	return f
}

func (f *fixture) connect(t *testing.T, code integration.MarketplaceCode) {
	t.Helper()
	ctx := context.Background()
	authURL, err := f.svc.StartOAuth(ctx, code)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	_, err = f.svc.CompleteOAuth(ctx, code, u.Query().Get("state"), "abc")
	require.NoError(t, err)
}

func TestChannelService_OAuthFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	authURL, err := f.svc.StartOAuth(ctx, integration.MarketplaceBolCom)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	assert.Len(t, state, 48)
	assert.Equal(t, "http://localhost:8000/channels/bol_com/callback/", u.Query().Get("redirect_uri"))

	pending, err := f.svc.Get(ctx, integration.MarketplaceBolCom)
	require.NoError(t, err)
	assert.Equal(t, "pending", pending.Status)

	_, err = f.svc.CompleteOAuth(ctx, integration.MarketplaceEBay, state, "abc")
	assert.ErrorIs(t, err, integration.ErrInvalidOAuthState, "state is bound to the marketplace")

	_, err = f.svc.CompleteOAuth(ctx, integration.MarketplaceBolCom, state, "abc")
	assert.ErrorIs(t, err, integration.ErrInvalidOAuthState, "state is single use")

	f.connect(t, integration.MarketplaceBolCom)
	resp, err := f.svc.Get(ctx, integration.MarketplaceBolCom)
	require.NoError(t, err)
	assert.True(t, resp.Connected)
	assert.Equal(t, "active", resp.Status)
	assert.Equal(t, "Winkel BV", resp.SellerName)
	assert.Equal(t, "access-abc", f.conns.conns[integration.MarketplaceBolCom].AccessToken)
}

func TestChannelService_StartOAuthErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartOAuth(ctx, integration.MarketplaceEBay)
	assert.ErrorIs(t, err, integration.ErrMarketplaceNotConfigured)

	_, err = f.svc.StartOAuth(ctx, "etsy")
	assert.ErrorIs(t, err, integration.ErrUnknownMarketplace)

	_, err = f.svc.CompleteOAuth(ctx, integration.MarketplaceBolCom, "", "abc")
	assert.ErrorIs(t, err, integration.ErrInvalidOAuthState)
}

func TestChannelService_ExchangeFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.bol.exchangeErr = integration.ErrMarketplaceAuthFailed

	authURL, err := f.svc.StartOAuth(ctx, integration.MarketplaceBolCom)
	require.NoError(t, err)
	u, _ := url.Parse(authURL)
	_, err = f.svc.CompleteOAuth(ctx, integration.MarketplaceBolCom, u.Query().Get("state"), "abc")
	assert.ErrorIs(t, err, integration.ErrMarketplaceAuthFailed)
	assert.Equal(t, integration.ConnectionPending, f.conns.conns[integration.MarketplaceBolCom].Status)
}

func TestChannelService_Sync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)
	f.bol.orders = []integration.MarketplaceOrder{
		{ExternalID: "A", Items: []integration.MarketplaceOrderItem{{SKU: "MUG", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}}},
		{ExternalID: "B", Items: []integration.MarketplaceOrderItem{{SKU: "MUG", Quantity: 2, UnitPrice: decimal.NewFromInt(5)}}},
		{ExternalID: "BROKEN"},
	}
	f.importer.seen["B"] = true
	f.importer.fail = "BROKEN"

	result, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, FullSync)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersImported)
	assert.Equal(t, 1, result.OrdersSkipped)
	assert.Equal(t, 1, result.StockUpdated)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "BROKEN", result.Failures[0].Item)
	assert.Equal(t, "GONE", result.Failures[1].Item)
	assert.True(t, f.bol.lastSince.IsZero(), "first sync has no lower bound")

	conn := f.conns.conns[integration.MarketplaceBolCom]
	require.NotNil(t, conn.LastSyncAt)
	assert.Equal(t, 1, conn.OrdersImported)

	require.NotEmpty(t, f.events.events)
	assert.Equal(t, integration.EventTypeSyncCompleted, f.events.events[len(f.events.events)-1].EventType())

	assert.Nil(t, conn.OrdersSyncedUntil, "BROKEN has no placement time, so the watermark stays")

	f.importer.fail = ""
	second, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, SyncOptions{Orders: true})
	require.NoError(t, err)
	assert.True(t, f.bol.lastSince.IsZero(), "the failed order is pulled again")
	assert.Equal(t, 1, second.OrdersImported)

	_, err = f.svc.Sync(ctx, integration.MarketplaceBolCom, SyncOptions{Orders: true})
	require.NoError(t, err)
	assert.Equal(t, second.StartedAt, f.bol.lastSince, "next sync continues from the start of the last one")
}

func (f *fixture) tick(start time.Time, step time.Duration) {
	clock := start
	f.svc.now = func() time.Time {
		clock = clock.Add(step)
		return clock
	}
}

func TestChannelService_FailedPullKeepsWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)
	f.tick(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Minute)
	orders := SyncOptions{Orders: true}

	first, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.NoError(t, err)
	synced := f.conns.conns[integration.MarketplaceBolCom]
	require.NotNil(t, synced.LastSyncAt)
	assert.Equal(t, first.StartedAt, *synced.LastSyncAt, "the marker is the start of the run")
	require.NotNil(t, synced.OrdersSyncedUntil)
	assert.Equal(t, first.StartedAt, *synced.OrdersSyncedUntil)

	f.bol.pullErr = errors.New("bol.com 503")
	_, err = f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.Error(t, err)
	failed := f.conns.conns[integration.MarketplaceBolCom]
	assert.Equal(t, *synced.LastSyncAt, *failed.LastSyncAt, "a failed pull leaves the marker alone")
	assert.Equal(t, *synced.OrdersSyncedUntil, *failed.OrdersSyncedUntil)
	require.NotNil(t, failed.LastAttemptAt)
	assert.True(t, failed.LastAttemptAt.After(*failed.LastSyncAt))
	assert.Equal(t, integration.ConnectionError, failed.Status)

	f.bol.pullErr = nil
	_, err = f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.NoError(t, err)
	assert.Equal(t, first.StartedAt, f.bol.lastSince, "orders placed during the outage are still pulled")
	assert.Equal(t, integration.ConnectionActive, f.conns.conns[integration.MarketplaceBolCom].Status)
}

func TestChannelService_ImportFailureHoldsWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.tick(start, time.Minute)
	orders := SyncOptions{Orders: true}

	first, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.NoError(t, err)

	item := []integration.MarketplaceOrderItem{{SKU: "MUG", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}}
	broken := first.StartedAt.Add(30 * time.Second)
	f.bol.orders = []integration.MarketplaceOrder{
		{ExternalID: "LATE", PlacedAt: broken.Add(20 * time.Second), Items: item},
		{ExternalID: "BROKEN", PlacedAt: broken, Items: item},
		{ExternalID: "EARLY", PlacedAt: broken.Add(-10 * time.Second), Items: item},
	}
	f.importer.fail = "BROKEN"

	second, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.NoError(t, err, "a single bad order does not fail the run")
	assert.Equal(t, 2, second.OrdersImported)
	conn := f.conns.conns[integration.MarketplaceBolCom]
	assert.Equal(t, second.StartedAt, *conn.LastSyncAt)
	require.NotNil(t, conn.OrdersSyncedUntil)
	assert.Equal(t, broken.Add(-time.Second), *conn.OrdersSyncedUntil, "the watermark stops before the failed order")

	f.importer.fail = ""
	third, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
	require.NoError(t, err)
	assert.Equal(t, broken.Add(-time.Second), f.bol.lastSince)
	assert.Equal(t, 1, third.OrdersImported, "only the failed order is new")
	assert.Equal(t, 2, third.OrdersSkipped)
	assert.Equal(t, third.StartedAt, *f.conns.conns[integration.MarketplaceBolCom].OrdersSyncedUntil)

	t.Run("failure before the watermark", func(t *testing.T) {
		f.bol.orders = []integration.MarketplaceOrder{{ExternalID: "OLD", PlacedAt: start.Add(-time.Hour), Items: item}}
		f.importer.fail = "OLD"
		before := *f.conns.conns[integration.MarketplaceBolCom].OrdersSyncedUntil
		_, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, orders)
		require.NoError(t, err)
		assert.Equal(t, before, *f.conns.conns[integration.MarketplaceBolCom].OrdersSyncedUntil, "the watermark never moves back")
	})
}

func TestChannelService_SyncFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)
	f.bol.pullErr = integration.ErrMarketplaceUnavailable

	result, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, FullSync)
	assert.ErrorIs(t, err, integration.ErrMarketplaceUnavailable)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Error)

	conn := f.conns.conns[integration.MarketplaceBolCom]
	assert.Equal(t, integration.ConnectionError, conn.Status)
	assert.True(t, conn.IsActive(), "a failing connection is retried")
	assert.Equal(t, integration.EventTypeSyncFailed, f.events.events[len(f.events.events)-1].EventType())

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Connected)
	assert.Equal(t, 1, status.Failing)
}

func TestChannelService_RefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)
	conn := f.conns.conns[integration.MarketplaceBolCom]
	expired := time.Now().Add(-time.Minute)
	conn.TokenExpiresAt = &expired
	f.conns.conns[integration.MarketplaceBolCom] = conn

	_, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, SyncOptions{Stock: true})
	require.NoError(t, err)
	assert.Equal(t, 1, f.bol.refreshed)
	stored := f.conns.conns[integration.MarketplaceBolCom]
	assert.Equal(t, "fresh", stored.AccessToken)
	assert.Equal(t, "refresh-abc", stored.RefreshToken, "refresh token kept when not rotated")
}

func TestChannelService_SyncRequiresConnection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Sync(ctx, integration.MarketplaceBolCom, FullSync)
	assert.ErrorIs(t, err, integration.ErrMarketplaceNotConnected)

	f.connect(t, integration.MarketplaceBolCom)
	require.NoError(t, f.svc.Disconnect(ctx, integration.MarketplaceBolCom))
	_, err = f.svc.Sync(ctx, integration.MarketplaceBolCom, FullSync)
	assert.ErrorIs(t, err, integration.ErrMarketplaceNotConnected)
	assert.Empty(t, f.conns.conns[integration.MarketplaceBolCom].AccessToken)

	assert.ErrorIs(t, f.svc.Disconnect(ctx, integration.MarketplaceEBay), integration.ErrMarketplaceNotConnected)
}

func TestChannelService_SyncAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ebay.configured = true
	f.connect(t, integration.MarketplaceBolCom)
	f.connect(t, integration.MarketplaceEBay)
	f.ebay.pushErr = integration.ErrMarketplaceAuthFailed

	results, err := f.svc.Run(ctx, FullSync)
	require.Error(t, err)
	assert.True(t, errors.Is(err, integration.ErrMarketplaceAuthFailed))
	assert.Len(t, results, 2)
	assert.Contains(t, err.Error(), "ebay")

	f.ebay.pushErr = nil
	assert.NoError(t, f.svc.SyncAll(ctx))
}

func TestChannelService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.connect(t, integration.MarketplaceBolCom)

	channels, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "bol.com", channels[0].Name)
	assert.True(t, channels[0].Connected)
	assert.Equal(t, StatusNotConnected, channels[1].Status)
	assert.False(t, channels[1].Configured)
}
