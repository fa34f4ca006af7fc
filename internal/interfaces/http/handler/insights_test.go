package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stockitup/backend/internal/application/analytics"
	"github.com/stockitup/backend/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSchedule struct {
	next time.Time
	runs []scheduler.Run
}

func (s fixedSchedule) NextRun() time.Time { return s.next }

func (s fixedSchedule) History(limit int) []scheduler.Run {
	if len(s.runs) > limit {
		return s.runs[:limit]
	}
	return s.runs
}

func TestAnalyticsHandler(t *testing.T) {
	app := newTestApp(t)
	orders := orderRouter(app)
	app.createProduct(t, "MUG-001", 50, 2)
	createOrder(t, app, orders, "WEB-1", 3)
	createOrder(t, app, orders, "WEB-2", 1)
	cancelled := createOrder(t, app, orders, "WEB-3", 5)
	w := app.request(orders, http.MethodDelete, "/orders/"+cancelled.ID.String()+"/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	h := NewAnalyticsHandler(app.analytics)
	r := app.engine()
	r.GET("/prestaties/", h.Overview)
	r.GET("/prestaties/revenue/", h.Revenue)
	r.GET("/prestaties/status/", h.Status)
	r.GET("/prestaties/top-products/", h.TopProducts)
	r.GET("/prestaties/trend/", h.Trend)

	t.Run("overview skips cancelled orders", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var overview analytics.Overview
		decodeData(t, w, &overview)
		assert.Equal(t, analytics.DefaultDays, overview.Days)
		assert.Equal(t, 3, overview.Orders)
		assert.Equal(t, 1, overview.Cancelled)
		assert.Equal(t, 4, overview.Units)
		require.Len(t, overview.Currencies, 1)
		assert.Equal(t, "29", overview.Currencies[0].Revenue.String())
		assert.Equal(t, "14.5", overview.Currencies[0].AverageOrderValue.String())
	})

	t.Run("revenue per channel", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/revenue/?days=7", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var rows []analytics.ChannelRevenue
		decodeData(t, w, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, "manual", rows[0].Channel)
		assert.InDelta(t, 1.0, rows[0].Share, 0.0001)
	})

	t.Run("status counts in lifecycle order", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/status/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var counts []analytics.StatusCount
		decodeData(t, w, &counts)
		require.Len(t, counts, 5)
		assert.Equal(t, analytics.StatusCount{Status: "new", Count: 2}, counts[0])
		assert.Equal(t, analytics.StatusCount{Status: "cancelled", Count: 1}, counts[4])
	})

	t.Run("top products", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/top-products/?limit=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var top []analytics.TopProduct
		decodeData(t, w, &top)
		require.Len(t, top, 1)
		assert.Equal(t, "MUG-001", top[0].SKU)
		assert.Equal(t, 4, top[0].Quantity)
		assert.Equal(t, 2, top[0].Orders)
	})

	t.Run("trend covers every day", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/trend/?days=7", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var trend []analytics.TrendPoint
		decodeData(t, w, &trend)
		require.Len(t, trend, 7)
		assert.Equal(t, 3, trend[6].Orders)
	})

	t.Run("period out of range", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/prestaties/?days=400", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDashboardHandler_Show(t *testing.T) {
	app := newTestApp(t)
	for _, sku := range []string{"A-1", "A-2", "A-3", "A-4", "A-5", "A-6", "A-7", "A-8", "A-9", "A-10", "A-11", "A-12"} {
		app.createProduct(t, sku, 1, 5)
	}
	app.createProduct(t, "MUG-001", 40, 5)
	createOrder(t, app, orderRouter(app), "WEB-1", 2)

	h := NewDashboardHandler(app.products, app.orders, app.channels, app.analytics)
	r := app.engine()
	r.GET("/dashboard/", h.Show)

	w := app.request(r, http.MethodGet, "/dashboard/", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data DashboardData
	decodeData(t, w, &data)
	assert.Equal(t, int64(13), data.Products)
	assert.Equal(t, 12, data.LowStockCount)
	assert.Len(t, data.LowStock, dashboardLowStockLimit)
	assert.Equal(t, int64(1), data.OrdersByStatus["new"])
	require.NotNil(t, data.Overview)
	assert.Equal(t, 1, data.Overview.Orders)
	assert.Len(t, data.Channels, 3)
	assert.Zero(t, data.ConnectedCount)
	assert.Empty(t, data.LastSyncDisplay)
}

func TestSyncHandler(t *testing.T) {
	app := newTestApp(t)
	next := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	schedule := fixedSchedule{next: next, runs: []scheduler.Run{
		{StartedAt: time.Now().Add(-time.Minute), Status: scheduler.RunStatusSuccess},
	}}
	h := NewSyncHandler(app.channels, app.products, schedule)
	r := app.engine()
	r.POST("/api/orders/sync/", h.Orders)
	r.POST("/api/inventory/sync/", h.Inventory)
	r.GET("/api/sync/status/", h.Status)
	r.GET("/api/notifications/pending/", h.Notifications)

	t.Run("nothing connected", func(t *testing.T) {
		w := app.request(r, http.MethodPost, "/api/orders/sync/", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var report SyncReport
		decodeData(t, w, &report)
		assert.Empty(t, report.Results)
		assert.Zero(t, report.Errors)
	})

	t.Run("inventory pushed to connected channels", func(t *testing.T) {
		connectBol(t, app, channelRouter(app))
		app.createProduct(t, "MUG-001", 7, 2)

		w := app.request(r, http.MethodPost, "/api/inventory/sync/", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var report SyncReport
		decodeData(t, w, &report)
		require.Len(t, report.Results, 1)
		assert.Equal(t, 1, report.Results[0].StockUpdated)
		assert.Zero(t, report.Results[0].OrdersImported)
		require.Len(t, app.bol.pushed, 1)
		assert.Equal(t, 7, app.bol.pushed[0].Quantity)
	})

	t.Run("status includes the schedule", func(t *testing.T) {
		w := app.request(r, http.MethodGet, "/api/sync/status/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var status StatusData
		decodeData(t, w, &status)
		require.NotNil(t, status.NextRun)
		assert.True(t, next.Equal(*status.NextRun))
		require.Len(t, status.History, 1)
		assert.Equal(t, scheduler.RunStatusSuccess, status.History[0].Status)
		assert.Equal(t, 1, status.Connected)
	})

	t.Run("notifications in the negotiated language", func(t *testing.T) {
		app.createProduct(t, "LAMP-1", 1, 3)

		w := app.request(r, http.MethodGet, "/api/notifications/pending/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var notices []PendingNotification
		decodeData(t, w, &notices)
		require.Len(t, notices, 1)
		assert.Equal(t, "nl", notices[0].Locale)
		assert.Equal(t, "Voorraad bijna op", notices[0].Title)
		assert.Equal(t, "Product LAMP-1 (LAMP-1): nog 1 op voorraad", notices[0].Body)

		w = app.request(r, http.MethodGet, "/api/notifications/pending/?lang=en", nil)
		decodeData(t, w, &notices)
		require.Len(t, notices, 1)
		assert.Equal(t, "Stock running low", notices[0].Title)
		assert.Equal(t, "en", w.Header().Get("Content-Language"))
	})
}
