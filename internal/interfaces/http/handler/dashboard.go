package handler

import (
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/analytics"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/application/integration"
	"github.com/stockitup/backend/internal/application/trade"
)

// dashboardLowStockLimit caps the low-stock list shown on the dashboard
const dashboardLowStockLimit = 10

// DashboardHandler aggregates the figures shown after login
type DashboardHandler struct {
	BaseHandler
	products  *catalog.ProductService
	orders    *trade.OrderService
	channels  *integration.ChannelService
	analytics *analytics.AnalyticsService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(
	products *catalog.ProductService,
	orders *trade.OrderService,
	channels *integration.ChannelService,
	stats *analytics.AnalyticsService,
) *DashboardHandler {
	return &DashboardHandler{products: products, orders: orders, channels: channels, analytics: stats}
}

// DashboardData is the dashboard payload
type DashboardData struct {
	Products        int64                         `json:"products"`
	LowStock        []catalog.ProductResponse     `json:"low_stock"`
	LowStockCount   int                           `json:"low_stock_count"`
	OrdersByStatus  map[string]int64              `json:"orders_by_status"`
	Overview        *analytics.Overview           `json:"overview"`
	Channels        []integration.ChannelResponse `json:"channels"`
	ConnectedCount  int                           `json:"connected_channels"`
	FailingCount    int                           `json:"failing_channels"`
	LastSyncDisplay string                        `json:"last_sync_display,omitempty"`
}

// Show answers the dashboard for the logged-in user
func (h *DashboardHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()
	var data DashboardData
	var err error

	if data.Products, err = h.products.Count(ctx); err != nil {
		h.HandleError(c, err)
		return
	}
	lowStock, err := h.products.LowStock(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	data.LowStockCount = len(lowStock)
	if len(lowStock) > dashboardLowStockLimit {
		lowStock = lowStock[:dashboardLowStockLimit]
	}
	data.LowStock = lowStock

	counts, err := h.orders.CountByStatus(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	data.OrdersByStatus = make(map[string]int64, len(counts))
	for status, n := range counts {
		data.OrdersByStatus[string(status)] = n
	}

	if data.Overview, err = h.analytics.Overview(ctx, analytics.DefaultDays); err != nil {
		h.HandleError(c, err)
		return
	}

	status, err := h.channels.Status(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	data.Channels = status.Channels
	data.ConnectedCount = status.Connected
	data.FailingCount = status.Failing
	if status.LastSyncAt != nil {
		data.LastSyncDisplay = humanize.Time(*status.LastSyncAt)
	}

	h.Success(c, data)
}
