package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockitup/backend/internal/application/catalog"
	"github.com/stockitup/backend/internal/application/integration"
	"github.com/stockitup/backend/internal/infrastructure/i18n"
	"github.com/stockitup/backend/internal/infrastructure/logger"
	"github.com/stockitup/backend/internal/infrastructure/scheduler"
	"github.com/stockitup/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// syncHistoryLimit caps the scheduler runs reported by the status endpoint
const syncHistoryLimit = 10

// Schedule is the part of the sync scheduler the status endpoint reads
type Schedule interface {
	NextRun() time.Time
	History(limit int) []scheduler.Run
}

// SyncHandler serves the endpoints the service worker calls during background sync
type SyncHandler struct {
	BaseHandler
	channels *integration.ChannelService
	products *catalog.ProductService
	schedule Schedule
}

// NewSyncHandler creates a new SyncHandler. schedule may be nil when periodic sync is off.
func NewSyncHandler(channels *integration.ChannelService, products *catalog.ProductService, schedule Schedule) *SyncHandler {
	return &SyncHandler{channels: channels, products: products, schedule: schedule}
}

// SyncReport is the answer of a background sync call
type SyncReport struct {
	Results []integration.SyncResult `json:"results"`
	Errors  int                      `json:"errors"`
}

// Orders pulls new orders from every connected marketplace
func (h *SyncHandler) Orders(c *gin.Context) {
	h.run(c, integration.SyncOptions{Orders: true})
}

// Inventory pushes the stock levels to every connected marketplace
func (h *SyncHandler) Inventory(c *gin.Context) {
	h.run(c, integration.SyncOptions{Stock: true})
}

func (h *SyncHandler) run(c *gin.Context, opts integration.SyncOptions) {
	results, err := h.channels.Run(c.Request.Context(), opts)
	if results == nil && err != nil {
		h.HandleError(c, err)
		return
	}
	report := SyncReport{Results: results}
	if report.Results == nil {
		report.Results = []integration.SyncResult{}
	}
	if err != nil {
		logger.GetGinLogger(c).Warn("Background sync finished with errors", zap.Error(err))
		for _, r := range report.Results {
			if r.Error != "" {
				report.Errors++
			}
		}
	}
	h.Success(c, report)
}

// StatusData is the answer of the sync status endpoint
type StatusData struct {
	*integration.SyncStatus
	NextRun *time.Time      `json:"next_run,omitempty"`
	History []scheduler.Run `json:"history"`
}

// Status reports the connections, the last sync and the schedule
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.channels.Status(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	data := StatusData{SyncStatus: status, History: []scheduler.Run{}}
	if h.schedule != nil {
		if next := h.schedule.NextRun(); !next.IsZero() {
			data.NextRun = &next
		}
		data.History = h.schedule.History(syncHistoryLimit)
	}
	h.Success(c, data)
}

// PendingNotification is a notification the service worker shows after syncing
type PendingNotification struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url"`
	Locale string `json:"locale"`
}

// Notifications returns the low-stock notices in the negotiated language
func (h *SyncHandler) Notifications(c *gin.Context) {
	products, err := h.products.LowStock(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	tag := middleware.GetLocale(c)
	printer := i18n.NewPrinter(tag)
	notices := make([]PendingNotification, 0, len(products))
	for _, p := range products {
		notices = append(notices, PendingNotification{
			Type:   i18n.InventoryLow,
			Title:  printer.T(i18n.InventoryLow),
			Body:   printer.T(i18n.InventoryLowDetail, p.Name, p.SKU, p.StockQuantity),
			URL:    "/products/" + p.ID.String() + "/",
			Locale: i18n.Code(tag),
		})
	}
	h.Success(c, notices)
}
