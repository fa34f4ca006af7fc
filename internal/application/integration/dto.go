package integration

import (
	"time"

	"github.com/stockitup/backend/internal/domain/integration"
)

// ChannelResponse describes one marketplace and the seller's connection to it
type ChannelResponse struct {
	Marketplace    integration.MarketplaceCode `json:"marketplace"`
	Name           string                      `json:"name"`
	Configured     bool                        `json:"configured"`
	Connected      bool                        `json:"connected"`
	Status         string                      `json:"status"`
	SellerName     string                      `json:"seller_name,omitempty"`
	TokenExpiresAt *time.Time                  `json:"token_expires_at,omitempty"`
	LastSyncAt     *time.Time                  `json:"last_sync_at,omitempty"`
	LastError      string                      `json:"last_error,omitempty"`
	OrdersImported int                         `json:"orders_imported"`
}

// StatusNotConnected is reported for marketplaces without a connection
const StatusNotConnected = "not_connected"

func toChannelResponse(m integration.Marketplace, conn *integration.ChannelConnection) ChannelResponse {
	resp := ChannelResponse{
		Marketplace: m.Code(),
		Name:        m.Code().DisplayName(),
		Configured:  m.Configured(),
		Status:      StatusNotConnected,
	}
	if conn == nil {
		return resp
	}
	resp.Connected = conn.IsActive()
	resp.Status = string(conn.Status)
	resp.SellerName = conn.SellerName
	resp.TokenExpiresAt = conn.TokenExpiresAt
	resp.LastSyncAt = conn.LastSyncAt
	resp.LastError = conn.LastError
	resp.OrdersImported = conn.OrdersImported
	return resp
}

// SyncOptions selects what a synchronisation run does
type SyncOptions struct {
	Orders bool
	Stock  bool
}

// FullSync pulls orders and pushes stock
var FullSync = SyncOptions{Orders: true, Stock: true}

// SyncResult summarises one marketplace synchronisation
type SyncResult struct {
	Marketplace    integration.MarketplaceCode `json:"marketplace"`
	OrdersImported int                         `json:"orders_imported"`
	OrdersSkipped  int                         `json:"orders_skipped"`
	StockUpdated   int                         `json:"stock_updated"`
	Failures       []integration.SyncFailure   `json:"failures"`
	Error          string                      `json:"error,omitempty"`
	StartedAt      time.Time                   `json:"started_at"`
	Duration       time.Duration               `json:"duration"`
}

// SyncStatus is the overall synchronisation state shown on the dashboard
type SyncStatus struct {
	Channels   []ChannelResponse `json:"channels"`
	Connected  int               `json:"connected"`
	Failing    int               `json:"failing"`
	LastSyncAt *time.Time        `json:"last_sync_at,omitempty"`
}
