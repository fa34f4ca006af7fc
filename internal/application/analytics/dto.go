package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reporting periods in days
const (
	DefaultDays = 30
	MaxDays     = 365
)

// PeriodRequest is the query string of the analytics endpoints
type PeriodRequest struct {
	Days  int `form:"days" binding:"omitempty,min=1,max=365"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CurrencyTotals is the revenue made in one currency
type CurrencyTotals struct {
	Currency          string          `json:"currency"`
	Orders            int             `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RevenueDisplay    string          `json:"revenue_display"`
}

// Overview summarises the orders of a period
type Overview struct {
	Days       int              `json:"days"`
	Since      time.Time        `json:"since"`
	Orders     int              `json:"orders"`
	Cancelled  int              `json:"cancelled"`
	Units      int              `json:"units"`
	Currencies []CurrencyTotals `json:"currencies"`
}

// ChannelRevenue is the revenue of one sales channel in one currency
type ChannelRevenue struct {
	Channel  string          `json:"channel"`
	Currency string          `json:"currency"`
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	Share    float64         `json:"share"`
}

// StatusCount is the number of orders in one status
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TopProduct is a product ranked by units sold
type TopProduct struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Orders   int    `json:"orders"`
}

// TrendPoint is one day of the order trend
type TrendPoint struct {
	Date    string                     `json:"date"`
	Orders  int                        `json:"orders"`
	Revenue map[string]decimal.Decimal `json:"revenue"`
}
