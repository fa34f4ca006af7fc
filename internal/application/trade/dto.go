package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/trade"
)

// OrderItemRequest is one line of a new order
type OrderItemRequest struct {
	SKU       string          `json:"sku" binding:"required,max=64"`
	Name      string          `json:"name" binding:"max=255"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest represents a request to enter an order
type CreateOrderRequest struct {
	Reference       string             `json:"reference" binding:"max=100"`
	Channel         string             `json:"channel" binding:"max=32"`
	CustomerName    string             `json:"customer_name" binding:"max=200"`
	CustomerEmail   string             `json:"customer_email" binding:"omitempty,email,max=200"`
	ShippingAddress string             `json:"shipping_address" binding:"max=1000"`
	Currency        string             `json:"currency" binding:"omitempty,len=3"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r CreateOrderRequest) input() trade.OrderInput {
	in := trade.OrderInput{
		Reference:       r.Reference,
		Channel:         r.Channel,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		ShippingAddress: r.ShippingAddress,
		Currency:        r.Currency,
	}
	for _, item := range r.Items {
		in.Items = append(in.Items, trade.ItemInput{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return in
}

// UpdateStatusRequest moves an order to another status
type UpdateStatusRequest struct {
	Status       string `json:"status" form:"status" binding:"required,oneof=processing shipped delivered cancelled"`
	TrackingCode string `json:"tracking_code" form:"tracking_code" binding:"max=100"`
}

// OrderListFilter holds the list query parameters
type OrderListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=new processing shipped delivered cancelled"`
	Channel  string `form:"channel"`
	Search   string `form:"q"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// OrderItemResponse is one order line in API responses
type OrderItemResponse struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	// StockBooked is the part of the quantity taken from stock
	StockBooked int `json:"stock_booked"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Reference       string              `json:"reference"`
	Channel         string              `json:"channel"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ShippingAddress string              `json:"shipping_address"`
	Currency        string              `json:"currency"`
	Total           decimal.Decimal     `json:"total"`
	Status          string              `json:"status"`
	FulfillerID     *uuid.UUID          `json:"fulfiller_id,omitempty"`
	TrackingCode    string              `json:"tracking_code,omitempty"`
	ItemCount       int                 `json:"item_count"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *trade.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Reference:       o.Reference,
		Channel:         o.Channel,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		Currency:        o.Currency,
		Total:           o.Total,
		Status:          string(o.Status),
		FulfillerID:     o.FulfillerID,
		TrackingCode:    o.TrackingCode,
		ItemCount:       o.ItemCount(),
		Items:           make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			SKU:         item.SKU,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
			StockBooked: item.StockBooked,
		})
	}
	return resp
}
