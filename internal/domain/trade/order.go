package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/shared"
)

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ChannelManual marks orders entered by hand rather than pulled from a marketplace
const ChannelManual = "manual"

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether the order still needs fulfilment work
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusNew || s == OrderStatusProcessing
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusNew:
		return target == OrderStatusProcessing || target == OrderStatusCancelled
	case OrderStatusProcessing:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	}
	return false
}

// OrderItem is one order line
type OrderItem struct {
	ID        uuid.UUID       `gorm:"primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"not null;index" json:"-"`
	SKU       string          `gorm:"type:varchar(64);not null;index" json:"sku"`
	Name      string          `gorm:"type:varchar(255)" json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	// StockBooked is how many units were actually taken out of stock for the line
	StockBooked int `gorm:"not null;default:0" json:"stock_booked"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal returns quantity times unit price
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a customer order received on a sales channel
type Order struct {
	shared.BaseEntity
	Reference       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_order_channel_reference,priority:2" json:"reference"`
	Channel         string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_order_channel_reference,priority:1" json:"channel"`
	CustomerName    string          `gorm:"type:varchar(200)" json:"customer_name"`
	CustomerEmail   string          `gorm:"type:varchar(200)" json:"customer_email"`
	ShippingAddress string          `gorm:"type:text" json:"shipping_address"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	FulfillerID     *uuid.UUID      `gorm:"index" json:"fulfiller_id,omitempty"`
	TrackingCode    string          `gorm:"type:varchar(100)" json:"tracking_code,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// ItemInput is one requested order line
type ItemInput struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderInput carries the fields of a new order
type OrderInput struct {
	Reference       string
	Channel         string
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Currency        string
	Items           []ItemInput
}

// NewOrder validates the input and creates an order in the new state.
// An empty reference is generated; an empty channel means a manual order.
func NewOrder(in OrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, shared.InvalidInput("order must have at least one item")
	}
	currency, err := shared.NormalizeCurrency(in.Currency)
	if err != nil {
		return nil, err
	}

	o := &Order{
		BaseEntity:      shared.NewBaseEntity(),
		Reference:       strings.TrimSpace(in.Reference),
		Channel:         strings.TrimSpace(in.Channel),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Currency:        currency,
		Status:          OrderStatusNew,
	}
	if o.Channel == "" {
		o.Channel = ChannelManual
	}
	if o.Reference == "" {
		o.Reference = "SIU-" + strings.ToUpper(o.ID.String()[:8])
	}

	for i, item := range in.Items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			return nil, shared.InvalidInput(fmt.Sprintf("item %d: SKU is required", i+1))
		}
		if item.Quantity <= 0 {
			return nil, shared.InvalidInput(fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if item.UnitPrice.IsNegative() {
			return nil, shared.InvalidInput(fmt.Sprintf("item %d: unit price cannot be negative", i+1))
		}
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			SKU:       sku,
			Name:      strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
			UnitPrice: shared.RoundMoney(item.UnitPrice),
		})
	}
	o.recalculate()
	return o, nil
}

func (o *Order) recalculate() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = shared.RoundMoney(total)
}

// ItemCount returns the number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// AssignFulfiller sets the fulfiller responsible for shipping. Only open orders can be reassigned.
func (o *Order) AssignFulfiller(fulfillerID uuid.UUID) error {
	if !o.Status.IsOpen() {
		return o.stateError("assign a fulfiller to")
	}
	o.FulfillerID = &fulfillerID
	o.Touch()
	return nil
}

// StartProcessing moves a new order to processing
func (o *Order) StartProcessing() error {
	return o.transition(OrderStatusProcessing, nil)
}

// Ship marks the order as shipped with an optional tracking code
func (o *Order) Ship(trackingCode string) error {
	return o.transition(OrderStatusShipped, func(now time.Time) {
		o.TrackingCode = strings.TrimSpace(trackingCode)
		o.ShippedAt = &now
	})
}

// Deliver marks a shipped order as delivered
func (o *Order) Deliver() error {
	return o.transition(OrderStatusDelivered, func(now time.Time) {
		o.DeliveredAt = &now
	})
}

// Cancel cancels an open order
func (o *Order) Cancel() error {
	return o.transition(OrderStatusCancelled, func(now time.Time) {
		o.CancelledAt = &now
	})
}

// TransitionTo moves the order to target, applying the matching side effects
func (o *Order) TransitionTo(target OrderStatus, trackingCode string) error {
	switch target {
	case OrderStatusProcessing:
		return o.StartProcessing()
	case OrderStatusShipped:
		return o.Ship(trackingCode)
	case OrderStatusDelivered:
		return o.Deliver()
	case OrderStatusCancelled:
		return o.Cancel()
	}
	return shared.InvalidInput(fmt.Sprintf("unknown order status %q", target))
}

func (o *Order) transition(target OrderStatus, apply func(now time.Time)) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			fmt.Sprintf("cannot move order %s from %s to %s", o.Reference, o.Status, target))
	}
	now := time.Now()
	if apply != nil {
		apply(now)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

func (o *Order) stateError(action string) error {
	return shared.NewDomainError(shared.ErrInvalidState.Code,
		fmt.Sprintf("cannot %s order in %s status", action, o.Status))
}
