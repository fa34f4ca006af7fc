package trade

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/domain/trade"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stockitup/backend/internal/infrastructure/label"
	"go.uber.org/zap"
)

// StockKeeper moves stock in and out for order lines
type StockKeeper interface {
	// ConsumeStock takes up to quantity units and returns how many it took
	ConsumeStock(ctx context.Context, sku string, quantity int) (int, error)
	RestoreStock(ctx context.Context, sku string, quantity int) error
}

// OrderService handles order business operations
type OrderService struct {
	orderRepo     trade.OrderRepository
	fulfillerRepo partner.FulfillerRepository
	sellerRepo    partner.SellerRepository
	addressRepo   partner.AddressRepository
	stock         StockKeeper
	events        shared.EventPublisher
	business      config.BusinessConfig
	appName       string
	logger        *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	fulfillerRepo partner.FulfillerRepository,
	sellerRepo partner.SellerRepository,
	addressRepo partner.AddressRepository,
	stock StockKeeper,
	events shared.EventPublisher,
	business config.BusinessConfig,
	appName string,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:     orderRepo,
		fulfillerRepo: fulfillerRepo,
		sellerRepo:    sellerRepo,
		addressRepo:   addressRepo,
		stock:         stock,
		events:        events,
		business:      business,
		appName:       appName,
		logger:        logger.Named("orders"),
	}
}

// List returns a page of orders matching the filter
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) (*shared.Paginated[OrderResponse], error) {
	f := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters: map[string]any{
			"status":  filter.Status,
			"channel": filter.Channel,
		},
	}
	orders, total, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, ToOrderResponse(&orders[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// GetByID returns an order by ID
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Create enters a new order
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	order, err := trade.NewOrder(req.input())
	if err != nil {
		return nil, err
	}
	if _, err := s.orderRepo.FindByReference(ctx, order.Channel, order.Reference); err == nil {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Order with this reference already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if err := s.accept(ctx, order); err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Import stores an order pulled from a marketplace.
// It reports false when the order was imported before.
func (s *OrderService) Import(ctx context.Context, code integration.MarketplaceCode, mo integration.MarketplaceOrder) (bool, error) {
	channel := string(code)
	if _, err := s.orderRepo.FindByReference(ctx, channel, mo.ExternalID); err == nil {
		return false, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}

	in := trade.OrderInput{
		Reference:       mo.ExternalID,
		Channel:         channel,
		CustomerName:    mo.CustomerName,
		CustomerEmail:   mo.CustomerEmail,
		ShippingAddress: mo.ShippingAddress,
		Currency:        mo.Currency,
	}
	for _, item := range mo.Items {
		in.Items = append(in.Items, trade.ItemInput{
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	order, err := trade.NewOrder(in)
	if err != nil {
		return false, err
	}
	if !mo.PlacedAt.IsZero() {
		order.CreatedAt = mo.PlacedAt
	}
	if err := s.accept(ctx, order); err != nil {
		return false, err
	}
	return true, nil
}

// accept runs the intake steps shared by manual and imported orders
func (s *OrderService) accept(ctx context.Context, order *trade.Order) error {
	if s.business.AutoFulfillment {
		if err := s.autoFulfill(ctx, order); err != nil {
			return err
		}
	}
	s.bookStock(ctx, order)
	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.releaseStock(ctx, order.Reference, unbook(order))
		return err
	}

	s.logger.Info("Order received",
		zap.String("reference", order.Reference),
		zap.String("channel", order.Channel),
		zap.String("status", string(order.Status)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	s.publish(ctx, trade.NewOrderReceivedEvent(order))
	return nil
}

// autoFulfill hands the order to the first fulfiller and starts processing it
func (s *OrderService) autoFulfill(ctx context.Context, order *trade.Order) error {
	fulfillers, err := s.fulfillerRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(fulfillers) == 0 {
		return nil
	}
	if err := order.AssignFulfiller(fulfillers[0].ID); err != nil {
		return err
	}
	return order.StartProcessing()
}

// bookStock takes each line out of stock and records on the line how much was taken
func (s *OrderService) bookStock(ctx context.Context, order *trade.Order) {
	if s.stock == nil {
		return
	}
	for i := range order.Items {
		item := &order.Items[i]
		taken, err := s.stock.ConsumeStock(ctx, item.SKU, item.Quantity)
		if err != nil {
			s.logger.Error("Failed to book stock for order",
				zap.String("reference", order.Reference),
				zap.String("sku", item.SKU),
				zap.Error(err),
			)
			continue
		}
		item.StockBooked = taken
		if taken < item.Quantity {
			s.logger.Warn("Order line exceeds stock",
				zap.String("reference", order.Reference),
				zap.String("sku", item.SKU),
				zap.Int("short", item.Quantity-taken),
			)
		}
	}
}

// unbook clears the stock bookings of an order and returns the lines that held one
func unbook(order *trade.Order) []trade.OrderItem {
	var booked []trade.OrderItem
	for i := range order.Items {
		if order.Items[i].StockBooked > 0 {
			booked = append(booked, order.Items[i])
			order.Items[i].StockBooked = 0
		}
	}
	return booked
}

// releaseStock returns the booked units of the given lines to stock
func (s *OrderService) releaseStock(ctx context.Context, reference string, lines []trade.OrderItem) {
	if s.stock == nil {
		return
	}
	for _, item := range lines {
		if err := s.stock.RestoreStock(ctx, item.SKU, item.StockBooked); err != nil {
			s.logger.Error("Failed to restore stock",
				zap.String("reference", reference),
				zap.String("sku", item.SKU),
				zap.Int("quantity", item.StockBooked),
				zap.Error(err),
			)
		}
	}
}

// UpdateStatus moves an order through its life cycle.
// Cancelling an order puts the units booked for its lines back into stock.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := order.Status
	if err := order.TransitionTo(trade.OrderStatus(req.Status), req.TrackingCode); err != nil {
		return nil, err
	}
	var released []trade.OrderItem
	if order.Status == trade.OrderStatusCancelled {
		released = unbook(order)
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}
	s.releaseStock(ctx, order.Reference, released)

	s.logger.Info("Order status changed",
		zap.String("reference", order.Reference),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)
	s.publish(ctx, trade.NewOrderStatusChangedEvent(order, previous))

	resp := ToOrderResponse(order)
	return &resp, nil
}

// Batches groups the open orders into batches of the configured size
func (s *OrderService) Batches(ctx context.Context) ([]trade.Batch, error) {
	orders, err := s.orderRepo.FindOpen(ctx)
	if err != nil {
		return nil, err
	}
	return trade.BuildBatches(orders, s.business.OrderBatchSize), nil
}

// RenderLabel writes the shipping label of an order to w
func (s *OrderService) RenderLabel(ctx context.Context, id uuid.UUID, w io.Writer) (string, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if order.Status == trade.OrderStatusCancelled {
		return "", shared.NewDomainError(shared.ErrInvalidState.Code, "cannot print a label for a cancelled order")
	}

	shipment := label.Shipment{
		Reference:    order.Reference,
		Channel:      order.Channel,
		Sender:       s.senderLines(ctx),
		Recipient:    recipientLines(order),
		TrackingCode: order.TrackingCode,
		Date:         time.Now(),
	}
	for _, item := range order.Items {
		shipment.Items = append(shipment.Items, label.Item{SKU: item.SKU, Name: item.Name, Quantity: item.Quantity})
	}
	if err := label.Render(w, shipment); err != nil {
		return "", shared.InvalidInput(err.Error())
	}
	return "label-" + order.Reference + ".pdf", nil
}

// senderLines uses the address of the first seller that has one
func (s *OrderService) senderLines(ctx context.Context) []string {
	fallback := []string{s.appName}
	if s.sellerRepo == nil || s.addressRepo == nil {
		return fallback
	}
	sellers, err := s.sellerRepo.FindAll(ctx)
	if err != nil {
		return fallback
	}
	for _, seller := range sellers {
		if seller.AddressID == nil {
			continue
		}
		addr, err := s.addressRepo.FindByID(ctx, *seller.AddressID)
		if err != nil {
			continue
		}
		lines := addr.Lines()
		lines[0] = seller.Name
		return lines
	}
	return fallback
}

func recipientLines(o *trade.Order) []string {
	var lines []string
	if o.CustomerName != "" {
		lines = append(lines, o.CustomerName)
	}
	for _, part := range strings.FieldsFunc(o.ShippingAddress, func(r rune) bool { return r == ',' || r == '\n' }) {
		if part = strings.TrimSpace(part); part != "" {
			lines = append(lines, part)
		}
	}
	return lines
}

// CountByStatus returns the number of orders per status
func (s *OrderService) CountByStatus(ctx context.Context) (map[trade.OrderStatus]int64, error) {
	return s.orderRepo.CountByStatus(ctx)
}

func (s *OrderService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event", zap.String("type", event.EventType()), zap.Error(err))
	}
}
