package trade

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/domain/trade"
	"github.com/stockitup/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*trade.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[uuid.UUID]*trade.Order{}}
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		return o, nil
	}
	return nil, shared.NotFound("order")
}

func (r *fakeOrderRepo) FindByReference(_ context.Context, channel, reference string) (*trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Channel == channel && o.Reference == reference {
			return o, nil
		}
	}
	return nil, shared.NotFound("order")
}

func (r *fakeOrderRepo) sorted() []trade.Order {
	out := make([]trade.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeOrderRepo) FindAll(_ context.Context, filter shared.Filter) ([]trade.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trade.Order
	for _, o := range r.sorted() {
		if status, _ := filter.Filters["status"].(string); status != "" && string(o.Status) != status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) FindOpen(_ context.Context) ([]trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trade.Order
	for _, o := range r.sorted() {
		if o.Status.IsOpen() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindSince(_ context.Context, since time.Time) ([]trade.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trade.Order
	for _, o := range r.sorted() {
		if !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Save(_ context.Context, order *trade.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) CountByStatus(_ context.Context) (map[trade.OrderStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[trade.OrderStatus]int64{}
	for _, o := range r.orders {
		counts[o.Status]++
	}
	return counts, nil
}

type fakePartnerRepo[T any] struct {
	items []T
	id    func(*T) uuid.UUID
}

func (r *fakePartnerRepo[T]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	for i := range r.items {
		if r.id(&r.items[i]) == id {
			return &r.items[i], nil
		}
	}
	return nil, shared.NotFound("entity")
}

func (r *fakePartnerRepo[T]) FindAll(_ context.Context) ([]T, error) { return r.items, nil }

func (r *fakePartnerRepo[T]) Save(_ context.Context, e *T) error {
	r.items = append(r.items, *e)
	return nil
}

func (r *fakePartnerRepo[T]) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakePartnerRepo[T]) Count(_ context.Context) (int64, error) {
	return int64(len(r.items)), nil
}

type fakeStock struct {
	levels   map[string]int
	restored map[string]int
}

func (f *fakeStock) ConsumeStock(_ context.Context, sku string, quantity int) (int, error) {
	have, ok := f.levels[sku]
	if !ok {
		return 0, nil
	}
	taken := min(have, quantity)
	f.levels[sku] = have - taken
	return taken, nil
}

func (f *fakeStock) RestoreStock(_ context.Context, sku string, quantity int) error {
	f.restored[sku] += quantity
	if _, ok := f.levels[sku]; ok {
		f.levels[sku] += quantity
	}
	return nil
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

type fixture struct {
	svc        *OrderService
	orders     *fakeOrderRepo
	fulfillers *fakePartnerRepo[partner.Fulfiller]
	sellers    *fakePartnerRepo[partner.Seller]
	addresses  *fakePartnerRepo[partner.Address]
	stock      *fakeStock
	events     *recordingPublisher
}

func newFixture(t *testing.T, autoFulfill bool) *fixture {
	t.Helper()
	f := &fixture{
		orders:     newFakeOrderRepo(),
		fulfillers: &fakePartnerRepo[partner.Fulfiller]{id: func(e *partner.Fulfiller) uuid.UUID { return e.ID }},
		sellers:    &fakePartnerRepo[partner.Seller]{id: func(e *partner.Seller) uuid.UUID { return e.ID }},
		addresses:  &fakePartnerRepo[partner.Address]{id: func(e *partner.Address) uuid.UUID { return e.ID }},
		stock:      &fakeStock{levels: map[string]int{"MUG": 10}, restored: map[string]int{}},
		events:     &recordingPublisher{},
	}
	business := config.DefaultBusiness()
	business.AutoFulfillment = autoFulfill
	f.svc = NewOrderService(f.orders, f.fulfillers, f.sellers, f.addresses, f.stock, f.events, business, "Stock It Up Clone", nil)
	return f
}

func mugOrder() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:    "Jan Jansen",
		ShippingAddress: "Damstraat 1, 1012JS Amsterdam, NL",
		Items: []OrderItemRequest{
			{SKU: "MUG", Name: "Mok", Quantity: 3, UnitPrice: decimal.NewFromFloat(4.5)},
		},
	}
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("manual order without fulfillers stays new", func(t *testing.T) {
		f := newFixture(t, true)
		resp, err := f.svc.Create(ctx, mugOrder())
		require.NoError(t, err)

		assert.Equal(t, "new", resp.Status)
		assert.Equal(t, trade.ChannelManual, resp.Channel)
		assert.Regexp(t, `^SIU-[0-9A-F]{8}$`, resp.Reference)
		assert.Equal(t, "13.5", resp.Total.String())
		assert.Equal(t, 7, f.stock.levels["MUG"])
		require.Len(t, f.events.events, 1)
		assert.Equal(t, trade.EventTypeOrderReceived, f.events.events[0].EventType())
	})

	t.Run("auto fulfillment assigns first fulfiller", func(t *testing.T) {
		f := newFixture(t, true)
		first, _ := partner.NewFulfiller("Eerste", "", "")
		second, _ := partner.NewFulfiller("Tweede", "", "")
		f.fulfillers.items = []partner.Fulfiller{*first, *second}

		resp, err := f.svc.Create(ctx, mugOrder())
		require.NoError(t, err)
		assert.Equal(t, "processing", resp.Status)
		require.NotNil(t, resp.FulfillerID)
		assert.Equal(t, first.ID, *resp.FulfillerID)
	})

	t.Run("auto fulfillment disabled", func(t *testing.T) {
		f := newFixture(t, false)
		ful, _ := partner.NewFulfiller("Eerste", "", "")
		f.fulfillers.items = []partner.Fulfiller{*ful}

		resp, err := f.svc.Create(ctx, mugOrder())
		require.NoError(t, err)
		assert.Equal(t, "new", resp.Status)
		assert.Nil(t, resp.FulfillerID)
	})

	t.Run("duplicate reference", func(t *testing.T) {
		f := newFixture(t, false)
		req := mugOrder()
		req.Reference = "WEB-1"
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		_, err = f.svc.Create(ctx, req)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		f := newFixture(t, false)
		req := mugOrder()
		req.Items[0].Quantity = 0
		_, err := f.svc.Create(ctx, req)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestOrderService_Import(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	placed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mo := integration.MarketplaceOrder{
		ExternalID:   "1043946570",
		CustomerName: "Piet",
		Currency:     "EUR",
		PlacedAt:     placed,
		Items: []integration.MarketplaceOrderItem{
			{SKU: "MUG", Quantity: 1, UnitPrice: decimal.NewFromFloat(4.5)},
		},
	}

	imported, err := f.svc.Import(ctx, integration.MarketplaceBolCom, mo)
	require.NoError(t, err)
	assert.True(t, imported)

	imported, err = f.svc.Import(ctx, integration.MarketplaceBolCom, mo)
	require.NoError(t, err)
	assert.False(t, imported, "same external id is imported once")

	order, err := f.orders.FindByReference(ctx, "bol_com", "1043946570")
	require.NoError(t, err)
	assert.Equal(t, placed, order.CreatedAt)
	assert.Equal(t, 9, f.stock.levels["MUG"])
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	created, err := f.svc.Create(ctx, mugOrder())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "shipped"})
	assert.ErrorIs(t, err, shared.ErrInvalidState, "new orders cannot ship directly")

	resp, err := f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, "processing", resp.Status)

	resp, err = f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "shipped", TrackingCode: "3SABCD1234567"})
	require.NoError(t, err)
	assert.Equal(t, "3SABCD1234567", resp.TrackingCode)
	assert.NotNil(t, resp.ShippedAt)

	_, err = f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	last := f.events.events[len(f.events.events)-1].(*trade.OrderEvent)
	assert.Equal(t, trade.EventTypeOrderStatusChanged, last.EventType())
	assert.Equal(t, trade.OrderStatusProcessing, last.Previous)
}

func TestOrderService_CancelRestoresStock(t *testing.T) {
	ctx := context.Background()

	t.Run("fully booked line", func(t *testing.T) {
		f := newFixture(t, false)
		created, err := f.svc.Create(ctx, mugOrder())
		require.NoError(t, err)
		assert.Equal(t, 3, created.Items[0].StockBooked)

		resp, err := f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, 3, f.stock.restored["MUG"])
		assert.Equal(t, 10, f.stock.levels["MUG"])
		assert.Zero(t, resp.Items[0].StockBooked)
	})

	t.Run("only the booked part of a short line comes back", func(t *testing.T) {
		f := newFixture(t, false)
		f.stock.levels["MUG"] = 2
		req := mugOrder()
		req.Items[0].Quantity = 5
		req.Items = append(req.Items, OrderItemRequest{SKU: "DROPSHIP", Quantity: 1, UnitPrice: decimal.NewFromInt(12)})

		created, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 0, f.stock.levels["MUG"])

		stored, err := f.orders.FindByID(ctx, created.ID)
		require.NoError(t, err)
		booked := map[string]int{}
		for _, item := range stored.Items {
			booked[item.SKU] = item.StockBooked
		}
		assert.Equal(t, map[string]int{"MUG": 2, "DROPSHIP": 0}, booked)

		_, err = f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "cancelled"})
		require.NoError(t, err)
		assert.Equal(t, 2, f.stock.levels["MUG"], "stock returns to its level before the order")
		assert.Equal(t, map[string]int{"MUG": 2}, f.stock.restored)
	})
}

func TestOrderService_Batches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	for i := 0; i < 205; i++ {
		o, err := trade.NewOrder(trade.OrderInput{Items: []trade.ItemInput{{SKU: "MUG", Quantity: 1}}})
		require.NoError(t, err)
		o.CreatedAt = o.CreatedAt.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, f.orders.Save(ctx, o))
	}

	batches, err := f.svc.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].OrderIDs, 100)
	assert.Len(t, batches[1].OrderIDs, 100)
	assert.Len(t, batches[2].OrderIDs, 5)
	assert.Equal(t, 3, batches[2].Number)
}

func TestOrderService_RenderLabel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	addr, err := partner.NewAddress(partner.AddressInput{
		Name: "Magazijn", Street: "Industrieweg", HouseNumber: "12", ZipCode: "1234AB", City: "Utrecht",
	})
	require.NoError(t, err)
	seller, err := partner.NewSeller("Stock It Up BV", &addr.ID)
	require.NoError(t, err)
	f.addresses.items = []partner.Address{*addr}
	f.sellers.items = []partner.Seller{*seller}

	created, err := f.svc.Create(ctx, mugOrder())
	require.NoError(t, err)

	var buf bytes.Buffer
	name, err := f.svc.RenderLabel(ctx, created.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "label-"+created.Reference+".pdf", name)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "Stock It Up BV")
	assert.Contains(t, buf.String(), "Damstraat 1")

	_, err = f.svc.UpdateStatus(ctx, created.ID, UpdateStatusRequest{Status: "cancelled"})
	require.NoError(t, err)
	_, err = f.svc.RenderLabel(ctx, created.ID, &bytes.Buffer{})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	assert.Equal(t, []string{"Jan Jansen", "Damstraat 1", "1012JS Amsterdam", "NL"}, recipientLines(&trade.Order{
		CustomerName:    "Jan Jansen",
		ShippingAddress: "Damstraat 1, 1012JS Amsterdam, NL",
	}))
}
