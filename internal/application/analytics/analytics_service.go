package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/domain/trade"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AnalyticsService computes sales figures from the order history.
// Cancelled orders count as orders but never as revenue or units.
type AnalyticsService struct {
	orders trade.OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(orders trade.OrderRepository, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		orders: orders,
		logger: logger.Named("analytics"),
		now:    time.Now,
	}
}

// normalizeDays clamps a requested period to 1..MaxDays, defaulting to DefaultDays
func normalizeDays(days int) int {
	switch {
	case days <= 0:
		return DefaultDays
	case days > MaxDays:
		return MaxDays
	}
	return days
}

// periodStart is midnight of the first day of a period ending today
func (s *AnalyticsService) periodStart(days int) time.Time {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(days - 1))
}

func (s *AnalyticsService) load(ctx context.Context, days int) ([]trade.Order, time.Time, error) {
	since := s.periodStart(days)
	orders, err := s.orders.FindSince(ctx, since)
	if err != nil {
		s.logger.Error("Failed to load orders", zap.Error(err), zap.Int("days", days))
		return nil, since, err
	}
	return orders, since, nil
}

func counted(o trade.Order) bool {
	return o.Status != trade.OrderStatusCancelled
}

// Overview returns order count, revenue and average order value per currency
func (s *AnalyticsService) Overview(ctx context.Context, days int) (*Overview, error) {
	days = normalizeDays(days)
	orders, since, err := s.load(ctx, days)
	if err != nil {
		return nil, err
	}

	overview := &Overview{Days: days, Since: since, Orders: len(orders), Currencies: []CurrencyTotals{}}
	byCurrency := lo.GroupBy(lo.Filter(orders, func(o trade.Order, _ int) bool { return counted(o) }),
		func(o trade.Order) string { return o.Currency })
	overview.Cancelled = len(orders) - lo.Sum(lo.MapToSlice(byCurrency, func(_ string, os []trade.Order) int { return len(os) }))

	for currency, group := range byCurrency {
		revenue := decimal.Zero
		for _, o := range group {
			revenue = revenue.Add(o.Total)
			overview.Units += o.ItemCount()
		}
		overview.Currencies = append(overview.Currencies, CurrencyTotals{
			Currency:          currency,
			Orders:            len(group),
			Revenue:           shared.RoundMoney(revenue),
			AverageOrderValue: shared.RoundMoney(revenue.Div(decimal.NewFromInt(int64(len(group))))),
			RevenueDisplay:    displayMoney(currency, revenue),
		})
	}
	sort.Slice(overview.Currencies, func(i, j int) bool {
		return overview.Currencies[i].Revenue.GreaterThan(overview.Currencies[j].Revenue)
	})
	return overview, nil
}

// RevenueByChannel returns revenue per channel and currency, highest first
func (s *AnalyticsService) RevenueByChannel(ctx context.Context, days int) ([]ChannelRevenue, error) {
	orders, _, err := s.load(ctx, normalizeDays(days))
	if err != nil {
		return nil, err
	}

	type key struct{ channel, currency string }
	rows := make(map[key]*ChannelRevenue)
	totals := make(map[string]decimal.Decimal)
	for _, o := range orders {
		if !counted(o) {
			continue
		}
		k := key{o.Channel, o.Currency}
		row, ok := rows[k]
		if !ok {
			row = &ChannelRevenue{Channel: o.Channel, Currency: o.Currency, Revenue: decimal.Zero}
			rows[k] = row
		}
		row.Orders++
		row.Revenue = row.Revenue.Add(o.Total)
		totals[o.Currency] = totals[o.Currency].Add(o.Total)
	}

	result := lo.MapToSlice(rows, func(_ key, r *ChannelRevenue) ChannelRevenue {
		if total := totals[r.Currency]; total.IsPositive() {
			r.Share, _ = r.Revenue.Div(total).Round(4).Float64()
		}
		r.Revenue = shared.RoundMoney(r.Revenue)
		return *r
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Revenue.Equal(result[j].Revenue) {
			return result[i].Revenue.GreaterThan(result[j].Revenue)
		}
		return result[i].Channel < result[j].Channel
	})
	return result, nil
}

// OrdersByStatus counts all orders per status, listing every status in lifecycle order
func (s *AnalyticsService) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	statuses := []trade.OrderStatus{
		trade.OrderStatusNew,
		trade.OrderStatusProcessing,
		trade.OrderStatusShipped,
		trade.OrderStatusDelivered,
		trade.OrderStatusCancelled,
	}
	return lo.Map(statuses, func(st trade.OrderStatus, _ int) StatusCount {
		return StatusCount{Status: string(st), Count: counts[st]}
	}), nil
}

// TopProducts ranks products by units sold in the period
func (s *AnalyticsService) TopProducts(ctx context.Context, days, limit int) ([]TopProduct, error) {
	orders, _, err := s.load(ctx, normalizeDays(days))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	products := make(map[string]*TopProduct)
	for _, o := range orders {
		if !counted(o) {
			continue
		}
		for _, item := range o.Items {
			p, ok := products[item.SKU]
			if !ok {
				p = &TopProduct{SKU: item.SKU}
				products[item.SKU] = p
			}
			if p.Name == "" {
				p.Name = item.Name
			}
			p.Quantity += item.Quantity
			p.Orders++
		}
	}

	result := lo.MapToSlice(products, func(_ string, p *TopProduct) TopProduct { return *p })
	sort.Slice(result, func(i, j int) bool {
		if result[i].Quantity != result[j].Quantity {
			return result[i].Quantity > result[j].Quantity
		}
		return result[i].SKU < result[j].SKU
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DailyTrend returns one point per day of the period, oldest first, including empty days
func (s *AnalyticsService) DailyTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	days = normalizeDays(days)
	orders, since, err := s.load(ctx, days)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		date := since.AddDate(0, 0, i).Format(dateLayout)
		points[i] = TrendPoint{Date: date, Revenue: map[string]decimal.Decimal{}}
		index[date] = i
	}
	for _, o := range orders {
		i, ok := index[o.CreatedAt.In(since.Location()).Format(dateLayout)]
		if !ok {
			continue
		}
		points[i].Orders++
		if counted(o) {
			points[i].Revenue[o.Currency] = points[i].Revenue[o.Currency].Add(o.Total)
		}
	}
	return points, nil
}

// displayMoney renders an amount with thousands separators, e.g. "EUR 1,234.50"
func displayMoney(currency string, amount decimal.Decimal) string {
	f, _ := shared.RoundMoney(amount).Float64()
	return currency + " " + humanize.FormatFloat("#,###.##", f)
}
