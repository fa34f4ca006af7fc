package integration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/infrastructure/cache"
	"github.com/stockitup/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	// OAuthStateTTL is how long an authorisation request may take
	OAuthStateTTL = 10 * time.Minute

	oauthStatePrefix = "oauth_state:"
	tokenLeeway      = time.Minute
)

// OrderImporter stores orders pulled from a marketplace
type OrderImporter interface {
	Import(ctx context.Context, code integration.MarketplaceCode, order integration.MarketplaceOrder) (bool, error)
}

// StockSource provides the stock levels pushed to the marketplaces
type StockSource interface {
	StockLevels(ctx context.Context) ([]integration.StockUpdate, error)
}

// ChannelService connects marketplaces and synchronises orders and stock with them
type ChannelService struct {
	registry     integration.MarketplaceRegistry
	connRepo     integration.ChannelConnectionRepository
	store        cache.Store
	orders       OrderImporter
	stock        StockSource
	events       shared.EventPublisher
	redirectBase string
	logger       *zap.Logger
	now          func() time.Time
}

// NewChannelService creates a new ChannelService
func NewChannelService(
	registry integration.MarketplaceRegistry,
	connRepo integration.ChannelConnectionRepository,
	store cache.Store,
	orders OrderImporter,
	stock StockSource,
	events shared.EventPublisher,
	redirectBase string,
	logger *zap.Logger,
) *ChannelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelService{
		registry:     registry,
		connRepo:     connRepo,
		store:        store,
		orders:       orders,
		stock:        stock,
		events:       events,
		redirectBase: strings.TrimRight(redirectBase, "/"),
		logger:       logger.Named("channels"),
		now:          time.Now,
	}
}

// List returns every supported marketplace with its connection state
func (s *ChannelService) List(ctx context.Context) ([]ChannelResponse, error) {
	conns, err := s.connRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byCode := lo.KeyBy(conns, func(c integration.ChannelConnection) integration.MarketplaceCode { return c.Marketplace })

	markets := s.registry.List()
	result := make([]ChannelResponse, 0, len(markets))
	for _, m := range markets {
		var conn *integration.ChannelConnection
		if c, ok := byCode[m.Code()]; ok {
			conn = &c
		}
		result = append(result, toChannelResponse(m, conn))
	}
	return result, nil
}

// Get returns one marketplace with its connection state
func (s *ChannelService) Get(ctx context.Context, code integration.MarketplaceCode) (*ChannelResponse, error) {
	m, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	conn, err := s.findConnection(ctx, code)
	if err != nil {
		return nil, err
	}
	resp := toChannelResponse(m, conn)
	return &resp, nil
}

// RedirectURI returns the OAuth callback registered for a marketplace
func (s *ChannelService) RedirectURI(code integration.MarketplaceCode) string {
	return fmt.Sprintf("%s/channels/%s/callback/", s.redirectBase, code)
}

// StartOAuth stores a one-time state and returns the marketplace consent URL
func (s *ChannelService) StartOAuth(ctx context.Context, code integration.MarketplaceCode) (string, error) {
	m, err := s.registry.Get(code)
	if err != nil {
		return "", err
	}
	if !m.Configured() {
		return "", integration.ErrMarketplaceNotConfigured
	}

	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, oauthStatePrefix+state, string(code), OAuthStateTTL); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	conn, err := s.findConnection(ctx, code)
	if err != nil {
		return "", err
	}
	if conn == nil {
		if conn, err = integration.NewChannelConnection(code); err != nil {
			return "", err
		}
		if err := s.connRepo.Save(ctx, conn); err != nil {
			return "", err
		}
	}

	s.logger.Info("OAuth started", zap.String("marketplace", string(code)))
	return m.AuthorizeURL(state, s.RedirectURI(code))
}

// CompleteOAuth validates the callback state, exchanges the code and activates the connection
func (s *ChannelService) CompleteOAuth(ctx context.Context, code integration.MarketplaceCode, state, authCode string) (*ChannelResponse, error) {
	m, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return nil, integration.ErrInvalidOAuthState
	}
	stored, ok, err := s.store.Take(ctx, oauthStatePrefix+state)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth state: %w", err)
	}
	if !ok || stored != string(code) {
		return nil, integration.ErrInvalidOAuthState
	}

	token, err := m.ExchangeCode(ctx, authCode, s.RedirectURI(code))
	if err != nil {
		s.logger.Warn("OAuth code exchange failed", zap.String("marketplace", string(code)), zap.Error(err))
		return nil, err
	}

	conn, err := s.findConnection(ctx, code)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		if conn, err = integration.NewChannelConnection(code); err != nil {
			return nil, err
		}
	}
	conn.Connect(token)
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Marketplace connected", zap.String("marketplace", string(code)), zap.String("seller", conn.SellerName))
	resp := toChannelResponse(m, conn)
	return &resp, nil
}

// Disconnect forgets the marketplace tokens
func (s *ChannelService) Disconnect(ctx context.Context, code integration.MarketplaceCode) error {
	if _, err := s.registry.Get(code); err != nil {
		return err
	}
	conn, err := s.findConnection(ctx, code)
	if err != nil {
		return err
	}
	if conn == nil {
		return integration.ErrMarketplaceNotConnected
	}
	conn.Disconnect()
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return err
	}
	s.logger.Info("Marketplace disconnected", zap.String("marketplace", string(code)))
	return nil
}

// Sync pulls orders from and pushes stock to one marketplace.
// Failures are recorded on the connection and published as sync.failed.
func (s *ChannelService) Sync(ctx context.Context, code integration.MarketplaceCode, opts SyncOptions) (*SyncResult, error) {
	m, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	conn, err := s.findConnection(ctx, code)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.IsActive() {
		return nil, integration.ErrMarketplaceNotConnected
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "channel", "sync", "marketplace", string(code))
	defer span.End()

	result := &SyncResult{Marketplace: code, StartedAt: s.now(), Failures: []integration.SyncFailure{}}
	ordersUntil, syncErr := s.sync(ctx, m, conn, opts, result)
	result.Duration = s.now().Sub(result.StartedAt)
	telemetry.SetAttributes(span,
		"orders_imported", result.OrdersImported,
		"stock_updated", result.StockUpdated,
		"failures", len(result.Failures),
	)

	if syncErr != nil {
		telemetry.RecordError(span, syncErr)
		result.Error = syncErr.Error()
		conn.MarkFailed(s.now(), syncErr)
		s.logger.Error("Marketplace sync failed", zap.String("marketplace", string(code)), zap.Error(syncErr))
	} else {
		conn.MarkSynced(result.StartedAt, ordersUntil, result.OrdersImported)
		s.logger.Info("Marketplace sync completed",
			zap.String("marketplace", string(code)),
			zap.Int("orders_imported", result.OrdersImported),
			zap.Int("orders_skipped", result.OrdersSkipped),
			zap.Int("stock_updated", result.StockUpdated),
			zap.Int("failures", len(result.Failures)),
			zap.Duration("duration", result.Duration),
		)
	}
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return result, err
	}
	if s.events != nil {
		event := integration.NewSyncEvent(conn, result.OrdersImported, result.StockUpdated, syncErr)
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish sync event", zap.Error(err))
		}
	}
	return result, syncErr
}

// sync runs the pull and push steps. It returns how far the order watermark may
// advance: the start of the run, held back to the earliest order that failed to
// import so the next pull fetches it again. Nil keeps the watermark in place.
func (s *ChannelService) sync(ctx context.Context, m integration.Marketplace, conn *integration.ChannelConnection, opts SyncOptions, result *SyncResult) (*time.Time, error) {
	if err := s.ensureToken(ctx, m, conn); err != nil {
		return nil, err
	}

	var ordersUntil *time.Time
	if opts.Orders {
		since := conn.OrdersSince()
		orders, err := m.PullOrders(ctx, conn.AccessToken, since)
		if err != nil {
			return nil, err
		}
		until := result.StartedAt
		ordersUntil = &until
		for _, mo := range orders {
			imported, err := s.orders.Import(ctx, m.Code(), mo)
			switch {
			case err != nil:
				result.Failures = append(result.Failures, integration.SyncFailure{Item: mo.ExternalID, Message: err.Error()})
				s.logger.Warn("Order import failed",
					zap.String("marketplace", string(m.Code())),
					zap.String("order", mo.ExternalID),
					zap.Error(err),
				)
				ordersUntil = holdBack(ordersUntil, since, mo.PlacedAt)
			case imported:
				result.OrdersImported++
			default:
				result.OrdersSkipped++
			}
		}
	}

	if opts.Stock {
		levels, err := s.stock.StockLevels(ctx)
		if err != nil {
			return nil, err
		}
		if len(levels) > 0 {
			pushed, err := m.PushStock(ctx, conn.AccessToken, levels)
			if pushed != nil {
				result.StockUpdated = pushed.Updated
				result.Failures = append(result.Failures, pushed.Failed...)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return ordersUntil, nil
}

// holdBack keeps the watermark before an order that has to be pulled again.
// Without a placement time the order can only be found again from since.
func holdBack(until *time.Time, since, placed time.Time) *time.Time {
	if until == nil || placed.IsZero() {
		return nil
	}
	// marketplaces filter on "placed after", so stay just before the order
	before := placed.Add(-time.Second)
	if !before.After(since) {
		return nil
	}
	if before.Before(*until) {
		return &before
	}
	return until
}

// ensureToken refreshes an access token that is about to expire
func (s *ChannelService) ensureToken(ctx context.Context, m integration.Marketplace, conn *integration.ChannelConnection) error {
	if !conn.TokenExpired(s.now(), tokenLeeway) {
		return nil
	}
	token, err := m.RefreshToken(ctx, conn.RefreshToken)
	if err != nil {
		return err
	}
	conn.RefreshWith(token)
	if err := s.connRepo.Save(ctx, conn); err != nil {
		return err
	}
	s.logger.Info("Access token refreshed", zap.String("marketplace", string(m.Code())))
	return nil
}

// Run synchronises every active connection and returns one result per marketplace
func (s *ChannelService) Run(ctx context.Context, opts SyncOptions) ([]SyncResult, error) {
	conns, err := s.connRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var (
		results []SyncResult
		errs    []error
	)
	for _, conn := range conns {
		if !conn.IsActive() {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, err := s.Sync(ctx, conn.Marketplace, opts)
		if result != nil {
			results = append(results, *result)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", conn.Marketplace, err))
		}
	}
	return results, errors.Join(errs...)
}

// SyncAll pulls orders and pushes stock for every active connection
func (s *ChannelService) SyncAll(ctx context.Context) error {
	_, err := s.Run(ctx, FullSync)
	return err
}

// Status summarises the connection and synchronisation state
func (s *ChannelService) Status(ctx context.Context) (*SyncStatus, error) {
	channels, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	status := &SyncStatus{Channels: channels}
	for _, c := range channels {
		if c.Connected {
			status.Connected++
		}
		if c.Status == string(integration.ConnectionError) {
			status.Failing++
		}
		if c.LastSyncAt != nil && (status.LastSyncAt == nil || c.LastSyncAt.After(*status.LastSyncAt)) {
			status.LastSyncAt = c.LastSyncAt
		}
	}
	return status, nil
}

func (s *ChannelService) findConnection(ctx context.Context, code integration.MarketplaceCode) (*integration.ChannelConnection, error) {
	conn, err := s.connRepo.FindByMarketplace(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
