// Package notification fans domain events out to the live cable streams and
// mails staff about the events that need attention.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/stockitup/backend/internal/domain/catalog"
	"github.com/stockitup/backend/internal/domain/identity"
	"github.com/stockitup/backend/internal/domain/integration"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/domain/trade"
	"github.com/stockitup/backend/internal/infrastructure/i18n"
	"github.com/stockitup/backend/internal/infrastructure/mail"
	"github.com/stockitup/backend/internal/infrastructure/realtime"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

const mailTimeout = 30 * time.Second

// Text is a notification title and detail in one language
type Text struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Action is a button shown with a notification
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// Notification is published on the notifications stream
type Notification struct {
	ID           string          `json:"id"`
	Event        string          `json:"event"`
	Level        string          `json:"level"`
	Title        string          `json:"title"`
	Detail       string          `json:"detail"`
	Direction    string          `json:"dir"`
	Actions      []Action        `json:"actions,omitempty"`
	Translations map[string]Text `json:"translations"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Envelope wraps a domain event on its own stream
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Broadcaster handles every domain event: it forwards the event to its stream,
// publishes a localized notification and mails staff about low stock and sync failures.
type Broadcaster struct {
	layer    realtime.Layer
	mailer   mail.Mailer
	users    identity.UserRepository
	language language.Tag
	appName  string
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster. mailer and users may be nil to disable staff mail.
func NewBroadcaster(
	layer realtime.Layer,
	mailer mail.Mailer,
	users identity.UserRepository,
	defaultLanguage language.Tag,
	appName string,
	logger *zap.Logger,
) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		layer:    layer,
		mailer:   mailer,
		users:    users,
		language: defaultLanguage,
		appName:  appName,
		logger:   logger.Named("notification"),
	}
}

// EventTypes implements shared.EventHandler; the broadcaster receives every event
func (b *Broadcaster) EventTypes() []string {
	return nil
}

// StreamFor maps an event type to the stream it is forwarded on
func StreamFor(eventType string) (string, bool) {
	switch eventType {
	case trade.EventTypeOrderReceived, trade.EventTypeOrderStatusChanged:
		return realtime.StreamOrders, true
	case catalog.EventTypeInventoryUpdated, catalog.EventTypeInventoryLow:
		return realtime.StreamInventory, true
	case integration.EventTypeSyncCompleted, integration.EventTypeSyncFailed:
		return realtime.StreamSync, true
	}
	return "", false
}

// Handle implements shared.EventHandler
func (b *Broadcaster) Handle(ctx context.Context, event shared.DomainEvent) error {
	if stream, ok := StreamFor(event.EventType()); ok {
		if err := b.publish(ctx, stream, Envelope{
			Type:       event.EventType(),
			OccurredAt: event.OccurredAt(),
			Data:       event,
		}); err != nil {
			return err
		}
	}

	n, ok := b.notificationFor(event)
	if !ok {
		return nil
	}
	if err := b.publish(ctx, realtime.StreamNotifications, n); err != nil {
		return err
	}
	if n.Level == LevelWarning || n.Level == LevelError {
		b.mailStaff(ctx, n)
	}
	return nil
}

func (b *Broadcaster) publish(ctx context.Context, stream string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification: encode %s message: %w", stream, err)
	}
	if err := b.layer.Publish(ctx, stream, data); err != nil {
		b.logger.Warn("Failed to publish to stream", zap.String("stream", stream), zap.Error(err))
		return err
	}
	return nil
}

// notificationFor builds the notification of an event, if it has one
func (b *Broadcaster) notificationFor(event shared.DomainEvent) (*Notification, bool) {
	var (
		level   string
		title   string
		detail  func(p *i18n.Printer) string
		actions []Action
	)

	switch e := event.(type) {
	case *trade.OrderEvent:
		if e.EventType() != trade.EventTypeOrderReceived {
			return nil, false
		}
		level, title = LevelInfo, i18n.OrderReceived
		detail = func(p *i18n.Printer) string {
			return p.T(i18n.OrderReceivedDetail, e.Reference, channelName(e.Channel))
		}
		actions = []Action{{Label: i18n.ActionView, URL: "/orders/" + e.OrderID.String() + "/"}}
	case *catalog.StockChangedEvent:
		if e.EventType() != catalog.EventTypeInventoryLow {
			return nil, false
		}
		level, title = LevelWarning, i18n.InventoryLow
		detail = func(p *i18n.Printer) string {
			return p.T(i18n.InventoryLowDetail, e.Name, e.SKU, e.Quantity)
		}
		actions = []Action{{Label: i18n.ActionView, URL: "/products/" + e.ProductID.String() + "/"}}
	case *integration.SyncEvent:
		name := e.Marketplace.DisplayName()
		if e.EventType() == integration.EventTypeSyncFailed {
			level, title = LevelError, i18n.ErrorOccurred
			detail = func(p *i18n.Printer) string { return p.T(i18n.SyncFailedDetail, name, e.Error) }
			actions = []Action{{Label: i18n.ActionDetails, URL: "/channels/"}}
		} else {
			level, title = LevelSuccess, i18n.SyncComplete
			detail = func(p *i18n.Printer) string {
				return p.T(i18n.SyncCompleteDetail, name, e.OrdersImported, e.StockPushed)
			}
		}
	default:
		return nil, false
	}
	actions = append(actions, Action{Label: i18n.ActionDismiss})

	translations := make(map[string]Text, len(i18n.Languages()))
	for _, code := range i18n.Languages() {
		p := i18n.NewPrinter(language.Make(code))
		translations[code] = Text{Title: p.T(title), Detail: detail(p)}
	}

	p := i18n.NewPrinter(b.language)
	text := translations[i18n.Code(b.language)]
	direction := "ltr"
	if i18n.IsRTL(b.language) {
		direction = "rtl"
	}
	return &Notification{
		ID:        event.EventID().String(),
		Event:     event.EventType(),
		Level:     level,
		Title:     text.Title,
		Detail:    text.Detail,
		Direction: direction,
		Actions: lo.Map(actions, func(a Action, _ int) Action {
			return Action{Label: p.T(a.Label), URL: a.URL}
		}),
		Translations: translations,
		CreatedAt:    event.OccurredAt(),
	}, true
}

// mailStaff sends the notification to every staff user in the background
func (b *Broadcaster) mailStaff(ctx context.Context, n *Notification) {
	if b.mailer == nil || b.users == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, mailTimeout)
		defer cancel()

		staff, err := b.users.FindStaff(ctx)
		if err != nil {
			b.logger.Error("Failed to load staff users", zap.Error(err))
			return
		}
		recipients := lo.Uniq(lo.FilterMap(staff, func(u identity.User, _ int) (string, bool) {
			return u.Email, u.IsActive && u.Email != ""
		}))
		if len(recipients) == 0 {
			return
		}

		msg := mail.Message{
			To:      recipients,
			Subject: fmt.Sprintf("[%s] %s", b.appName, n.Title),
			Body:    n.Detail + "\n",
		}
		if err := b.mailer.Send(ctx, msg); err != nil {
			b.logger.Error("Failed to mail staff", zap.String("event", n.Event), zap.Error(err))
			return
		}
		b.logger.Info("Staff notified", zap.String("event", n.Event), zap.Int("recipients", len(recipients)))
	}()
}

// Wait blocks until pending staff mail has been sent
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

func channelName(channel string) string {
	if code := integration.MarketplaceCode(channel); code.IsValid() {
		return code.DisplayName()
	}
	return channel
}

var _ shared.EventHandler = (*Broadcaster)(nil)
