package event

import (
	"context"
	"testing"

	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("order.received", "order.status_changed")

	registry.Register(handler, "order.received", "order.status_changed")

	handlers := registry.GetHandlers("order.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("order.status_changed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("inventory.low")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler() // No event types = wildcard

	registry.Register(handler)

	handlers := registry.GetHandlers("order.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("inventory.updated")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("order.received")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "order.received")
	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("order.received")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("sync.failed")
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcardHandler, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("order.received")
	handler2 := newMockHandler("order.received")

	registry.Register(handler1, "order.received")
	registry.Register(handler2, "order.received")

	handlers := registry.GetHandlers("order.received")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("order.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcardHandler := newMockHandler()

	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("inventory.updated")
	assert.Len(t, handlers, 1)

	registry.Unregister(wildcardHandler)

	handlers = registry.GetHandlers("inventory.updated")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_EventTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("order.received", "order.status_changed")

	registry.Register(handler, "order.received", "order.status_changed", "order.received")
	registry.Register(newMockHandler())

	assert.ElementsMatch(t, []string{"order.received", "order.status_changed"}, registry.EventTypes())
	assert.Len(t, registry.GetHandlers("order.received"), 2, "duplicate types register once")
}
