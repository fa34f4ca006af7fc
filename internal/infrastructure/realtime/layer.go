package realtime

import (
	"context"
	"strings"
)

// Streams a client may subscribe to
const (
	StreamOrders        = "orders"
	StreamInventory     = "inventory"
	StreamNotifications = "notifications"
	StreamSync          = "sync"
)

// Streams lists every stream in subscription order
var Streams = []string{StreamOrders, StreamInventory, StreamNotifications, StreamSync}

// Layer delivers messages published to a group to every subscriber of that group,
// possibly across processes.
type Layer interface {
	Publish(ctx context.Context, group string, message []byte) error
	// Subscribe returns a channel of messages and a function that ends the subscription.
	// The subscription also ends when ctx is done.
	Subscribe(ctx context.Context, group string) (<-chan []byte, func(), error)
	Close() error
}

// NormalizeStream maps a channel name from a client identifier to a stream.
// "orders", "Orders" and "OrdersChannel" all resolve to "orders".
func NormalizeStream(name string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.TrimSuffix(s, "channel")
	for _, stream := range Streams {
		if s == stream {
			return stream, true
		}
	}
	return "", false
}
