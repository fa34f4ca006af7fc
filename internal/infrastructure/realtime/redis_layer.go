package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultChannelPrefix = "stockitup:channels:"

// RedisLayer is a Layer over Redis pub/sub, shared by every process using the same Redis
type RedisLayer struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLayer creates a layer over an existing client
func NewRedisLayer(client *redis.Client, logger *zap.Logger) *RedisLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLayer{client: client, prefix: defaultChannelPrefix, logger: logger}
}

// Publish implements Layer
func (l *RedisLayer) Publish(ctx context.Context, group string, message []byte) error {
	if err := l.client.Publish(ctx, l.prefix+group, message).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", group, err)
	}
	return nil
}

// Subscribe implements Layer. It returns once Redis has confirmed the subscription.
func (l *RedisLayer) Subscribe(ctx context.Context, group string) (<-chan []byte, func(), error) {
	ps := l.client.Subscribe(ctx, l.prefix+group)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe to %s: %w", group, err)
	}

	ctx, cancelCtx := context.WithCancel(ctx)
	out := make(chan []byte, subscriberBuffer)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelCtx()
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		defer cancel()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					l.logger.Warn("dropping realtime message for slow subscriber", zap.String("group", group))
				}
			}
		}
	}()
	return out, cancel, nil
}

// Close is a no-op; the client is owned by the cache
func (l *RedisLayer) Close() error {
	return nil
}

var _ Layer = (*RedisLayer)(nil)
