package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// MemoryLayer is a process-local Layer
type MemoryLayer struct {
	mu     sync.RWMutex
	groups map[string]map[*memorySub]struct{}
	logger *zap.Logger
	closed bool
}

type memorySub struct {
	ch     chan []byte
	cancel func()
}

// NewMemoryLayer creates an in-process layer
func NewMemoryLayer(logger *zap.Logger) *MemoryLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryLayer{
		groups: make(map[string]map[*memorySub]struct{}),
		logger: logger,
	}
}

// Publish implements Layer. Slow subscribers lose messages instead of blocking publishers.
func (l *MemoryLayer) Publish(_ context.Context, group string, message []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for sub := range l.groups[group] {
		select {
		case sub.ch <- message:
		default:
			l.logger.Warn("dropping realtime message for slow subscriber", zap.String("group", group))
		}
	}
	return nil
}

// Subscribe implements Layer
func (l *MemoryLayer) Subscribe(ctx context.Context, group string) (<-chan []byte, func(), error) {
	sub := &memorySub{ch: make(chan []byte, subscriberBuffer)}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}, nil
	}
	if l.groups[group] == nil {
		l.groups[group] = make(map[*memorySub]struct{})
	}
	l.groups[group][sub] = struct{}{}
	l.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			close(done)
			l.mu.Lock()
			delete(l.groups[group], sub)
			if len(l.groups[group]) == 0 {
				delete(l.groups, group)
			}
			l.mu.Unlock()
			close(sub.ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			sub.cancel()
		case <-done:
		}
	}()
	return sub.ch, sub.cancel, nil
}

// Close implements Layer; existing subscriptions end
func (l *MemoryLayer) Close() error {
	l.mu.Lock()
	l.closed = true
	var subs []*memorySub
	for _, group := range l.groups {
		for sub := range group {
			subs = append(subs, sub)
		}
	}
	l.groups = make(map[string]map[*memorySub]struct{})
	l.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}

var _ Layer = (*MemoryLayer)(nil)
