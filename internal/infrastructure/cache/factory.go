package cache

import (
	"context"
	"fmt"

	"github.com/stockitup/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates stores based on configuration
type Factory struct {
	redisConfig         config.RedisConfig
	logger              *zap.Logger
	allowMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable.
// Default is true.
func WithMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:         cfg,
		logger:              zap.NewNop(),
		allowMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when REDIS_URL is set and reachable,
// and the in-memory store otherwise.
func (f *Factory) CreateStore(ctx context.Context) (Store, error) {
	if f.redisConfig.URL == "" {
		f.logger.Info("REDIS_URL not set, using in-memory cache")
		return NewMemoryStore(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig.URL)
	if err == nil {
		f.logger.Info("using Redis cache")
		return NewRedisStore(client, ""), nil
	}

	if !f.allowMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
		"State is not shared between processes.",
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}
