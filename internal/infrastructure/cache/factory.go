package cache

import (
	"fmt"

	"github.com/briefing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CredentialCacheFactory creates credential caches based on configuration
type CredentialCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CredentialCacheFactoryOption is a functional option for configuring the factory
type CredentialCacheFactoryOption func(*CredentialCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CredentialCacheFactoryOption {
	return func(f *CredentialCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) CredentialCacheFactoryOption {
	return func(f *CredentialCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCredentialCacheFactory creates a new factory
func NewCredentialCacheFactory(cfg config.RedisConfig, opts ...CredentialCacheFactoryOption) *CredentialCacheFactory {
	f := &CredentialCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based credential cache
func (f *CredentialCacheFactory) CreateRedisCache() (CredentialCache, error) {
	cache, err := NewRedisCredentialCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis credential cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory credential cache
func (f *CredentialCacheFactory) CreateInMemoryCache() CredentialCache {
	return NewInMemoryCredentialCache(WithInMemoryLogger(f.logger))
}

// CreateCache tries Redis first and falls back to an in-memory cache when
// Redis is not available and the fallback is allowed.
func (f *CredentialCacheFactory) CreateCache() (CredentialCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis credential cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port))
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory credential cache",
		zap.Error(err))
	return f.CreateInMemoryCache(), nil
}
