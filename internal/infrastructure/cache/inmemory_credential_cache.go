package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cleanup cadence for expired in-memory entries
const defaultCleanupInterval = 30 * time.Second

// InMemoryCredentialCache implements CredentialCache using process-local
// storage. Suitable for single-instance deployments and testing.
// WARNING: in-memory caches do not share state across process instances.
type InMemoryCredentialCache struct {
	entries sync.Map // map[string]*credentialEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	// Stats for monitoring
	hits   int64
	misses int64
}

type credentialEntry struct {
	cred      *Credential
	expiresAt time.Time
}

func (e *credentialEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryCredentialCacheOption is a functional option for configuring the cache
type InMemoryCredentialCacheOption func(*InMemoryCredentialCache)

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryCredentialCacheOption {
	return func(c *InMemoryCredentialCache) {
		c.logger = logger
	}
}

// NewInMemoryCredentialCache creates a new in-memory credential cache
func NewInMemoryCredentialCache(opts ...InMemoryCredentialCacheOption) *InMemoryCredentialCache {
	cache := &InMemoryCredentialCache{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached credential, nil if absent or expired
func (c *InMemoryCredentialCache) Get(ctx context.Context, userID uuid.UUID, code provider.Code) (*Credential, error) {
	key := credentialKey(userID, code)

	if value, ok := c.entries.Load(key); ok {
		entry := value.(*credentialEntry)
		if !entry.isExpired() && !entry.cred.IsExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("credential cache hit", zap.String("key", key))
			return entry.cred, nil
		}
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("credential cache miss", zap.String("key", key))
	return nil, nil
}

// Set stores a credential until its expiry
func (c *InMemoryCredentialCache) Set(ctx context.Context, userID uuid.UUID, cred *Credential) error {
	if cred == nil || cred.IsExpired() {
		return nil
	}

	key := credentialKey(userID, cred.Provider)
	c.entries.Store(key, &credentialEntry{
		cred:      cred,
		expiresAt: cred.ExpiresAt,
	})
	return nil
}

// Delete removes a cached credential
func (c *InMemoryCredentialCache) Delete(ctx context.Context, userID uuid.UUID, code provider.Code) error {
	c.entries.Delete(credentialKey(userID, code))
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryCredentialCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *InMemoryCredentialCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries
func (c *InMemoryCredentialCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value interface{}) bool {
				if value.(*credentialEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Ensure InMemoryCredentialCache implements CredentialCache
var _ CredentialCache = (*InMemoryCredentialCache)(nil)
