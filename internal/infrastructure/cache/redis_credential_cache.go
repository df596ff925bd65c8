package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCredentialCache implements CredentialCache using Redis. This is
// suitable for distributed deployments where multiple instances need to
// share cached tokens.
type RedisCredentialCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	keyPrefix  string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCredentialCache creates a new Redis-based credential cache
func NewRedisCredentialCache(cfg RedisConfig) (*RedisCredentialCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCredentialCache{
		client:     client,
		ownsClient: true,
		keyPrefix:  "provider:credential:",
	}, nil
}

// NewRedisCredentialCacheWithClient creates a cache with an existing Redis
// client. This is useful for testing or when sharing a client across
// components.
func NewRedisCredentialCacheWithClient(client *redis.Client, keyPrefix string) *RedisCredentialCache {
	if keyPrefix == "" {
		keyPrefix = "provider:credential:"
	}
	return &RedisCredentialCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a cached credential, nil if absent or expired
func (c *RedisCredentialCache) Get(ctx context.Context, userID uuid.UUID, code provider.Code) (*Credential, error) {
	key := c.keyPrefix + credentialKey(userID, code)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential from cache: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		// Corrupt entry, drop it
		c.client.Del(ctx, key)
		return nil, nil
	}
	if cred.IsExpired() {
		c.client.Del(ctx, key)
		return nil, nil
	}

	return &cred, nil
}

// Set stores a credential until its expiry
func (c *RedisCredentialCache) Set(ctx context.Context, userID uuid.UUID, cred *Credential) error {
	if cred == nil {
		return nil
	}

	ttl := time.Until(cred.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	key := c.keyPrefix + credentialKey(userID, cred.Provider)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache credential: %w", err)
	}

	return nil
}

// Delete removes a cached credential
func (c *RedisCredentialCache) Delete(ctx context.Context, userID uuid.UUID, code provider.Code) error {
	key := c.keyPrefix + credentialKey(userID, code)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Close closes the Redis client if this cache owns it
func (c *RedisCredentialCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisCredentialCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisCredentialCache implements CredentialCache
var _ CredentialCache = (*RedisCredentialCache)(nil)

// RedisBriefingCache implements BriefingCache using Redis
type RedisBriefingCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisBriefingCache creates a briefing payload cache sharing an existing
// Redis client
func NewRedisBriefingCache(client *redis.Client) *RedisBriefingCache {
	return &RedisBriefingCache{
		client:    client,
		keyPrefix: "briefing:payload:",
	}
}

// Get returns the cached payload, nil if absent
func (c *RedisBriefingCache) Get(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+userID.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read briefing from cache: %w", err)
	}
	return data, nil
}

// Set stores a payload with the given TTL
func (c *RedisBriefingCache) Set(ctx context.Context, userID uuid.UUID, payload []byte, ttl time.Duration) error {
	if len(payload) == 0 || ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.keyPrefix+userID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache briefing: %w", err)
	}
	return nil
}

// Invalidate drops the cached payload for a user
func (c *RedisBriefingCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, c.keyPrefix+userID.String()).Err()
}

// Ensure RedisBriefingCache implements BriefingCache
var _ BriefingCache = (*RedisBriefingCache)(nil)
