package cache

import (
	"context"
	"testing"
	"time"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCredentialCache_SetGet(t *testing.T) {
	cache := NewInMemoryCredentialCache()
	defer cache.Close()

	ctx := context.Background()
	userID := uuid.New()

	cred := &Credential{
		Provider:     provider.CodeOutlook,
		AccessToken:  "tok-123",
		AccountEmail: "alice@acme.com",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	require.NoError(t, cache.Set(ctx, userID, cred))

	got, err := cache.Get(ctx, userID, provider.CodeOutlook)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-123", got.AccessToken)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(0), misses)
}

func TestInMemoryCredentialCache_MissingEntry(t *testing.T) {
	cache := NewInMemoryCredentialCache()
	defer cache.Close()

	got, err := cache.Get(context.Background(), uuid.New(), provider.CodeGmail)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, misses := cache.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInMemoryCredentialCache_ExpiredEntry(t *testing.T) {
	cache := NewInMemoryCredentialCache()
	defer cache.Close()

	ctx := context.Background()
	userID := uuid.New()

	// Already expired credentials are not stored
	require.NoError(t, cache.Set(ctx, userID, &Credential{
		Provider:    provider.CodeZendesk,
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	got, err := cache.Get(ctx, userID, provider.CodeZendesk)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryCredentialCache_Delete(t *testing.T) {
	cache := NewInMemoryCredentialCache()
	defer cache.Close()

	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, userID, &Credential{
		Provider:    provider.CodeOutlook,
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
	require.NoError(t, cache.Delete(ctx, userID, provider.CodeOutlook))

	got, err := cache.Get(ctx, userID, provider.CodeOutlook)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInMemoryCredentialCache_PerProviderKeys(t *testing.T) {
	cache := NewInMemoryCredentialCache()
	defer cache.Close()

	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, userID, &Credential{
		Provider: provider.CodeOutlook, AccessToken: "o", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, cache.Set(ctx, userID, &Credential{
		Provider: provider.CodeGmail, AccessToken: "g", ExpiresAt: time.Now().Add(time.Hour),
	}))

	outlook, err := cache.Get(ctx, userID, provider.CodeOutlook)
	require.NoError(t, err)
	gmail, err := cache.Get(ctx, userID, provider.CodeGmail)
	require.NoError(t, err)

	assert.Equal(t, "o", outlook.AccessToken)
	assert.Equal(t, "g", gmail.AccessToken)
}

func TestCredentialIsExpired(t *testing.T) {
	assert.True(t, (&Credential{ExpiresAt: time.Now().Add(-time.Minute)}).IsExpired())
	// Within the 30s skew window counts as expired
	assert.True(t, (&Credential{ExpiresAt: time.Now().Add(10 * time.Second)}).IsExpired())
	assert.False(t, (&Credential{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
}
