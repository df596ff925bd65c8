package provider

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/cache"
)

func TestStaticTokenSource(t *testing.T) {
	t.Run("configured token", func(t *testing.T) {
		src := NewStaticTokenSource("test_token")
		token, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "test_token", token)
	})

	t.Run("empty token", func(t *testing.T) {
		src := NewStaticTokenSource("")
		_, err := src.Token(context.Background())
		assert.ErrorIs(t, err, provider.ErrNotConfigured)
	})
}

func TestCachedTokenSource(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("cached credential wins over fallback", func(t *testing.T) {
		credCache := cache.NewInMemoryCredentialCache()
		defer credCache.Close()

		err := credCache.Set(ctx, userID, &cache.Credential{
			Provider:    provider.CodeOutlook,
			AccessToken: "cached_token",
			ExpiresAt:   time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		src := NewCachedTokenSource(credCache, userID, provider.CodeOutlook, NewStaticTokenSource("static_token"))
		token, err := src.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "cached_token", token)
	})

	t.Run("falls back when cache is empty", func(t *testing.T) {
		credCache := cache.NewInMemoryCredentialCache()
		defer credCache.Close()

		src := NewCachedTokenSource(credCache, userID, provider.CodeOutlook, NewStaticTokenSource("static_token"))
		token, err := src.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "static_token", token)
	})

	t.Run("expired credential falls back", func(t *testing.T) {
		credCache := cache.NewInMemoryCredentialCache()
		defer credCache.Close()

		err := credCache.Set(ctx, userID, &cache.Credential{
			Provider:    provider.CodeOutlook,
			AccessToken: "expired_token",
			ExpiresAt:   time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)

		src := NewCachedTokenSource(credCache, userID, provider.CodeOutlook, NewStaticTokenSource("static_token"))
		token, err := src.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "static_token", token)
	})

	t.Run("no cache and no fallback", func(t *testing.T) {
		src := NewCachedTokenSource(nil, userID, provider.CodeOutlook, nil)
		_, err := src.Token(ctx)
		assert.ErrorIs(t, err, provider.ErrNotConnected)
	})

	t.Run("keys are scoped per provider", func(t *testing.T) {
		credCache := cache.NewInMemoryCredentialCache()
		defer credCache.Close()

		err := credCache.Set(ctx, userID, &cache.Credential{
			Provider:    provider.CodeGmail,
			AccessToken: "gmail_token",
			ExpiresAt:   time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		src := NewCachedTokenSource(credCache, userID, provider.CodeZendesk, nil)
		_, err = src.Token(ctx)
		assert.ErrorIs(t, err, provider.ErrNotConnected)
	})
}

func TestOAuth2TokenSource(t *testing.T) {
	t.Run("wraps source token", func(t *testing.T) {
		src := NewOAuth2TokenSource(context.Background(), NewStaticTokenSource("oauth_token"))
		token, err := src.Token()
		require.NoError(t, err)
		assert.Equal(t, "oauth_token", token.AccessToken)
	})

	t.Run("propagates source error", func(t *testing.T) {
		src := NewOAuth2TokenSource(context.Background(), NewStaticTokenSource(""))
		_, err := src.Token()
		assert.ErrorIs(t, err, provider.ErrNotConfigured)
	})
}
