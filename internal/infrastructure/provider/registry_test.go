package provider

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/briefing/backend/internal/domain/connection"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/domain/shared"
	"github.com/briefing/backend/internal/infrastructure/cache"
)

// stubClient is a minimal provider.Client for registry tests
type stubClient struct {
	code   provider.Code
	tokens TokenSource
}

func (c *stubClient) Code() provider.Code { return c.code }

func (c *stubClient) IsConnected(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

func (c *stubClient) FetchRecentEmails(_ context.Context, _ int) ([]provider.RawEmail, error) {
	return []provider.RawEmail{}, nil
}

func (c *stubClient) FetchTodayEvents(_ context.Context) ([]provider.RawEvent, error) {
	return []provider.RawEvent{}, nil
}

func (c *stubClient) FetchOpenTickets(_ context.Context, _ int) ([]provider.RawTicket, error) {
	return []provider.RawTicket{}, nil
}

func stubBuilder(code provider.Code) clientBuilder {
	return func(tokens TokenSource) (provider.Client, error) {
		return &stubClient{code: code, tokens: tokens}, nil
	}
}

// fakeConnectionRepo stores connections in memory keyed by user and provider
type fakeConnectionRepo struct {
	conns map[string]*connection.Connection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]*connection.Connection)}
}

func (r *fakeConnectionRepo) key(userID uuid.UUID, code provider.Code) string {
	return userID.String() + ":" + code.String()
}

func (r *fakeConnectionRepo) Save(_ context.Context, conn *connection.Connection) error {
	r.conns[r.key(conn.UserID, conn.Provider)] = conn
	return nil
}

func (r *fakeConnectionRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (r *fakeConnectionRepo) FindByID(_ context.Context, _ uuid.UUID) (*connection.Connection, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeConnectionRepo) FindByUser(_ context.Context, _ uuid.UUID) ([]*connection.Connection, error) {
	return nil, nil
}

func (r *fakeConnectionRepo) FindByUserAndProvider(_ context.Context, userID uuid.UUID, code provider.Code) (*connection.Connection, error) {
	conn, ok := r.conns[r.key(userID, code)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return conn, nil
}

func (r *fakeConnectionRepo) CountByProvider(_ context.Context, _ uuid.UUID) (map[provider.Code]int64, error) {
	return map[provider.Code]int64{}, nil
}

func TestRegistry_GetClient(t *testing.T) {
	registry := NewRegistry(nil, nil, zap.NewNop())
	require.NoError(t, registry.Register(provider.CodeOutlook, NewStaticTokenSource("token"), stubBuilder(provider.CodeOutlook)))

	t.Run("registered provider", func(t *testing.T) {
		client, err := registry.GetClient(provider.CodeOutlook)
		require.NoError(t, err)
		assert.Equal(t, provider.CodeOutlook, client.Code())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := registry.GetClient(provider.CodeZendesk)
		assert.ErrorIs(t, err, provider.ErrUnknownProvider)
	})
}

func TestRegistry_Register_InvalidConfig(t *testing.T) {
	registry := NewRegistry(nil, nil, zap.NewNop())
	err := registry.Register(provider.CodeOutlook, NewStaticTokenSource("token"), func(tokens TokenSource) (provider.Client, error) {
		return NewOutlookClient(&OutlookConfig{}, tokens)
	})
	assert.ErrorIs(t, err, ErrOutlookConfigMissingBaseURL)
	assert.Empty(t, registry.ListClients())
}

func TestRegistry_ListClients(t *testing.T) {
	registry := NewRegistry(nil, nil, zap.NewNop())
	require.NoError(t, registry.Register(provider.CodeOutlook, NewStaticTokenSource("a"), stubBuilder(provider.CodeOutlook)))
	require.NoError(t, registry.Register(provider.CodeGmail, NewStaticTokenSource("b"), stubBuilder(provider.CodeGmail)))
	require.NoError(t, registry.Register(provider.CodeZendesk, NewStaticTokenSource("c"), stubBuilder(provider.CodeZendesk)))

	clients := registry.ListClients()
	require.Len(t, clients, 3)
	assert.Equal(t, provider.CodeOutlook, clients[0].Code())
	assert.Equal(t, provider.CodeGmail, clients[1].Code())
	assert.Equal(t, provider.CodeZendesk, clients[2].Code())
}

func TestRegistry_ListConnected(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userID := uuid.New()

	t.Run("static tokens only", func(t *testing.T) {
		registry := NewRegistry(nil, nil, zap.NewNop())
		require.NoError(t, registry.Register(provider.CodeOutlook, NewStaticTokenSource("token"), stubBuilder(provider.CodeOutlook)))
		require.NoError(t, registry.Register(provider.CodeGmail, NewStaticTokenSource(""), stubBuilder(provider.CodeGmail)))

		clients := registry.ListConnected(ctx, userID)
		require.Len(t, clients, 1)
		assert.Equal(t, provider.CodeOutlook, clients[0].Code())
	})

	t.Run("cached credential connects a user without static token", func(t *testing.T) {
		credCache := cache.NewInMemoryCredentialCache()
		defer credCache.Close()

		require.NoError(t, credCache.Set(ctx, userID, &cache.Credential{
			Provider:    provider.CodeGmail,
			AccessToken: "user_token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		registry := NewRegistry(nil, credCache, zap.NewNop())
		require.NoError(t, registry.Register(provider.CodeGmail, NewStaticTokenSource(""), stubBuilder(provider.CodeGmail)))

		clients := registry.ListConnected(ctx, userID)
		require.Len(t, clients, 1)

		otherUser := uuid.New()
		assert.Empty(t, registry.ListConnected(ctx, otherUser))
	})

	t.Run("disconnected connection excludes the provider", func(t *testing.T) {
		repo := newFakeConnectionRepo()
		conn, err := connection.New(orgID, userID, provider.CodeOutlook, "ceo@acme.com")
		require.NoError(t, err)
		require.NoError(t, conn.Disconnect())
		require.NoError(t, repo.Save(ctx, conn))

		registry := NewRegistry(repo, nil, zap.NewNop())
		require.NoError(t, registry.Register(provider.CodeOutlook, NewStaticTokenSource("token"), stubBuilder(provider.CodeOutlook)))

		assert.Empty(t, registry.ListConnected(ctx, userID))
	})

	t.Run("errored connection stays usable", func(t *testing.T) {
		repo := newFakeConnectionRepo()
		conn, err := connection.New(orgID, userID, provider.CodeOutlook, "ceo@acme.com")
		require.NoError(t, err)
		conn.MarkError("transient upstream failure")
		require.NoError(t, repo.Save(ctx, conn))

		registry := NewRegistry(repo, nil, zap.NewNop())
		require.NoError(t, registry.Register(provider.CodeOutlook, NewStaticTokenSource("token"), stubBuilder(provider.CodeOutlook)))

		assert.Len(t, registry.ListConnected(ctx, userID), 1)
	})
}
