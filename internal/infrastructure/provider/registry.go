package provider

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefing/backend/internal/domain/connection"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/cache"
)

// clientBuilder constructs a client bound to the given token source
type clientBuilder func(tokens TokenSource) (provider.Client, error)

type registryEntry struct {
	static TokenSource
	build  clientBuilder
	client provider.Client
}

// Registry implements the provider.Registry port. Clients are registered
// once at startup; per-user clients are built on demand with a token source
// that consults the credential cache before the static configuration.
type Registry struct {
	connections connection.Repository
	credentials cache.CredentialCache
	logger      *zap.Logger
	order       []provider.Code
	entries     map[provider.Code]*registryEntry
}

// NewRegistry creates an empty registry. connections and credentials may be
// nil; the registry then decides connectedness from static tokens alone.
func NewRegistry(connections connection.Repository, credentials cache.CredentialCache, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		connections: connections,
		credentials: credentials,
		logger:      logger,
		entries:     make(map[provider.Code]*registryEntry),
	}
}

// Register adds a provider client factory. The static token source backs
// users without cached credentials; build is invoked once here to validate
// the configuration and on every user binding afterwards.
func (r *Registry) Register(code provider.Code, static TokenSource, build clientBuilder) error {
	client, err := build(static)
	if err != nil {
		return err
	}

	if _, exists := r.entries[code]; !exists {
		r.order = append(r.order, code)
	}
	r.entries[code] = &registryEntry{
		static: static,
		build:  build,
		client: client,
	}
	return nil
}

// GetClient returns the statically configured client for the given code
func (r *Registry) GetClient(code provider.Code) (provider.Client, error) {
	entry, ok := r.entries[code]
	if !ok {
		return nil, provider.ErrUnknownProvider
	}
	return entry.client, nil
}

// ListClients returns all registered clients in registration order
func (r *Registry) ListClients() []provider.Client {
	clients := make([]provider.Client, 0, len(r.order))
	for _, code := range r.order {
		clients = append(clients, r.entries[code].client)
	}
	return clients
}

// ListConnected returns the clients worth querying for a user: providers the
// user has not explicitly disconnected, bound to the user's credentials, and
// reporting a usable token. Registration order is preserved so briefing
// fan-out is deterministic.
func (r *Registry) ListConnected(ctx context.Context, userID uuid.UUID) []provider.Client {
	clients := make([]provider.Client, 0, len(r.order))
	for _, code := range r.order {
		entry := r.entries[code]

		if r.connections != nil {
			conn, err := r.connections.FindByUserAndProvider(ctx, userID, code)
			if err == nil && conn != nil && !conn.IsActive() {
				continue
			}
		}

		tokens := NewCachedTokenSource(r.credentials, userID, code, entry.static)
		client, err := entry.build(tokens)
		if err != nil {
			r.logger.Warn("failed to bind provider client",
				zap.String("provider", code.String()),
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}

		if !client.IsConnected(ctx) {
			continue
		}
		clients = append(clients, client)
	}
	return clients
}

// Ensure Registry implements the provider.Registry interface
var _ provider.Registry = (*Registry)(nil)
