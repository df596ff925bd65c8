package provider

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/cache"
)

// TokenSource supplies the access token a provider client authenticates with.
// Implementations must return provider.ErrNotConnected (or a wrapped sentinel)
// instead of an empty token.
type TokenSource interface {
	// Token returns a usable access token
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token from configuration. Used for
// providers authenticated with an org-level API token (Zendesk) and for
// development setups where a token is injected via environment.
type StaticTokenSource struct {
	token string
}

// NewStaticTokenSource creates a token source around a fixed token
func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

// Token returns the configured token
func (s *StaticTokenSource) Token(_ context.Context) (string, error) {
	if s.token == "" {
		return "", provider.ErrNotConfigured
	}
	return s.token, nil
}

// CachedTokenSource resolves a per-user token from the credential cache,
// falling back to a secondary source when the cache has no usable entry.
type CachedTokenSource struct {
	cache    cache.CredentialCache
	userID   uuid.UUID
	code     provider.Code
	fallback TokenSource
}

// NewCachedTokenSource creates a per-user token source backed by the
// credential cache. fallback may be nil.
func NewCachedTokenSource(credCache cache.CredentialCache, userID uuid.UUID, code provider.Code, fallback TokenSource) *CachedTokenSource {
	return &CachedTokenSource{
		cache:    credCache,
		userID:   userID,
		code:     code,
		fallback: fallback,
	}
}

// Token returns the cached token for the user, or the fallback token when the
// cache has no entry. The cache treats expired entries as absent, so a token
// returned here is always inside its validity window.
func (s *CachedTokenSource) Token(ctx context.Context) (string, error) {
	if s.cache != nil {
		cred, err := s.cache.Get(ctx, s.userID, s.code)
		if err == nil && cred != nil && cred.AccessToken != "" {
			return cred.AccessToken, nil
		}
	}

	if s.fallback != nil {
		return s.fallback.Token(ctx)
	}
	return "", provider.ErrNotConnected
}

// OAuth2TokenSource adapts a TokenSource to the oauth2.TokenSource interface
// so Google API clients can authenticate with cached credentials.
type OAuth2TokenSource struct {
	ctx context.Context
	src TokenSource
}

// NewOAuth2TokenSource wraps src for use with golang.org/x/oauth2 clients.
// The context is captured because oauth2.TokenSource.Token takes none.
func NewOAuth2TokenSource(ctx context.Context, src TokenSource) *OAuth2TokenSource {
	return &OAuth2TokenSource{ctx: ctx, src: src}
}

// Token returns the current access token as an oauth2 token
func (s *OAuth2TokenSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token}, nil
}

var _ oauth2.TokenSource = (*OAuth2TokenSource)(nil)
