package cache

import (
	"context"
	"time"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/google/uuid"
)

// Credential holds a provider access token for one user. Tokens are cached
// so briefing requests do not re-run the OAuth exchange on every fetch.
type Credential struct {
	Provider     provider.Code `json:"provider"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	AccountEmail string        `json:"account_email,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// IsExpired reports whether the credential is past its expiry. A small skew
// window avoids handing out tokens that expire mid-request.
func (c *Credential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt.Add(-30 * time.Second))
}

// CredentialCache stores provider credentials keyed by user and provider.
// Implementations must treat a missing entry as (nil, nil).
type CredentialCache interface {
	// Get retrieves a cached credential, nil if absent or expired
	Get(ctx context.Context, userID uuid.UUID, code provider.Code) (*Credential, error)

	// Set stores a credential until its expiry
	Set(ctx context.Context, userID uuid.UUID, cred *Credential) error

	// Delete removes a cached credential (e.g. on disconnect)
	Delete(ctx context.Context, userID uuid.UUID, code provider.Code) error

	// Close releases cache resources
	Close() error
}

// BriefingCache stores rendered briefing payloads per user so repeated
// dashboard loads within the TTL skip provider fetches entirely.
type BriefingCache interface {
	// Get returns the cached payload, nil if absent
	Get(ctx context.Context, userID uuid.UUID) ([]byte, error)

	// Set stores a payload with the given TTL
	Set(ctx context.Context, userID uuid.UUID, payload []byte, ttl time.Duration) error

	// Invalidate drops the cached payload for a user
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

func credentialKey(userID uuid.UUID, code provider.Code) string {
	return userID.String() + ":" + string(code)
}
