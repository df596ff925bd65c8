package connection

import (
	"time"

	"github.com/google/uuid"

	"github.com/briefing/backend/internal/domain/provider"
)

// Actor identifies who performed a connection change, for audit attribution
type Actor struct {
	ID        uuid.UUID
	Email     string
	IP        string
	UserAgent string
}

// ConnectInput contains the input for connecting a provider account
type ConnectInput struct {
	OrgID        uuid.UUID
	UserID       uuid.UUID
	Provider     provider.Code
	AccountEmail string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Actor        Actor
}

// DisconnectInput contains the input for disconnecting a provider account
type DisconnectInput struct {
	OrgID    uuid.UUID
	UserID   uuid.UUID
	Provider provider.Code
	Actor    Actor
}

// FetchResult reports the outcome of one provider fetch so the connection
// record can track sync health
type FetchResult struct {
	Provider provider.Code
	Fetched  bool
	Message  string
}

// ConnectionDTO represents one provider's connection state for a user
type ConnectionDTO struct {
	Provider     string     `json:"provider"`
	DisplayName  string     `json:"display_name"`
	Connected    bool       `json:"connected"`
	Status       string     `json:"status"`
	AccountEmail string     `json:"account_email,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// ProviderCountDTO represents connection counts per provider for an organization
type ProviderCountDTO struct {
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	Count       int64  `json:"count"`
}
