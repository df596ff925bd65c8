package connection

import (
	"time"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status represents the health of a provider connection
type Status string

const (
	StatusActive       Status = "active"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Connection represents a link between a user and an external provider
// account. A user has at most one connection per provider.
type Connection struct {
	shared.OrgAggregateRoot
	UserID       uuid.UUID     `gorm:"type:uuid;not null;index:idx_connections_user_provider,unique"`
	Provider     provider.Code `gorm:"type:varchar(20);not null;index:idx_connections_user_provider,unique"`
	AccountEmail string        `gorm:"type:varchar(255)"`
	Status       Status        `gorm:"type:varchar(20);not null;default:'active'"`
	LastSyncedAt *time.Time
	LastError    string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Connection) TableName() string {
	return "provider_connections"
}

// New creates an active connection for a user and provider
func New(orgID, userID uuid.UUID, code provider.Code, accountEmail string) (*Connection, error) {
	if !code.IsValid() {
		return nil, provider.ErrUnknownProvider
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}

	return &Connection{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		UserID:           userID,
		Provider:         code,
		AccountEmail:     accountEmail,
		Status:           StatusActive,
	}, nil
}

// MarkSynced records a successful fetch and clears any error state
func (c *Connection) MarkSynced() {
	now := time.Now()
	c.LastSyncedAt = &now
	c.Status = StatusActive
	c.LastError = ""
	c.UpdatedAt = now
	c.IncrementVersion()
}

// MarkError records a failed fetch. The connection stays usable; repeated
// errors are surfaced through Status so the dashboard can flag it.
func (c *Connection) MarkError(message string) {
	c.Status = StatusError
	c.LastError = message
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Disconnect marks the connection as disconnected by the user
func (c *Connection) Disconnect() error {
	if c.Status == StatusDisconnected {
		return shared.NewDomainError("ALREADY_DISCONNECTED", "Connection is already disconnected")
	}
	c.Status = StatusDisconnected
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// Reconnect reactivates a disconnected connection
func (c *Connection) Reconnect(accountEmail string) error {
	if c.Status == StatusActive {
		return shared.NewDomainError("ALREADY_CONNECTED", "Connection is already active")
	}
	c.Status = StatusActive
	c.LastError = ""
	if accountEmail != "" {
		c.AccountEmail = accountEmail
	}
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// IsActive returns true if the connection can be used for fetching
func (c *Connection) IsActive() bool {
	return c.Status == StatusActive || c.Status == StatusError
}
