package connection

import (
	"context"

	"github.com/briefing/backend/internal/domain/provider"
	"github.com/google/uuid"
)

// Repository defines the interface for connection persistence
type Repository interface {
	// Save creates or updates a connection
	Save(ctx context.Context, conn *Connection) error

	// Delete deletes a connection
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a connection by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)

	// FindByUser finds all connections for a user
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Connection, error)

	// FindByUserAndProvider finds a user's connection for one provider
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, code provider.Code) (*Connection, error)

	// CountByProvider counts connections per provider for an organization
	CountByProvider(ctx context.Context, orgID uuid.UUID) (map[provider.Code]int64, error)
}
