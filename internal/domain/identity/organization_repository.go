package identity

import (
	"context"

	"github.com/briefing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization persistence
type OrganizationRepository interface {
	// FindByID finds an organization by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)

	// FindByDomain finds an organization by its email domain
	FindByDomain(ctx context.Context, domain string) (*Organization, error)

	// FindAll finds all organizations matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Organization, error)

	// FindByStatus finds organizations by status
	FindByStatus(ctx context.Context, status OrgStatus, filter shared.Filter) ([]Organization, error)

	// Save creates or updates an organization
	Save(ctx context.Context, org *Organization) error

	// Delete deletes an organization
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts organizations matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByDomain checks if an organization with the given domain exists
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}
