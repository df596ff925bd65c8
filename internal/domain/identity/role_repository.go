package identity

import (
	"context"

	"github.com/google/uuid"
)

// RoleFilter narrows role listings on the admin role screen.
type RoleFilter struct {
	// Keyword matches against code and name.
	Keyword      string
	IsEnabled    *bool
	IsSystemRole *bool

	Page  int
	Limit int
}

// RoleRepository is the persistence contract for roles. Unlike users,
// role lookups take the org explicitly: role resolution happens
// during login, before an org-scoped session exists.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)

	// FindByCode resolves a role by its code within an organization.
	// Seeded system roles like "admin" are looked up this way.
	FindByCode(ctx context.Context, orgID uuid.UUID, code string) (*Role, error)

	FindAll(ctx context.Context, orgID uuid.UUID, filter *RoleFilter) ([]*Role, error)
	Count(ctx context.Context, orgID uuid.UUID, filter *RoleFilter) (int64, error)
	ExistsByCode(ctx context.Context, orgID uuid.UUID, code string) (bool, error)

	// FindByIDs loads the roles named by a token's role_ids claim.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error)

	FindSystemRoles(ctx context.Context, orgID uuid.UUID) ([]*Role, error)

	// SavePermissions replaces the role's permission set with the one
	// on the aggregate.
	SavePermissions(ctx context.Context, role *Role) error

	// LoadPermissions populates the aggregate's permissions.
	LoadPermissions(ctx context.Context, role *Role) error

	// CountUsersWithRole reports how many users hold the role; deletes
	// are refused while it is nonzero.
	CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error)
}

// RoleWithUserCount pairs a role with its assignment count for the
// admin listing.
type RoleWithUserCount struct {
	Role      *Role
	UserCount int64
}
