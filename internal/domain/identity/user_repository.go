package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository is the persistence contract for users. All lookups
// are implicitly scoped to the organization carried by the database
// session.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail looks a user up by email within the organization.
	// Login and invitation checks go through this.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindAll returns a page of users plus the unpaged total.
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)

	// FindByRoleID lists the users holding a role, used before a role
	// can be deleted.
	FindByRoleID(ctx context.Context, roleID uuid.UUID) ([]*User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// SaveUserRoles replaces the user's role assignments with the set
	// on the aggregate.
	SaveUserRoles(ctx context.Context, user *User) error

	// LoadUserRoles populates the aggregate's roles from storage.
	LoadUserRoles(ctx context.Context, user *User) error

	Count(ctx context.Context) (int64, error)
}

// UserFilter narrows and pages user listings on the admin screen.
type UserFilter struct {
	// Keyword matches against email, name, and title.
	Keyword string

	Status *UserStatus
	RoleID *uuid.UUID

	Page     int
	PageSize int

	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewUserFilter returns page one of twenty, newest first.
func NewUserFilter() UserFilter {
	return UserFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// WithKeyword sets the search keyword.
func (f UserFilter) WithKeyword(keyword string) UserFilter {
	f.Keyword = keyword
	return f
}

// WithStatus filters by user status.
func (f UserFilter) WithStatus(status UserStatus) UserFilter {
	f.Status = &status
	return f
}

// WithRoleID filters to users holding the role.
func (f UserFilter) WithRoleID(roleID uuid.UUID) UserFilter {
	f.RoleID = &roleID
	return f
}

// WithPagination sets page and page size.
func (f UserFilter) WithPagination(page, pageSize int) UserFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// WithSorting sets the sort column and direction.
func (f UserFilter) WithSorting(sortBy, sortOrder string) UserFilter {
	f.SortBy = sortBy
	f.SortOrder = sortOrder
	return f
}

// Offset returns the row offset implied by Page.
func (f UserFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the effective page size, clamped to [1, 100].
func (f UserFilter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return 20
	case f.PageSize > 100:
		return 100
	}
	return f.PageSize
}
