package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/briefing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Permission is a value object identifying one allowed operation, encoded as
// "resource.action" (e.g. "users.create", "briefing.read").
type Permission struct {
	Resource    string
	Action      string
	Description string
}

// NewPermission creates a permission from resource and action
func NewPermission(resource, action string) (*Permission, error) {
	if err := validatePermissionPart(resource); err != nil {
		return nil, err
	}
	if err := validatePermissionPart(action); err != nil {
		return nil, err
	}
	return &Permission{
		Resource: strings.ToLower(resource),
		Action:   strings.ToLower(action),
	}, nil
}

// NewPermissionFromCode creates a permission from a "resource.action" code
func NewPermissionFromCode(code string) (*Permission, error) {
	parts := strings.SplitN(code, ".", 2)
	if len(parts) != 2 {
		return nil, shared.NewDomainError("INVALID_PERMISSION", "Permission code must be resource.action")
	}
	return NewPermission(parts[0], parts[1])
}

// Code returns the permission code
func (p Permission) Code() string {
	return p.Resource + "." + p.Action
}

// Equals returns true if both permissions identify the same operation
func (p Permission) Equals(other Permission) bool {
	return p.Resource == other.Resource && p.Action == other.Action
}

// Role represents a named set of permissions within an organization
type Role struct {
	shared.OrgAggregateRoot
	Code        string
	Name        string
	Description string
	IsSystem    bool
	IsEnabled   bool
	SortOrder   int
	Permissions []Permission // Stored in separate table, loaded by repository
}

// RolePermission represents the persistence of one granted permission
type RolePermission struct {
	RoleID    uuid.UUID
	Code      string
	CreatedAt time.Time
}

// NewRole creates a new custom role
func NewRole(orgID uuid.UUID, code, name string) (*Role, error) {
	if err := validateRoleCode(code); err != nil {
		return nil, err
	}
	if err := validateRoleName(name); err != nil {
		return nil, err
	}

	return &Role{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Code:             strings.ToLower(strings.TrimSpace(code)),
		Name:             strings.TrimSpace(name),
		IsEnabled:        true,
		Permissions:      make([]Permission, 0),
	}, nil
}

// NewSystemRole creates a built-in role that cannot be deleted
func NewSystemRole(orgID uuid.UUID, code, name string) (*Role, error) {
	role, err := NewRole(orgID, code, name)
	if err != nil {
		return nil, err
	}
	role.IsSystem = true
	return role, nil
}

// SetName renames the role
func (r *Role) SetName(name string) error {
	if err := validateRoleName(name); err != nil {
		return err
	}
	r.Name = strings.TrimSpace(name)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// SetDescription sets the role description
func (r *Role) SetDescription(description string) {
	r.Description = description
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// SetSortOrder sets the display sort order
func (r *Role) SetSortOrder(order int) {
	r.SortOrder = order
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// Enable enables the role
func (r *Role) Enable() error {
	if r.IsEnabled {
		return shared.NewDomainError("ALREADY_ENABLED", "Role is already enabled")
	}
	r.IsEnabled = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// Disable disables the role; system roles cannot be disabled
func (r *Role) Disable() error {
	if r.IsSystem {
		return shared.NewDomainError("SYSTEM_ROLE", "System roles cannot be disabled")
	}
	if !r.IsEnabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Role is already disabled")
	}
	r.IsEnabled = false
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// GrantPermission adds a permission to the role
func (r *Role) GrantPermission(perm Permission) error {
	for _, p := range r.Permissions {
		if p.Equals(perm) {
			return shared.NewDomainError("PERMISSION_EXISTS", "Permission is already granted")
		}
	}
	r.Permissions = append(r.Permissions, perm)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// GrantPermissionByCode adds a permission identified by code
func (r *Role) GrantPermissionByCode(code string) error {
	perm, err := NewPermissionFromCode(code)
	if err != nil {
		return err
	}
	return r.GrantPermission(*perm)
}

// RevokePermission removes a permission by code
func (r *Role) RevokePermission(code string) error {
	for i, p := range r.Permissions {
		if p.Code() == code {
			r.Permissions = append(r.Permissions[:i], r.Permissions[i+1:]...)
			r.UpdatedAt = time.Now()
			r.IncrementVersion()
			return nil
		}
	}
	return shared.NewDomainError("PERMISSION_NOT_FOUND", "Permission is not granted on this role")
}

// SetPermissions replaces all permissions on the role
func (r *Role) SetPermissions(permissions []Permission) error {
	deduped := make([]Permission, 0, len(permissions))
	for _, perm := range permissions {
		exists := false
		for _, p := range deduped {
			if p.Equals(perm) {
				exists = true
				break
			}
		}
		if !exists {
			deduped = append(deduped, perm)
		}
	}
	r.Permissions = deduped
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// HasPermission checks whether the role grants the permission code
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p.Code() == code {
			return true
		}
		// "resource.*" grants every action on the resource
		if p.Action == "*" && strings.HasPrefix(code, p.Resource+".") {
			return true
		}
	}
	return false
}

// CanDelete returns true if the role may be deleted
func (r *Role) CanDelete() bool {
	return !r.IsSystem
}

var roleCodeRegex = regexp.MustCompile(`^[a-z][a-z0-9_\-]*$`)

func validateRoleCode(code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	}
	if !roleCodeRegex.MatchString(code) {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code can only contain lowercase letters, digits, hyphen and underscore")
	}
	return nil
}

func validateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_ROLE_NAME", "Role name cannot exceed 100 characters")
	}
	return nil
}

func validatePermissionPart(part string) error {
	part = strings.TrimSpace(part)
	if part == "" {
		return shared.NewDomainError("INVALID_PERMISSION", "Permission resource and action cannot be empty")
	}
	if len(part) > 50 {
		return shared.NewDomainError("INVALID_PERMISSION", "Permission segment cannot exceed 50 characters")
	}
	return nil
}

// Built-in role codes seeded at bootstrap
const (
	RoleCodeAdmin      = "admin"
	RoleCodeManager    = "manager"
	RoleCodeUser       = "user"
	RoleCodeContractor = "contractor"
)

// Well-known permission codes
const (
	PermBriefingRead    = "briefing.read"
	PermUsersManage     = "users.manage"
	PermRolesManage     = "roles.manage"
	PermOrgsManage      = "organizations.manage"
	PermAuditRead       = "audit.read"
	PermConnectionsRead = "connections.read"
	PermImpersonate     = "users.impersonate"
)
