package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/briefing/backend/internal/application/audit"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/domain/shared"
)

// RoleService handles role management operations
type RoleService struct {
	roleRepo identity.RoleRepository
	audits   *appaudit.Service
	logger   *zap.Logger
}

// NewRoleService creates a new role service. audits is optional.
func NewRoleService(
	roleRepo identity.RoleRepository,
	audits *appaudit.Service,
	logger *zap.Logger,
) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{
		roleRepo: roleRepo,
		audits:   audits,
		logger:   logger,
	}
}

// CreateRoleInput contains input for creating a role
type CreateRoleInput struct {
	OrgID       uuid.UUID
	Code        string
	Name        string
	Description string
	Permissions []string // Permission codes like "briefing.read"
	SortOrder   int
	Actor       Actor
}

// UpdateRoleInput contains input for updating a role
type UpdateRoleInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	SortOrder   *int
	Actor       Actor
}

// RoleDTO represents role data transfer object
type RoleDTO struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	IsEnabled   bool      `json:"is_enabled"`
	SortOrder   int       `json:"sort_order"`
	Permissions []string  `json:"permissions"`
	UserCount   int64     `json:"user_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleListResult represents paginated role list result
type RoleListResult struct {
	Roles      []RoleDTO `json:"roles"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// Create creates a new role
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	s.logger.Info("Creating new role",
		zap.String("code", input.Code),
		zap.String("org_id", input.OrgID.String()))

	exists, err := s.roleRepo.ExistsByCode(ctx, input.OrgID, input.Code)
	if err != nil {
		s.logger.Error("Failed to check role code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check role code availability")
	}
	if exists {
		return nil, shared.NewDomainError("ROLE_CODE_EXISTS", "Role code already exists")
	}

	role, err := identity.NewRole(input.OrgID, input.Code, input.Name)
	if err != nil {
		return nil, err
	}

	if input.Description != "" {
		role.SetDescription(input.Description)
	}
	if input.SortOrder != 0 {
		role.SetSortOrder(input.SortOrder)
	}

	for _, permCode := range input.Permissions {
		if err := role.GrantPermissionByCode(permCode); err != nil {
			// Skip duplicate errors silently
			if domainErr, ok := err.(*shared.DomainError); ok && domainErr.Code == "PERMISSION_EXISTS" {
				continue
			}
			return nil, err
		}
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		s.logger.Error("Failed to create role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create role")
	}

	if len(role.Permissions) > 0 {
		if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
			s.logger.Error("Failed to save role permissions", zap.Error(err))
			_ = s.roleRepo.Delete(ctx, role.ID)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save role permissions")
		}
	}

	s.record(ctx, input.Actor, role.OrgID, audit.ActionRoleCreated, role.ID, "Created role "+role.Code)

	s.logger.Info("Role created successfully",
		zap.String("role_id", role.ID.String()),
		zap.String("code", role.Code))

	return toRoleDTO(role), nil
}

// GetByID retrieves a role by ID
func (s *RoleService) GetByID(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}

	s.loadPermissions(ctx, role)
	dto := toRoleDTO(role)

	if userCount, err := s.roleRepo.CountUsersWithRole(ctx, id); err == nil {
		dto.UserCount = userCount
	}

	return dto, nil
}

// GetByCode retrieves a role by code
func (s *RoleService) GetByCode(ctx context.Context, orgID uuid.UUID, code string) (*RoleDTO, error) {
	role, err := s.roleRepo.FindByCode(ctx, orgID, code)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}

	s.loadPermissions(ctx, role)
	dto := toRoleDTO(role)

	if userCount, err := s.roleRepo.CountUsersWithRole(ctx, role.ID); err == nil {
		dto.UserCount = userCount
	}

	return dto, nil
}

// List retrieves a paginated list of roles
func (s *RoleService) List(ctx context.Context, orgID uuid.UUID, filter *identity.RoleFilter) (*RoleListResult, error) {
	roles, err := s.roleRepo.FindAll(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}

	total, err := s.roleRepo.Count(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to count roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count roles")
	}

	pageSize := 20
	page := 1
	if filter != nil {
		if filter.Limit > 0 {
			pageSize = filter.Limit
		}
		if filter.Page > 0 {
			page = filter.Page
		}
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	roleDTOs := make([]RoleDTO, len(roles))
	for i, role := range roles {
		s.loadPermissions(ctx, role)
		dto := toRoleDTO(role)
		if userCount, err := s.roleRepo.CountUsersWithRole(ctx, role.ID); err == nil {
			dto.UserCount = userCount
		}
		roleDTOs[i] = *dto
	}

	return &RoleListResult{
		Roles:      roleDTOs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update updates a role's information
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.findRole(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := role.SetName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		role.SetDescription(*input.Description)
	}
	if input.SortOrder != nil {
		role.SetSortOrder(*input.SortOrder)
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.loadPermissions(ctx, role)
	s.record(ctx, input.Actor, role.OrgID, audit.ActionRoleUpdated, role.ID, "Updated role "+role.Code)

	s.logger.Info("Role updated", zap.String("role_id", input.ID.String()))

	return toRoleDTO(role), nil
}

// Delete deletes a role
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}

	if !role.CanDelete() {
		return shared.NewDomainError("CANNOT_DELETE_SYSTEM_ROLE", "System roles cannot be deleted")
	}

	userCount, err := s.roleRepo.CountUsersWithRole(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count users with role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to check role usage")
	}
	if userCount > 0 {
		return shared.NewDomainError("ROLE_IN_USE", "Cannot delete role that is assigned to users")
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}

	s.record(ctx, actor, role.OrgID, audit.ActionRoleDeleted, role.ID, "Deleted role "+role.Code)

	s.logger.Info("Role deleted", zap.String("role_id", id.String()))

	return nil
}

// Enable enables a role
func (s *RoleService) Enable(ctx context.Context, id uuid.UUID, actor Actor) (*RoleDTO, error) {
	return s.transition(ctx, id, actor, "Enabled role", func(r *identity.Role) error {
		return r.Enable()
	})
}

// Disable disables a role
func (s *RoleService) Disable(ctx context.Context, id uuid.UUID, actor Actor) (*RoleDTO, error) {
	return s.transition(ctx, id, actor, "Disabled role", func(r *identity.Role) error {
		return r.Disable()
	})
}

// SetPermissions sets permissions for a role (replaces existing permissions)
func (s *RoleService) SetPermissions(ctx context.Context, roleID uuid.UUID, permissionCodes []string, actor Actor) (*RoleDTO, error) {
	role, err := s.findRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	permissions := make([]identity.Permission, 0, len(permissionCodes))
	for _, code := range permissionCodes {
		perm, err := identity.NewPermissionFromCode(code)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, *perm)
	}

	if err := role.SetPermissions(permissions); err != nil {
		return nil, err
	}

	if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
		s.logger.Error("Failed to save role permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save permissions")
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.record(ctx, actor, role.OrgID, audit.ActionRoleUpdated, role.ID, "Changed permissions on role "+role.Code)

	s.logger.Info("Role permissions updated",
		zap.String("role_id", roleID.String()),
		zap.Int("permission_count", len(permissions)))

	return toRoleDTO(role), nil
}

// AllPermissionCodes returns the permission codes the application knows about
func (s *RoleService) AllPermissionCodes() []string {
	return []string{
		identity.PermBriefingRead,
		identity.PermConnectionsRead,
		identity.PermUsersManage,
		identity.PermRolesManage,
		identity.PermOrgsManage,
		identity.PermAuditRead,
		identity.PermImpersonate,
	}
}

// GetSystemRoles returns all system roles for an organization
func (s *RoleService) GetSystemRoles(ctx context.Context, orgID uuid.UUID) ([]RoleDTO, error) {
	roles, err := s.roleRepo.FindSystemRoles(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to find system roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find system roles")
	}

	roleDTOs := make([]RoleDTO, len(roles))
	for i, role := range roles {
		s.loadPermissions(ctx, role)
		roleDTOs[i] = *toRoleDTO(role)
	}

	return roleDTOs, nil
}

// Count returns the total number of roles for an organization
func (s *RoleService) Count(ctx context.Context, orgID uuid.UUID) (int64, error) {
	return s.roleRepo.Count(ctx, orgID, nil)
}

func (s *RoleService) transition(ctx context.Context, id uuid.UUID, actor Actor, detail string, apply func(*identity.Role) error) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(role); err != nil {
		return nil, err
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}

	s.loadPermissions(ctx, role)
	s.record(ctx, actor, role.OrgID, audit.ActionRoleUpdated, role.ID, detail+" "+role.Code)

	s.logger.Info("Role updated", zap.String("role_id", id.String()))

	return toRoleDTO(role), nil
}

func (s *RoleService) findRole(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}
	return role, nil
}

func (s *RoleService) loadPermissions(ctx context.Context, role *identity.Role) {
	if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
		s.logger.Error("Failed to load role permissions",
			zap.String("role_id", role.ID.String()),
			zap.Error(err))
	}
}

func (s *RoleService) record(ctx context.Context, actor Actor, orgID uuid.UUID, action audit.Action, targetID uuid.UUID, detail string) {
	if s.audits == nil || actor.ID == uuid.Nil {
		return
	}
	err := s.audits.Record(ctx, appaudit.RecordInput{
		OrgID:          orgID,
		ActorID:        actor.ID,
		ActorEmail:     actor.Email,
		ImpersonatorID: actor.ImpersonatorID,
		Action:         action,
		TargetType:     "role",
		TargetID:       targetID.String(),
		Detail:         detail,
		IP:             actor.IP,
		UserAgent:      actor.UserAgent,
	})
	if err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// toRoleDTO converts domain Role to RoleDTO
func toRoleDTO(role *identity.Role) *RoleDTO {
	permissions := make([]string, len(role.Permissions))
	for i, perm := range role.Permissions {
		permissions[i] = perm.Code()
	}

	return &RoleDTO{
		ID:          role.ID,
		OrgID:       role.OrgID,
		Code:        role.Code,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		IsEnabled:   role.IsEnabled,
		SortOrder:   role.SortOrder,
		Permissions: permissions,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}
