package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appidentity "github.com/briefing/backend/internal/application/identity"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

// RoleHandler handles role management endpoints
type RoleHandler struct {
	BaseHandler
	roleService *appidentity.RoleService
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(roleService *appidentity.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// CreateRoleRequest is the role creation request payload
type CreateRoleRequest struct {
	Code        string   `json:"code" binding:"required,max=50"`
	Name        string   `json:"name" binding:"required,max=100"`
	Description string   `json:"description" binding:"max=500"`
	Permissions []string `json:"permissions"`
	SortOrder   int      `json:"sort_order"`
}

// UpdateRoleRequest is the role update request payload
type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	SortOrder   *int    `json:"sort_order"`
}

// SetPermissionsRequest is the permission assignment request payload
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// RoleResponse is the role response payload
type RoleResponse struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
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

// RoleListResponse is the paginated role list payload
type RoleListResponse struct {
	Roles []RoleResponse `json:"roles"`
}

// PermissionListResponse lists all known permission codes
type PermissionListResponse struct {
	Permissions []string `json:"permissions"`
}

func toRoleResponse(r *appidentity.RoleDTO) RoleResponse {
	return RoleResponse{
		ID:          r.ID.String(),
		OrgID:       r.OrgID.String(),
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		IsEnabled:   r.IsEnabled,
		SortOrder:   r.SortOrder,
		Permissions: r.Permissions,
		UserCount:   r.UserCount,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Create creates a new role in the caller's organization
//
//	@ID			roleCreate
//	@Summary	Create a role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		CreateRoleRequest	true	"Role data"
//	@Success	201		{object}	APIResponse[RoleResponse]
//	@Failure	409		{object}	ErrorResponse
//	@Router		/identity/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), appidentity.CreateRoleInput{
		OrgID:       orgID,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		SortOrder:   req.SortOrder,
		Actor:       actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toRoleResponse(role))
}

// Get returns a single role by ID
//
//	@ID			roleGet
//	@Summary	Get a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	APIResponse[RoleResponse]
//	@Failure	404	{object}	ErrorResponse
//	@Router		/identity/roles/{id} [get]
func (h *RoleHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}

	role, err := h.roleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRoleResponse(role))
}

// List returns the organization's roles, paginated
//
//	@ID			roleList
//	@Summary	List roles
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		keyword		query		string	false	"Search in code and name"
//	@Param		is_enabled	query		bool	false	"Filter by enabled status"
//	@Param		page		query		int		false	"Page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"		default(20)
//	@Success	200			{object}	APIResponse[RoleListResponse]
//	@Router		/identity/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter := &identity.RoleFilter{Page: 1, Limit: 20}
	filter.Keyword = c.Query("keyword")
	if e := c.Query("is_enabled"); e != "" {
		enabled, err := strconv.ParseBool(e)
		if err != nil {
			h.BadRequest(c, "Invalid is_enabled value")
			return
		}
		filter.IsEnabled = &enabled
	}
	if s := c.Query("is_system"); s != "" {
		system, err := strconv.ParseBool(s)
		if err != nil {
			h.BadRequest(c, "Invalid is_system value")
			return
		}
		filter.IsSystemRole = &system
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && size > 0 {
		filter.Limit = size
	}

	result, err := h.roleService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	roles := make([]RoleResponse, len(result.Roles))
	for i := range result.Roles {
		roles[i] = toRoleResponse(&result.Roles[i])
	}
	h.SuccessWithMeta(c, RoleListResponse{Roles: roles}, result.Total, result.Page, result.PageSize)
}

// Update updates a role's mutable fields
//
//	@ID			roleUpdate
//	@Summary	Update a role
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"Role ID"
//	@Param		request	body		UpdateRoleRequest	true	"Fields to update"
//	@Success	200		{object}	APIResponse[RoleResponse]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), appidentity.UpdateRoleInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Actor:       actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRoleResponse(role))
}

// Delete removes a non-system role with no assigned users
//
//	@ID			roleDelete
//	@Summary	Delete a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Role ID"
//	@Success	204
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	if err := h.roleService.Delete(c.Request.Context(), id, actor); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Enable enables a role
//
//	@ID			roleEnable
//	@Summary	Enable a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	APIResponse[RoleResponse]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/roles/{id}/enable [post]
func (h *RoleHandler) Enable(c *gin.Context) {
	h.transition(c, h.roleService.Enable)
}

// Disable disables a role
//
//	@ID			roleDisable
//	@Summary	Disable a role
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Role ID"
//	@Success	200	{object}	APIResponse[RoleResponse]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/roles/{id}/disable [post]
func (h *RoleHandler) Disable(c *gin.Context) {
	h.transition(c, h.roleService.Disable)
}

// SetPermissions replaces a role's permission set
//
//	@ID			roleSetPermissions
//	@Summary	Set role permissions
//	@Tags		Roles
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"Role ID"
//	@Param		request	body		SetPermissionsRequest	true	"Permission codes"
//	@Success	200		{object}	APIResponse[RoleResponse]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	role, err := h.roleService.SetPermissions(c.Request.Context(), id, req.Permissions, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRoleResponse(role))
}

// ListPermissions returns every permission code the system knows
//
//	@ID			roleListPermissions
//	@Summary	List permission codes
//	@Tags		Roles
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[PermissionListResponse]
//	@Router		/identity/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	h.Success(c, PermissionListResponse{Permissions: h.roleService.AllPermissionCodes()})
}

func (h *RoleHandler) transition(
	c *gin.Context,
	fn func(context.Context, uuid.UUID, appidentity.Actor) (*appidentity.RoleDTO, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid role ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	role, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRoleResponse(role))
}
