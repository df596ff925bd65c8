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

// UserHandler handles user management endpoints
type UserHandler struct {
	BaseHandler
	userService *appidentity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *appidentity.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Create creates a new user in the caller's organization
//
//	@ID			userCreate
//	@Summary	Create a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		CreateUserRequest	true	"User data"
//	@Success	201		{object}	APIResponse[UserResponse]
//	@Failure	409		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/identity/users [post]
func (h *UserHandler) Create(c *gin.Context) {
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

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	roleIDs := make([]uuid.UUID, 0, len(req.RoleIDs))
	for _, rid := range req.RoleIDs {
		id, err := uuid.Parse(rid)
		if err != nil {
			h.BadRequest(c, "Invalid role ID: "+rid)
			return
		}
		roleIDs = append(roleIDs, id)
	}

	user, err := h.userService.Create(c.Request.Context(), appidentity.CreateUserInput{
		OrgID:    orgID,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Title:    req.Title,
		Notes:    req.Notes,
		RoleIDs:  roleIDs,
		Actor:    actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toUserResponse(user))
}

// Get returns a single user by ID
//
//	@ID			userGet
//	@Summary	Get a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	APIResponse[UserResponse]
//	@Failure	404	{object}	ErrorResponse
//	@Router		/identity/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// List returns users matching the filter, paginated
//
//	@ID			userList
//	@Summary	List users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		keyword		query		string	false	"Search in email, name, title"
//	@Param		status		query		string	false	"Filter by status"	Enums(pending, active, locked, deactivated)
//	@Param		role_id		query		string	false	"Filter by role"
//	@Param		page		query		int		false	"Page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"		default(20)
//	@Success	200			{object}	APIResponse[UserListResponse]
//	@Router		/identity/users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := identity.NewUserFilter()
	filter.Keyword = c.Query("keyword")
	if s := c.Query("status"); s != "" {
		status := identity.UserStatus(s)
		filter.Status = &status
	}
	if r := c.Query("role_id"); r != "" {
		roleID, err := uuid.Parse(r)
		if err != nil {
			h.BadRequest(c, "Invalid role ID")
			return
		}
		filter.RoleID = &roleID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && size > 0 {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	result, err := h.userService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	users := make([]UserResponse, len(result.Users))
	for i := range result.Users {
		users[i] = toUserResponse(&result.Users[i])
	}
	h.SuccessWithMeta(c, UserListResponse{Users: users}, result.Total, result.Page, result.PageSize)
}

// Update updates a user's profile fields
//
//	@ID			userUpdate
//	@Summary	Update a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"User ID"
//	@Param		request	body		UpdateUserRequest	true	"Fields to update"
//	@Success	200		{object}	APIResponse[UserResponse]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.userService.Update(c.Request.Context(), appidentity.UpdateUserInput{
		ID:     id,
		Name:   req.Name,
		Title:  req.Title,
		Avatar: req.Avatar,
		Notes:  req.Notes,
		Actor:  actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// Delete removes a user
//
//	@ID			userDelete
//	@Summary	Delete a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"User ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/identity/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id, actor); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activate transitions a user to active status
//
//	@ID			userActivate
//	@Summary	Activate a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	APIResponse[UserResponse]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/users/{id}/activate [post]
func (h *UserHandler) Activate(c *gin.Context) {
	h.transition(c, h.userService.Activate)
}

// Deactivate transitions a user to deactivated status
//
//	@ID			userDeactivate
//	@Summary	Deactivate a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	APIResponse[UserResponse]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/users/{id}/deactivate [post]
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.userService.Deactivate)
}

// Unlock clears a user's lock
//
//	@ID			userUnlock
//	@Summary	Unlock a user
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{object}	APIResponse[UserResponse]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	h.transition(c, h.userService.Unlock)
}

// Lock locks a user's account for a duration
//
//	@ID			userLock
//	@Summary	Lock a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string			true	"User ID"
//	@Param		request	body		LockUserRequest	true	"Lock duration"
//	@Success	200		{object}	APIResponse[UserResponse]
//	@Failure	422		{object}	ErrorResponse
//	@Router		/identity/users/{id}/lock [post]
func (h *UserHandler) Lock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req LockUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	user, err := h.userService.Lock(c.Request.Context(), id,
		time.Duration(req.DurationMinutes)*time.Minute, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// AssignRoles replaces a user's role assignments
//
//	@ID			userAssignRoles
//	@Summary	Assign roles to a user
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string				true	"User ID"
//	@Param		request	body		AssignRolesRequest	true	"Role IDs"
//	@Success	200		{object}	APIResponse[UserResponse]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/users/{id}/roles [put]
func (h *UserHandler) AssignRoles(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	roleIDs := make([]uuid.UUID, 0, len(req.RoleIDs))
	for _, rid := range req.RoleIDs {
		roleID, err := uuid.Parse(rid)
		if err != nil {
			h.BadRequest(c, "Invalid role ID: "+rid)
			return
		}
		roleIDs = append(roleIDs, roleID)
	}

	user, err := h.userService.AssignRoles(c.Request.Context(), id, roleIDs, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}

// ResetPassword sets a new password for a user, as an admin
//
//	@ID			userResetPassword
//	@Summary	Reset a user's password
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string					true	"User ID"
//	@Param		request	body		ResetPasswordRequest	true	"New password"
//	@Success	200		{object}	SuccessResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), id, req.NewPassword, actor); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "password reset"})
}

// Count returns the total number of users
//
//	@ID			userCount
//	@Summary	Count users
//	@Tags		Users
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[CountData]
//	@Router		/identity/users/count [get]
func (h *UserHandler) Count(c *gin.Context) {
	count, err := h.userService.Count(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CountData{Count: count})
}

func (h *UserHandler) transition(
	c *gin.Context,
	fn func(context.Context, uuid.UUID, appidentity.Actor) (*appidentity.UserDTO, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	user, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUserResponse(user))
}
