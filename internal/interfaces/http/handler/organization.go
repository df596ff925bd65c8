package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appidentity "github.com/briefing/backend/internal/application/identity"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

// OrganizationHandler handles organization management endpoints
type OrganizationHandler struct {
	BaseHandler
	orgService *appidentity.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *appidentity.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateOrganizationRequest is the organization creation request payload
type CreateOrganizationRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Domain  string `json:"domain" binding:"required,fqdn"`
	LogoURL string `json:"logo_url" binding:"omitempty,url"`
	Notes   string `json:"notes" binding:"max=500"`
}

// UpdateOrganizationRequest is the organization update request payload
type UpdateOrganizationRequest struct {
	Name    *string `json:"name" binding:"omitempty,max=200"`
	Domain  *string `json:"domain" binding:"omitempty,fqdn"`
	LogoURL *string `json:"logo_url" binding:"omitempty,url"`
	Notes   *string `json:"notes" binding:"omitempty,max=500"`
}

// UpdateOrgSettingsRequest is the organization settings update payload
type UpdateOrgSettingsRequest struct {
	Timezone         *string `json:"timezone"`
	EmailFetchLimit  *int    `json:"email_fetch_limit" binding:"omitempty,min=1,max=200"`
	TicketFetchLimit *int    `json:"ticket_fetch_limit" binding:"omitempty,min=1,max=200"`
	AnalysisEnabled  *bool   `json:"analysis_enabled"`
	MaxUsers         *int    `json:"max_users" binding:"omitempty,min=1"`
}

// OrganizationListResponse is the paginated organization list payload
type OrganizationListResponse struct {
	Organizations []appidentity.OrganizationDTO `json:"organizations"`
}

// Create creates a new organization
//
//	@ID			orgCreate
//	@Summary	Create an organization
//	@Tags		Organizations
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		CreateOrganizationRequest	true	"Organization data"
//	@Success	201		{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	409		{object}	ErrorResponse
//	@Router		/identity/organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), appidentity.CreateOrganizationInput{
		Name:    req.Name,
		Domain:  req.Domain,
		LogoURL: req.LogoURL,
		Notes:   req.Notes,
		Actor:   actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, org)
}

// Get returns a single organization by ID
//
//	@ID			orgGet
//	@Summary	Get an organization
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Organization ID"
//	@Success	200	{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	404	{object}	ErrorResponse
//	@Router		/identity/organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}

	org, err := h.orgService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, org)
}

// List returns organizations matching the filter, paginated
//
//	@ID			orgList
//	@Summary	List organizations
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		keyword		query		string	false	"Search in name and domain"
//	@Param		status		query		string	false	"Filter by status"	Enums(active, inactive, suspended)
//	@Param		page		query		int		false	"Page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"		default(20)
//	@Success	200			{object}	APIResponse[OrganizationListResponse]
//	@Router		/identity/organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	filter := appidentity.OrganizationFilter{
		Keyword: c.Query("keyword"),
		Status:  c.Query("status"),
		SortBy:  c.Query("sort_by"),
		SortDir: c.Query("sort_dir"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && size > 0 {
		filter.PageSize = size
	}

	result, err := h.orgService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, OrganizationListResponse{Organizations: result.Organizations},
		result.Total, result.Page, result.PageSize)
}

// Update updates an organization's profile fields
//
//	@ID			orgUpdate
//	@Summary	Update an organization
//	@Tags		Organizations
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"Organization ID"
//	@Param		request	body		UpdateOrganizationRequest	true	"Fields to update"
//	@Success	200		{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/organizations/{id} [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), appidentity.UpdateOrganizationInput{
		ID:      id,
		Name:    req.Name,
		Domain:  req.Domain,
		LogoURL: req.LogoURL,
		Notes:   req.Notes,
		Actor:   actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, org)
}

// UpdateSettings updates an organization's briefing settings
//
//	@ID			orgUpdateSettings
//	@Summary	Update organization settings
//	@Tags		Organizations
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"Organization ID"
//	@Param		request	body		UpdateOrgSettingsRequest	true	"Settings to update"
//	@Success	200		{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	404		{object}	ErrorResponse
//	@Router		/identity/organizations/{id}/settings [put]
func (h *OrganizationHandler) UpdateSettings(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req UpdateOrgSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	org, err := h.orgService.UpdateSettings(c.Request.Context(), id, appidentity.OrgSettingsInput{
		Timezone:         req.Timezone,
		EmailFetchLimit:  req.EmailFetchLimit,
		TicketFetchLimit: req.TicketFetchLimit,
		AnalysisEnabled:  req.AnalysisEnabled,
		MaxUsers:         req.MaxUsers,
	}, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, org)
}

// Activate transitions an organization to active status
//
//	@ID			orgActivate
//	@Summary	Activate an organization
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Organization ID"
//	@Success	200	{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/organizations/{id}/activate [post]
func (h *OrganizationHandler) Activate(c *gin.Context) {
	h.transition(c, h.orgService.Activate)
}

// Deactivate transitions an organization to inactive status
//
//	@ID			orgDeactivate
//	@Summary	Deactivate an organization
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Organization ID"
//	@Success	200	{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/organizations/{id}/deactivate [post]
func (h *OrganizationHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.orgService.Deactivate)
}

// Suspend suspends an organization, blocking all its users
//
//	@ID			orgSuspend
//	@Summary	Suspend an organization
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"Organization ID"
//	@Success	200	{object}	APIResponse[appidentity.OrganizationDTO]
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/organizations/{id}/suspend [post]
func (h *OrganizationHandler) Suspend(c *gin.Context) {
	h.transition(c, h.orgService.Suspend)
}

// Delete removes an inactive organization
//
//	@ID			orgDelete
//	@Summary	Delete an organization
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path	string	true	"Organization ID"
//	@Success	204
//	@Failure	422	{object}	ErrorResponse
//	@Router		/identity/organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	if err := h.orgService.Delete(c.Request.Context(), id, actor); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetStats returns counts of organizations by status
//
//	@ID			orgStats
//	@Summary	Organization statistics
//	@Tags		Organizations
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[appidentity.OrganizationStatsDTO]
//	@Router		/identity/organizations/stats [get]
func (h *OrganizationHandler) GetStats(c *gin.Context) {
	stats, err := h.orgService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

func (h *OrganizationHandler) transition(
	c *gin.Context,
	fn func(context.Context, uuid.UUID, appidentity.Actor) (*appidentity.OrganizationDTO, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return
	}
	actor, _, err := actorFromClaims(c, middleware.GetJWTClaims(c))
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	org, err := fn(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, org)
}
