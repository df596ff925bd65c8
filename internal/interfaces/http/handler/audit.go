package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appaudit "github.com/briefing/backend/internal/application/audit"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	BaseHandler
	auditService *appaudit.Service
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *appaudit.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditListResponse is the paginated audit trail payload
type AuditListResponse struct {
	Records []appaudit.RecordDTO `json:"records"`
}

// List returns the organization's audit trail, newest first
//
//	@ID			auditList
//	@Summary	List audit records
//	@Tags		Audit
//	@Produce	json
//	@Security	BearerAuth
//	@Param		actor_id	query		string	false	"Filter by actor"
//	@Param		action		query		string	false	"Filter by action"
//	@Param		target_type	query		string	false	"Filter by target type"
//	@Param		from		query		string	false	"RFC 3339 lower bound"
//	@Param		to			query		string	false	"RFC 3339 upper bound"
//	@Param		page		query		int		false	"Page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"		default(20)
//	@Success	200			{object}	APIResponse[AuditListResponse]
//	@Router		/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	query, ok := h.parseQuery(c)
	if !ok {
		return
	}

	result, err := h.auditService.List(c.Request.Context(), orgID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, AuditListResponse{Records: result.Records},
		result.Total, result.Page, result.PageSize)
}

// ListByActor returns one actor's audit trail across the organization
//
//	@ID			auditListByActor
//	@Summary	List audit records for one actor
//	@Tags		Audit
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id			path		string	true	"Actor user ID"
//	@Param		page		query		int		false	"Page number"	default(1)
//	@Param		page_size	query		int		false	"Page size"		default(20)
//	@Success	200			{object}	APIResponse[AuditListResponse]
//	@Router		/audit/actors/{id} [get]
func (h *AuditHandler) ListByActor(c *gin.Context) {
	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid actor ID")
		return
	}

	query, ok := h.parseQuery(c)
	if !ok {
		return
	}

	result, err := h.auditService.ListByActor(c.Request.Context(), actorID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, AuditListResponse{Records: result.Records},
		result.Total, result.Page, result.PageSize)
}

func (h *AuditHandler) parseQuery(c *gin.Context) (appaudit.ListQuery, bool) {
	query := appaudit.ListQuery{
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
	}
	if a := c.Query("actor_id"); a != "" {
		actorID, err := uuid.Parse(a)
		if err != nil {
			h.BadRequest(c, "Invalid actor ID")
			return query, false
		}
		query.ActorID = &actorID
	}
	if f := c.Query("from"); f != "" {
		from, err := time.Parse(time.RFC3339, f)
		if err != nil {
			h.BadRequest(c, "Invalid from timestamp")
			return query, false
		}
		query.From = &from
	}
	if t := c.Query("to"); t != "" {
		to, err := time.Parse(time.RFC3339, t)
		if err != nil {
			h.BadRequest(c, "Invalid to timestamp")
			return query, false
		}
		query.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && size > 0 {
		query.PageSize = size
	}
	return query, true
}
