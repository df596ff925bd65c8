package handler

import (
	"github.com/gin-gonic/gin"

	appaudit "github.com/briefing/backend/internal/application/audit"
	appbriefing "github.com/briefing/backend/internal/application/briefing"
	appconnection "github.com/briefing/backend/internal/application/connection"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/auth"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

// BriefingHandler handles the daily briefing endpoint
type BriefingHandler struct {
	BaseHandler
	briefingService   *appbriefing.Service
	connectionService *appconnection.Service
	auditService      *appaudit.Service
}

// NewBriefingHandler creates a new briefing handler
func NewBriefingHandler(
	briefingService *appbriefing.Service,
	connectionService *appconnection.Service,
	auditService *appaudit.Service,
) *BriefingHandler {
	return &BriefingHandler{
		briefingService:   briefingService,
		connectionService: connectionService,
		auditService:      auditService,
	}
}

// Get assembles and returns the caller's daily briefing
//
//	@ID			briefingGet
//	@Summary	Get the daily briefing
//	@Tags		Briefing
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[appbriefing.BriefingDTO]
//	@Failure	401	{object}	ErrorResponse
//	@Router		/briefing [get]
func (h *BriefingHandler) Get(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}
	orgID, err := claims.GetOrgUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	result, err := h.briefingService.GetBriefing(c.Request.Context(), orgID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.recordSyncHealth(c, result)
	h.recordViewed(c, claims, result)

	h.Success(c, result)
}

// Refresh drops the cached briefing so the next request re-fetches
//
//	@ID			briefingRefresh
//	@Summary	Invalidate the cached briefing
//	@Tags		Briefing
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	SuccessResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/briefing/refresh [post]
func (h *BriefingHandler) Refresh(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	h.briefingService.InvalidateCache(c.Request.Context(), userID)
	h.Success(c, gin.H{"message": "briefing cache invalidated"})
}

// recordSyncHealth pushes per-provider fetch outcomes back onto the
// connection records so the connections page can show sync status.
func (h *BriefingHandler) recordSyncHealth(c *gin.Context, result *appbriefing.BriefingDTO) {
	if h.connectionService == nil || len(result.Providers) == 0 {
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		return
	}
	results := make([]appconnection.FetchResult, 0, len(result.Providers))
	for _, p := range result.Providers {
		fr := appconnection.FetchResult{
			Provider: provider.Code(p.Code),
			Fetched:  p.Fetched,
		}
		if !p.Fetched {
			fr.Message = "fetch failed"
		}
		results = append(results, fr)
	}
	h.connectionService.RecordFetchResults(c.Request.Context(), userID, results)
}

func (h *BriefingHandler) recordViewed(c *gin.Context, claims *auth.Claims, result *appbriefing.BriefingDTO) {
	if h.auditService == nil {
		return
	}
	actor, orgID, err := actorFromClaims(c, claims)
	if err != nil {
		return
	}
	_ = h.auditService.Record(c.Request.Context(), appaudit.RecordInput{
		OrgID:          orgID,
		ActorID:        actor.ID,
		ActorEmail:     actor.Email,
		ImpersonatorID: actor.ImpersonatorID,
		Action:         audit.ActionBriefingViewed,
		TargetType:     "briefing",
		TargetID:       result.Date,
		IP:             actor.IP,
		UserAgent:      actor.UserAgent,
	})
}
