package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appconnection "github.com/briefing/backend/internal/application/connection"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

// ConnectionHandler handles provider connection endpoints
type ConnectionHandler struct {
	BaseHandler
	connectionService *appconnection.Service
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(connectionService *appconnection.Service) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

// ConnectRequest is the provider connection request payload
type ConnectRequest struct {
	Provider     string    `json:"provider" binding:"required,oneof=outlook gmail zendesk"`
	AccountEmail string    `json:"account_email" binding:"required,email"`
	AccessToken  string    `json:"access_token" binding:"required"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ConnectionListResponse lists the caller's provider connections
type ConnectionListResponse struct {
	Connections []appconnection.ConnectionDTO `json:"connections"`
}

// ProviderCountListResponse lists connection counts per provider
type ProviderCountListResponse struct {
	Providers []appconnection.ProviderCountDTO `json:"providers"`
}

// List returns the caller's connection state for every known provider
//
//	@ID			connectionList
//	@Summary	List provider connections
//	@Tags		Connections
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[ConnectionListResponse]
//	@Failure	401	{object}	ErrorResponse
//	@Router		/connections [get]
func (h *ConnectionHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	connections, err := h.connectionService.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ConnectionListResponse{Connections: connections})
}

// Connect links a provider account to the caller
//
//	@ID			connectionConnect
//	@Summary	Connect a provider
//	@Tags		Connections
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		ConnectRequest	true	"Provider credentials"
//	@Success	201		{object}	APIResponse[appconnection.ConnectionDTO]
//	@Failure	409		{object}	ErrorResponse
//	@Router		/connections [post]
func (h *ConnectionHandler) Connect(c *gin.Context) {
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

	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	conn, err := h.connectionService.Connect(c.Request.Context(), appconnection.ConnectInput{
		OrgID:        orgID,
		UserID:       userID,
		Provider:     provider.Code(req.Provider),
		AccountEmail: req.AccountEmail,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
		Actor: appconnection.Actor{
			ID:        userID,
			Email:     claims.Email,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, conn)
}

// Disconnect unlinks a provider account from the caller
//
//	@ID			connectionDisconnect
//	@Summary	Disconnect a provider
//	@Tags		Connections
//	@Produce	json
//	@Security	BearerAuth
//	@Param		provider	path	string	true	"Provider code"	Enums(outlook, gmail, zendesk)
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/connections/{provider} [delete]
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
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

	code := provider.Code(c.Param("provider"))
	if !code.IsValid() {
		h.BadRequest(c, "Unknown provider: "+c.Param("provider"))
		return
	}

	if err := h.connectionService.Disconnect(c.Request.Context(), appconnection.DisconnectInput{
		OrgID:    orgID,
		UserID:   userID,
		Provider: code,
		Actor: appconnection.Actor{
			ID:        userID,
			Email:     claims.Email,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// CountByProvider returns connection counts per provider for the caller's
// organization
//
//	@ID			connectionCountByProvider
//	@Summary	Connection counts per provider
//	@Tags		Connections
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[ProviderCountListResponse]
//	@Router		/connections/stats [get]
func (h *ConnectionHandler) CountByProvider(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	counts, err := h.connectionService.CountByProvider(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ProviderCountListResponse{Providers: counts})
}
