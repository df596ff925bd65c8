package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/briefing/backend/internal/application/identity"
	"github.com/briefing/backend/internal/interfaces/http/dto"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user with email and password
//
//	@ID			authLogin
//	@Summary	Login with email and password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		LoginRequest	true	"Login credentials"
//	@Success	200		{object}	APIResponse[LoginResponse]
//	@Failure	401		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		Token: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
		User: toAuthUser(result.User),
	})
}

// RefreshToken exchanges a refresh token for a new token pair
//
//	@ID			authRefreshToken
//	@Summary	Refresh access token
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		RefreshTokenRequest	true	"Refresh token"
//	@Success	200		{object}	APIResponse[RefreshTokenResponse]
//	@Failure	401		{object}	ErrorResponse
//	@Router		/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RefreshTokenResponse{
		Token: TokenResponse{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
	})
}

// Logout revokes the current access token
//
//	@ID			authLogout
//	@Summary	Logout and revoke the current token
//	@Tags		Auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[LogoutResponse]
//	@Failure	401	{object}	ErrorResponse
//	@Router		/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
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

	if err := h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		UserID:    userID,
		OrgID:     orgID,
		Email:     claims.Email,
		TokenJTI:  claims.ID,
		TokenTTL:  claims.GetRemainingTTL(),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LogoutResponse{Message: "logged out"})
}

// GetCurrentUser returns the authenticated user's profile and permissions
//
//	@ID			authGetCurrentUser
//	@Summary	Get current user
//	@Tags		Auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	APIResponse[CurrentUserResponse]
//	@Failure	401	{object}	ErrorResponse
//	@Router		/auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
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

	result, err := h.authService.GetCurrentUser(c.Request.Context(), identity.GetCurrentUserInput{
		UserID: userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CurrentUserResponse{
		User:          toAuthUser(result.User),
		Permissions:   result.Permissions,
		Impersonating: claims.IsImpersonating(),
	})
}

// ChangePassword changes the authenticated user's password
//
//	@ID			authChangePassword
//	@Summary	Change password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		ChangePasswordRequest	true	"Old and new password"
//	@Success	200		{object}	SuccessResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	422		{object}	ErrorResponse
//	@Router		/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), identity.ChangePasswordInput{
		UserID:      userID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "password changed"})
}

// Impersonate mints a short-lived token for an admin acting as another user
//
//	@ID			authImpersonate
//	@Summary	Impersonate a user
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		ImpersonateRequest	true	"Target user"
//	@Success	200		{object}	APIResponse[ImpersonateResponse]
//	@Failure	403		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/auth/impersonate [post]
func (h *AuthHandler) Impersonate(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	admin, orgID, err := actorFromClaims(c, claims)
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req ImpersonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		h.BadRequest(c, "Invalid target user ID")
		return
	}

	result, err := h.authService.Impersonate(c.Request.Context(), identity.ImpersonateInput{
		Admin:        admin,
		OrgID:        orgID,
		TargetUserID: targetID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ImpersonateResponse{
		AccessToken:          result.AccessToken,
		AccessTokenExpiresAt: result.AccessTokenExpiresAt,
		TokenType:            result.TokenType,
		Target:               toAuthUser(result.Target),
	})
}

// StopImpersonation revokes the impersonation token and records the exit
//
//	@ID			authStopImpersonation
//	@Summary	Stop impersonating
//	@Tags		Auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	SuccessResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/auth/impersonate [delete]
func (h *AuthHandler) StopImpersonation(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	if !claims.IsImpersonating() {
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "Not impersonating")
		return
	}
	adminID, err := claims.GetImpersonatorUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}
	targetID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}
	orgID, err := claims.GetOrgUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	if err := h.authService.StopImpersonation(c.Request.Context(), identity.StopImpersonationInput{
		Admin: identity.Actor{
			ID:        adminID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		},
		OrgID:        orgID,
		TargetUserID: targetID,
		TokenJTI:     claims.ID,
		TokenTTL:     claims.GetRemainingTTL(),
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "impersonation ended"})
}

// ForceLogout revokes every active session of a target user
//
//	@ID			authForceLogout
//	@Summary	Force logout a user
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		request	body		ForceLogoutRequest	true	"Target user and reason"
//	@Success	200		{object}	APIResponse[ForceLogoutResponse]
//	@Failure	403		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/auth/force-logout [post]
func (h *AuthHandler) ForceLogout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	admin, orgID, err := actorFromClaims(c, claims)
	if err != nil {
		h.Unauthorized(c, "Invalid token")
		return
	}

	var req ForceLogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	targetID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		h.BadRequest(c, "Invalid target user ID")
		return
	}

	result, err := h.authService.ForceLogout(c.Request.Context(), identity.ForceLogoutInput{
		Admin:        admin,
		OrgID:        orgID,
		TargetUserID: targetID,
		Reason:       req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ForceLogoutResponse{Message: result.Message})
}

func toAuthUser(u identity.UserInfo) AuthUserResponse {
	roleIDs := make([]string, len(u.RoleIDs))
	for i, rid := range u.RoleIDs {
		roleIDs[i] = rid.String()
	}
	return AuthUserResponse{
		ID:          u.ID.String(),
		OrgID:       u.OrgID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Title:       u.Title,
		Avatar:      u.Avatar,
		RoleIDs:     roleIDs,
		Permissions: u.Permissions,
	}
}
