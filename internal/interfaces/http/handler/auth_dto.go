package handler

import "time"

// LoginRequest is the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"ceo@acme.com"`
	Password string `json:"password" binding:"required,min=8" example:"secret123"`
}

// TokenResponse contains the issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// AuthUserResponse contains user info returned by auth endpoints
type AuthUserResponse struct {
	ID          string   `json:"id"`
	OrgID       string   `json:"org_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	RoleIDs     []string `json:"role_ids"`
	Permissions []string `json:"permissions"`
}

// LoginResponse is the login response payload
type LoginResponse struct {
	Token TokenResponse    `json:"token"`
	User  AuthUserResponse `json:"user"`
}

// RefreshTokenRequest is the token refresh request payload
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse is the token refresh response payload
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

// LogoutResponse is the logout response payload
type LogoutResponse struct {
	Message string `json:"message" example:"logged out"`
}

// CurrentUserResponse is the current user response payload
type CurrentUserResponse struct {
	User          AuthUserResponse `json:"user"`
	Permissions   []string         `json:"permissions"`
	Impersonating bool             `json:"impersonating"`
}

// ChangePasswordRequest is the password change request payload
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ImpersonateRequest is the impersonation request payload
type ImpersonateRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required,uuid"`
}

// ImpersonateResponse contains the short-lived impersonation token
type ImpersonateResponse struct {
	AccessToken          string           `json:"access_token"`
	AccessTokenExpiresAt time.Time        `json:"access_token_expires_at"`
	TokenType            string           `json:"token_type" example:"Bearer"`
	Target               AuthUserResponse `json:"target"`
}

// ForceLogoutRequest is the force logout request payload
type ForceLogoutRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required,uuid"`
	Reason       string `json:"reason" binding:"max=500"`
}

// ForceLogoutResponse is the force logout response payload
type ForceLogoutResponse struct {
	Message string `json:"message"`
}
