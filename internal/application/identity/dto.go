package identity

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who performs an admin action, for the audit trail
type Actor struct {
	ID        uuid.UUID
	Email     string
	IP        string
	UserAgent string
	// ImpersonatorID is set when the actor is an admin acting as ID
	ImpersonatorID *uuid.UUID
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email     string
	Password  string
	IP        string // Client IP for login tracking
	UserAgent string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo contains basic user information returned after login
type UserInfo struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Email       string
	Name        string
	Title       string
	Avatar      string
	Permissions []string
	RoleIDs     []uuid.UUID
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID    uuid.UUID
	OrgID     uuid.UUID
	Email     string
	TokenJTI  string        // JWT ID to blacklist
	TokenTTL  time.Duration // Remaining lifetime of the access token
	IP        string
	UserAgent string
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// GetCurrentUserInput contains the input for getting current user info
type GetCurrentUserInput struct {
	UserID uuid.UUID
}

// CurrentUserResult contains the current user's information
type CurrentUserResult struct {
	User        UserInfo
	Permissions []string
}

// ImpersonateInput contains the input for starting impersonation
type ImpersonateInput struct {
	Admin        Actor
	OrgID        uuid.UUID
	TargetUserID uuid.UUID
}

// ImpersonateResult contains the short-lived token minted for impersonation
type ImpersonateResult struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	TokenType            string
	Target               UserInfo
}

// StopImpersonationInput contains the input for ending impersonation
type StopImpersonationInput struct {
	Admin        Actor
	OrgID        uuid.UUID
	TargetUserID uuid.UUID
	TokenJTI     string        // Impersonation token to blacklist
	TokenTTL     time.Duration // Remaining lifetime of that token
}

// ForceLogoutInput contains the input for force logout operation
type ForceLogoutInput struct {
	Admin        Actor
	OrgID        uuid.UUID
	TargetUserID uuid.UUID
	Reason       string
}

// ForceLogoutResult contains the result of force logout operation
type ForceLogoutResult struct {
	Message string
}
