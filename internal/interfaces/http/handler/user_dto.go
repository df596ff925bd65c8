package handler

import (
	"time"

	"github.com/briefing/backend/internal/application/identity"
)

// CreateUserRequest is the user creation request payload
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required,max=100"`
	Password string   `json:"password" binding:"required,min=8"`
	Title    string   `json:"title" binding:"max=100"`
	Notes    string   `json:"notes" binding:"max=500"`
	RoleIDs  []string `json:"role_ids" binding:"dive,uuid"`
}

// UpdateUserRequest is the user update request payload
type UpdateUserRequest struct {
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Title  *string `json:"title" binding:"omitempty,max=100"`
	Avatar *string `json:"avatar" binding:"omitempty,url"`
	Notes  *string `json:"notes" binding:"omitempty,max=500"`
}

// AssignRolesRequest is the role assignment request payload
type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"required,dive,uuid"`
}

// LockUserRequest is the user lock request payload
type LockUserRequest struct {
	// DurationMinutes is how long the account stays locked; 0 means
	// locked until an admin unlocks it
	DurationMinutes int `json:"duration_minutes" binding:"min=0,max=10080"`
}

// ResetPasswordRequest is the admin password reset request payload
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// UserResponse is the user response payload
type UserResponse struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Avatar      string     `json:"avatar,omitempty"`
	Status      string     `json:"status"`
	RoleIDs     []string   `json:"role_ids"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserListResponse is the paginated user list payload
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

func toUserResponse(u *identity.UserDTO) UserResponse {
	roleIDs := make([]string, len(u.RoleIDs))
	for i, rid := range u.RoleIDs {
		roleIDs[i] = rid.String()
	}
	return UserResponse{
		ID:          u.ID.String(),
		OrgID:       u.OrgID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Title:       u.Title,
		Avatar:      u.Avatar,
		Status:      u.Status,
		RoleIDs:     roleIDs,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
