package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/briefing/backend/internal/application/audit"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/domain/shared"
)

// UserService handles user management operations
type UserService struct {
	userRepo identity.UserRepository
	roleRepo identity.RoleRepository
	orgRepo  identity.OrganizationRepository
	audits   *appaudit.Service
	logger   *zap.Logger
}

// NewUserService creates a new user service. audits is optional.
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	orgRepo identity.OrganizationRepository,
	audits *appaudit.Service,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		orgRepo:  orgRepo,
		audits:   audits,
		logger:   logger,
	}
}

// CreateUserInput contains input for creating a user
type CreateUserInput struct {
	OrgID    uuid.UUID
	Email    string
	Name     string
	Password string
	Title    string
	Notes    string
	RoleIDs  []uuid.UUID
	Actor    Actor
}

// UpdateUserInput contains input for updating a user
type UpdateUserInput struct {
	ID     uuid.UUID
	Name   *string
	Title  *string
	Avatar *string
	Notes  *string
	Actor  Actor
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID          uuid.UUID   `json:"id"`
	OrgID       uuid.UUID   `json:"org_id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Title       string      `json:"title,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	Status      string      `json:"status"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UserListResult represents paginated user list result
type UserListResult struct {
	Users      []UserDTO `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// Create creates a new user
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	s.logger.Info("Creating new user",
		zap.String("email", input.Email),
		zap.String("org_id", input.OrgID.String()))

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
	}

	// Enforce the organization's user cap
	org, err := s.orgRepo.FindByID(ctx, input.OrgID)
	if err != nil {
		return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
	}
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check organization capacity")
	}
	if !org.CanAddUser(int(count)) {
		return nil, shared.NewDomainError("ORG_USER_LIMIT", "Organization user limit reached")
	}

	if err := s.validateRoleIDs(ctx, input.RoleIDs); err != nil {
		return nil, err
	}

	// New users are immediately active
	user, err := identity.NewActiveUser(input.OrgID, input.Email, input.Name, input.Password)
	if err != nil {
		return nil, err
	}

	if input.Title != "" {
		if err := user.SetTitle(input.Title); err != nil {
			return nil, err
		}
	}
	if input.Notes != "" {
		user.SetNotes(input.Notes)
	}

	if err := user.SetRoles(input.RoleIDs); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}

	if len(user.RoleIDs) > 0 {
		if err := s.userRepo.SaveUserRoles(ctx, user); err != nil {
			s.logger.Error("Failed to save user roles", zap.Error(err))
			// Roll the user back so the create stays atomic
			_ = s.userRepo.Delete(ctx, user.ID)
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to assign roles to user")
		}
	}

	s.record(ctx, input.Actor, user.OrgID, audit.ActionUserCreated, user.ID, "Created user "+user.Email)

	s.logger.Info("User created successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return toUserDTO(user), nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	s.loadRoles(ctx, user)
	return toUserDTO(user), nil
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*UserDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user by email", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}
	s.loadRoles(ctx, user)
	return toUserDTO(user), nil
}

// List retrieves a paginated list of users
func (s *UserService) List(ctx context.Context, filter identity.UserFilter) (*UserListResult, error) {
	users, total, err := s.userRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	for _, user := range users {
		s.loadRoles(ctx, user)
	}

	pageSize := filter.Limit()
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	userDTOs := make([]UserDTO, len(users))
	for i, user := range users {
		userDTOs[i] = *toUserDTO(user)
	}

	return &UserListResult{
		Users:      userDTOs,
		Total:      total,
		Page:       filter.Page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Update updates a user's information
func (s *UserService) Update(ctx context.Context, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.findUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := user.SetName(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Title != nil {
		if err := user.SetTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Avatar != nil {
		if err := user.SetAvatar(*input.Avatar); err != nil {
			return nil, err
		}
	}
	if input.Notes != nil {
		user.SetNotes(*input.Notes)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.loadRoles(ctx, user)
	s.record(ctx, input.Actor, user.OrgID, audit.ActionUserUpdated, user.ID, "Updated user "+user.Email)

	s.logger.Info("User updated", zap.String("user_id", input.ID.String()))

	return toUserDTO(user), nil
}

// Delete deletes a user
func (s *UserService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}

	s.record(ctx, actor, user.OrgID, audit.ActionUserDeleted, user.ID, "Deleted user "+user.Email)

	s.logger.Info("User deleted", zap.String("user_id", id.String()))

	return nil
}

// Activate activates a user
func (s *UserService) Activate(ctx context.Context, id uuid.UUID, actor Actor) (*UserDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionUserUpdated, "Activated user", func(u *identity.User) error {
		return u.Activate()
	})
}

// Deactivate deactivates a user
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID, actor Actor) (*UserDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionUserUpdated, "Deactivated user", func(u *identity.User) error {
		return u.Deactivate()
	})
}

// Lock locks a user account
func (s *UserService) Lock(ctx context.Context, id uuid.UUID, duration time.Duration, actor Actor) (*UserDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionUserLocked, "Locked user", func(u *identity.User) error {
		return u.Lock(duration)
	})
}

// Unlock unlocks a user account
func (s *UserService) Unlock(ctx context.Context, id uuid.UUID, actor Actor) (*UserDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionUserUnlocked, "Unlocked user", func(u *identity.User) error {
		return u.Unlock()
	})
}

// ResetPassword resets a user's password (admin action)
func (s *UserService) ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string, actor Actor) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return err
	}

	// Force password change on next login
	user.ForcePasswordChange()

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to reset password", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reset password")
	}

	s.record(ctx, actor, user.OrgID, audit.ActionPasswordReset, user.ID, "Reset password for "+user.Email)

	s.logger.Info("User password reset", zap.String("user_id", userID.String()))

	return nil
}

// AssignRoles assigns roles to a user (replaces existing roles)
func (s *UserService) AssignRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID, actor Actor) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.validateRoleIDs(ctx, roleIDs); err != nil {
		return nil, err
	}

	if err := user.SetRoles(roleIDs); err != nil {
		return nil, err
	}

	if err := s.userRepo.SaveUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to save user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to assign roles")
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.record(ctx, actor, user.OrgID, audit.ActionRolesChanged, user.ID, "Changed roles for "+user.Email)

	s.logger.Info("User roles assigned",
		zap.String("user_id", userID.String()),
		zap.Int("role_count", len(roleIDs)))

	return toUserDTO(user), nil
}

// Count returns the total number of users
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *UserService) transition(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	action audit.Action,
	detail string,
	apply func(*identity.User) error,
) (*UserDTO, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.loadRoles(ctx, user)
	s.record(ctx, actor, user.OrgID, action, user.ID, detail+" "+user.Email)

	s.logger.Info("User status changed",
		zap.String("user_id", id.String()),
		zap.String("status", string(user.Status)))

	return toUserDTO(user), nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}
	return user, nil
}

func (s *UserService) loadRoles(ctx context.Context, user *identity.User) {
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
}

func (s *UserService) validateRoleIDs(ctx context.Context, roleIDs []uuid.UUID) error {
	if len(roleIDs) == 0 {
		return nil
	}

	roles, err := s.roleRepo.FindByIDs(ctx, roleIDs)
	if err != nil {
		s.logger.Error("Failed to load roles", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to validate roles")
	}

	found := make(map[uuid.UUID]bool, len(roles))
	for _, role := range roles {
		found[role.ID] = true
	}
	for _, id := range roleIDs {
		if !found[id] {
			return shared.NewDomainError("ROLE_NOT_FOUND", "Role not found: "+id.String())
		}
	}
	return nil
}

func (s *UserService) record(ctx context.Context, actor Actor, orgID uuid.UUID, action audit.Action, targetID uuid.UUID, detail string) {
	if s.audits == nil || actor.ID == uuid.Nil {
		return
	}
	err := s.audits.Record(ctx, appaudit.RecordInput{
		OrgID:          orgID,
		ActorID:        actor.ID,
		ActorEmail:     actor.Email,
		ImpersonatorID: actor.ImpersonatorID,
		Action:         action,
		TargetType:     "user",
		TargetID:       targetID.String(),
		Detail:         detail,
		IP:             actor.IP,
		UserAgent:      actor.UserAgent,
	})
	if err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// toUserDTO converts domain User to UserDTO
func toUserDTO(user *identity.User) *UserDTO {
	return &UserDTO{
		ID:          user.ID,
		OrgID:       user.OrgID,
		Email:       user.Email,
		Name:        user.Name,
		Title:       user.Title,
		Avatar:      user.Avatar,
		Status:      string(user.Status),
		RoleIDs:     user.RoleIDs,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
