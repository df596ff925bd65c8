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
	"github.com/briefing/backend/internal/infrastructure/auth"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// Permissions granted to an impersonation token. An admin acting as a user
// can read that user's briefing and connections, nothing more.
var impersonationPermissions = []string{
	identity.PermBriefingRead,
	identity.PermConnectionsRead,
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  identity.UserRepository
	roleRepo  identity.RoleRepository
	orgRepo   identity.OrganizationRepository
	jwtSvc    *auth.JWTService
	blacklist auth.TokenBlacklist
	audits    *appaudit.Service
	config    AuthServiceConfig
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service. blacklist and audits
// are optional.
func NewAuthService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	orgRepo identity.OrganizationRepository,
	jwtSvc *auth.JWTService,
	blacklist auth.TokenBlacklist,
	audits *appaudit.Service,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		orgRepo:   orgRepo,
		jwtSvc:    jwtSvc,
		blacklist: blacklist,
		audits:    audits,
		config:    config,
		logger:    logger,
	}
}

// Login authenticates a user by email and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	s.logger.Info("Login attempt", zap.String("email", input.Email))

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Warn("User not found during login", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	// A suspended organization blocks every login in it
	if org, err := s.orgRepo.FindByID(ctx, user.OrgID); err == nil && org.IsSuspended() {
		s.logger.Warn("Login attempt for suspended organization",
			zap.String("email", input.Email),
			zap.String("org_id", user.OrgID.String()))
		return nil, shared.NewDomainError("ORG_SUSPENDED", "Organization is suspended")
	}

	if !user.CanLogin() {
		if user.IsLocked() {
			s.logger.Warn("Login attempt for locked account", zap.String("email", input.Email))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later or contact support")
		}
		if user.Status == identity.UserStatusDeactivated {
			s.logger.Warn("Login attempt for deactivated account", zap.String("email", input.Email))
			return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
		}
		if user.Status == identity.UserStatusPending {
			s.logger.Warn("Login attempt for pending account", zap.String("email", input.Email))
			return nil, shared.NewDomainError("ACCOUNT_PENDING", "Account is pending activation")
		}
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}

		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("email", input.Email),
				zap.Int("attempts", s.config.MaxLoginAttempts))
			s.record(ctx, appaudit.RecordInput{
				OrgID:      user.OrgID,
				ActorID:    user.ID,
				ActorEmail: user.Email,
				Action:     audit.ActionUserLocked,
				TargetType: "user",
				TargetID:   user.ID.String(),
				Detail:     "Locked after repeated failed login attempts",
				IP:         input.IP,
				UserAgent:  input.UserAgent,
			})
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.logger.Warn("Invalid password attempt",
			zap.String("email", input.Email),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect user permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	tokenPair, err := s.jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{
		OrgID:       user.OrgID,
		UserID:      user.ID,
		Email:       user.Email,
		RoleIDs:     user.RoleIDs,
		Permissions: permissions,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Don't fail the login, just log the error
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.record(ctx, appaudit.RecordInput{
		OrgID:      user.OrgID,
		ActorID:    user.ID,
		ActorEmail: user.Email,
		Action:     audit.ActionUserLogin,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
	})

	s.logger.Info("User logged in successfully",
		zap.String("email", input.Email),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User:                  toUserInfo(user, permissions),
	}, nil
}

// RefreshToken refreshes the access token using a valid refresh token
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	refreshClaims, err := s.jwtSvc.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	userID, err := uuid.Parse(refreshClaims.UserID)
	if err != nil {
		s.logger.Error("Invalid user ID in refresh token", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	// A force logout invalidates every token issued before it
	if s.blacklist != nil {
		invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, refreshClaims.UserID, refreshClaims.GetIssuedAtTime())
		if err != nil {
			s.logger.Error("Failed to check token invalidation", zap.Error(err))
		} else if invalidated {
			return nil, shared.NewDomainError("TOKEN_INVALID", "Session has been revoked. Please log in again")
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("User not found during token refresh", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if !user.CanLogin() {
		s.logger.Warn("Token refresh for inactive user", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles during refresh", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions during refresh", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	tokenPair, err := s.jwtSvc.RefreshTokenPair(input.RefreshToken, permissions)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	s.logger.Info("Token refreshed successfully", zap.String("user_id", userID.String()))

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// Logout revokes the current access token and records the logout
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if s.blacklist != nil && input.TokenJTI != "" && input.TokenTTL > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to blacklist token on logout", zap.Error(err))
		}
	}

	s.record(ctx, appaudit.RecordInput{
		OrgID:      input.OrgID,
		ActorID:    input.UserID,
		ActorEmail: input.Email,
		Action:     audit.ActionUserLogout,
		IP:         input.IP,
		UserAgent:  input.UserAgent,
	})

	s.logger.Info("User logout",
		zap.String("user_id", input.UserID.String()),
		zap.String("org_id", input.OrgID.String()))

	return nil
}

// GetCurrentUser retrieves the current user's information
func (s *AuthService) GetCurrentUser(ctx context.Context, input GetCurrentUserInput) (*CurrentUserResult, error) {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		s.logger.Error("Failed to load user roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	permissions, err := s.collectUserPermissions(ctx, user.RoleIDs)
	if err != nil {
		s.logger.Error("Failed to collect permissions", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}

	return &CurrentUserResult{
		User:        toUserInfo(user, permissions),
		Permissions: permissions,
	}, nil
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after password change", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update password")
	}

	s.logger.Info("User password changed", zap.String("user_id", input.UserID.String()))

	return nil
}

// Impersonate mints a short-lived access token that lets an admin act as
// another user in the same organization. The token carries the target's
// identity with a reduced permission set, and the grant is audited.
func (s *AuthService) Impersonate(ctx context.Context, input ImpersonateInput) (*ImpersonateResult, error) {
	if input.Admin.ID == input.TargetUserID {
		return nil, shared.NewDomainError("INVALID_TARGET", "Cannot impersonate yourself")
	}

	admin, err := s.userRepo.FindByID(ctx, input.Admin.ID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Admin user not found")
	}

	if err := s.userRepo.LoadUserRoles(ctx, admin); err != nil {
		s.logger.Error("Failed to load admin roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}
	adminPerms, err := s.collectUserPermissions(ctx, admin.RoleIDs)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user permissions")
	}
	if !containsPermission(adminPerms, identity.PermImpersonate) {
		s.logger.Warn("Impersonation denied",
			zap.String("admin_id", input.Admin.ID.String()),
			zap.String("target_id", input.TargetUserID.String()))
		return nil, shared.NewDomainError("FORBIDDEN", "Not permitted to impersonate users")
	}

	target, err := s.userRepo.FindByID(ctx, input.TargetUserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Target user not found")
	}
	if target.OrgID != admin.OrgID {
		return nil, shared.NewDomainError("INVALID_TARGET", "Target user belongs to a different organization")
	}
	if !target.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Target account is not active")
	}

	if err := s.userRepo.LoadUserRoles(ctx, target); err != nil {
		s.logger.Error("Failed to load target roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load user roles")
	}

	adminID := admin.ID
	tokenPair, err := s.jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{
		OrgID:          target.OrgID,
		UserID:         target.ID,
		Email:          target.Email,
		RoleIDs:        target.RoleIDs,
		Permissions:    impersonationPermissions,
		ImpersonatorID: &adminID,
	})
	if err != nil {
		s.logger.Error("Failed to generate impersonation token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate impersonation token")
	}

	s.record(ctx, appaudit.RecordInput{
		OrgID:          target.OrgID,
		ActorID:        admin.ID,
		ActorEmail:     admin.Email,
		ImpersonatorID: &adminID,
		Action:         audit.ActionImpersonateStart,
		TargetType:     "user",
		TargetID:       target.ID.String(),
		Detail:         "Impersonation started for " + target.Email,
		IP:             input.Admin.IP,
		UserAgent:      input.Admin.UserAgent,
	})

	s.logger.Info("Impersonation started",
		zap.String("admin_id", admin.ID.String()),
		zap.String("target_id", target.ID.String()))

	return &ImpersonateResult{
		AccessToken:          tokenPair.AccessToken,
		AccessTokenExpiresAt: tokenPair.AccessTokenExpiresAt,
		TokenType:            tokenPair.TokenType,
		Target:               toUserInfo(target, impersonationPermissions),
	}, nil
}

// StopImpersonation revokes an impersonation token and records the end of
// the session
func (s *AuthService) StopImpersonation(ctx context.Context, input StopImpersonationInput) error {
	if s.blacklist != nil && input.TokenJTI != "" && input.TokenTTL > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, input.TokenJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to blacklist impersonation token", zap.Error(err))
		}
	}

	adminID := input.Admin.ID
	s.record(ctx, appaudit.RecordInput{
		OrgID:          input.OrgID,
		ActorID:        input.Admin.ID,
		ActorEmail:     input.Admin.Email,
		ImpersonatorID: &adminID,
		Action:         audit.ActionImpersonateStop,
		TargetType:     "user",
		TargetID:       input.TargetUserID.String(),
		IP:             input.Admin.IP,
		UserAgent:      input.Admin.UserAgent,
	})

	s.logger.Info("Impersonation stopped",
		zap.String("admin_id", input.Admin.ID.String()),
		zap.String("target_id", input.TargetUserID.String()))

	return nil
}

// ForceLogout revokes every session of a user (admin action)
func (s *AuthService) ForceLogout(ctx context.Context, input ForceLogoutInput) (*ForceLogoutResult, error) {
	target, err := s.userRepo.FindByID(ctx, input.TargetUserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Target user not found")
	}

	if s.blacklist != nil {
		ttl := s.jwtSvc.GetRefreshTokenExpiration()
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, target.ID.String(), ttl); err != nil {
			s.logger.Error("Failed to invalidate user tokens", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to revoke user sessions")
		}
	}

	s.record(ctx, appaudit.RecordInput{
		OrgID:      input.OrgID,
		ActorID:    input.Admin.ID,
		ActorEmail: input.Admin.Email,
		Action:     audit.ActionUserLogout,
		TargetType: "user",
		TargetID:   target.ID.String(),
		Detail:     input.Reason,
		IP:         input.Admin.IP,
		UserAgent:  input.Admin.UserAgent,
	})

	s.logger.Info("User force logged out",
		zap.String("admin_id", input.Admin.ID.String()),
		zap.String("target_id", input.TargetUserID.String()))

	return &ForceLogoutResult{Message: "All sessions revoked"}, nil
}

// collectUserPermissions collects all unique permissions from the user's roles
func (s *AuthService) collectUserPermissions(ctx context.Context, roleIDs []uuid.UUID) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}

	roles, err := s.roleRepo.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	permSet := make(map[string]struct{})
	for _, role := range roles {
		if !role.IsEnabled {
			continue
		}
		if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
			s.logger.Warn("Failed to load permissions for role",
				zap.String("role_id", role.ID.String()),
				zap.Error(err))
			continue
		}
		for _, perm := range role.Permissions {
			permSet[perm.Code()] = struct{}{}
		}
	}

	permissions := make([]string, 0, len(permSet))
	for perm := range permSet {
		permissions = append(permissions, perm)
	}

	return permissions, nil
}

func (s *AuthService) record(ctx context.Context, input appaudit.RecordInput) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Record(ctx, input); err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("action", string(input.Action)),
			zap.Error(err))
	}
}

func mapTokenError(err error) error {
	switch err {
	case auth.ErrExpiredToken:
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case auth.ErrInvalidToken:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	case auth.ErrMaxRefreshExceeded:
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}

func containsPermission(permissions []string, code string) bool {
	for _, p := range permissions {
		if p == code {
			return true
		}
	}
	return false
}

func toUserInfo(user *identity.User, permissions []string) UserInfo {
	return UserInfo{
		ID:          user.ID,
		OrgID:       user.OrgID,
		Email:       user.Email,
		Name:        user.Name,
		Title:       user.Title,
		Avatar:      user.Avatar,
		Permissions: permissions,
		RoleIDs:     user.RoleIDs,
	}
}
