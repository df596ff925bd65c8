package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appaudit "github.com/briefing/backend/internal/application/audit"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/domain/shared"
	"github.com/briefing/backend/internal/infrastructure/auth"
	"github.com/briefing/backend/internal/infrastructure/config"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) FindByRoleID(ctx context.Context, roleID uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SaveUserRoles(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) LoadUserRoles(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoleRepository is a mock implementation of identity.RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindByCode(ctx context.Context, orgID uuid.UUID, code string) (*identity.Role, error) {
	args := m.Called(ctx, orgID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindAll(ctx context.Context, orgID uuid.UUID, filter *identity.RoleFilter) ([]*identity.Role, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) Count(ctx context.Context, orgID uuid.UUID, filter *identity.RoleFilter) (int64, error) {
	args := m.Called(ctx, orgID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoleRepository) ExistsByCode(ctx context.Context, orgID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, orgID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) FindSystemRoles(ctx context.Context, orgID uuid.UUID) ([]*identity.Role, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Role), args.Error(1)
}

func (m *MockRoleRepository) SavePermissions(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) LoadPermissions(ctx context.Context, role *identity.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *MockRoleRepository) CountUsersWithRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	args := m.Called(ctx, roleID)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrganizationRepository is a mock implementation of identity.OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindByDomain(ctx context.Context, domain string) (*identity.Organization, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Organization, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) FindByStatus(ctx context.Context, status identity.OrgStatus, filter shared.Filter) ([]identity.Organization, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, org *identity.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrganizationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrganizationRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

// recordingAuditRepo captures appended audit records in memory
type recordingAuditRepo struct {
	mu      sync.Mutex
	records []*audit.Record
}

func (r *recordingAuditRepo) Append(_ context.Context, record *audit.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *recordingAuditRepo) FindByOrg(_ context.Context, _ uuid.UUID, _ audit.Filter) ([]*audit.Record, int64, error) {
	return nil, 0, nil
}

func (r *recordingAuditRepo) FindByActor(_ context.Context, _ uuid.UUID, _ audit.Filter) ([]*audit.Record, int64, error) {
	return nil, 0, nil
}

func (r *recordingAuditRepo) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]audit.Action, 0, len(r.records))
	for _, rec := range r.records {
		actions = append(actions, rec.Action)
	}
	return actions
}

// Helper function to create a test user
func createTestUser(orgID uuid.UUID) *identity.User {
	user, _ := identity.NewActiveUser(orgID, "alice@acme.com", "Alice Doe", "Password123")
	return user
}

// Helper function to create a test role with briefing access
func createTestRole(orgID uuid.UUID) *identity.Role {
	role, _ := identity.NewRole(orgID, "analyst", "Analyst")
	perm, _ := identity.NewPermissionFromCode(identity.PermBriefingRead)
	role.GrantPermission(*perm)
	return role
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
}

// Helper function to create an auth service with optional blacklist and audits
func createAuthService(
	userRepo *MockUserRepository,
	roleRepo *MockRoleRepository,
	orgRepo *MockOrganizationRepository,
	blacklist auth.TokenBlacklist,
	audits *appaudit.Service,
) *AuthService {
	jwtService := auth.NewJWTService(testJWTConfig())

	return NewAuthService(
		userRepo,
		roleRepo,
		orgRepo,
		jwtService,
		blacklist,
		audits,
		DefaultAuthServiceConfig(),
		zap.NewNop(),
	)
}

func assertDomainError(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, code, domainErr.Code)
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	role := createTestRole(orgID)
	user.RoleIDs = []uuid.UUID{role.ID}

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	userRepo.On("LoadUserRoles", ctx, user).Return(nil)
	userRepo.On("Update", ctx, user).Return(nil)
	roleRepo.On("FindByIDs", ctx, user.RoleIDs).Return([]*identity.Role{role}, nil)
	roleRepo.On("LoadPermissions", ctx, role).Return(nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, "alice@acme.com", result.User.Email)
	assert.Equal(t, orgID, result.User.OrgID)
	assert.Contains(t, result.User.Permissions, identity.PermBriefingRead)
	assert.NotNil(t, user.LastLoginAt)
	assert.Equal(t, "127.0.0.1", user.LastLoginIP)

	userRepo.AssertExpectations(t)
	roleRepo.AssertExpectations(t)
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "wrongpassword",
		IP:       "127.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "INVALID_CREDENTIALS")
	assert.Equal(t, 1, user.FailedAttempts)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	userRepo.On("FindByEmail", ctx, "nobody@acme.com").Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "nobody@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "INVALID_CREDENTIALS")
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	user.Lock(1 * time.Hour)

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "ACCOUNT_LOCKED")
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	require.NoError(t, user.Deactivate())

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "ACCOUNT_DEACTIVATED")
}

func TestAuthService_Login_SuspendedOrganization(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	org, err := identity.NewOrganization("Acme", "acme.com")
	require.NoError(t, err)
	require.NoError(t, org.Suspend())

	user := createTestUser(org.ID)

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	orgRepo.On("FindByID", ctx, org.ID).Return(org, nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "ORG_SUSPENDED")
}

func TestAuthService_Login_LocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)
	auditRepo := &recordingAuditRepo{}

	user := createTestUser(orgID)

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	audits := appaudit.NewService(auditRepo, zap.NewNop())
	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, audits)

	input := LoginInput{Email: "alice@acme.com", Password: "wrongpassword", IP: "127.0.0.1"}

	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = authService.Login(ctx, input)
		require.Error(t, lastErr)
	}

	assertDomainError(t, lastErr, "ACCOUNT_LOCKED")
	assert.True(t, user.IsLocked())
	assert.Contains(t, auditRepo.actions(), audit.ActionUserLocked)

	// Even the correct password is rejected while the lock holds
	_, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})
	assertDomainError(t, err, "ACCOUNT_LOCKED")
}

func TestAuthService_RefreshToken_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	role := createTestRole(orgID)
	user.RoleIDs = []uuid.UUID{role.ID}

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("LoadUserRoles", ctx, user).Return(nil)
	userRepo.On("Update", ctx, user).Return(nil)
	roleRepo.On("FindByIDs", ctx, user.RoleIDs).Return([]*identity.Role{role}, nil)
	roleRepo.On("LoadPermissions", ctx, role).Return(nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, auth.NewInMemoryTokenBlacklist(), nil)

	login, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})
	require.NoError(t, err)

	result, err := authService.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "Bearer", result.TokenType)
}

func TestAuthService_RefreshToken_Invalid(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.RefreshToken(ctx, RefreshTokenInput{RefreshToken: "not-a-token"})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "TOKEN_INVALID")
}

func TestAuthService_RefreshToken_RevokedAfterForceLogout(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	adminID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	role := createTestRole(orgID)
	user.RoleIDs = []uuid.UUID{role.ID}

	userRepo.On("FindByEmail", ctx, "alice@acme.com").Return(user, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("LoadUserRoles", ctx, user).Return(nil)
	userRepo.On("Update", ctx, user).Return(nil)
	roleRepo.On("FindByIDs", ctx, user.RoleIDs).Return([]*identity.Role{role}, nil)
	roleRepo.On("LoadPermissions", ctx, role).Return(nil)
	orgRepo.On("FindByID", ctx, orgID).Return(nil, shared.ErrNotFound)

	blacklist := auth.NewInMemoryTokenBlacklist()
	authService := createAuthService(userRepo, roleRepo, orgRepo, blacklist, nil)

	login, err := authService.Login(ctx, LoginInput{
		Email:    "alice@acme.com",
		Password: "Password123",
		IP:       "127.0.0.1",
	})
	require.NoError(t, err)

	_, err = authService.ForceLogout(ctx, ForceLogoutInput{
		Admin:        Actor{ID: adminID, Email: "admin@acme.com"},
		OrgID:        orgID,
		TargetUserID: user.ID,
		Reason:       "Security review",
	})
	require.NoError(t, err)

	result, err := authService.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "TOKEN_INVALID")
}

func TestAuthService_Logout_BlacklistsToken(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)
	auditRepo := &recordingAuditRepo{}

	blacklist := auth.NewInMemoryTokenBlacklist()
	audits := appaudit.NewService(auditRepo, zap.NewNop())
	authService := createAuthService(userRepo, roleRepo, orgRepo, blacklist, audits)

	err := authService.Logout(ctx, LogoutInput{
		UserID:   uuid.New(),
		OrgID:    orgID,
		Email:    "alice@acme.com",
		TokenJTI: "jti-123",
		TokenTTL: 15 * time.Minute,
		IP:       "127.0.0.1",
	})

	require.NoError(t, err)

	blacklisted, err := blacklist.IsBlacklisted(ctx, "jti-123")
	require.NoError(t, err)
	assert.True(t, blacklisted)
	assert.Contains(t, auditRepo.actions(), audit.ActionUserLogout)
}

func TestAuthService_Impersonate_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)
	auditRepo := &recordingAuditRepo{}

	admin, err := identity.NewActiveUser(orgID, "admin@acme.com", "Admin", "Password123")
	require.NoError(t, err)
	adminRole, _ := identity.NewRole(orgID, "superuser", "Superuser")
	require.NoError(t, adminRole.GrantPermissionByCode(identity.PermImpersonate))
	admin.RoleIDs = []uuid.UUID{adminRole.ID}

	target := createTestUser(orgID)
	targetRole := createTestRole(orgID)
	target.RoleIDs = []uuid.UUID{targetRole.ID}

	userRepo.On("FindByID", ctx, admin.ID).Return(admin, nil)
	userRepo.On("FindByID", ctx, target.ID).Return(target, nil)
	userRepo.On("LoadUserRoles", ctx, admin).Return(nil)
	userRepo.On("LoadUserRoles", ctx, target).Return(nil)
	roleRepo.On("FindByIDs", ctx, admin.RoleIDs).Return([]*identity.Role{adminRole}, nil)
	roleRepo.On("LoadPermissions", ctx, adminRole).Return(nil)

	audits := appaudit.NewService(auditRepo, zap.NewNop())
	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, audits)

	result, err := authService.Impersonate(ctx, ImpersonateInput{
		Admin:        Actor{ID: admin.ID, Email: admin.Email, IP: "127.0.0.1"},
		OrgID:        orgID,
		TargetUserID: target.ID,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, target.Email, result.Target.Email)

	claims, err := auth.NewJWTService(testJWTConfig()).ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsImpersonating())

	impersonator, err := claims.GetImpersonatorUUID()
	require.NoError(t, err)
	assert.Equal(t, admin.ID, impersonator)

	assert.ElementsMatch(t, impersonationPermissions, claims.Permissions)
	assert.NotContains(t, claims.Permissions, identity.PermImpersonate)

	assert.Contains(t, auditRepo.actions(), audit.ActionImpersonateStart)
}

func TestAuthService_Impersonate_Forbidden(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	admin := createTestUser(orgID)
	role := createTestRole(orgID)
	admin.RoleIDs = []uuid.UUID{role.ID}
	targetID := uuid.New()

	userRepo.On("FindByID", ctx, admin.ID).Return(admin, nil)
	userRepo.On("LoadUserRoles", ctx, admin).Return(nil)
	roleRepo.On("FindByIDs", ctx, admin.RoleIDs).Return([]*identity.Role{role}, nil)
	roleRepo.On("LoadPermissions", ctx, role).Return(nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Impersonate(ctx, ImpersonateInput{
		Admin:        Actor{ID: admin.ID, Email: admin.Email},
		OrgID:        orgID,
		TargetUserID: targetID,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "FORBIDDEN")
}

func TestAuthService_Impersonate_Self(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	adminID := uuid.New()
	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Impersonate(ctx, ImpersonateInput{
		Admin:        Actor{ID: adminID},
		TargetUserID: adminID,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "INVALID_TARGET")
}

func TestAuthService_Impersonate_CrossOrganization(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	admin, _ := identity.NewActiveUser(orgID, "admin@acme.com", "Admin", "Password123")
	adminRole, _ := identity.NewRole(orgID, "superuser", "Superuser")
	adminRole.GrantPermissionByCode(identity.PermImpersonate)
	admin.RoleIDs = []uuid.UUID{adminRole.ID}

	target := createTestUser(uuid.New())

	userRepo.On("FindByID", ctx, admin.ID).Return(admin, nil)
	userRepo.On("FindByID", ctx, target.ID).Return(target, nil)
	userRepo.On("LoadUserRoles", ctx, admin).Return(nil)
	roleRepo.On("FindByIDs", ctx, admin.RoleIDs).Return([]*identity.Role{adminRole}, nil)
	roleRepo.On("LoadPermissions", ctx, adminRole).Return(nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Impersonate(ctx, ImpersonateInput{
		Admin:        Actor{ID: admin.ID, Email: admin.Email},
		OrgID:        orgID,
		TargetUserID: target.ID,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "INVALID_TARGET")
}

func TestAuthService_Impersonate_InactiveTarget(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	admin, _ := identity.NewActiveUser(orgID, "admin@acme.com", "Admin", "Password123")
	adminRole, _ := identity.NewRole(orgID, "superuser", "Superuser")
	adminRole.GrantPermissionByCode(identity.PermImpersonate)
	admin.RoleIDs = []uuid.UUID{adminRole.ID}

	target := createTestUser(orgID)
	require.NoError(t, target.Deactivate())

	userRepo.On("FindByID", ctx, admin.ID).Return(admin, nil)
	userRepo.On("FindByID", ctx, target.ID).Return(target, nil)
	userRepo.On("LoadUserRoles", ctx, admin).Return(nil)
	roleRepo.On("FindByIDs", ctx, admin.RoleIDs).Return([]*identity.Role{adminRole}, nil)
	roleRepo.On("LoadPermissions", ctx, adminRole).Return(nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.Impersonate(ctx, ImpersonateInput{
		Admin:        Actor{ID: admin.ID, Email: admin.Email},
		OrgID:        orgID,
		TargetUserID: target.ID,
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "ACCOUNT_INACTIVE")
}

func TestAuthService_StopImpersonation_BlacklistsToken(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)
	auditRepo := &recordingAuditRepo{}

	blacklist := auth.NewInMemoryTokenBlacklist()
	audits := appaudit.NewService(auditRepo, zap.NewNop())
	authService := createAuthService(userRepo, roleRepo, orgRepo, blacklist, audits)

	err := authService.StopImpersonation(ctx, StopImpersonationInput{
		Admin:        Actor{ID: uuid.New(), Email: "admin@acme.com"},
		OrgID:        orgID,
		TargetUserID: uuid.New(),
		TokenJTI:     "imp-jti-456",
		TokenTTL:     5 * time.Minute,
	})

	require.NoError(t, err)

	blacklisted, err := blacklist.IsBlacklisted(ctx, "imp-jti-456")
	require.NoError(t, err)
	assert.True(t, blacklisted)
	assert.Contains(t, auditRepo.actions(), audit.ActionImpersonateStop)
}

func TestAuthService_GetCurrentUser_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)
	role := createTestRole(orgID)
	user.RoleIDs = []uuid.UUID{role.ID}

	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("LoadUserRoles", ctx, user).Return(nil)
	roleRepo.On("FindByIDs", ctx, user.RoleIDs).Return([]*identity.Role{role}, nil)
	roleRepo.On("LoadPermissions", ctx, role).Return(nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.GetCurrentUser(ctx, GetCurrentUserInput{UserID: user.ID})

	require.NoError(t, err)
	assert.Equal(t, user.Email, result.User.Email)
	assert.Contains(t, result.Permissions, identity.PermBriefingRead)
}

func TestAuthService_GetCurrentUser_NotFound(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	userID := uuid.New()
	userRepo.On("FindByID", ctx, userID).Return(nil, shared.ErrNotFound)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	result, err := authService.GetCurrentUser(ctx, GetCurrentUserInput{UserID: userID})

	require.Error(t, err)
	assert.Nil(t, result)
	assertDomainError(t, err, "USER_NOT_FOUND")
}

func TestAuthService_ChangePassword_Success(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)

	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
	userRepo.On("Update", ctx, user).Return(nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	err := authService.ChangePassword(ctx, ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: "Password123",
		NewPassword: "NewPassword456",
	})

	require.NoError(t, err)
	assert.True(t, user.VerifyPassword("NewPassword456"))
}

func TestAuthService_ChangePassword_WrongOldPassword(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	userRepo := new(MockUserRepository)
	roleRepo := new(MockRoleRepository)
	orgRepo := new(MockOrganizationRepository)

	user := createTestUser(orgID)

	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	authService := createAuthService(userRepo, roleRepo, orgRepo, nil, nil)

	err := authService.ChangePassword(ctx, ChangePasswordInput{
		UserID:      user.ID,
		OldPassword: "wrongpassword",
		NewPassword: "NewPassword456",
	})

	require.Error(t, err)
	assertDomainError(t, err, "INVALID_PASSWORD")
	assert.True(t, user.VerifyPassword("Password123"))
}
