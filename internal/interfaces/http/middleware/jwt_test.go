package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/briefing/backend/internal/infrastructure/auth"
	"github.com/briefing/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func execJWTService() *auth.JWTService {
	cfg := config.JWTConfig{
		Secret:                 "briefing-secret-key-at-least-32-chars",
		RefreshSecret:          "briefing-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "briefing-backend",
		MaxRefreshCount:        10,
	}
	return auth.NewJWTService(cfg)
}

func execTokenPair(jwtService *auth.JWTService) (*auth.TokenPair, auth.GenerateTokenInput) {
	input := auth.GenerateTokenInput{
		OrgID:       uuid.New(),
		UserID:      uuid.New(),
		Email:       "exec@acme.example",
		RoleIDs:     []uuid.UUID{uuid.New()},
		Permissions: []string{"briefing:read", "connection:manage"},
	}
	pair, _ := jwtService.GenerateTokenPair(input)
	return pair, input
}

// guardedBriefingRouter mounts the given auth middleware in front of a
// briefing endpoint.
func guardedBriefingRouter(mw gin.HandlerFunc, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	if handler == nil {
		handler = func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
		}
	}
	router.GET("/api/v1/briefing", handler)
	return router
}

func serveGuarded(router *gin.Engine, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/briefing", nil)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	jwtService := execJWTService()
	pair, input := execTokenPair(jwtService)

	router := guardedBriefingRouter(JWTAuthMiddleware(jwtService), func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, input.UserID.String(), claims.UserID)
		assert.Equal(t, input.OrgID.String(), claims.OrgID)
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	rec := serveGuarded(router, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMiddleware_RejectsBadCredentials(t *testing.T) {
	jwtService := execJWTService()
	pair, _ := execTokenPair(jwtService)

	expiredSvc := auth.NewJWTService(config.JWTConfig{
		Secret:                 "briefing-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -1 * time.Hour,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "briefing-backend",
	})
	expiredPair, _ := execTokenPair(expiredSvc)

	tests := []struct {
		name    string
		svc     *auth.JWTService
		bearer  string
	}{
		{"missing header", jwtService, ""},
		{"wrong scheme", jwtService, "Basic dXNlcjpwYXNz"},
		{"empty token", jwtService, "Bearer "},
		{"garbage token", jwtService, "Bearer not-a-token"},
		{"expired token", expiredSvc, "Bearer " + expiredPair.AccessToken},
		{"refresh token used as access", jwtService, "Bearer " + pair.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := guardedBriefingRouter(JWTAuthMiddleware(tt.svc), nil)
			rec := serveGuarded(router, tt.bearer)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestJWTAuthMiddleware_BlacklistedToken(t *testing.T) {
	jwtService := execJWTService()
	pair, _ := execTokenPair(jwtService)

	claims, err := jwtService.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, 15*time.Minute))

	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist

	router := guardedBriefingRouter(JWTAuthMiddlewareWithConfig(cfg), nil)
	rec := serveGuarded(router, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMiddleware_InvalidatedUserSession(t *testing.T) {
	jwtService := execJWTService()
	pair, input := execTokenPair(jwtService)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddUserTokensToBlacklist(context.Background(), input.UserID.String(), time.Hour))

	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist

	router := guardedBriefingRouter(JWTAuthMiddlewareWithConfig(cfg), nil)
	rec := serveGuarded(router, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	jwtService := execJWTService()

	t.Run("exact path", func(t *testing.T) {
		cfg := DefaultJWTConfig(jwtService)
		cfg.SkipPaths = append(cfg.SkipPaths, "/public")

		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/public", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("prefix", func(t *testing.T) {
		cfg := DefaultJWTConfig(jwtService)
		cfg.SkipPathPrefixes = append(cfg.SkipPathPrefixes, "/static")

		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/static/assets/logo.png", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/assets/logo.png", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("defaults", func(t *testing.T) {
		router := gin.New()
		router.Use(JWTAuthMiddleware(jwtService))

		defaultSkipPaths := []string{
			"/health",
			"/healthz",
			"/ready",
			"/api/v1/system/ping",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		}

		for _, path := range defaultSkipPaths {
			router.GET(path, func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
		}

		for _, path := range defaultSkipPaths {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, "path %s should not require auth", path)
		}
	})
}

func TestJWTAuthMiddleware_ContextValues(t *testing.T) {
	jwtService := execJWTService()
	pair, input := execTokenPair(jwtService)

	var userID, orgID, email string
	var roleIDs, permissions []string

	router := guardedBriefingRouter(JWTAuthMiddleware(jwtService), func(c *gin.Context) {
		userID = GetJWTUserID(c)
		orgID = GetJWTOrgID(c)
		email = GetJWTEmail(c)
		roleIDs = GetJWTRoleIDs(c)
		permissions = GetJWTPermissions(c)
		c.JSON(http.StatusOK, gin.H{"date": "2026-08-29"})
	})

	rec := serveGuarded(router, "Bearer "+pair.AccessToken)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, input.UserID.String(), userID)
	assert.Equal(t, input.OrgID.String(), orgID)
	assert.Equal(t, input.Email, email)
	require.Len(t, roleIDs, 1)
	assert.Equal(t, input.RoleIDs[0].String(), roleIDs[0])
	assert.Equal(t, input.Permissions, permissions)
}

func TestJWTContextAccessors_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTOrgID(c))
	assert.Nil(t, GetJWTRoleIDs(c))
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	jwtService := execJWTService()

	customErrorCalled := false
	cfg := DefaultJWTConfig(jwtService)
	cfg.OnError = func(c *gin.Context, err error) {
		customErrorCalled = true
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"custom": "error"})
	}

	router := guardedBriefingRouter(JWTAuthMiddlewareWithConfig(cfg), nil)
	rec := serveGuarded(router, "")

	assert.True(t, customErrorCalled)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
