package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appbriefing "github.com/briefing/backend/internal/application/briefing"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/auth"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
)

type fakeProviderClient struct {
	code    provider.Code
	emails  []provider.RawEmail
	events  []provider.RawEvent
	tickets []provider.RawTicket

	emailErr  error
	eventErr  error
	ticketErr error
}

func (c *fakeProviderClient) Code() provider.Code                { return c.code }
func (c *fakeProviderClient) IsConnected(_ context.Context) bool { return true }

func (c *fakeProviderClient) FetchRecentEmails(_ context.Context, _ int) ([]provider.RawEmail, error) {
	if c.emailErr != nil {
		return nil, c.emailErr
	}
	return c.emails, nil
}

func (c *fakeProviderClient) FetchTodayEvents(_ context.Context) ([]provider.RawEvent, error) {
	if c.eventErr != nil {
		return nil, c.eventErr
	}
	return c.events, nil
}

func (c *fakeProviderClient) FetchOpenTickets(_ context.Context, _ int) ([]provider.RawTicket, error) {
	if c.ticketErr != nil {
		return nil, c.ticketErr
	}
	return c.tickets, nil
}

type fakeProviderRegistry struct {
	clients []provider.Client
}

func (r *fakeProviderRegistry) GetClient(code provider.Code) (provider.Client, error) {
	for _, c := range r.clients {
		if c.Code() == code {
			return c, nil
		}
	}
	return nil, provider.ErrUnknownProvider
}

func (r *fakeProviderRegistry) ListClients() []provider.Client { return r.clients }

func (r *fakeProviderRegistry) ListConnected(_ context.Context, _ uuid.UUID) []provider.Client {
	return r.clients
}

type briefingTestEnv struct {
	jwtService *auth.JWTService
	router     *gin.Engine
}

// newBriefingTestEnv mounts the briefing routes the way the server does:
// behind the JWT middleware plus the briefing read permission.
func newBriefingTestEnv(registry provider.Registry) *briefingTestEnv {
	jwtService := auth.NewJWTService(testJWTConfig())
	svc := appbriefing.NewService(registry, nil, nil, nil, zap.NewNop(), appbriefing.Config{})
	h := NewBriefingHandler(svc, nil, nil)

	router := gin.New()
	group := router.Group("/api/v1/briefing")
	group.Use(middleware.JWTAuthMiddleware(jwtService))
	briefingRead := middleware.RequirePermission(identity.PermBriefingRead)
	group.GET("", briefingRead, h.Get)
	group.POST("/refresh", briefingRead, h.Refresh)

	return &briefingTestEnv{jwtService: jwtService, router: router}
}

func (e *briefingTestEnv) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *briefingTestEnv) issueToken(t *testing.T, perms ...string) string {
	t.Helper()
	pair, err := e.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		OrgID:       uuid.New(),
		UserID:      uuid.New(),
		Email:       "ceo@acme.com",
		Permissions: perms,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

func TestBriefingHandlerGet_MissingToken(t *testing.T) {
	env := newBriefingTestEnv(&fakeProviderRegistry{})

	w := env.do(t, http.MethodGet, "/api/v1/briefing", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env2 := decodeEnvelope(t, w)
	assert.False(t, env2.Success)
	require.NotNil(t, env2.Error)
}

func TestBriefingHandlerGet_MalformedToken(t *testing.T) {
	env := newBriefingTestEnv(&fakeProviderRegistry{})

	w := env.do(t, http.MethodGet, "/api/v1/briefing", "not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBriefingHandlerGet_MissingPermission(t *testing.T) {
	env := newBriefingTestEnv(&fakeProviderRegistry{})
	token := env.issueToken(t, identity.PermConnectionsRead)

	w := env.do(t, http.MethodGet, "/api/v1/briefing", token)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBriefingHandlerGet_PartialProviderFailure(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	outlook := &fakeProviderClient{
		code: provider.CodeOutlook,
		emails: []provider.RawEmail{{
			ID:            "msg-1",
			Subject:       "Quarterly review",
			Preview:       "Numbers attached",
			SenderName:    "Jane Doe",
			SenderAddress: "jane@acme.com",
			ReceivedAt:    received,
			Importance:    "high",
		}},
	}
	gmail := &fakeProviderClient{
		code:     provider.CodeGmail,
		emailErr: provider.ErrUnavailable,
	}
	env := newBriefingTestEnv(&fakeProviderRegistry{clients: []provider.Client{outlook, gmail}})
	token := env.issueToken(t, identity.PermBriefingRead)

	w := env.do(t, http.MethodGet, "/api/v1/briefing", token)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)

	var dto appbriefing.BriefingDTO
	require.NoError(t, json.Unmarshal(resp.Data, &dto))
	require.Len(t, dto.Emails, 1)
	assert.Equal(t, "Quarterly review", dto.Emails[0].Title)
	assert.Equal(t, "outlook", dto.Emails[0].Source)

	require.Len(t, dto.Providers, 2)
	fetched := map[string]bool{}
	for _, p := range dto.Providers {
		fetched[p.Code] = p.Fetched
	}
	assert.True(t, fetched["outlook"])
	assert.False(t, fetched["gmail"])
}

func TestBriefingHandlerGet_AllProvidersFailing(t *testing.T) {
	registry := &fakeProviderRegistry{clients: []provider.Client{
		&fakeProviderClient{code: provider.CodeOutlook, emailErr: provider.ErrAuthFailed, eventErr: provider.ErrAuthFailed},
		&fakeProviderClient{code: provider.CodeZendesk, ticketErr: provider.ErrUnavailable},
	}}
	env := newBriefingTestEnv(registry)
	token := env.issueToken(t, identity.PermBriefingRead)

	w := env.do(t, http.MethodGet, "/api/v1/briefing", token)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)

	var dto appbriefing.BriefingDTO
	require.NoError(t, json.Unmarshal(resp.Data, &dto))
	assert.Empty(t, dto.Emails)
	assert.Empty(t, dto.Schedule)
	assert.Empty(t, dto.Tickets)
}

func TestBriefingHandlerRefresh(t *testing.T) {
	env := newBriefingTestEnv(&fakeProviderRegistry{})
	token := env.issueToken(t, identity.PermBriefingRead)

	w := env.do(t, http.MethodPost, "/api/v1/briefing/refresh", token)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	assert.True(t, resp.Success)
}
