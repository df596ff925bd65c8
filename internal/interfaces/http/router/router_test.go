package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	briefing := NewDomainGroup("briefing", "/briefing")
	briefing.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "today")
	})
	briefing.POST("/refresh", func(c *gin.Context) {
		c.String(http.StatusOK, "invalidated")
	})

	r.Register(briefing)
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, "GET", "/api/v1/briefing").Code)
	assert.Equal(t, http.StatusOK, serve(engine, "POST", "/api/v1/briefing/refresh").Code)
}

func TestRouterUse(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Use(func(c *gin.Context) {
		c.Header("X-Stack", "applied")
		c.Next()
	})

	g := NewDomainGroup("briefing", "/briefing")
	g.GET("", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.Register(g).Setup()

	w := serve(engine, "GET", "/api/v1/briefing")
	assert.Equal(t, "applied", w.Header().Get("X-Stack"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("connections", "/connections")
		assert.Equal(t, "connections", g.Name())
		assert.Equal(t, "/connections", g.Prefix())
	})

	t.Run("all verbs route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("connections", "/connections")
		g.GET("", func(c *gin.Context) { c.String(http.StatusOK, "list") })
		g.POST("", func(c *gin.Context) { c.String(http.StatusCreated, "connected") })
		g.PUT("/:provider", func(c *gin.Context) { c.String(http.StatusOK, "updated") })
		g.PATCH("/:provider", func(c *gin.Context) { c.String(http.StatusOK, "patched") })
		g.DELETE("/:provider", func(c *gin.Context) { c.String(http.StatusNoContent, "") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, http.StatusOK, serve(engine, "GET", "/api/v1/connections").Code)
		assert.Equal(t, http.StatusCreated, serve(engine, "POST", "/api/v1/connections").Code)
		assert.Equal(t, http.StatusOK, serve(engine, "PUT", "/api/v1/connections/gmail").Code)
		assert.Equal(t, http.StatusOK, serve(engine, "PATCH", "/api/v1/connections/gmail").Code)
		assert.Equal(t, http.StatusNoContent, serve(engine, "DELETE", "/api/v1/connections/gmail").Code)
	})

	t.Run("group middleware applies", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("audit", "/audit")
		g.Use(func(c *gin.Context) {
			c.Header("X-Audit", "on")
			c.Next()
		})
		g.GET("", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, "GET", "/api/v1/audit")
		assert.Equal(t, "on", w.Header().Get("X-Audit"))
	})

	t.Run("subgroups nest under the domain prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("identity", "/identity")

		users := g.Group("users", "/users")
		users.GET("", func(c *gin.Context) { c.String(http.StatusOK, "users") })

		roles := g.Group("roles", "/roles")
		roles.GET("", func(c *gin.Context) { c.String(http.StatusOK, "roles") })

		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "users", serve(engine, "GET", "/api/v1/identity/users").Body.String())
		assert.Equal(t, "roles", serve(engine, "GET", "/api/v1/identity/roles").Body.String())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	briefing := NewDomainGroup("briefing", "/briefing")
	briefing.GET("", func(c *gin.Context) { c.String(http.StatusOK, "briefing") })

	connections := NewDomainGroup("connections", "/connections")
	connections.GET("", func(c *gin.Context) { c.String(http.StatusOK, "connections") })

	r.Register(briefing).Register(connections)
	r.Setup()

	assert.Equal(t, "briefing", serve(engine, "GET", "/api/v1/briefing").Body.String())
	assert.Equal(t, "connections", serve(engine, "GET", "/api/v1/connections").Body.String())
}

func TestChainedMethodCalls(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	g := NewDomainGroup("identity", "/identity")
	g.GET("/users", func(c *gin.Context) { c.String(http.StatusOK, "a") }).
		POST("/users", func(c *gin.Context) { c.String(http.StatusOK, "b") }).
		PUT("/users/:id", func(c *gin.Context) { c.String(http.StatusOK, "c") })

	r.Register(g).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, "GET", "/api/v1/identity/users").Code)
	assert.Equal(t, http.StatusOK, serve(engine, "POST", "/api/v1/identity/users").Code)
	assert.Equal(t, http.StatusOK, serve(engine, "PUT", "/api/v1/identity/users/123").Code)
}
