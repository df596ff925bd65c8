package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/briefing/backend/internal/application/audit"
	briefingapp "github.com/briefing/backend/internal/application/briefing"
	connectionapp "github.com/briefing/backend/internal/application/connection"
	identityapp "github.com/briefing/backend/internal/application/identity"
	domainbriefing "github.com/briefing/backend/internal/domain/briefing"
	domainidentity "github.com/briefing/backend/internal/domain/identity"
	domainprovider "github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/infrastructure/analysis"
	"github.com/briefing/backend/internal/infrastructure/auth"
	"github.com/briefing/backend/internal/infrastructure/cache"
	"github.com/briefing/backend/internal/infrastructure/config"
	"github.com/briefing/backend/internal/infrastructure/logger"
	"github.com/briefing/backend/internal/infrastructure/persistence"
	"github.com/briefing/backend/internal/infrastructure/provider"
	"github.com/briefing/backend/internal/infrastructure/telemetry"
	"github.com/briefing/backend/internal/interfaces/http/handler"
	"github.com/briefing/backend/internal/interfaces/http/middleware"
	"github.com/briefing/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/briefing/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Briefing Backend API
//	@version		1.0
//	@description	Executive briefing dashboard backend - aggregates email, calendar and support tickets into a daily briefing
//	@termsOfService	http://swagger.io/terms/

//	@contact.name	API Support
//	@contact.url	https://github.com/briefing/backend
//	@contact.email	support@briefing.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

//	@externalDocs.description	OpenAPI
//	@externalDocs.url			https://swagger.io/resources/open-api/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// Bridge zap through the OTLP collector when log export is enabled
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Warn("OTLP log export unavailable", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := logsProvider.Shutdown(ctx); err != nil {
				log.Error("Error shutting down logger provider", zap.Error(err))
			}
		}()
		if logsProvider.IsEnabled() {
			level, parseErr := zapcore.ParseLevel(cfg.Log.Level)
			if parseErr != nil {
				level = zapcore.InfoLevel
			}
			otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    cfg.Telemetry.ServiceName,
				LoggerProvider: logsProvider,
				Level:          level,
			})
			log = telemetry.NewBridgedLogger(log.Core(), otelCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
			log.Info("OTLP log export enabled")
		}
	}

	log.Info("Starting Briefing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	roleRepo := persistence.NewGormRoleRepository(db.DB)
	orgRepo := persistence.NewGormOrganizationRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)

	// Audit trail service (recording must never fail a business operation)
	auditService := auditapp.NewService(auditRepo, log)

	// JWT service and token blacklist. Redis backs revocation; without it
	// the in-memory blacklist still covers a single instance.
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable for token blacklist, using in-memory fallback", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
	}

	// Credential cache for provider tokens
	credentialCache, err := cache.NewCredentialCacheFactory(
		cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create credential cache", zap.Error(err))
	}

	// Briefing payload cache shares the Redis client when one is available
	var briefingCache cache.BriefingCache
	if redisCreds, ok := credentialCache.(*cache.RedisCredentialCache); ok {
		briefingCache = cache.NewRedisBriefingCache(redisCreds.GetClient())
		log.Info("Briefing cache enabled", zap.Duration("ttl", cfg.Aggregation.CacheTTL))
	} else {
		log.Warn("Briefing cache disabled, briefings assembled on every request")
	}

	// Provider registry with the clients enabled in configuration
	registry := provider.NewRegistry(connectionRepo, credentialCache, log)
	if cfg.Providers.Outlook.Enabled {
		outlookConfig := provider.NewOutlookConfig()
		if cfg.Providers.Outlook.BaseURL != "" {
			outlookConfig.BaseURL = cfg.Providers.Outlook.BaseURL
		}
		if cfg.Providers.Outlook.Timeout > 0 {
			outlookConfig.Timeout = cfg.Providers.Outlook.Timeout
		}
		static := provider.NewStaticTokenSource(cfg.Providers.Outlook.APIToken)
		err := registry.Register(domainprovider.CodeOutlook, static, func(tokens provider.TokenSource) (domainprovider.Client, error) {
			return provider.NewOutlookClient(outlookConfig, tokens)
		})
		if err != nil {
			log.Fatal("Failed to register Outlook provider", zap.Error(err))
		}
		log.Info("Provider registered", zap.String("provider", domainprovider.CodeOutlook.String()))
	}
	if cfg.Providers.Gmail.Enabled {
		gmailConfig := provider.NewGmailConfig()
		if cfg.Providers.Gmail.Timeout > 0 {
			gmailConfig.Timeout = cfg.Providers.Gmail.Timeout
		}
		static := provider.NewStaticTokenSource("")
		err := registry.Register(domainprovider.CodeGmail, static, func(tokens provider.TokenSource) (domainprovider.Client, error) {
			return provider.NewGmailClient(gmailConfig, tokens)
		})
		if err != nil {
			log.Fatal("Failed to register Gmail provider", zap.Error(err))
		}
		log.Info("Provider registered", zap.String("provider", domainprovider.CodeGmail.String()))
	}
	if cfg.Providers.Zendesk.Enabled {
		zendeskConfig := provider.NewZendeskConfig(cfg.Providers.Zendesk.Subdomain)
		if cfg.Providers.Zendesk.BaseURL != "" {
			zendeskConfig.BaseURL = cfg.Providers.Zendesk.BaseURL
		}
		if cfg.Providers.Zendesk.Timeout > 0 {
			zendeskConfig.Timeout = cfg.Providers.Zendesk.Timeout
		}
		static := provider.NewStaticTokenSource(cfg.Providers.Zendesk.APIToken)
		err := registry.Register(domainprovider.CodeZendesk, static, func(tokens provider.TokenSource) (domainprovider.Client, error) {
			return provider.NewZendeskClient(zendeskConfig, tokens)
		})
		if err != nil {
			log.Fatal("Failed to register Zendesk provider", zap.Error(err))
		}
		log.Info("Provider registered", zap.String("provider", domainprovider.CodeZendesk.String()))
	}

	// AI analyzer; briefings fall back to heuristic analysis when disabled
	var analyzer domainbriefing.Analyzer
	if cfg.Analysis.Enabled {
		openaiConfig := analysis.NewOpenAIConfig(cfg.Analysis.APIKey)
		if cfg.Analysis.BaseURL != "" {
			openaiConfig.BaseURL = cfg.Analysis.BaseURL
		}
		if cfg.Analysis.Model != "" {
			openaiConfig.Model = cfg.Analysis.Model
		}
		if cfg.Analysis.Timeout > 0 {
			openaiConfig.Timeout = cfg.Analysis.Timeout
		}
		if cfg.Analysis.MaxBodySize > 0 {
			openaiConfig.MaxBodySize = cfg.Analysis.MaxBodySize
		}
		openaiAnalyzer, err := analysis.NewOpenAIAnalyzer(openaiConfig)
		if err != nil {
			log.Fatal("Failed to create analyzer", zap.Error(err))
		}
		analyzer = openaiAnalyzer
		log.Info("Analysis enabled", zap.String("model", openaiConfig.Model))
	} else {
		log.Info("Analysis disabled, using heuristic fallback")
	}

	// OpenTelemetry tracing and metrics (if enabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database spans and query metrics ride the same GORM connection
	if tracerProvider.IsEnabled() {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  200 * time.Millisecond,
			DBSystem:         "postgresql",
			WithoutVariables: true,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	if meterProvider.IsEnabled() {
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("db"), telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to create database metrics", zap.Error(err))
		} else {
			if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
				log.Warn("Failed to register database metrics plugin", zap.Error(err))
			}
			if sqlDB, err := db.DB.DB(); err == nil {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(context.Background())
			}
			defer dbMetrics.Stop()
		}
	}

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilerAddress,
		ApplicationName:     cfg.Telemetry.ServiceName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Warn("Failed to start profiler", zap.Error(err))
	} else {
		defer func() {
			if err := profiler.Stop(); err != nil {
				log.Error("Error stopping profiler", zap.Error(err))
			}
		}()
	}

	var briefingMetrics *telemetry.BriefingMetrics
	if meterProvider.IsEnabled() {
		briefingMetrics, err = telemetry.NewBriefingMetrics(telemetry.BriefingMetricsConfig{
			Meter:              meterProvider.Meter("briefing"),
			Logger:             log,
			ConnectionProvider: connectionCounts{repo: connectionRepo},
		})
		if err != nil {
			log.Warn("Failed to create briefing metrics", zap.Error(err))
		}
	}

	// Initialize application services
	authService := identityapp.NewAuthService(
		userRepo, roleRepo, orgRepo,
		jwtService, tokenBlacklist, auditService,
		identityapp.DefaultAuthServiceConfig(), log,
	)
	userService := identityapp.NewUserService(userRepo, roleRepo, orgRepo, auditService, log)
	roleService := identityapp.NewRoleService(roleRepo, auditService, log)
	orgService := identityapp.NewOrganizationService(orgRepo, auditService, log)
	briefingService := briefingapp.NewService(registry, analyzer, briefingCache, briefingMetrics, log, briefingapp.Config{
		FetchTimeout:       cfg.Aggregation.FetchTimeout,
		EmailLimit:         cfg.Aggregation.EmailLimit,
		TicketLimit:        cfg.Aggregation.TicketLimit,
		CacheTTL:           cfg.Aggregation.CacheTTL,
		AnalysisBatchDelay: cfg.Analysis.BatchDelay,
	})
	connectionService := connectionapp.NewService(
		connectionRepo, registry, credentialCache, briefingCache, auditService, log,
	)

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	orgHandler := handler.NewOrganizationHandler(orgService)
	briefingHandler := handler.NewBriefingHandler(briefingService, connectionService, auditService)
	connectionHandler := handler.NewConnectionHandler(connectionService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if tracerProvider.IsEnabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
	}
	if meterProvider.IsEnabled() {
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("http"), true))
	}
	if cfg.Telemetry.ProfilingEnabled {
		engine.Use(middleware.Profiling())
	}

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		swaggerGuard := middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: tokenBlacklist,
			Logger:         log,
		}))
		engine.GET("/swagger/*any", swaggerGuard, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Authentication routes: login and refresh are public, the rest carry
	// a token. The auth group gets its own stricter rate limit.
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authRoutes.Use(middleware.RateLimit(authLimiter))
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.RefreshToken)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.GET("/me", authHandler.GetCurrentUser)
	authRoutes.PUT("/password", authHandler.ChangePassword)
	authRoutes.POST("/impersonate", middleware.RequirePermission(domainidentity.PermImpersonate), authHandler.Impersonate)
	authRoutes.DELETE("/impersonate", authHandler.StopImpersonation)
	authRoutes.POST("/force-logout", middleware.RequirePermission(domainidentity.PermUsersManage), authHandler.ForceLogout)

	// Briefing routes
	briefingRoutes := router.NewDomainGroup("briefing", "/briefing")
	briefingRead := middleware.RequirePermission(domainidentity.PermBriefingRead)
	briefingRoutes.GET("", briefingRead, briefingHandler.Get)
	briefingRoutes.POST("/refresh", briefingRead, briefingHandler.Refresh)

	// Provider connection routes
	connectionRoutes := router.NewDomainGroup("connections", "/connections")
	connectionRoutes.GET("", connectionHandler.List)
	connectionRoutes.POST("", connectionHandler.Connect)
	connectionRoutes.GET("/stats", middleware.RequirePermission(domainidentity.PermConnectionsRead), connectionHandler.CountByProvider)
	connectionRoutes.DELETE("/:provider", connectionHandler.Disconnect)

	// Identity domain (users, roles, organizations, permissions)
	identityRoutes := router.NewDomainGroup("identity", "/identity")
	identityRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "identity service ready"})
	})

	// User management routes
	userAdmin := middleware.RequirePermission(domainidentity.PermUsersManage)
	identityRoutes.POST("/users", userAdmin, userHandler.Create)
	identityRoutes.GET("/users", userAdmin, userHandler.List)
	identityRoutes.GET("/users/stats/count", userAdmin, userHandler.Count)
	identityRoutes.GET("/users/:id", userAdmin, userHandler.Get)
	identityRoutes.PUT("/users/:id", userAdmin, userHandler.Update)
	identityRoutes.DELETE("/users/:id", userAdmin, userHandler.Delete)
	identityRoutes.POST("/users/:id/activate", userAdmin, userHandler.Activate)
	identityRoutes.POST("/users/:id/deactivate", userAdmin, userHandler.Deactivate)
	identityRoutes.POST("/users/:id/lock", userAdmin, userHandler.Lock)
	identityRoutes.POST("/users/:id/unlock", userAdmin, userHandler.Unlock)
	identityRoutes.POST("/users/:id/reset-password", userAdmin, userHandler.ResetPassword)
	identityRoutes.PUT("/users/:id/roles", userAdmin, userHandler.AssignRoles)

	// Role management routes
	roleAdmin := middleware.RequirePermission(domainidentity.PermRolesManage)
	identityRoutes.POST("/roles", roleAdmin, roleHandler.Create)
	identityRoutes.GET("/roles", roleAdmin, roleHandler.List)
	identityRoutes.GET("/roles/:id", roleAdmin, roleHandler.Get)
	identityRoutes.PUT("/roles/:id", roleAdmin, roleHandler.Update)
	identityRoutes.DELETE("/roles/:id", roleAdmin, roleHandler.Delete)
	identityRoutes.POST("/roles/:id/enable", roleAdmin, roleHandler.Enable)
	identityRoutes.POST("/roles/:id/disable", roleAdmin, roleHandler.Disable)
	identityRoutes.PUT("/roles/:id/permissions", roleAdmin, roleHandler.SetPermissions)

	// Permission catalog
	identityRoutes.GET("/permissions", roleAdmin, roleHandler.ListPermissions)

	// Organization management routes
	orgAdmin := middleware.RequirePermission(domainidentity.PermOrgsManage)
	identityRoutes.POST("/organizations", orgAdmin, orgHandler.Create)
	identityRoutes.GET("/organizations", orgAdmin, orgHandler.List)
	identityRoutes.GET("/organizations/:id", orgAdmin, orgHandler.Get)
	identityRoutes.GET("/organizations/:id/stats", orgAdmin, orgHandler.GetStats)
	identityRoutes.PUT("/organizations/:id", orgAdmin, orgHandler.Update)
	identityRoutes.PUT("/organizations/:id/settings", orgAdmin, orgHandler.UpdateSettings)
	identityRoutes.DELETE("/organizations/:id", orgAdmin, orgHandler.Delete)
	identityRoutes.POST("/organizations/:id/activate", orgAdmin, orgHandler.Activate)
	identityRoutes.POST("/organizations/:id/deactivate", orgAdmin, orgHandler.Deactivate)
	identityRoutes.POST("/organizations/:id/suspend", orgAdmin, orgHandler.Suspend)

	// Audit trail routes
	auditRoutes := router.NewDomainGroup("audit", "/audit")
	auditRead := middleware.RequirePermission(domainidentity.PermAuditRead)
	auditRoutes.GET("", auditRead, auditHandler.List)
	auditRoutes.GET("/actors/:id", auditRead, auditHandler.ListByActor)

	// Register all domain groups
	r.Register(authRoutes).
		Register(briefingRoutes).
		Register(connectionRoutes).
		Register(identityRoutes).
		Register(auditRoutes)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// connectionCounts adapts the connection repository to the metrics collector,
// which reports per-provider gauges keyed by string codes.
type connectionCounts struct {
	repo *persistence.GormConnectionRepository
}

func (a connectionCounts) GetActiveConnectionCounts(ctx context.Context, orgID uuid.UUID) (map[string]int64, error) {
	counts, err := a.repo.CountByProvider(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for code, n := range counts {
		out[code.String()] = n
	}
	return out, nil
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
