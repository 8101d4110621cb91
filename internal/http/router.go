// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/ai"
	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/config"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/http/handlers"
	"github.com/itemgate/go-itemgate-backend/internal/http/middleware"
	"github.com/itemgate/go-itemgate-backend/internal/prompt"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
	"github.com/itemgate/go-itemgate-backend/internal/simaland"
)

// userRepoShim adapts the repository free functions to the services.UserRepo
// interface expected by the AuthService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type userRepoShim struct{}

// CreateUser proxies repo.CreateUser.
func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

// GetUserByEmail proxies repo.GetUserByEmail.
func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

// GetUser proxies repo.GetUser.
func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

// catalogRepoShim adapts the repository free functions to the
// services.CatalogRepo interface shared by CatalogService and ImportService.
type catalogRepoShim struct{}

// CreateItemIfAbsent proxies repo.CreateItemIfAbsent.
func (catalogRepoShim) CreateItemIfAbsent(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, bool, error) {
	return repo.CreateItemIfAbsent(ctx, db, item)
}

// ListItems proxies repo.ListItems.
func (catalogRepoShim) ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	return repo.ListItems(ctx, db)
}

// SearchItemsByName proxies repo.SearchItemsByName.
func (catalogRepoShim) SearchItemsByName(ctx context.Context, db *gorm.DB, needle string) ([]domain.CatalogItem, error) {
	return repo.SearchItemsByName(ctx, db, needle)
}

// ListItemsNotGeneratedBy proxies repo.ListItemsNotGeneratedBy.
func (catalogRepoShim) ListItemsNotGeneratedBy(ctx context.Context, db *gorm.DB, userID uint) ([]domain.CatalogItem, error) {
	return repo.ListItemsNotGeneratedBy(ctx, db, userID)
}

// ListGeneratedItemIDs proxies repo.ListGeneratedItemIDs.
func (catalogRepoShim) ListGeneratedItemIDs(ctx context.Context, db *gorm.DB, userID uint) (map[uint]struct{}, error) {
	return repo.ListGeneratedItemIDs(ctx, db, userID)
}

// generationRepoShim adapts the repository free functions to the
// services.GenerationRepo interface expected by GenerationService.
type generationRepoShim struct{}

// GetItem proxies repo.GetItem.
func (generationRepoShim) GetItem(ctx context.Context, db *gorm.DB, id uint) (*domain.CatalogItem, error) {
	return repo.GetItem(ctx, db, id)
}

// CreateGeneration proxies repo.CreateGeneration.
func (generationRepoShim) CreateGeneration(ctx context.Context, db *gorm.DB, g *domain.UserGeneration) error {
	return repo.CreateGeneration(ctx, db, g)
}

// GetGenerationByKey proxies repo.GetGenerationByKey.
func (generationRepoShim) GetGenerationByKey(ctx context.Context, db *gorm.DB, userID, catalogItemID uint, variantName string) (*domain.UserGeneration, error) {
	return repo.GetGenerationByKey(ctx, db, userID, catalogItemID, variantName)
}

// GetOwnedGeneration proxies repo.GetOwnedGeneration.
func (generationRepoShim) GetOwnedGeneration(ctx context.Context, db *gorm.DB, id, ownerID uint) (*domain.UserGeneration, error) {
	return repo.GetOwnedGeneration(ctx, db, id, ownerID)
}

// UpdateGenerationFields proxies repo.UpdateGenerationFields.
func (generationRepoShim) UpdateGenerationFields(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	return repo.UpdateGenerationFields(ctx, db, id, fields)
}

// DeleteGeneration proxies repo.DeleteGeneration.
func (generationRepoShim) DeleteGeneration(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteGeneration(ctx, db, id)
}

// ListGenerations proxies repo.ListGenerations.
func (generationRepoShim) ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error) {
	return repo.ListGenerations(ctx, db, userID)
}

// SearchGenerationsByItemName proxies repo.SearchGenerationsByItemName.
func (generationRepoShim) SearchGenerationsByItemName(ctx context.Context, db *gorm.DB, userID uint, needle string) ([]domain.UserGeneration, error) {
	return repo.SearchGenerationsByItemName(ctx, db, userID, needle)
}

// excelRepoShim adapts the repository free functions to the
// services.ExcelRepo interface expected by ExcelService.
type excelRepoShim struct{}

// ListGenerations proxies repo.ListGenerations.
func (excelRepoShim) ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error) {
	return repo.ListGenerations(ctx, db, userID)
}

// MarkGenerationExported proxies repo.MarkGenerationExported.
func (excelRepoShim) MarkGenerationExported(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.MarkGenerationExported(ctx, db, id)
}

// ListItems proxies repo.ListItems.
func (excelRepoShim) ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	return repo.ListItems(ctx, db)
}

// ListAllGenerations proxies repo.ListAllGenerations.
func (excelRepoShim) ListAllGenerations(ctx context.Context, db *gorm.DB) ([]domain.UserGeneration, error) {
	return repo.ListAllGenerations(ctx, db)
}

// ListRecentLogs proxies repo.ListRecentLogs.
func (excelRepoShim) ListRecentLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.LogEntry, error) {
	return repo.ListRecentLogs(ctx, db, limit)
}

// ListUsers proxies repo.ListUsers.
func (excelRepoShim) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return repo.ListUsers(ctx, db)
}

// Deps carries the externally constructed collaborators the router cannot
// build itself (clients reach the network; the prompt is loaded from disk).
type Deps struct {
	// Generator is the AI collaborator client.
	Generator ai.Generator
	// Source is the marketplace catalog source.
	Source simaland.Source
	// Prompt is the loaded system prompt.
	Prompt *prompt.SystemPrompt
	// Tokens mints and validates JWTs.
	Tokens *auth.Manager
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), authentication and
// rate limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//  9. Auth (per group): bearer token; admin routes add RequireAdmin
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"Authorization",
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (8 MiB: spreadsheet uploads)
	r.Use(limitBody(8 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Response compression. The streaming import endpoint is excluded:
	// buffering its events would defeat the progress stream.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`.*/catalog/import/.*`})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/clients
	audit := services.NewAuditLog(db)
	authSvc := services.NewAuthService(db, userRepoShim{}, deps.Tokens)
	catalogSvc := services.NewCatalogService(db, catalogRepoShim{}, audit)
	importSvc := services.NewImportService(db, catalogRepoShim{}, deps.Source, audit)
	genSvc := services.NewGenerationService(db, generationRepoShim{}, deps.Generator, deps.Prompt, audit)
	excelSvc := services.NewExcelService(db, excelRepoShim{}, audit)
	h := handlers.New(authSvc, catalogSvc, importSvc, genSvc, excelSvc, audit)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// Auth (registration and login are the only unauthenticated routes)
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	authed := api.Group("", middleware.Auth(deps.Tokens))
	{
		authed.GET("/auth/me", h.Me)

		// Catalog
		authed.GET("/catalog", h.ListCatalog)
		authed.POST("/catalog/search/:word", h.SearchCatalog)

		// Generations (generate is keyed by catalog item id; a param route
		// beside the static /search segment would conflict in Gin's tree,
		// hence the /items prefix)
		authed.GET("/generations", h.ListGenerations)
		authed.POST("/generations/search/:word", h.SearchGenerations)
		authed.POST("/generations/items/:item_id", h.Generate)
		authed.PUT("/generations/:id", h.UpdateGeneration)
		authed.DELETE("/generations/:id", h.DeleteGeneration)

		// Excel (per-user export)
		authed.GET("/excel/export-items", h.ExportItems)
	}

	admin := authed.Group("", middleware.RequireAdmin())
	{
		admin.GET("/catalog/import/:count", h.ImportCatalog)
		admin.GET("/logs", h.ListLogs)
		admin.POST("/excel/upload-items", h.UploadItems)
		admin.GET("/excel/backup-database", h.BackupDatabase)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
