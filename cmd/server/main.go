// Command server runs the ItemGate HTTP API: a multi-tenant catalog and AI
// content generation backend. It loads configuration from the environment
// (with optional .env for development), opens the SQLite store, seeds the
// bootstrap admin account, wires the Gin router, and serves until interrupted.
//
// @title        ItemGate API
// @version      1.0
// @description  Catalog import, AI content generation, and spreadsheet transfer.
// @BasePath     /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/itemgate/go-itemgate-backend/docs"
	"github.com/itemgate/go-itemgate-backend/internal/ai"
	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/config"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	httpapi "github.com/itemgate/go-itemgate-backend/internal/http"
	"github.com/itemgate/go-itemgate-backend/internal/observability"
	"github.com/itemgate/go-itemgate-backend/internal/prompt"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
	"github.com/itemgate/go-itemgate-backend/internal/simaland"
	"github.com/itemgate/go-itemgate-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// bootUserRepo adapts the repository free functions to services.UserRepo for
// the startup admin seed.
type bootUserRepo struct{}

func (bootUserRepo) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return repo.CreateUser(ctx, db, u)
}

func (bootUserRepo) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

func (bootUserRepo) GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	systemPrompt, err := prompt.Load(cfg.AI.PromptPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.AI.PromptPath).Msg("load system prompt failed")
	}

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Bootstrap admin (no-op when unset or already present).
	authSvc := services.NewAuthService(db, bootUserRepo{}, tokens)
	if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, httpapi.Deps{
		Generator: ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model),
		Source:    simaland.NewClient(cfg.SourceBaseURL),
		Prompt:    systemPrompt,
		Tokens:    tokens,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
}
