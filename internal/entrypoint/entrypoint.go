package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	http_controllers "github.com/mrlokans/library/internal/http"
)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// csrfSecret decodes the configured secret, or generates one for this run.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		// Not hex, use as raw bytes
		return []byte(configured), nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}

// Build wires the database, authentication and router from cfg. The returned
// cleanup closes the database.
func Build(cfg *config.Config, version string) (*gin.Engine, func(), error) {
	db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	authService := auth.NewService(db.Users, cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	secret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}

	if hasUsers, err := authService.HasUsers(); err == nil && !hasUsers {
		log.Printf("No users found. Visit /setup to create an administrator account.")
	}
	if !cfg.Catalog.EditRequiresPermission {
		log.Printf("WARNING: catalog editing is open to every visitor (CATALOG_EDIT_REQUIRES_PERMISSION=false)")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Audit:          audit.NewService(db.Audit),
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, sessionManager),
		SessionManager: sessionManager,
		LoginLimiter:   auth.NewLoginLimiter(cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockout, cfg.Auth.LoginLockout),
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Catalog:        cfg.Catalog,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	})

	return router, cleanup, nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Local Library v%s", version)

	router, cleanup, err := Build(cfg, version)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	Serve(router, cfg)
}
