package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/i18n"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/mail"
	"github.com/Zachkp/folio/internal/server"
	"github.com/Zachkp/folio/internal/storage"
	"github.com/Zachkp/folio/internal/views"
	"github.com/Zachkp/folio/internal/visitors"
	"github.com/Zachkp/folio/internal/welcome"
)

const cleanupInterval = 24 * time.Hour

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the portfolio HTTP server. Pending database migrations are applied on startup.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, cfg.Server.Mode == gin.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get()

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenAndMigrate(ctx, cfg.Database.Path, logger.WithComponent("storage"))
	if err != nil {
		return err
	}
	defer db.Close()

	counter, closeCounter, err := newCounter(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeCounter()

	deps, err := loadContent(cfg)
	if err != nil {
		return err
	}

	translator, err := i18n.New(logger.WithComponent("i18n"))
	if err != nil {
		return err
	}
	hasher, err := visitors.NewHasher("")
	if err != nil {
		return err
	}
	tracker := visitors.NewTracker(db)

	if cfg.Admin.Password == "admin123" {
		log.Warn("Using default admin password. Set ADMIN_PASSWORD or FOLIO_ADMIN_PASSWORD.")
	}
	if cfg.Mail.SMTPUser == "" || cfg.Mail.SMTPPassword == "" {
		log.Warn("SMTP credentials not configured; contact messages are stored but not emailed")
	}

	deps.Config = cfg
	deps.Log = log
	deps.Views = counter
	deps.Visitors = tracker
	deps.Hasher = hasher
	deps.Contact = mail.NewService(mail.NewSMTPSender(cfg.Mail), mail.NewInbox(db))
	deps.I18n = translator

	srv, err := server.New(deps)
	if err != nil {
		return err
	}

	go runCleanup(ctx, tracker, counter, logger.WithComponent("privacy"))

	// WriteTimeout has to cover a whole welcome stream.
	httpServer := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "address", httpServer.Addr, "mode", cfg.Server.Mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return err
	}
	log.Info("server exited gracefully")
	return nil
}

// newCounter uses Redis when redis.url is set and sqlite otherwise.
func newCounter(ctx context.Context, cfg *config.Config, db *sql.DB) (views.Counter, func(), error) {
	if cfg.Redis.URL == "" {
		return views.NewSQLiteCounter(db), func() {}, nil
	}
	client, err := views.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("view counts stored in redis", "addr", client.Options().Addr)
	return views.NewRedisCounter(client), func() { closeRedis(client) }, nil
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("failed to close redis client", "error", err)
	}
}

// loadContent reads projects, the profile and the greeting catalog.
func loadContent(cfg *config.Config) (server.Deps, error) {
	list, err := content.Load(os.DirFS(cfg.Content.Dir), content.NewRenderer())
	if err != nil {
		return server.Deps{}, err
	}
	profile, err := content.LoadProfile(os.DirFS(filepath.Dir(cfg.Content.Profile)), filepath.Base(cfg.Content.Profile))
	if err != nil {
		return server.Deps{}, err
	}
	greetings, err := welcome.LoadCatalogFile(cfg.Welcome.Catalog)
	if err != nil {
		return server.Deps{}, err
	}
	logger.Info("content loaded", "projects", len(list), "greetings", len(greetings))
	return server.Deps{
		Projects:  content.NewStore(list),
		Profile:   profile,
		Greetings: greetings,
	}, nil
}

// runCleanup enforces visit retention once at startup and then daily.
func runCleanup(ctx context.Context, tracker *visitors.Tracker, counter views.Counter, log *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		removed, err := tracker.Cleanup(ctx)
		if err != nil {
			log.Error("Error cleaning up old visitor data", "error", err)
		} else if removed > 0 {
			log.Info("Removed visitor records past retention", "count", removed)
		}
		if e, ok := counter.(views.Expirer); ok {
			if _, err := e.PurgeExpired(ctx); err != nil {
				log.Error("Error purging view dedup markers", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
