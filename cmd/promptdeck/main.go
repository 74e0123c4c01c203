package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	geminiadapter "github.com/promptdeck/promptdeck/internal/adapter/driven/gemini"
	sqliteadapter "github.com/promptdeck/promptdeck/internal/adapter/driven/sqlite"
	httphandler "github.com/promptdeck/promptdeck/internal/adapter/driving/http"
	"github.com/promptdeck/promptdeck/internal/application"
	"github.com/promptdeck/promptdeck/internal/cipher"
	"github.com/promptdeck/promptdeck/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration. A missing secret key is generated and persisted
	// to .env on first run.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"gemini_model", cfg.GeminiModel,
		"key_generated", cfg.KeyGenerated,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	sessionStore := sqliteadapter.NewSessionRepo(db)
	promptStore := sqliteadapter.NewPromptRepo(db)
	chatStore := sqliteadapter.NewChatRepo(db)
	generator := geminiadapter.NewClient(cfg.GeminiModel)

	keyCipher, err := cipher.New(cfg.SecretKey)
	if err != nil {
		return err
	}

	// 6. Wire application services.
	sessionSvc := application.NewSessionService(sessionStore, generator, keyCipher, slog.Default())
	chatSvc := application.NewChatService(sessionSvc, promptStore, chatStore, generator, slog.Default())

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(promptStore, chatStore, sessionSvc, chatSvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	// WriteTimeout stays zero: generation streams are long-lived and a
	// server-side write deadline would sever them mid-response.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("promptdeck started", "listen_addr", cfg.ListenAddr, "gemini_model", cfg.GeminiModel)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight streams.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
