package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"psp.com/quizla/backend/internal/cache"
	"psp.com/quizla/backend/internal/catalog"
	"psp.com/quizla/backend/internal/config"
	"psp.com/quizla/backend/internal/logging"
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/routing"
	"psp.com/quizla/backend/internal/server"
	"psp.com/quizla/backend/internal/session"
	"psp.com/quizla/backend/internal/source"
	"psp.com/quizla/backend/internal/view"
)

// localBaseURL addresses category files served from the local site root.
const localBaseURL = "file://local"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:           "quizla",
		Short:         "Quizla trivia player backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfgPath = os.Getenv("QUIZLA_CONFIG")
			}
			if cfgPath == "" {
				cfgPath = "quizla.toml"
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to the TOML config file (default $QUIZLA_CONFIG or quizla.toml)")
	return cmd
}

func run(ctx context.Context, cfgPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, fromFile, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	logger.Info("configuration loaded", "path", cfgPath, "from_file", fromFile)

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	settingsStore := cache.NewSettingsStore(store)
	prefs, err := settingsStore.Load(ctx)
	if err != nil {
		logger.Warn("stored settings unreadable, using defaults", "error", err)
	}

	bank := questionbank.New()
	rec := view.NewRecorder(prefs)
	ctrl := session.New(session.Options{
		Categories: bank,
		Presenter:  rec,
		Saver:      settingsStore,
		Settings:   prefs,
		Rand:       quiz.NewRand(),
		Logger:     logging.Component(logger, "session"),
	})
	defer ctrl.EndSession()

	cat := catalog.New(catalog.Options{
		Loader: newLoader(cfg, logging.Component(logger, "source")),
		Bank:   bank,
		Cache:  cache.NewQuestionCache(store, cfg.CacheTTL()),
		Logger: logging.Component(logger, "catalog"),
	})
	defer cat.Stop()

	if err := cat.LoadPrimary(ctx); err != nil {
		return err
	}
	cat.LoadExtendedInBackground(ctx)
	if cfg.Refresh.Enabled {
		if err := cat.StartRefresh(ctx, cfg.RefreshInterval()); err != nil {
			return err
		}
	}

	srv := server.New(server.Options{
		Bank:           bank,
		Controller:     ctrl,
		View:           rec,
		Opener:         routing.NewBridge(bank, ctrl, logging.Component(logger, "routing")),
		Status:         cat,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		DataDir:        dataDir(cfg),
		Logger:         logging.Component(logger, "http"),
	})
	return serve(ctx, cfg, srv, logger)
}

// newLoader fetches from Sources.BaseURL, or from the site root on disk when
// no base URL is configured.
func newLoader(cfg *config.Config, logger *slog.Logger) *source.Loader {
	client := &http.Client{Timeout: cfg.SourceTimeout()}
	base := cfg.Sources.BaseURL
	if base == "" {
		t := &http.Transport{}
		t.RegisterProtocol("file", http.NewFileTransport(http.Dir(cfg.Sources.Root)))
		client.Transport = t
		base = localBaseURL
	}
	return source.New(source.Options{
		Client:      client,
		BaseURL:     base,
		PrimaryDir:  cfg.Sources.PrimaryDir,
		ExtendedDir: cfg.Sources.ExtendedDir,
		Manifest:    cfg.Sources.Manifest,
		Logger:      logger,
		Progress: func(percent int, message string) {
			logger.Debug("loading", "percent", percent, "message", message)
		},
	})
}

func dataDir(cfg *config.Config) string {
	if cfg.Sources.BaseURL != "" {
		return ""
	}
	return filepath.Join(cfg.Sources.Root, cfg.Sources.PrimaryDir)
}

func serve(ctx context.Context, cfg *config.Config, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS() {
			logger.Info("backend listening", "port", cfg.Server.Port, "tls", true)
			errCh <- srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			return
		}
		logger.Info("backend listening", "port", cfg.Server.Port, "tls", false)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
