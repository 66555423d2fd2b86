// INK - Gemini chat server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/ink/internal/browser"
	"github.com/ashureev/ink/internal/config"
	"github.com/ashureev/ink/internal/dataset"
	"github.com/ashureev/ink/internal/engine"
	"github.com/ashureev/ink/internal/generator"
	"github.com/ashureev/ink/internal/identity"
	"github.com/ashureev/ink/internal/images"
	"github.com/ashureev/ink/internal/memory"
	"github.com/ashureev/ink/internal/metrics"
	"github.com/ashureev/ink/internal/store"
	"github.com/ashureev/ink/internal/thinking"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ink",
		Short: "INK chat server",
		Long: `Run the INK chat server.

Configuration is read from the environment (and a .env file when present).
Flags override the matching environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				slog.Info("No .env file found, using environment variables")
			}

			cfg, err := config.Load()
			if err != nil {
				slog.Error("Failed to load configuration", "error", err)
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().String("host", "", "Host to bind (overrides HOST)")
	cmd.Flags().String("cache-dir", "", "Cache directory (overrides CACHE_DIR)")
	cmd.Flags().Bool("no-browser", false, "Do not open a browser at startup")
	return cmd
}

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir, _ = flags.GetString("cache-dir")
	}
	if noBrowser, _ := flags.GetBool("no-browser"); noBrowser {
		cfg.OpenBrowser = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "addr", cfg.Addr(), "store", cfg.StoreBackend, "dev", cfg.IsDevelopment())
	if cfg.InsecureSecret {
		slog.Warn("SESSION_SECRET not set, using the built-in default; session cookies can be forged")
	}

	if err := cfg.EnsureDirs(); err != nil {
		slog.Error("Failed to create cache directories", "error", err)
		return err
	}

	// Initialize dependencies.
	snapshots, err := store.Open(cfg.StoreBackend, cfg.ConversationsDir())
	if err != nil {
		slog.Error("Failed to open conversation store", "error", err)
		return err
	}
	defer func() {
		if closeErr := snapshots.Close(); closeErr != nil {
			slog.Error("Failed to close conversation store", "error", closeErr)
		}
	}()

	if p, ok := snapshots.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			return err
		}
		slog.Info("Database connected")
	}

	mem := memory.New(snapshots, memory.WithLogger(logger))
	if err := mem.Load(ctx); err != nil {
		slog.Error("Failed to load conversation", "error", err)
		return err
	}

	var gen generator.TextGenerator
	if cfg.GenerationEnabled() {
		gemini, err := generator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini client", "error", err)
			return err
		}
		gen = gemini
		slog.Info("Gemini client initialized", "model", gemini.Model())
	} else {
		slog.Warn("GEMINI_API_KEY not set, chat and code generation are disabled")
	}

	eng := engine.New(mem, generator.NewResponder(gen, mem), images.NewEmitter(cfg.ImagesDir()))

	datasets, err := dataset.NewLogger(dataset.Config{
		Enabled:   cfg.DatasetLog.Enabled,
		Dir:       cfg.DatasetsDir(),
		QueueSize: cfg.DatasetLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize dataset logger", "error", err)
		return err
	}
	defer func() {
		if closeErr := datasets.Close(); closeErr != nil {
			slog.Error("Failed to close dataset logger", "error", closeErr)
		}
	}()
	eng.SetRecorder(datasets)

	m := metrics.New()
	hub := thinking.NewHub(func(n int) { m.ThinkingListeners.Set(float64(n)) })
	thinkingHandler, unsubscribe := thinking.NewHandler(hub, mem, cfg.IsDevelopment())
	defer unsubscribe()

	r := newRouter(routerDeps{
		cfg:      cfg,
		engine:   eng,
		metrics:  m,
		signer:   identity.NewSigner(cfg.SessionSecret),
		thinking: thinkingHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // generation calls and the thinking stream are long-lived
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr, "url", cfg.LocalURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.OpenBrowser {
		timer := browser.OpenAfter(cfg.BrowserDelay, cfg.LocalURL(), browser.Open)
		defer timer.Stop()
	}

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("Server failed", "error", err)
		return err
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return err
	}

	slog.Info("Server stopped successfully")
	return nil
}
