// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lifeone/internal/api"
	"github.com/starford/lifeone/internal/auth"
	"github.com/starford/lifeone/internal/chatservice"
	"github.com/starford/lifeone/internal/llm/openai"
	"github.com/starford/lifeone/internal/mcpserver"
	"github.com/starford/lifeone/internal/metrics"
	"github.com/starford/lifeone/internal/sse"
	"github.com/starford/lifeone/internal/storage"
	"github.com/starford/lifeone/internal/store"
	"github.com/starford/lifeone/pkg/logging"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = logging.Setup(cfg.App.LogFormat, cfg.App.LogLevel)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("llm_model", cfg.LLM.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := openState(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	var m *metrics.Metrics
	if cfg.App.Metrics {
		m = metrics.New()
	}
	rt.persister.OnSaveError(func(error) { m.SaveFailed() })

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt.st.SetOnChange(func(keys []string) {
		rt.persister.Notify(keys)
		broker.StateChanged(keys)
	})

	client := app.client
	if client == nil {
		client = openai.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout)
	}
	chat := chatservice.New(rt.st, client,
		chatservice.WithModel(cfg.LLM.Model),
		chatservice.WithLogger(logger),
		chatservice.WithMetrics(m),
		chatservice.WithPublisher(broker),
	)

	authCfg, err := apiAuth(cfg.Auth)
	if err != nil {
		return err
	}
	apiRouter := api.NewRouter(rt.st, chat, authCfg, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := rt.provider.Keys(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	var handler http.Handler = r
	if cfg.App.HTTP.H2C {
		handler = h2c.NewHandler(r, &http2.Server{})
	}
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Debounced saves; flushes once more on shutdown.
	g.Go(func() error {
		return rt.persister.Run(gCtx, rt.st)
	})

	// Trash retention.
	g.Go(func() error {
		purgeTrash(gCtx, rt.st, cfg.Trash, m, logger)
		return nil
	})

	// Reload documents edited on disk.
	if rt.fs != nil && cfg.Storage.Watch {
		g.Go(func() error {
			err := storage.Watch(gCtx, rt.fs, logger, func(keys []string) {
				reloaded, err := rt.persister.Reload(gCtx, rt.st, keys)
				if err != nil {
					logger.Warn("reload failed", slog.String("error", err.Error()))
				}
				broker.StateReloaded(reloaded)
			})
			if err != nil {
				logger.Warn("watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams only end when the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Unblock the background loops.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
// Logs go to stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = logging.New(logging.FormatText, cfg.App.LogLevel)
	}

	rt, err := openState(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()
	rt.st.SetOnChange(rt.persister.Notify)

	runCtx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return rt.persister.Run(gCtx, rt.st)
	})
	g.Go(func() error {
		defer cancel()
		return mcpserver.New(rt.st, app.version).ServeStdio()
	})
	return g.Wait()
}

var errShutdown = errors.New("shutdown")

// runtime is the loaded state and its persistence.
type runtime struct {
	provider  storage.Provider
	fs        *storage.FS // nil unless the fs driver is used
	persister *store.Persister
	st        *store.State
}

func (rt *runtime) close() {
	_ = rt.provider.Close()
}

// openState opens the configured storage driver and loads the state from it.
func openState(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{}
	switch cfg.Storage.Driver {
	case StorageSQLite:
		db, err := storage.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.provider = db
	default:
		fs, err := storage.NewFS(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.provider, rt.fs = fs, fs
	}

	rt.persister = store.NewPersister(rt.provider, logger)
	data, err := rt.persister.Load(ctx)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	rt.st = store.New(data)
	logger.Info("State loaded",
		slog.Int("contacts", len(data.Contacts)),
		slog.Int("schedule", len(data.Schedule)),
		slog.Int("expenses", len(data.Expenses)),
		slog.Int("diary", len(data.Diary)),
		slog.Int("sessions", len(data.ChatSessions)))
	return rt, nil
}

// apiAuth turns the auth section into the middleware settings.
func apiAuth(c AuthConfig) (api.AuthConfig, error) {
	switch c.Mode {
	case AuthModeToken:
		return api.AuthConfig{Mode: api.AuthToken, Token: c.Token}, nil
	case AuthModeJWT:
		return api.AuthConfig{Mode: api.AuthJWT, JWT: NewJWTManager(c)}, nil
	case AuthModeDisabled, "":
		return api.AuthConfig{Mode: api.AuthDisabled}, nil
	}
	return api.AuthConfig{}, fmt.Errorf("auth: unknown mode %q", c.Mode)
}

// NewJWTManager builds the token issuer for the jwt auth mode.
func NewJWTManager(c AuthConfig) *auth.JWTManager {
	return auth.NewJWTManager(c.JWTSecret, c.JWTIssuer, c.JWTTTL)
}

// purgeTrash drops expired trash items at startup and then every interval.
func purgeTrash(ctx context.Context, st *store.State, cfg TrashConfig, m *metrics.Metrics, logger *slog.Logger) {
	purge := func() {
		if n := st.PurgeExpired(st.Now()(), cfg.Retention); n > 0 {
			m.TrashPurged(n)
			logger.Info("trash purged", slog.Int("items", n))
		}
	}
	purge()

	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
