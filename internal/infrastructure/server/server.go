package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/MicroPythonOS/shell/internal/api/http"
	"github.com/MicroPythonOS/shell/internal/api/middleware"
	"github.com/MicroPythonOS/shell/internal/api/ws"
	"github.com/MicroPythonOS/shell/internal/domain/activity"
	"github.com/MicroPythonOS/shell/internal/domain/apps"
	"github.com/MicroPythonOS/shell/internal/domain/looper"
	"github.com/MicroPythonOS/shell/internal/infrastructure/config"
	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/infrastructure/monitoring"
	"github.com/MicroPythonOS/shell/internal/infrastructure/tracing"
	"github.com/MicroPythonOS/shell/internal/providers/prefs"
	"github.com/MicroPythonOS/shell/internal/providers/script"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
)

// shutdownGrace bounds how long in-flight requests may finish after the
// run context is canceled.
const shutdownGrace = 5 * time.Second

// Server wires the UI thread, navigator, package manager, and debug API
// together.
type Server struct {
	router     *gin.Engine
	loop       *looper.Looper
	nav        *activity.Navigator
	appManager *apps.Manager
	prefs      *prefs.Manager
	hub        *ws.Hub
	stopWatch  func()
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing MicroPythonOS shell",
		zap.String("port", cfg.Server.Port),
		zap.String("root", cfg.Apps.Root),
		zap.String("store", cfg.Apps.StoreURL),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Initialize request tracing
	tracer := tracing.New("shell", logger)

	// Prepare the on-disk layout
	layout := paths.NewLayout(cfg.Apps.Root)
	for _, dir := range layout.StandardDirectories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// Preference stores
	prefsDir := cfg.Prefs.Dir
	if prefsDir == "" {
		prefsDir = layout.Prefs()
	}
	prefManager := prefs.NewManager(prefsDir, logger)

	// UI thread, registry, navigator
	loop := looper.New(logger)
	registry := activity.NewRegistry()
	nav := activity.NewNavigator(registry, logger).
		WithMetrics(metrics).
		WithExecutor(loop).
		WithSurfaceSize(cfg.Display.Width, cfg.Display.Height)

	// Package manager with the script runtime as activity factory
	scriptCfg := script.Config{
		Timeout:       cfg.Script.Timeout,
		MaxCallStack:  cfg.Script.MaxCallStack,
		EnableConsole: true,
		ConsoleLimit:  cfg.Script.ConsoleLimit,
	}
	factory := func(appID, source string) activity.Factory {
		return script.NewFactory(appID, source, prefManager, scriptCfg, logger)
	}
	appManager := apps.NewManager(layout, registry, factory, logger).
		WithMetrics(metrics).
		WithPrefs(prefManager)
	if cfg.Apps.StoreURL != "" {
		appManager = appManager.WithStore(apps.NewStore(cfg.Apps.StoreURL, logger))
	}

	// Discover what is already on disk
	if err := appManager.Scan(); err != nil {
		logger.Warn("Initial package scan failed", zap.Error(err))
	}

	var stopWatch func()
	if cfg.Apps.Watch {
		stopWatch, err = appManager.Watch(cfg.Apps.WatchDebounce)
		if err != nil {
			logger.Warn("Package watcher unavailable", zap.Error(err))
			stopWatch = nil
		}
	}

	// Event stream hub, fed by the navigator
	hub := ws.NewHub(logger, metrics)
	nav.AddListener(hub.Publish)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(nav, loop, appManager, prefManager, metrics)
	wsHandler := ws.NewHandler(hub, logger, metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Navigator
	router.GET("/stack", handlers.GetStack)
	router.GET("/actions", handlers.ListActions)
	router.POST("/intents/dispatch", handlers.Dispatch)
	router.POST("/navigator/back", handlers.Back)
	router.POST("/navigator/sleep", handlers.Sleep)
	router.POST("/navigator/wake", handlers.Wake)

	// Package management
	router.GET("/apps", handlers.ListApps)
	router.POST("/apps/install", handlers.InstallApp)
	router.DELETE("/apps/:id", handlers.UninstallApp)

	// Preferences
	router.GET("/prefs", handlers.ListNamespaces)
	router.GET("/prefs/:ns", handlers.GetNamespace)
	router.DELETE("/prefs/:ns", handlers.DropNamespace)
	router.GET("/prefs/:ns/:key", handlers.GetPref)
	router.PUT("/prefs/:ns/:key", handlers.PutPref)
	router.DELETE("/prefs/:ns/:key", handlers.DeletePref)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		loop:       loop,
		nav:        nav,
		appManager: appManager,
		prefs:      prefManager,
		hub:        hub,
		stopWatch:  stopWatch,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Navigator exposes the navigator, for embedding the shell in a host
// program that drives navigation directly.
func (s *Server) Navigator() *activity.Navigator {
	return s.nav
}

// Run starts the UI thread, the event hub, and the HTTP server, and
// blocks until ctx is canceled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	go s.loop.Run(ctx)
	go s.hub.Run(ctx)

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	srv := &http.Server{Addr: addr, Handler: s.router}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down shell...")

	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.loop.Stop()

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
