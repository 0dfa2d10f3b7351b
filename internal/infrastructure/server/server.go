package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/MWade09/Live-Code-Editor-sub004/internal/api/http"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/api/middleware"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/config"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/logging"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/infrastructure/monitoring"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/terminal"
	"github.com/MWade09/Live-Code-Editor-sub004/internal/transport"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	terminals *transport.Handler
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		var err error
		logger, err = logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	shell := terminal.ResolveShell(terminal.CurrentPlatform(), cfg.Terminal.Shell)
	logger.Info("Initializing terminal server",
		zap.String("port", cfg.Server.Port),
		zap.String("shell", shell.Command),
		zap.Strings("shell_args", shell.Args),
		zap.Bool("pty", cfg.Terminal.PTY),
	)

	metrics := monitoring.NewMetrics()

	usePTY := cfg.Terminal.PTY
	if usePTY && terminal.CurrentPlatform() == terminal.PlatformWindows {
		logger.Warn("Pseudo-terminals are not supported on Windows, using pipes")
		usePTY = false
	}

	var spawner terminal.Spawner
	if usePTY {
		spawner = terminal.NewPTYSpawner(shell, logger)
	} else {
		spawner = terminal.NewPipeSpawner(shell, logger)
	}
	terminals := transport.NewHandler(spawner, cfg, logger, metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Trace())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.WebSocket.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(terminals, shell.Name(), usePTY)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET(cfg.WebSocket.Path, terminals.HandleConnection)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)

	return &Server{
		router:    router,
		terminals: terminals,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops. It returns nil
// after Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes every terminal connection and
// waits for their shells to be destroyed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	// Hijacked WebSocket connections are not tracked by http.Server.
	httpErr := s.http.Shutdown(ctx)
	termErr := s.terminals.Shutdown(ctx)

	_ = s.logger.Sync()

	if err := errors.Join(httpErr, termErr); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}
