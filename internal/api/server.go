// Package api is the HTTP adapter over the reconciliation services. It
// carries no business logic; every route maps onto exactly one service
// operation.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fintrack/recon-backend/internal/api/handlers"
	"github.com/fintrack/recon-backend/internal/application/service"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new API server over the given services.
func NewServer(cfg Config, recon *service.ReconService, repair *service.RepairService, ruleService *service.RuleService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}
	s.setupRoutes(recon, repair, ruleService)
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes(recon *service.ReconService, repair *service.RepairService, ruleService *service.RuleService) {
	// Health check outside /api, for load balancers.
	healthHandler := handlers.NewHealthHandler()
	s.router.GET("/health", healthHandler.Get)

	api := s.router.Group("/api")

	reconHandler := handlers.NewReconHandler(recon, repair)
	rec := api.Group("/reconcile")
	{
		rec.POST("/candidates", reconHandler.Candidates)
		rec.POST("/match", reconHandler.Match)
		rec.POST("/match-many", reconHandler.MatchMany)
		rec.POST("/unmatch", reconHandler.Unmatch)
		rec.POST("/unmatch-ledger", reconHandler.UnmatchLedger)
		rec.GET("/groups/:id", reconHandler.GetGroup)
		rec.DELETE("/groups/:id", reconHandler.DeleteGroup)
		rec.POST("/repair", reconHandler.Repair)
		rec.GET("/orphans", reconHandler.Orphans)
	}

	rulesHandler := handlers.NewRulesHandler(ruleService)
	rl := api.Group("/rules")
	{
		rl.POST("/learn", rulesHandler.Learn)
		rl.GET("", rulesHandler.List)
		rl.DELETE("/:id", rulesHandler.Delete)
	}
}

// requestLogger logs each request with method, path, status and latency.
// Health checks are skipped to keep the log readable.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
