// Package server
//
// @title Unigest API
// @version 1.0
// @description University administration API (students, faculties, enrollments, grades, transcripts)
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/unigest/unigest/internal/auth"
	"github.com/unigest/unigest/internal/config"
	"github.com/unigest/unigest/internal/models"
	"github.com/unigest/unigest/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	tokens    *auth.TokenManager
	queue     tasks.Enqueuer
	closers   []func() error
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Tokens cannot be issued without an externally supplied secret
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET must be set: %w", err)
	}

	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing mail tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	server := newServer(cfg, db, tokens, asynqClient, zlog, version)
	server.closers = append(server.closers, asynqClient.Close)

	return server, nil
}

// newServer wires an already opened database and queue into a server
func newServer(cfg *config.Config, db *gorm.DB, tokens *auth.TokenManager, queue tasks.Enqueuer, zlog zerolog.Logger, version string) *Server {
	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		tokens:    tokens,
		queue:     queue,
		version:   version,
	}

	server.setupRouter()
	return server
}

// newValidator registers the domain validators used by request handlers
func newValidator() *validator.Validate {
	validate := validator.New()

	// Academic years are written "2025-2026" and span exactly one year
	validate.RegisterValidation("academicyear", func(fl validator.FieldLevel) bool {
		start, end, ok := strings.Cut(fl.Field().String(), "-")
		if !ok || len(start) != 4 || len(end) != 4 {
			return false
		}
		from, err1 := strconv.Atoi(start)
		to, err2 := strconv.Atoi(end)
		return err1 == nil && err2 == nil && to == from+1
	})

	return validate
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware (browser client)
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/register", s.register)

	// Authenticated API routes (JWT required)
	api := s.router.Group("/api")
	api.Use(JWTAuthMiddleware(s.db, s.tokens, s.logger))
	{
		// Auth endpoints
		api.GET("/auth/me", s.getCurrentUser)
		api.POST("/auth/verify-password", s.verifyPassword)
		api.POST("/auth/logout", s.logout)

		// Staff accounts (Admin and Doyen only)
		userRoutes := api.Group("/users")
		userRoutes.Use(RoleMiddleware(s.logger, models.Role.CanManageUsers))
		{
			userRoutes.GET("", s.listUsers)
			userRoutes.POST("", s.createUser)
		}

		// Faculties
		api.GET("/faculties", s.listFaculties)
		api.POST("/faculties", s.createFaculty)

		// Students
		api.GET("/students", s.listStudents)
		api.POST("/students", s.createStudent)
		api.GET("/students/:id", s.getStudent)
		api.GET("/students/:id/grades", s.listGrades)
		api.POST("/students/:id/grades", s.createGrade)
		api.GET("/students/:id/transcript", s.downloadTranscript)

		// Enrollments
		api.GET("/enrollments", s.listEnrollments)
		api.POST("/enrollments", s.createEnrollment)

		// Expenses
		api.GET("/expenses", s.listExpenses)
		api.POST("/expenses", s.createExpense)

		// Notifications (queued mail)
		api.POST("/notifications", s.sendNotification)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "unigest-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second, // transcripts are streamed
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.Close()

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Close releases the queue client and the database
func (s *Server) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn().Err(err).Msg("Error releasing resource")
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}
}
