package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"canvas-backend/internal/auth"
	"canvas-backend/internal/cache"
	"canvas-backend/internal/config"
	"canvas-backend/internal/handler"
	"canvas-backend/internal/middleware"
	"canvas-backend/internal/presence"
	"canvas-backend/internal/service"
)

// Server Fiber server wrapper
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	db                *gorm.DB
	projectHandler    *handler.ProjectHandler
	healthHandler     *handler.HealthHandler
	collabWSHandler   *handler.CollabWSHandler
	projectMiddleware *middleware.ProjectMiddleware
	jwtManager        *auth.JWTManager
}

// New creates a server instance
func New(cfg *config.Config, db *gorm.DB, redisClient *cache.RedisClient) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Collaborative Canvas API",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // incompatible with WebSocket state
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             cfg.Canvas.MaxDocumentBytes + 64*1024, // document plus envelope headroom
		DisableStartupMessage: false,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret)
	memberService := service.NewMemberService(db)

	return &Server{
		app:               app,
		cfg:               cfg,
		db:                db,
		projectHandler:    handler.NewProjectHandler(db, redisClient, cfg),
		healthHandler:     handler.NewHealthHandler(db, redisClient),
		collabWSHandler:   handler.NewCollabWSHandler(presence.NewRegistry()),
		projectMiddleware: middleware.NewProjectMiddleware(memberService),
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware registers global middleware
func (s *Server) SetupMiddleware() {
	// panic recovery
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes registers all routes
func (s *Server) SetupRoutes() {
	// health endpoints
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// rate limiter for document saves (clients autosave aggressively)
	saveLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Project routes (auth required)
	projectGroup := s.app.Group("/api/projects", auth.AuthMiddleware(s.jwtManager))
	projectGroup.Post("/", s.projectHandler.CreateProject)
	projectGroup.Get("/", s.projectHandler.GetMyProjects)
	projectGroup.Get("/:id", s.projectMiddleware.RequireMembership(), s.projectHandler.GetProject)
	projectGroup.Delete("/:id", s.projectMiddleware.RequireOwnership(), s.projectHandler.DeleteProject)

	// Canvas document routes (project-scoped)
	projectGroup.Get("/:id/canvas", s.projectMiddleware.RequireMembership(), s.projectHandler.GetCanvas)
	projectGroup.Put("/:id/canvas", saveLimiter, s.projectMiddleware.RequireMembership(), s.projectHandler.SaveCanvas)

	// WebSocket upgrade check
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Collab WebSocket endpoint. The JWT only gates the upgrade; room identity
	// comes from the join-project payload afterwards.
	s.app.Get("/ws/collab", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			// browser WebSocket clients cannot set headers; allow query fallback
			accessToken = c.Query("token")
		}
		if accessToken == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("userId", claims.UserID)

		return c.Next()
	}, websocket.New(s.collabWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start runs the server with graceful shutdown
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Collaborative Canvas API starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/collab", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
