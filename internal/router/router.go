package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/examportal/backend/internal/config"
	"github.com/examportal/backend/internal/handler"
	"github.com/examportal/backend/internal/middleware"
	"github.com/examportal/backend/internal/response"
	"github.com/examportal/backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Portal       *handler.PortalHandler
	Organization *handler.OrganizationHandler
	Exam         *handler.ExamHandler
	Student      *handler.StudentHandler
	Monitor      *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Every response carries request metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// The access gate takes the brunt of brute-force exam code guessing.
	accessLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Student Portal (No Auth, Rate Limited Gate) ─────────────────
	portalAPI := router.Group("/api/v1/exams")
	{
		portalAPI.POST("/access", accessLimiter.Middleware(), handlers.Portal.Access)
		portalAPI.POST("/:id/answers", handlers.Portal.UpsertAttempt)
	}

	// ─── 2. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.POST("/logout", middleware.RequireAdminJWT(authService), handlers.Auth.Logout)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/me", handlers.Auth.Me)

		// Organization management
		adminAPI.GET("/organizations", handlers.Organization.List)
		adminAPI.POST("/organizations", handlers.Organization.Create)
		adminAPI.GET("/organizations/:id", handlers.Organization.Get)
		adminAPI.PUT("/organizations/:id", handlers.Organization.Update)
		adminAPI.DELETE("/organizations/:id", handlers.Organization.Delete)

		// Roster management
		adminAPI.GET("/organizations/:id/students", handlers.Student.List)
		adminAPI.POST("/organizations/:id/students/import", handlers.Student.ImportCSV)
		adminAPI.POST("/students", handlers.Student.Create)
		adminAPI.PUT("/students/:id", handlers.Student.Update)
		adminAPI.DELETE("/students/:id", handlers.Student.Delete)

		// Exam management
		adminAPI.GET("/organizations/:id/exams", handlers.Exam.List)
		adminAPI.POST("/exams", handlers.Exam.Create)
		adminAPI.GET("/exams/:id", handlers.Exam.Get)
		adminAPI.PUT("/exams/:id", handlers.Exam.Update)
		adminAPI.DELETE("/exams/:id", handlers.Exam.Delete)
		adminAPI.GET("/exams/:id/attempts", handlers.Exam.ListAttempts)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/exams/:id/violations", handlers.Monitor.StreamViolations)
	}

	return router
}
