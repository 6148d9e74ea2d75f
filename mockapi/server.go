package mockapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"servigo-client/models"
)

// Config holds the development server's knobs.
type Config struct {
	JWTSecret string
	OTPLength int
	OTPExpiry time.Duration
}

func (c Config) withDefaults() Config {
	if c.JWTSecret == "" {
		c.JWTSecret = "dev-only-secret-do-not-use-in-production"
	}
	if c.OTPLength <= 0 {
		c.OTPLength = 6
	}
	if c.OTPExpiry <= 0 {
		c.OTPExpiry = 24 * time.Hour
	}
	return c
}

// Server is the in-process development backend. It implements exactly the
// REST surface the client consumes, backed by sqlite; the real platform
// remains the source of truth in production.
type Server struct {
	db     *gorm.DB
	cfg    Config
	engine *gin.Engine
}

// New wires the routes and returns the server.
func New(db *gorm.DB, cfg Config) *Server {
	s := &Server{db: db, cfg: cfg.withDefaults()}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	apiGroup := router.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		auth.POST("/login", s.handleLogin)
		auth.GET("/me", s.authMiddleware(""), s.handleMe)

		user := apiGroup.Group("/user", s.authMiddleware(models.RoleUser))
		{
			user.GET("/bookings", s.handleUserBookings)
			user.GET("/bookings/:id", s.handleUserBooking)
			user.PUT("/bookings/:id/cancel", s.handleCancelBooking)
			user.GET("/bookings/:id/live-tracking", s.handleLiveTracking)
			user.GET("/bookings/:id/tracking-history", s.handleTrackingHistory)
			user.POST("/bookings/:id/verify-and-complete", s.handleVerifyAndComplete)
			user.POST("/bookings/:id/request-completion-otp", s.handleRequestCompletionOTP)
			user.POST("/bookings/:id/transaction-issues", s.handleRaiseIssue)
			s.registerIssueRoutes(user)
			s.registerNotificationRoutes(user)
		}

		servicer := apiGroup.Group("/servicer", s.authMiddleware(models.RoleServicer))
		{
			servicer.GET("/services", s.handleServicerServices)
			servicer.GET("/services/:id", s.handleServicerService)
			servicer.PUT("/services/:id/accept", s.handleAcceptService)
			servicer.PUT("/services/:id/cancel", s.handleCancelBooking)
			servicer.PUT("/services/:id/start", s.handleStartService)
			servicer.GET("/services/:id/completion-otp", s.handleCompletionOTP)
			servicer.POST("/services/:id/resend-otp", s.handleResendOTP)
			servicer.POST("/services/:id/start-tracking", s.handleStartTracking)
			servicer.POST("/services/:id/position", s.handlePushPosition)
			s.registerIssueRoutes(servicer)
			s.registerNotificationRoutes(servicer)
		}

		admin := apiGroup.Group("/admin", s.authMiddleware(models.RoleAdmin))
		{
			admin.GET("/bookings", s.handleAdminBookings)
			admin.GET("/bookings/:id", s.handleAdminBooking)
			s.registerIssueRoutes(admin)
			s.registerNotificationRoutes(admin)
		}
	}

	s.engine = router
	return s
}

// Handler exposes the router for http.Server and httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the given address, blocking.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// registerIssueRoutes mounts the dispute surface. The same handlers serve all
// three roles; visibility is narrowed per role inside the handlers.
func (s *Server) registerIssueRoutes(group *gin.RouterGroup) {
	group.GET("/transaction-issues", s.handleIssues)
	group.GET("/transaction-issues/:id", s.handleIssue)
	group.GET("/transaction-issues/:id/chat", s.handleIssueChat)
	group.POST("/transaction-issues/:id/chat", s.handleIssueChatPost)
}

func (s *Server) registerNotificationRoutes(group *gin.RouterGroup) {
	group.GET("/notifications", s.handleNotifications)
	group.PUT("/notifications/:id/read", s.handleNotificationRead)
	group.PUT("/notifications/read-all", s.handleNotificationsReadAll)
	group.DELETE("/notifications/:id", s.handleNotificationDelete)
}
