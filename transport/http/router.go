package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/pinftbay/piauth/logging"
	"github.com/pinftbay/piauth/service"
)

// Options configures the HTTP surface
type Options struct {
	Logger             *slog.Logger
	AllowedOrigins     []string
	RateLimitPerMinute int
	Development        bool // Echo internal error details to clients
	PiSandbox          bool // Reported by /health
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	router := gin.New()
	router.Use(
		RequestLogger(opts.Logger),
		Recovery(opts.Logger),
		CORS(opts.AllowedOrigins),
	)

	// Create handlers
	handlers := NewAuthHandlers(authService, opts)

	router.GET("/", handlers.Home)
	router.GET("/health", handlers.Health)

	// Auth routes
	auth := router.Group("/api/auth")
	auth.GET("/health", handlers.AuthHealth)
	limited := auth.Group("", RateLimit(opts.RateLimitPerMinute))
	{
		limited.POST("/challenge", handlers.Challenge)
		limited.POST("/verify", handlers.Verify)
		limited.GET("/me", AuthMiddleware(authService), handlers.Me)
	}

	return router
}
