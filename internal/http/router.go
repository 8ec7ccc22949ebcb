package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dream-journal/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas del diario.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	authH *AuthHandler,
	dreamH *DreamHandler,
	settingsH *SettingsHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "cloud": dreamH.CloudEnabled()})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.RefreshToken)
	auth.POST("/logout", authH.Logout)
	auth.POST("/password/reset", authH.RequestPasswordReset)
	auth.POST("/password/confirm", authH.ConfirmPasswordReset)
	auth.GET("/me", JWTAuthMiddleware(jwtSvc), authH.Me)

	// Las rutas del diario funcionan con o sin sesión; con sesión se replican en la nube.
	dreams := r.Group("/dreams", OptionalJWTAuthMiddleware(jwtSvc))
	dreams.GET("", dreamH.List)
	dreams.POST("", dreamH.Create)
	dreams.GET("/stream", dreamH.Stream)
	dreams.GET("/:id", dreamH.Get)
	dreams.PUT("/:id", dreamH.Update)
	dreams.DELETE("/:id", dreamH.Delete)

	r.GET("/stats", dreamH.Stats)

	settings := r.Group("/settings")
	settings.GET("", settingsH.Get)
	settings.PUT("/notifications", settingsH.SetNotifications)
	settings.PUT("/notification-time", settingsH.SetNotificationTime)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
