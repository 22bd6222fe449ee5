package handler

import (
	"net/http"
	"time"

	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig - зависимости HTTP-роутера.
type RouterConfig struct {
	Development    bool
	AllowedOrigins []string
	// AdminSecret - секрет JWT админки. Пустой - маршруты /api/admin не регистрируются.
	AdminSecret string
	Admin       *AdminHandler
	// WebSocket - обработчик веб-чата, nil если транспорт другой.
	WebSocket     http.Handler
	EnableMetrics bool
}

// NewRouter собирает gin-роутер бота.
func NewRouter(cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 && !(len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	if cfg.WebSocket != nil {
		router.GET("/ws", gin.WrapH(cfg.WebSocket))
	}

	if cfg.Admin != nil && cfg.AdminSecret != "" {
		admin := router.Group("/api/admin")
		admin.Use(sharedMiddleware.AdminJWT(cfg.AdminSecret, logger))
		cfg.Admin.RegisterRoutes(admin)
	} else {
		logger.Info("Admin API disabled: admin_jwt_secret is not set")
	}

	// Метрики подключаются после регистрации маршрутов.
	if cfg.EnableMetrics {
		p := ginprometheus.NewPrometheus("gin")
		p.Use(router)
	}

	return router
}
