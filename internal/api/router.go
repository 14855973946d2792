package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/api/chat"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/api/middleware"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/service"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	APIKey       string
	AllowOrigins []string
}

// SetupRouter sets up the Gin router
func SetupRouter(chatService *service.ChatService, logger *zap.Logger, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Chat API
	chatHandler := chat.NewHandler(chatService, logger)
	apiGroup := r.Group("/api")
	apiGroup.Use(middleware.Auth(cfg.APIKey))
	chatHandler.RegisterRoutes(apiGroup)

	return r
}
