package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/coffeechain/coffeechain-backend/internal/api/handlers"
	"github.com/coffeechain/coffeechain-backend/internal/api/middleware"
	"github.com/coffeechain/coffeechain-backend/internal/config"
	"github.com/coffeechain/coffeechain-backend/internal/services"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config) {
	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg))

	// Initialize services
	ipfsService := services.NewIPFSService(cfg.ContentGatewayURL)
	storeService := services.NewStoreService(cfg.AWSRegion, cfg.S3Bucket, cfg.AWSAccessKey, cfg.AWSSecretKey)
	uploadService := services.NewUploadService(storeService, db, ipfsService)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.OwnerWallet)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "message": "Relay is running"})
	})

	router.POST("/upload", uploadHandler.Upload)
	router.DELETE("/upload/:cid", uploadHandler.Remove)

	logger.Info("Routes initialized successfully")
}
