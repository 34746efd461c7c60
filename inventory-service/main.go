package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"bloodlink-backend/inventory-service/handlers"
	"bloodlink-backend/inventory-service/middleware"
	"bloodlink-backend/inventory-service/services"
	"bloodlink-backend/shared/config"
	"bloodlink-backend/shared/database"
	"bloodlink-backend/shared/utils/cache"

	_ "bloodlink-backend/docs/swagger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title BloodLink Inventory API
// @version 1.0
// @description Blood component inventory and inter-organization request fulfillment engine

// @contact.name API Support
// @contact.email support@bloodlink.example

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8010
// @BasePath /api
// @schemes http https

// @tag.name organizations
// @tag.description Organization tree (read-only)

// @tag.name blood-units
// @tag.description Collected blood unit operations

// @tag.name components
// @tag.description Blood component catalog operations

// @tag.name requests
// @tag.description Inter-organization request lifecycle

// @tag.name custody
// @tag.description Chain-of-custody ledger

// @tag.name stats
// @tag.description Dashboard aggregates

// @tag.name audit
// @tag.description Audit trail

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	config.LoadConfig()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Redis cache is optional: stats fall back to direct queries without it
	if err := cache.InitCacheManager(); err != nil {
		log.Printf("⚠️ Redis unavailable, stats caching disabled: %v", err)
	}

	// MinIO is optional: attachment endpoints return 503 without it
	storage, err := services.NewMinIOService()
	if err != nil {
		log.Printf("⚠️ MinIO unavailable, delivery note attachments disabled: %v", err)
		storage = nil
	}

	db := database.GetDB()

	auditService := services.NewAuditService()
	catalogService := services.NewCatalogService(db)
	custodyService := services.NewCustodyService(db, auditService)
	eventHub := services.GetEventHub()
	requestService := services.NewRequestService(db, auditService, custodyService, eventHub)
	statsService := services.NewStatsService(db, cache.GetCacheManager())

	bloodUnitHandler := handlers.NewBloodUnitHandler(catalogService)
	componentHandler := handlers.NewComponentHandler(catalogService)
	requestHandler := handlers.NewRequestHandler(requestService)
	custodyHandler := handlers.NewCustodyHandler(custodyService, storage)
	statsHandler := handlers.NewStatsHandler(statsService)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.GetConfig().FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// Organization routes (read-only)
		api.GET("/organizations", handlers.GetOrganizations)
		api.GET("/organizations/:id", handlers.GetOrganization)
		api.GET("/organizations/:id/branches", handlers.GetOrganizationBranches)

		// Blood unit routes
		api.GET("/blood-units", bloodUnitHandler.GetBloodUnits)
		api.GET("/blood-units/:id", bloodUnitHandler.GetBloodUnit)
		api.POST("/blood-units", bloodUnitHandler.CreateBloodUnit)
		api.PATCH("/blood-units/:id/status", bloodUnitHandler.TransitionBloodUnitStatus)

		// Component routes
		api.GET("/components", componentHandler.GetComponents)
		api.GET("/components/available", componentHandler.GetAvailableComponents)
		api.GET("/components/:id", componentHandler.GetComponent)
		api.POST("/components", componentHandler.CreateComponent)
		api.PATCH("/components/:id/status", componentHandler.TransitionComponentStatus)

		// Request lifecycle routes
		api.GET("/requests", requestHandler.GetRequests)
		api.GET("/requests/:id", requestHandler.GetRequest)
		api.POST("/requests", requestHandler.CreateRequest)
		api.POST("/requests/:id/approve", requestHandler.ApproveRequest)
		api.POST("/requests/:id/reject", requestHandler.RejectRequest)
		api.POST("/requests/:id/fulfill", requestHandler.FulfillRequest)
		api.POST("/requests/:id/confirm-delivery", requestHandler.ConfirmDelivery)
		api.POST("/requests/:id/cancel", requestHandler.CancelRequest)

		// Custody routes
		api.GET("/custody/subject/:id", custodyHandler.GetCustodyHistory)
		api.POST("/custody", custodyHandler.OpenCustodyRecord)
		api.POST("/custody/:id/confirm", custodyHandler.ConfirmCustodyRecord)
		api.POST("/custody/:id/attachment", custodyHandler.UploadDeliveryNote)
		api.GET("/custody/:id/attachment", custodyHandler.GetDeliveryNoteURL)

		// Stats routes
		api.GET("/stats/requests", statsHandler.GetRequestStats)
		api.GET("/stats/inventory", statsHandler.GetInventoryStats)

		// Audit routes
		api.GET("/audit-events", handlers.GetAuditEvents)

		// Dashboard event stream
		api.GET("/ws/events", func(c *gin.Context) {
			userID, exists := c.Get("userID")
			if !exists {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			eventHub.HandleConnection(c, userID.(uuid.UUID))
		})
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "inventory",
		})
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Parse port from config URL
	port := strings.Split(config.GetConfig().InventoryServiceURL, ":")[2]
	log.Printf("Inventory Service starting on port %s...", port)
	router.Run(":" + port)
}
