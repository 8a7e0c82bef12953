package routes

import (
	"github.com/esilogis/backend/internal/config"
	"github.com/esilogis/backend/internal/controllers"
	"github.com/esilogis/backend/internal/middleware"
	"github.com/esilogis/backend/internal/models"
	"github.com/esilogis/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter(conn *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())

	SetupRoutes(r, conn, cfg)
	return r
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, conn *gorm.DB, cfg *config.Config) {
	// Initialize services
	authService := services.NewAuthService(conn, cfg.JWTSecret, cfg.JWTExpiresIn)
	interventionService := services.NewInterventionService(conn)
	personService := services.NewPersonService(conn)
	locationService := services.NewLocationService(conn)

	// Initialize controllers
	healthController := controllers.NewHealthController(conn)
	authController := controllers.NewAuthController(authService)
	interventionController := controllers.NewInterventionController(interventionService)
	userController := controllers.NewUserController(personService)
	locationController := controllers.NewLocationController(locationService)

	r.GET("/health", healthController.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := middleware.RestrictTo(models.RoleAdmin)
	technician := middleware.RestrictTo(models.RoleTechnician)
	adminOrTechnician := middleware.RestrictTo(models.RoleAdmin, models.RoleTechnician)

	api := r.Group("/api")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
			auth.GET("/me", middleware.AuthMiddleware(authService), authController.Me)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(authService))

		interventions := protected.Group("/intervention")
		{
			interventions.GET("/my-assigned", technician, interventionController.GetMyAssigned)
			interventions.GET("/my-reported", middleware.RestrictTo(models.RoleUser), interventionController.GetMyReported)
			interventions.GET("/planned", admin, interventionController.GetPlanned)
			interventions.GET("", admin, interventionController.GetAll)
			interventions.GET("/", admin, interventionController.GetAll)
			interventions.GET("/:id", interventionController.GetByID)
			interventions.GET("/:id/history", interventionController.GetHistory)

			interventions.POST("", interventionController.Create)
			interventions.POST("/", interventionController.Create)
			interventions.POST("/planify-intervention", admin, interventionController.Planify)
			interventions.POST("/assign-multiple", admin, interventionController.AssignMultiple)

			interventions.PUT("/:id", adminOrTechnician, interventionController.Update)
			interventions.PUT("/:id/status", adminOrTechnician, interventionController.UpdateStatus)
			interventions.PUT("/:id/pause", technician, interventionController.Pause)
			interventions.PUT("/:id/resume", technician, interventionController.Resume)
			interventions.PUT("/:id/resolve", adminOrTechnician, interventionController.Resolve)
			interventions.PUT("/:id/cancel", admin, interventionController.Cancel)
			interventions.PUT("/:id/approve", admin, interventionController.Approve)
			interventions.PUT("/:id/deny", admin, interventionController.Deny)

			interventions.DELETE("/:id", admin, interventionController.Delete)
		}

		users := protected.Group("/users")
		{
			users.GET("", admin, userController.GetUsers)
			users.POST("", admin, userController.CreateUser)
			users.GET("/technicians", admin, userController.GetTechnicians)
		}

		locations := protected.Group("/location")
		{
			locations.GET("", locationController.GetLocations)
			locations.POST("", admin, locationController.CreateLocation)
		}

		equipment := protected.Group("/equipment")
		{
			equipment.GET("", locationController.GetEquipment)
			equipment.GET("/barcode/:code", locationController.GetEquipmentByBarcode)
			equipment.POST("", admin, locationController.CreateEquipment)
		}
	}
}
