package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/ratehub/ratehub/internal/audit"
	"github.com/ratehub/ratehub/internal/cache"
	"github.com/ratehub/ratehub/internal/config"
	"github.com/ratehub/ratehub/internal/handlers"
	infraRepo "github.com/ratehub/ratehub/internal/infra/repository"
	"github.com/ratehub/ratehub/internal/middleware"
	"github.com/ratehub/ratehub/internal/models"
	"github.com/ratehub/ratehub/internal/password"
	"github.com/ratehub/ratehub/internal/token"
	ucRating "github.com/ratehub/ratehub/internal/usecase/rating"
	"github.com/ratehub/ratehub/internal/validators"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {

	// ======================================================
	// GLOBAL MIDDLEWARE
	// ======================================================
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware())

	validators.RegisterPasswordTag()

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	ratingRepo := infraRepo.NewRatingGormRepository(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger)

	hasher := password.NewHasher(cfg.BcryptCost)
	issuer := token.NewIssuer(cfg.JWTSecret, token.DefaultTTL)
	statsCache := cache.NewStatsCache(db, rdb)

	// ======================================================
	// USE CASES
	// ======================================================
	submitRatingUC := ucRating.NewSubmitRating(ratingRepo, auditDispatcher)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, hasher, issuer, auditDispatcher)
	storeHandler := handlers.NewStoreHandler(db, submitRatingUC)
	adminHandler := handlers.NewAdminHandler(db, hasher, statsCache, auditDispatcher)

	// ======================================================
	// OBSERVABILITY
	// ======================================================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// AUTH (PUBLIC)
		// ------------------------------
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// AUTHENTICATED
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(issuer))
		{
			secured.GET("/me", authHandler.GetMe)
			secured.PUT("/auth/change-password", authHandler.ChangePassword)

			// ------------------------------
			// STORES
			// ------------------------------
			secured.GET("/stores",
				middleware.RequireRole(models.RoleNormalUser, models.RoleAdmin),
				storeHandler.List)

			secured.POST("/stores/rate",
				middleware.RequireRole(models.RoleNormalUser),
				storeHandler.Rate)

			secured.GET("/stores/my-store",
				middleware.RequireRole(models.RoleStoreOwner),
				storeHandler.MyStore)

			// ------------------------------
			// ADMIN
			// ------------------------------
			admin := secured.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.POST("/users", adminHandler.CreateUser)
				admin.POST("/stores", adminHandler.CreateStore)
				admin.GET("/users", adminHandler.ListUsers)
				admin.GET("/stores", adminHandler.ListStores)
				admin.GET("/dashboard", adminHandler.Dashboard)
			}
		}
	}
}
