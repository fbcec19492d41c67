package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/customs-pricing/internal/config"
	"github.com/ignatzorin/customs-pricing/internal/http/handlers"
	"github.com/ignatzorin/customs-pricing/internal/http/middleware"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	estimateHandler *handlers.EstimateHandler,
	rubricHandler *handlers.RubricHandler,
	tokenManager *service.TokenManager,
	// nil - счётчики лимита в памяти процесса
	rateStore limiter.Store,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	if healthHandler != nil {
		r.GET("/health", healthHandler.Health)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Каждый расчёт может стоить обращения к модели
	estimateRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod, rateStore)
	api.POST("/estimate", estimateRateLimit, estimateHandler.Preview)

	questions := api.Group("/questions/:id", middleware.UUIDValidator("id"))
	{
		questions.POST("/estimate", estimateRateLimit, estimateHandler.EstimateQuestion)
		questions.GET("/snapshots", estimateHandler.ListSnapshots)
	}
	api.GET("/snapshots/:id", middleware.UUIDValidator("id"), estimateHandler.GetSnapshot)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(service.RoleAdmin))
	{
		admin.GET("/rubric", rubricHandler.Get)
		admin.POST("/rubric", rubricHandler.Create)
		admin.POST("/rubric/seed", rubricHandler.Seed)
		admin.GET("/rubric/versions", rubricHandler.ListVersions)
		admin.GET("/rubric/versions/:id", middleware.UUIDValidator("id"), rubricHandler.GetVersion)
		admin.POST("/rubric/versions/:id/activate", middleware.UUIDValidator("id"), rubricHandler.Activate)
		admin.GET("/snapshots/export", rubricHandler.ExportSnapshots)
	}

	return r
}
