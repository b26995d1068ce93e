package app

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go-presence/internal/analytics"
	"go-presence/internal/attendance"
	"go-presence/internal/classifier"
	"go-presence/internal/config"
	"go-presence/internal/identity"
	"go-presence/internal/middleware"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
	publisher attendance.StatusPublisher,
	cfg config.Config,
) error {
	// --- Repositories ---
	memberRepo := identity.NewRepository(gormDB)
	eventRepo := attendance.NewRepository(gormDB)
	statusRepo := attendance.NewStatusRepository(gormDB)

	// --- Services ---
	orchestrator := BuildClassifier(cfg)
	attendanceService := attendance.NewService(gormDB, eventRepo, statusRepo, memberRepo, orchestrator, publisher, rdb)
	analyticsService := analytics.NewService(eventRepo, memberRepo)

	// --- Handlers ---
	attendanceHandler := attendance.NewHandler(attendanceService)
	analyticsHandler := analytics.NewHandler(analyticsService)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(rate.Limit(50), 100))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByTenant(rate.Limit(20), 40))
	{
		attendance.RegisterRoutes(api, attendanceHandler)
		analytics.RegisterRoutes(api, analyticsHandler)
	}

	return nil
}

// BuildClassifier assembles the strategy chain: AI first when
// configured, the deterministic rule matcher always last.
func BuildClassifier(cfg config.Config) *classifier.Orchestrator {
	var strategies []classifier.Strategy

	if cfg.AIEnabled && cfg.AnthropicAPIKey != "" {
		strategies = append(strategies, classifier.NewAIClassifier(
			cfg.AnthropicAPIKey,
			cfg.AIModel,
			cfg.AITimeout(),
			zap.L(),
		))
	}
	strategies = append(strategies, classifier.NewRuleClassifier())

	return classifier.NewOrchestrator(zap.L(), strategies...)
}
