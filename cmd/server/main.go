package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/customs-pricing/internal/ai"
	"github.com/ignatzorin/customs-pricing/internal/config"
	"github.com/ignatzorin/customs-pricing/internal/db"
	httpHandlers "github.com/ignatzorin/customs-pricing/internal/http/handlers"
	httpRouter "github.com/ignatzorin/customs-pricing/internal/http/router"
	"github.com/ignatzorin/customs-pricing/internal/logger"
	"github.com/ignatzorin/customs-pricing/internal/pricing"
	"github.com/ignatzorin/customs-pricing/internal/repository"
	"github.com/ignatzorin/customs-pricing/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFile)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis необязателен: без него курсы кэшируются в памяти, лимиты считаются локально.
	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия redis")
			}
		}()
	}

	cache := service.NewCacheService(ctx, time.Minute)

	// Репозитории.
	rubricRepo := repository.NewRubricRepository(dbConn)
	questionRepo := repository.NewQuestionRepository(dbConn)
	snapshotRepo := repository.NewSnapshotRepository(dbConn)
	tenantRepo := repository.NewTenantRepository(dbConn)
	fxRepo := repository.NewFXRateRepository(dbConn)

	var rateCache service.RateCache = service.NewMemoryRateCache(cache)
	var rateStore limiter.Store
	if redisClient != nil {
		rateCache = service.NewRedisRateCache(redisClient)
		rateStore, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix:   "customs_pricing_limiter",
			MaxRetry: 3,
		})
		if err != nil {
			log.Fatalf("main: не удалось создать хранилище лимитов: %v", err)
		}
	}

	// Сервисы.
	var model pricing.Scorer
	if cfg.ModelScoringEnabled() {
		model = ai.NewClient(cfg.AIBaseURL, cfg.AIModel, cfg.AIAPIKey, cfg.AITimeout)
	} else {
		logger.Log.Info("main: модель оценки отключена, используется эвристика")
	}
	scoringService := service.NewScoringService(model)
	rubricService := service.NewRubricService(rubricRepo, cache, cfg.ActiveConfigTTL, cfg.DefaultHourlyRate)
	currencyService := service.NewCurrencyService(tenantRepo, fxRepo, rateCache, cfg.FXCacheTTL, cfg.BaseCurrency)
	estimateService := service.NewEstimateService(rubricService, scoringService, questionRepo, snapshotRepo, currencyService, cfg.DefaultHourlyRate)
	tokenManager := service.NewTokenManager(cfg.JWTSecret)

	// HTTP хэндлеры.
	healthHandler := httpHandlers.NewHealthHandler(dbConn, redisClient)
	estimateHandler := httpHandlers.NewEstimateHandler(estimateService)
	rubricHandler := httpHandlers.NewRubricHandler(rubricService, estimateService)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, healthHandler, estimateHandler, rubricHandler, tokenManager, rateStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// connectRedis возвращает nil, если адрес не задан или сервер недоступен.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Log.WithError(err).Warn("main: неверный REDIS_URL, работаем без redis")
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithError(err).Warn("main: redis недоступен, работаем без него")
		_ = client.Close()
		return nil
	}
	return client
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
