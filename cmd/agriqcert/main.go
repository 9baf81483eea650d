// Точка входа AgriQCert — backend сертификации агроэкспорта.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт репозитории, сервисный слой и API handlers, запускает HTTP-сервер
// с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/ArokiaMartinN/agriqcert/internal/api/handlers"
	"github.com/ArokiaMartinN/agriqcert/internal/api/middleware"
	"github.com/ArokiaMartinN/agriqcert/internal/config"
	"github.com/ArokiaMartinN/agriqcert/internal/database"
	"github.com/ArokiaMartinN/agriqcert/internal/ratelimit"
	"github.com/ArokiaMartinN/agriqcert/internal/repository"
	"github.com/ArokiaMartinN/agriqcert/internal/server"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("AgriQCert запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if !cfg.StrictIssuerMatch {
		logger.Warn("QC_STRICT_ISSUER_MATCH=false: выпуск сертификата не назначенным агентством только логируется")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Redis-клиент для ограничения частоты verify-запросов (опционально)
	var redisClient *redis.Client
	var redisChecker handlers.ReadinessChecker
	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		limiter = ratelimit.New(redisClient, cfg.VerifyRateLimit, cfg.VerifyRateWindow, logger)
		redisChecker = ratelimit.NewReadinessChecker(redisClient)
		logger.Info("Ограничение частоты verify-запросов включено",
			slog.String("redis_addr", cfg.RedisAddr),
			slog.Int("limit", cfg.VerifyRateLimit),
			slog.String("window", cfg.VerifyRateWindow.String()),
		)
	} else {
		logger.Info("QC_REDIS_ADDR не задан, ограничение частоты отключено")
	}

	// 6. Repositories
	userRepo := repository.NewUserRepository(pool)
	batchRepo := repository.NewBatchRepository(pool)
	inspRepo := repository.NewInspectionRepository(pool)
	credRepo := repository.NewCredentialRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Services
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger)
	batchSvc := service.NewBatchService(batchRepo, logger)
	inspSvc := service.NewInspectionService(inspRepo, batchRepo, txRunner, logger)
	credSvc := service.NewCredentialService(
		credRepo, inspRepo, batchRepo, txRunner,
		cfg.VCSigningSecret, cfg.VCTTL(), cfg.StrictIssuerMatch, cfg.PublicBaseURL,
		logger,
	)

	// 8. Readiness checkers и health handler
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, redisChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		batchSvc,
		inspSvc,
		credSvc,
		logger,
	)

	// 10. JWT middleware
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, logger)

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, limiter)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("AgriQCert остановлен")
}
