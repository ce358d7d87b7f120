// main.go — точка входа Dashboard Module.
// Инициализирует конфигурацию, логирование, PostgreSQL, сервисы дашборда,
// HTTP-сервер с middleware и мониторинг зависимостей.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/dashboard-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/dashboard-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/dashboard-module/internal/config"
	"github.com/bigkaa/goartstore/dashboard-module/internal/database"
	"github.com/bigkaa/goartstore/dashboard-module/internal/repository"
	"github.com/bigkaa/goartstore/dashboard-module/internal/server"
	"github.com/bigkaa/goartstore/dashboard-module/internal/service"
)

func main() {
	// 1. Конфигурация из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Логирование
	logger := config.SetupLogger(cfg)
	logger.Info("Dashboard Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Bool("security_enabled", cfg.SecurityEnabled),
	)

	if os.Getenv("DM_DEPHEALTH_GROUP") == "" {
		logger.Warn("DM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Миграции БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Репозитории
	selectionsRepo := repository.NewPipelineSelectionsRepository(pool)
	usersRepo := repository.NewUserRepository(pool)

	// 6. Сервисы
	security := config.SecurityMode(cfg.SecurityEnabled)
	selectionsSvc := service.NewPipelineSelectionsService(selectionsRepo, security, service.SystemClock{}, logger)
	catalog := service.NewCatalog()
	renderCache := service.NewRenderCache(cfg.RenderCacheSize, cfg.RenderCacheTTL)
	dashboardSvc := service.NewDashboardService(catalog, selectionsSvc, renderCache, security, logger)

	// 7. Обработчики
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		dashboardSvc,
		selectionsSvc,
		catalog,
		security,
		handlers.CookieConfig{Name: cfg.SelectionCookieName, MaxAge: cfg.SelectionCookieMaxAge},
		logger,
	)

	// 8. Middleware: метрики, логирование, JWT (только с безопасностью), identity
	publicPaths := []string{"/health/", "/metrics"}
	middlewares := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}

	var users middleware.UserResolver
	if cfg.SecurityEnabled {
		jwtAuth, err := middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.CACertPath,
			cfg.JWTIssuer,
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
		middlewares = append(middlewares, server.SkipPaths(jwtAuth.Middleware(), publicPaths...))
		users = service.NewUserCache(usersRepo, cfg.UserCacheSize, cfg.UserCacheTTL)
	}
	middlewares = append(middlewares,
		server.SkipPaths(middleware.Identity(users, cfg.SelectionCookieName, logger), publicPaths...),
	)

	// 9. topologymetrics — мониторинг PostgreSQL
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "dashboard-module",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PgConnURL:     cfg.DatabaseURL("postgres"),
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 10. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	logger.Info("Dashboard Module остановлен")
}
