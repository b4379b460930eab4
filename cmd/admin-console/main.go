// Точка входа консоли администратора Krishibazar.
// Загружает конфигурацию, создаёт клиент REST API backend, при заданном
// KB_DB_HOST подключает PostgreSQL журнала действий, собирает сервисный слой
// и обработчики страниц, запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/krishibazar/admin-console/internal/api/handlers"
	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/config"
	"github.com/krishibazar/admin-console/internal/database"
	"github.com/krishibazar/admin-console/internal/repository"
	"github.com/krishibazar/admin-console/internal/server"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
	uihandlers "github.com/krishibazar/admin-console/internal/ui/handlers"
	"github.com/krishibazar/admin-console/internal/ui/i18n"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
)

func main() {
	// 0. .env для локальной разработки (отсутствие файла не ошибка)
	_ = godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Консоль администратора запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend_url", cfg.BackendURL),
	)
	if !cfg.CookieSecure {
		logger.Warn("KB_COOKIE_SECURE=false, cookie сессии передаются без Secure")
	}

	ctx := context.Background()

	// 3. Клиент REST API backend
	client, err := backend.New(backend.Config{
		BaseURL:      cfg.BackendURL,
		AssetBaseURL: cfg.AssetURL,
		CACertPath:   cfg.BackendCACertPath,
		Timeout:      cfg.BackendTimeout,
		RetryMax:     cfg.BackendRetryMax,
		RetryInitial: cfg.BackendRetryInitial,
		HealthPath:   cfg.BackendHealthPath,
	}, nil, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. PostgreSQL журнала действий (опционально)
	var (
		pool       *pgxpool.Pool
		pgDB       *sql.DB
		journalRdy handlers.ReadinessChecker
		journalRep repository.ActionJournalRepository
	)
	if cfg.JournalEnabled() {
		logger.Info("Применение миграций журнала действий...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}
		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
		// через существующий пул и видит его исчерпание
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		journalRep = repository.NewActionJournalRepository(pool)
		journalRdy = database.NewReadinessChecker(pool)
	} else {
		logger.Info("Журнал действий отключён (KB_DB_HOST не задан)")
	}

	// 5. Сервисы
	journalSvc := service.NewJournalService(journalRep, logger)
	permCatalog := service.NewPermissionCatalog(cfg.PermissionCacheSize, cfg.PermissionCacheTTL)

	authSvc := service.NewAuthService(client, logger)
	projectSvc := service.NewProjectService(client, journalSvc, cfg.PageSize, logger)
	updateSvc := service.NewProjectUpdateService(client, cfg.PageSize, logger)
	investmentSvc := service.NewInvestmentService(client, journalSvc, cfg.PageSize, logger)
	userSvc := service.NewUserService(client, cfg.PageSize, logger)
	catalogSvc := service.NewCatalogService(client, cfg.PageSize, logger)
	rbacSvc := service.NewRBACService(client, permCatalog, logger)
	dashboardSvc := service.NewDashboardService(projectSvc, investmentSvc, userSvc, catalogSvc, journalSvc, logger)

	// 6. topologymetrics — мониторинг backend и PostgreSQL
	dephealthCfg := service.DephealthConfig{
		ServiceID:         "admin-console",
		Group:             cfg.DephealthGroup,
		BackendURL:        cfg.BackendURL,
		BackendHealthPath: cfg.BackendHealthPath,
		CheckInterval:     cfg.DephealthCheckInterval,
	}
	if pgDB != nil {
		dephealthCfg.DB = pgDB
		dephealthCfg.PGConnURL = cfg.DatabaseURL()
	}
	dephealthSvc, err := service.NewDephealthService(dephealthCfg, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		dephealthSvc = nil
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.Any("dependencies", dephealthSvc.Dependencies()),
		)
	}

	// 7. Переводы интерфейса
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Сессии и проверка токенов
	sessions, err := auth.NewSessionManager(cfg.SessionSecret, cfg.CookieSecure)
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	inspector, err := auth.NewTokenInspector(cfg.JWKSURL, cfg.BackendCACertPath, cfg.BackendTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания проверки токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !inspector.Verifies() {
		logger.Warn("KB_JWKS_URL не задан, подпись токенов не проверяется")
	}

	// 9. Обработчики страниц
	env := uihandlers.Env{
		Logger:       logger,
		SecureCookie: cfg.CookieSecure,
		AssetURL:     client.AssetURL,
		Sequencer:    service.NewSequencer(),
	}
	ui := &server.UIComponents{
		Env:            env,
		AuthMiddleware: uimiddleware.NewUIAuth(sessions, authSvc, inspector, logger),
		Auth:           uihandlers.NewAuthHandler(env, authSvc, sessions, permCatalog),
		Dashboard:      uihandlers.NewDashboardHandler(env, dashboardSvc, journalSvc),
		Projects:       uihandlers.NewProjectsHandler(env, projectSvc, updateSvc, catalogSvc, journalSvc),
		Investments:    uihandlers.NewInvestmentsHandler(env, investmentSvc, journalSvc),
		Users:          uihandlers.NewUsersHandler(env, userSvc),
		Catalog:        uihandlers.NewCatalogHandler(env, catalogSvc),
		RBAC:           uihandlers.NewRBACHandler(env, rbacSvc),
	}

	// 10. HTTP-сервер
	health := handlers.NewHealthHandler(client, journalRdy)
	srv := server.New(cfg, logger, health, ui)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	permCatalog.Purge()

	logger.Info("Консоль администратора остановлена")
}
