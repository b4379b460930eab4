// Пакет server — HTTP-сервер консоли администратора с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/krishibazar/admin-console/internal/api/errors"
	"github.com/krishibazar/admin-console/internal/api/handlers"
	"github.com/krishibazar/admin-console/internal/api/middleware"
	"github.com/krishibazar/admin-console/internal/config"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	uihandlers "github.com/krishibazar/admin-console/internal/ui/handlers"
	"github.com/krishibazar/admin-console/internal/ui/i18n"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
	"github.com/krishibazar/admin-console/internal/ui/static"
)

// UIComponents — обработчики и middleware страниц консоли.
type UIComponents struct {
	Env            uihandlers.Env
	AuthMiddleware *uimiddleware.UIAuth
	Auth           *uihandlers.AuthHandler
	Dashboard      *uihandlers.DashboardHandler
	Projects       *uihandlers.ProjectsHandler
	Investments    *uihandlers.InvestmentsHandler
	Users          *uihandlers.UsersHandler
	Catalog        *uihandlers.CatalogHandler
	RBAC           *uihandlers.RBACHandler
}

// Server — HTTP-сервер консоли.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, health *handlers.HealthHandler, ui *UIComponents) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg.DefaultLanguage, logger, health, ui),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты консоли.
// Служебные endpoints и статика доступны без сессии, страницы /admin/* —
// через UIAuth и guard раздела.
func NewRouter(defaultLang string, logger *slog.Logger, health *handlers.HealthHandler, ui *UIComponents) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "ресурс не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.MethodNotAllowed(w, "метод не поддерживается")
	})

	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware(defaultLang))
		registerUIRoutes(r, ui)
	})

	return router
}

// registerUIRoutes регистрирует страницы консоли.
func registerUIRoutes(r chi.Router, ui *UIComponents) {
	r.Get("/admin/login", ui.Auth.HandleLoginPage)
	r.Post("/admin/login", ui.Auth.HandleLogin)
	r.Post("/admin/set-language", uihandlers.HandleSetLanguage)

	denied := uihandlers.DeniedPage(ui.Env)
	guard := func(key rbac.Key) func(http.Handler) http.Handler {
		return uimiddleware.RequirePermission(rbac.NewGuard(key, ""), denied)
	}

	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware.Middleware())

		r.Post("/admin/logout", ui.Auth.HandleLogout)

		r.With(guard(rbac.KeyDashboard)).Get("/admin/", ui.Dashboard.HandleDashboard)

		// Решения по заявкам
		r.Group(func(r chi.Router) {
			r.Use(guard(rbac.KeyProjectApproval))
			r.Get("/admin/projects/pending", ui.Projects.HandlePending)
			r.Post("/admin/projects/{id}/approve", ui.Projects.HandleTransition(lifecycle.ProjectActionApprove))
			r.Post("/admin/projects/{id}/reject", ui.Projects.HandleTransition(lifecycle.ProjectActionReject))
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(rbac.KeyProjectManagement))
			r.Get("/admin/projects", ui.Projects.HandleList)
			r.Get("/admin/projects/new", ui.Projects.HandleNew)
			r.Post("/admin/projects/new", ui.Projects.HandleCreate)
			r.Post("/admin/projects/earning", ui.Projects.HandleEarning)
			r.Get("/admin/projects/{id}", ui.Projects.HandleDetail)
			r.Get("/admin/projects/{id}/edit", ui.Projects.HandleEdit)
			r.Post("/admin/projects/{id}/edit", ui.Projects.HandleUpdate)
			r.Post("/admin/projects/{id}/start", ui.Projects.HandleTransition(lifecycle.ProjectActionStart))
			r.Post("/admin/projects/{id}/complete", ui.Projects.HandleTransition(lifecycle.ProjectActionComplete))
			r.Post("/admin/projects/{id}/delete", ui.Projects.HandleDelete)
			r.Post("/admin/projects/{id}/updates", ui.Projects.HandleAddUpdate)
			r.Get("/admin/project-updates", ui.Projects.HandleUpdatesFeed)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(rbac.KeyInvestmentManagement))
			r.Get("/admin/investments", ui.Investments.HandleList)
			r.Get("/admin/payments", ui.Investments.HandlePayments)
			r.Get("/admin/investments/{id}", ui.Investments.HandleDetail)
			r.Post("/admin/investments/{id}/confirm", ui.Investments.HandleTransition(lifecycle.InvestmentActionConfirm))
			r.Post("/admin/investments/{id}/cancel", ui.Investments.HandleTransition(lifecycle.InvestmentActionCancel))
			r.Post("/admin/investments/{id}/complete", ui.Investments.HandleTransition(lifecycle.InvestmentActionComplete))
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(rbac.KeyManageUsers))
			r.Get("/admin/users", ui.Users.HandleList)
			r.Get("/admin/users/{id}", ui.Users.HandleDetail)
			r.Post("/admin/users/{id}/approve", ui.Users.HandleApprove)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard(rbac.KeyProductManagement))
			r.Get("/admin/categories", ui.Catalog.HandleCategories)
			r.Post("/admin/categories", ui.Catalog.HandleCreateCategory)
			r.Post("/admin/categories/{id}", ui.Catalog.HandleUpdateCategory)
			r.Post("/admin/categories/{id}/toggle", ui.Catalog.HandleToggleCategory)
			r.Post("/admin/categories/{id}/delete", ui.Catalog.HandleDeleteCategory)
			r.Get("/admin/products", ui.Catalog.HandleProducts)
			r.Get("/admin/products/new", ui.Catalog.HandleNewProduct)
			r.Post("/admin/products/new", ui.Catalog.HandleCreateProduct)
			r.Get("/admin/products/{id}/edit", ui.Catalog.HandleEditProduct)
			r.Post("/admin/products/{id}/edit", ui.Catalog.HandleUpdateProduct)
			r.Post("/admin/products/{id}/delete", ui.Catalog.HandleDeleteProduct)
			r.Get("/admin/orders", ui.Catalog.HandleOrders)
			r.Post("/admin/orders/{id}/status", ui.Catalog.HandleOrderStatus)
		})

		r.Route("/admin/rbac", func(r chi.Router) {
			r.Use(guard(rbac.KeyRBACManagement))
			r.Get("/permissions", ui.RBAC.HandlePermissions)
			r.Post("/permissions", ui.RBAC.HandleCreatePermission)
			r.Post("/permissions/{id}", ui.RBAC.HandleUpdatePermission)
			r.Post("/permissions/{id}/delete", ui.RBAC.HandleDeletePermission)
			r.Get("/roles", ui.RBAC.HandleRoles)
			r.Post("/roles", ui.RBAC.HandleCreateRole)
			r.Post("/roles/{id}", ui.RBAC.HandleUpdateRole)
			r.Post("/roles/{id}/delete", ui.RBAC.HandleDeleteRole)
			r.Get("/admins", ui.RBAC.HandleAdmins)
			r.Post("/admins", ui.RBAC.HandleCreateAdmin)
			r.Get("/admins/{id}", ui.RBAC.HandleAdmin)
			r.Post("/admins/{id}/roles", ui.RBAC.HandleAssignRoles)
			r.Post("/admins/{id}/permissions", ui.RBAC.HandleAssignPermissions)
		})
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
