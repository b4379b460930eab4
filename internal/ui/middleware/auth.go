// Пакет middleware — HTTP middleware консоли администратора.
// auth.go — чтение сессии, восстановление прав и принудительный выход по 401.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
)

// forcedLogoutsTotal — принудительные выходы по причинам.
var forcedLogoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kb_forced_logouts_total",
	Help: "Принудительные завершения сессии консоли.",
}, []string{"reason"})

// contextKey — тип для ключей контекста UI.
type contextKey string

const (
	// ContextKeyUISession — сессия в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
	contextKeyLoggedOut contextKey = "ui_forced_logout"
)

// PermissionRefresher запрашивает права текущего администратора.
// Реализуется service.AuthService.
type PermissionRefresher interface {
	RefreshPermissions(ctx context.Context) ([]model.Permission, error)
}

// UIAuth — middleware защищённых страниц консоли.
type UIAuth struct {
	sessions  *auth.SessionManager
	refresher PermissionRefresher
	inspector *auth.TokenInspector
	logger    *slog.Logger
}

// NewUIAuth создаёт middleware. inspector может быть nil.
func NewUIAuth(
	sessions *auth.SessionManager,
	refresher PermissionRefresher,
	inspector *auth.TokenInspector,
	logger *slog.Logger,
) *UIAuth {
	return &UIAuth{
		sessions:  sessions,
		refresher: refresher,
		inspector: inspector,
		logger:    logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware для /admin/* (кроме /admin/login).
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Сессия из cookie
			session, err := ua.sessions.Load(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				ua.sessions.ForceLogout(w, r)
				return
			}
			if session == nil {
				redirectToLogin(w, r)
				return
			}

			// 2. Срок действия токена
			if ua.inspector != nil {
				if _, err := ua.inspector.Inspect(r.Context(), session.Token); err != nil {
					reason := "invalid"
					if errors.Is(err, auth.ErrTokenExpired) {
						reason = "expired"
					}
					forcedLogoutsTotal.WithLabelValues(reason).Inc()
					ua.logger.Info("Токен сессии отклонён",
						slog.String("username", session.User.Username),
						slog.String("reason", reason),
					)
					ua.sessions.ForceLogout(w, r)
					return
				}
			}

			// 3. Контекст вызовов backend: токен, автор действий, обработчик 401
			logout := &forcedLogout{}
			ctx := backend.WithToken(r.Context(), session.Token)
			ctx = service.WithActor(ctx, session.User.Username)
			ctx = backend.WithUnauthorizedHook(ctx, func() {
				logout.fire(ua.logger, session.User.Username)
			})
			ctx = context.WithValue(ctx, contextKeyLoggedOut, logout)

			// 4. Восстановление пустого списка прав
			session = ua.selfHeal(ctx, w, session)
			if logout.fired.Load() {
				resetHeaders(w)
				ua.sessions.ForceLogout(w, r)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUISession, session)
			lw := &logoutWriter{ResponseWriter: w, fired: &logout.fired}
			next.ServeHTTP(lw, r.WithContext(ctx))

			// 5. Единственная запись ответа после 401 в обработчике
			if logout.fired.Load() {
				if lw.committed {
					ua.logger.Warn("401 после отправки ответа, cookie не очищены",
						slog.String("path", r.URL.Path),
					)
					return
				}
				resetHeaders(w)
				ua.sessions.ForceLogout(w, r)
			}
		})
	}
}

// selfHeal запрашивает права, если в сессии их нет. Ошибки только логируются:
// без прав guard отказывает во всём.
func (ua *UIAuth) selfHeal(ctx context.Context, w http.ResponseWriter, s *auth.SessionData) *auth.SessionData {
	if len(s.Permissions) > 0 || ua.refresher == nil {
		return s
	}

	perms, err := ua.refresher.RefreshPermissions(ctx)
	if err != nil {
		ua.logger.Warn("Не удалось восстановить права сессии",
			slog.String("username", s.User.Username),
			slog.String("error", err.Error()),
		)
		return s
	}
	if err := ua.sessions.SavePermissions(w, perms); err != nil {
		ua.logger.Warn("Не удалось сохранить права сессии", slog.String("error", err.Error()))
	}

	ua.logger.Info("Права сессии восстановлены",
		slog.String("username", s.User.Username),
		slog.Int("permissions", len(perms)),
	)
	healed := *s
	healed.Permissions = perms
	if healed.Permissions == nil {
		healed.Permissions = []model.Permission{}
	}
	return &healed
}

// forcedLogout — состояние принудительного выхода одного запроса.
// Обработчик 401 только выставляет флаг: ответ пишет middleware.
type forcedLogout struct {
	once  sync.Once
	fired atomic.Bool
}

func (f *forcedLogout) fire(logger *slog.Logger, username string) {
	f.once.Do(func() {
		f.fired.Store(true)
		forcedLogoutsTotal.WithLabelValues("unauthorized").Inc()
		logger.Info("Backend отклонил токен, сессия завершена", slog.String("username", username))
	})
}

// logoutWriter отбрасывает ответ обработчика после 401.
type logoutWriter struct {
	http.ResponseWriter
	fired     *atomic.Bool
	committed bool
}

func (lw *logoutWriter) WriteHeader(code int) {
	if lw.committed {
		return
	}
	if lw.fired.Load() {
		return
	}
	lw.committed = true
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *logoutWriter) Write(b []byte) (int, error) {
	if !lw.committed {
		if lw.fired.Load() {
			return len(b), nil
		}
		lw.committed = true
	}
	return lw.ResponseWriter.Write(b)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (lw *logoutWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

// resetHeaders удаляет заголовки, выставленные до принудительного выхода.
func resetHeaders(w http.ResponseWriter) {
	h := w.Header()
	for k := range h {
		delete(h, k)
	}
}

// redirectToLogin уводит на страницу входа без очистки cookie.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if auth.IsHTMX(r) {
		w.Header().Set("HX-Redirect", auth.LoginPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// SessionFromContext извлекает сессию из контекста.
// Возвращает nil, если запрос не прошёл через UIAuth.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// CheckerFromContext возвращает проверку прав текущей сессии.
// Без сессии — nil (отказ во всём).
func CheckerFromContext(ctx context.Context) *rbac.Checker {
	return SessionFromContext(ctx).Checker()
}

// LoggedOut сообщает, что в запросе уже выполнен принудительный выход.
// Обработчик может не рендерить ответ: он всё равно будет отброшен.
func LoggedOut(ctx context.Context) bool {
	f, ok := ctx.Value(contextKeyLoggedOut).(*forcedLogout)
	return ok && f.fired.Load()
}
