// auth.go — вход по логину и паролю и выход из консоли.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

// homePath — главная консоли.
const homePath = "/admin/"

// Authenticator выполняет вход в backend. Реализуется service.AuthService.
type Authenticator interface {
	Login(ctx context.Context, in service.LoginInput) (*service.Session, error)
}

// CatalogForgetter сбрасывает кэш справочников сессии. Реализуется service.PermissionCatalog.
type CatalogForgetter interface {
	Forget(sessionKey string)
}

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	page
	auth     Authenticator
	sessions *auth.SessionManager
	catalog  CatalogForgetter
}

// NewAuthHandler создаёт AuthHandler. catalog может быть nil.
func NewAuthHandler(env Env, a Authenticator, sessions *auth.SessionManager, catalog CatalogForgetter) *AuthHandler {
	return &AuthHandler{
		page:     newPage(env, "ui.auth"),
		auth:     a,
		sessions: sessions,
		catalog:  catalog,
	}
}

// HandleLoginPage — GET /admin/login. С действующей сессией — на главную.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s, err := h.sessions.Load(r); err == nil && s != nil {
		http.Redirect(w, r, homePath, http.StatusSeeOther)
		return
	}
	h.render(w, r, pages.Login(pages.LoginData{
		Base: pages.Base{Title: "login.title", Flash: popFlash(w, r, h.secure)},
	}))
}

// HandleLogin — POST /admin/login.
// Неверные данные показываются на форме входа, сессия не создаётся.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	in := service.LoginInput{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}

	sess, err := h.auth.Login(r.Context(), in)
	if err != nil {
		data := pages.LoginData{Base: pages.Base{Title: "login.title"}, Username: in.Username}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrValidation):
			data.ErrorKey = "login.invalid_credentials"
		case errors.Is(err, service.ErrBackendUnavailable):
			data.ErrorKey = "login.backend_unavailable"
			status = http.StatusServiceUnavailable
		default:
			h.logger.Error("Ошибка входа",
				slog.String("username", in.Username),
				slog.String("error", err.Error()),
			)
			if text, ok := service.NoticeText(err); ok {
				data.ErrorText = text
			} else {
				data.ErrorKey = "flash.error"
			}
			status = http.StatusBadGateway
		}
		h.renderStatus(w, r, status, pages.Login(data))
		return
	}

	if err := h.sessions.Login(w, &auth.SessionData{
		Token:       sess.Token,
		User:        sess.User,
		Permissions: sess.Permissions,
	}); err != nil {
		h.logger.Error("Ошибка создания сессии", slog.String("error", err.Error()))
		http.Error(w, "Ошибка создания сессии", http.StatusInternalServerError)
		return
	}

	h.redirect(w, r, homePath)
}

// HandleLogout — POST /admin/logout. Удаляет cookie сессии и кэш справочников.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if s := uimiddleware.SessionFromContext(r.Context()); s != nil {
		if h.catalog != nil {
			h.catalog.Forget(service.SessionKey(s.Token))
		}
		h.logger.Info("Администратор вышел из консоли", slog.String("username", s.User.Username))
	}
	h.sessions.Logout(w)

	if auth.IsHTMX(r) {
		w.Header().Set("HX-Redirect", auth.LoginPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	h.redirect(w, r, auth.LoginPath)
}

// DeniedPage возвращает содержимое отказа guard для middleware.RequirePermission.
// Код ответа уже записан guard: здесь только тело.
func DeniedPage(env Env) uimiddleware.DeniedRenderer {
	p := newPage(env, "ui.guard")
	return func(w http.ResponseWriter, r *http.Request) {
		b := p.base(w, r, "denied.title", "")
		if err := pages.AccessDenied(pages.DeniedData{Base: b}).Render(r.Context(), w); err != nil {
			p.logger.Error("Ошибка рендеринга страницы отказа", slog.String("error", err.Error()))
		}
	}
}
