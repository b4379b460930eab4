// guard.go — ограничение страниц по правам. Улучшает UX, не защищает данные:
// каждый вызов backend авторизуется backend.
package middleware

import (
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/ui/auth"
)

// DeniedRenderer рисует содержимое страницы при отсутствии права.
type DeniedRenderer func(w http.ResponseWriter, r *http.Request)

// RequirePermission возвращает middleware раздела с guard.
// Без права — 303 на guard.RedirectTo с телом fallback (или "Access Denied").
// Если адрес перенаправления совпадает с текущим, перенаправления нет: 403 и fallback.
// Должен использоваться ПОСЛЕ UIAuth.Middleware().
func RequirePermission(guard rbac.Guard, fallback DeniedRenderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := guard.Decide(CheckerFromContext(r.Context()))
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			switch {
			case decision.RedirectTo == r.URL.Path:
				w.WriteHeader(http.StatusForbidden)
			case auth.IsHTMX(r):
				w.Header().Set("HX-Redirect", decision.RedirectTo)
				w.WriteHeader(http.StatusForbidden)
			default:
				w.Header().Set("Location", decision.RedirectTo)
				w.WriteHeader(http.StatusSeeOther)
			}
			renderDenied(w, r, fallback)
		})
	}
}

func renderDenied(w http.ResponseWriter, r *http.Request, fallback DeniedRenderer) {
	if fallback != nil {
		fallback(w, r)
		return
	}
	_, _ = w.Write([]byte("Access Denied"))
}
