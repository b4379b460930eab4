// flash.go — одноразовое уведомление между POST и следующей страницей.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/krishibazar/admin-console/internal/ui/pages"
)

// flashCookieName — cookie уведомления. Читается один раз и сразу удаляется.
const flashCookieName = "kb_flash"

// flashMaxAge — уведомление живёт до ближайшей загрузки страницы.
const flashMaxAge = 60

// flashTextLimit — предел текста backend в cookie (в рунах).
const flashTextLimit = 300

// setFlash сохраняет уведомление для следующей страницы.
func setFlash(w http.ResponseWriter, f pages.Flash, secure bool) {
	if runes := []rune(f.Text); len(runes) > flashTextLimit {
		f.Text = string(runes[:flashTextLimit]) + "…"
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/admin",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash забирает уведомление и удаляет cookie. Повреждённое значение отбрасывается.
func popFlash(w http.ResponseWriter, r *http.Request, secure bool) *pages.Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f pages.Flash
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if f.Kind != pages.FlashSuccess && f.Kind != pages.FlashError {
		return nil
	}
	return &f
}
