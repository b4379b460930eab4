// language.go — обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/krishibazar/admin-console/internal/ui/i18n"
)

// langCookieMaxAge — выбор языка хранится год.
const langCookieMaxAge = 365 * 24 * 60 * 60

// HandleSetLanguage обрабатывает POST /admin/set-language.
// Устанавливает cookie "lang" и возвращает на предыдущую страницу консоли.
// Параметр lang: "en" или "bn" (из формы или query); иное значение — "en".
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.Supported(lang) {
		lang = "en"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   langCookieMaxAge,
		HttpOnly: false, // JS может читать для UI-логики
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(langCookieMaxAge * time.Second),
	})

	http.Redirect(w, r, refererTarget(r), http.StatusSeeOther)
}

// refererTarget — страница консоли из Referer того же хоста; иначе главная.
func refererTarget(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return homePath
	}
	return localTarget(ref.RequestURI(), homePath)
}
