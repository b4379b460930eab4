// middleware.go — выбор языка для каждого запроса.
package i18n

import (
	"net/http"
)

// LangCookieName — cookie с языком, выбранным переключателем в шапке.
const LangCookieName = "lang"

// Middleware кладёт язык запроса в контекст: cookie "lang", затем
// Accept-Language, затем defaultLang (KB_DEFAULT_LANGUAGE).
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	if !Supported(defaultLang) {
		defaultLang = "en"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(r, defaultLang)
			ctx := WithLang(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request, defaultLang string) string {
	if cookie, err := r.Cookie(LangCookieName); err == nil && Supported(cookie.Value) {
		return cookie.Value
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if lang, ok := MatchLanguage(accept); ok {
			return lang
		}
	}

	return defaultLang
}
