// Пакет handlers — HTTP-обработчики страниц консоли.
// page.go — общие операции обработчиков: данные layout, рендеринг,
// уведомления после действий и разбор ошибок сервисного слоя.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/krishibazar/admin-console/internal/service"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

// Env — общие зависимости обработчиков страниц.
type Env struct {
	Logger       *slog.Logger
	SecureCookie bool
	// AssetURL строит адрес загруженного файла; nil — имя файла как есть
	AssetURL func(filename string) string
	// Sequencer отбрасывает устаревшие ответы списков
	Sequencer *service.Sequencer
}

// page — общая часть обработчиков одного раздела.
type page struct {
	logger   *slog.Logger
	secure   bool
	assetURL func(string) string
	seq      *service.Sequencer
}

func newPage(env Env, component string) page {
	assetURL := env.AssetURL
	if assetURL == nil {
		assetURL = func(name string) string { return name }
	}
	seq := env.Sequencer
	if seq == nil {
		seq = service.NewSequencer()
	}
	return page{
		logger:   env.Logger.With(slog.String("component", component)),
		secure:   env.SecureCookie,
		assetURL: assetURL,
		seq:      seq,
	}
}

// base собирает данные layout и забирает уведомление предыдущего действия.
func (p page) base(w http.ResponseWriter, r *http.Request, title, active string) pages.Base {
	session := uimiddleware.SessionFromContext(r.Context())
	checker := session.Checker()
	b := pages.Base{
		Title:   title,
		Active:  active,
		Nav:     pages.Navigation(checker, active),
		Flash:   popFlash(w, r, p.secure),
		Partial: isPartial(r),
		Checker: checker,
	}
	if session != nil {
		b.User = session.User
	}
	return b
}

// isPartial — запрос HTMX за содержимым main: layout не нужен.
func isPartial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Target") == "content"
}

// render отправляет страницу.
func (p page) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	p.renderStatus(w, r, http.StatusOK, c)
}

// renderStatus отправляет страницу с кодом ответа status.
func (p page) renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "HX-Request")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := c.Render(r.Context(), w); err != nil {
		p.logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if status == http.StatusOK {
			http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
		}
	}
}

// redirect завершает POST переходом на страницу (PRG).
func (p page) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// done — успешное действие: уведомление и переход.
func (p page) done(w http.ResponseWriter, r *http.Request, key, target string) {
	setFlash(w, pages.Flash{Kind: pages.FlashSuccess, Key: key}, p.secure)
	p.redirect(w, r, target)
}

// fail — неудачное действие: уведомление с причиной и переход.
func (p page) fail(w http.ResponseWriter, r *http.Request, err error, target string) {
	if p.stopped(w, r, err) {
		return
	}
	p.logError(r, err)
	setFlash(w, noticeFor(err), p.secure)
	p.redirect(w, r, target)
}

// loadFailed — ошибка загрузки данных страницы. true — ответ уже отправлен;
// иначе страница рендерится без данных с уведомлением в b.
func (p page) loadFailed(w http.ResponseWriter, r *http.Request, err error, b *pages.Base) bool {
	if p.stopped(w, r, err) {
		return true
	}
	p.logError(r, err)
	notice := noticeFor(err)
	b.Flash = &notice
	return false
}

// stopped обрабатывает ошибки, после которых обработчик ничего не пишет.
func (p page) stopped(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case uimiddleware.LoggedOut(r.Context()), errors.Is(err, service.ErrUnauthorized):
		// ответ (выход на страницу входа) пишет UIAuth
		return true
	case errors.Is(err, service.ErrSuperseded):
		w.WriteHeader(http.StatusNoContent)
		return true
	case errors.Is(err, context.Canceled):
		return true
	}
	return false
}

func (p page) logError(r *http.Request, err error) {
	level := slog.LevelWarn
	if !expected(err) {
		level = slog.LevelError
	}
	p.logger.Log(r.Context(), level, "Ошибка действия",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// expected — ошибка, о которой достаточно сообщить пользователю.
func expected(err error) bool {
	return errors.Is(err, service.ErrValidation) ||
		errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrForbidden) ||
		errors.Is(err, service.ErrBackendUnavailable)
}

// noticeFor переводит ошибку в уведомление. Текст backend и ошибки
// перехода показываются как есть, остальное — общим сообщением.
func noticeFor(err error) pages.Flash {
	if text, ok := service.NoticeText(err); ok {
		return pages.Flash{Kind: pages.FlashError, Text: text}
	}
	key := "flash.error"
	switch {
	case errors.Is(err, service.ErrNotFound):
		key = "flash.not_found"
	case errors.Is(err, service.ErrForbidden):
		key = "flash.forbidden"
	case errors.Is(err, service.ErrBackendUnavailable):
		key = "flash.backend_unavailable"
	case errors.Is(err, service.ErrValidation):
		key = "flash.invalid_input"
	}
	return pages.Flash{Kind: pages.FlashError, Key: key}
}

// list выполняет загрузку списка через sequencer: новый запрос того же
// представления отменяет предыдущий.
func list[T any](p page, r *http.Request, view string, fn func(ctx context.Context) (T, error)) (T, error) {
	token := ""
	if s := uimiddleware.SessionFromContext(r.Context()); s != nil {
		token = s.Token
	}
	return service.Sequence(r.Context(), p.seq, service.ViewKey(token, view), fn)
}

// --- Параметры запроса ---

// pathID извлекает числовой идентификатор из пути (/admin/projects/{id}).
func pathID(r *http.Request, name string) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return 0, fmt.Errorf("параметр %s: %w", name, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("параметр %s: недопустимое значение %d", name, id)
	}
	return id, nil
}

// idOr404 извлекает {id}; при ошибке отвечает 404.
func idOr404(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// queryPage — номер страницы списка (1, если не задан).
func queryPage(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// queryInt64 — идентификатор из query; пустой или некорректный — 0.
func queryInt64(r *http.Request, name string) int64 {
	n, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// formInt — целое поле формы; пустое или некорректное — 0.
func formInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(r.FormValue(name)))
	return n
}

// formInt64 — идентификатор из поля формы; пустое или некорректное — 0.
func formInt64(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue(name)), 10, 64)
	return n
}

// formFloat — числовое поле формы; пустое или некорректное — 0.
func formFloat(r *http.Request, name string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
	return v
}

// formBool — чекбокс формы.
func formBool(r *http.Request, name string) bool {
	switch r.FormValue(name) {
	case "on", "true", "1":
		return true
	}
	return false
}

// formIDs — отмеченные чекбоксы (role_ids, permission_ids). Некорректные значения пропускаются.
func formIDs(r *http.Request, name string) []int64 {
	_ = r.ParseForm()
	values := r.Form[name]
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// encodeQuery — параметры фильтров без пустых значений (для ссылок пагинации).
func encodeQuery(pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	return q.Encode()
}

// localTarget — адрес возврата из формы: только страницы консоли.
func localTarget(raw, fallback string) string {
	if !strings.HasPrefix(raw, "/admin/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	return raw
}

// itemURL — адрес карточки сущности.
func itemURL(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
