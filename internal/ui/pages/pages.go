// Пакет pages — страницы консоли.
// Шаблоны html/template встроены в бинарник; каждая страница отдаётся как
// templ.Component, поэтому обработчики рендерят её так же, как любой
// templ-компонент: pages.Dashboard(data).Render(ctx, w).
//
// Функции перевода (t, tf, lang) привязываются к контексту запроса в момент
// рендеринга: язык выбирает i18n.Middleware.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/ui/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// Имена корневых шаблонов: полная страница и фрагмент для HTMX.
const (
	entryLayout  = "layout"
	entryContent = "content"
)

// Наборы шаблонов страниц. Общие файлы подключаются к каждой странице.
var (
	sharedFiles = []string{"templates/layout.html", "templates/components.html"}
	pageSets    = map[string]*template.Template{}
)

func init() {
	pageFiles := map[string][]string{
		"login":             {"templates/login.html", "templates/components.html"},
		"dashboard":         withShared("templates/dashboard.html"),
		"projects":          withShared("templates/projects.html"),
		"project_form":      withShared("templates/project_form.html"),
		"project_detail":    withShared("templates/project_detail.html"),
		"project_updates":   withShared("templates/project_updates.html"),
		"investments":       withShared("templates/investments.html"),
		"investment_detail": withShared("templates/investment_detail.html"),
		"users":             withShared("templates/users.html"),
		"user_detail":       withShared("templates/user_detail.html"),
		"categories":        withShared("templates/categories.html"),
		"products":          withShared("templates/products.html"),
		"product_form":      withShared("templates/product_form.html"),
		"orders":            withShared("templates/orders.html"),
		"rbac_permissions":  withShared("templates/rbac_permissions.html"),
		"rbac_roles":        withShared("templates/rbac_roles.html"),
		"rbac_admins":       withShared("templates/rbac_admins.html"),
		"rbac_admin":        withShared("templates/rbac_admin.html"),
		"denied":            withShared("templates/denied.html"),
	}
	for name, files := range pageFiles {
		pageSets[name] = template.Must(
			template.New(name).Funcs(baseFuncs(context.Background())).ParseFS(templateFS, files...),
		)
	}
}

func withShared(page string) []string {
	files := make([]string, 0, len(sharedFiles)+1)
	files = append(files, sharedFiles...)
	return append(files, page)
}

// partialView — данные страницы, которые умеют рендериться фрагментом.
type partialView interface {
	IsPartial() bool
}

// render возвращает компонент страницы name.
// Фрагмент (HTMX) содержит только блок content, без layout.
func render(name string, data any) templ.Component {
	entry := entryLayout
	if pv, ok := data.(partialView); ok && pv.IsPartial() {
		entry = entryContent
	}
	return renderEntry(name, entry, data)
}

// renderEntry рендерит именованный блок набора name.
func renderEntry(name, entry string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		set, ok := pageSets[name]
		if !ok {
			return fmt.Errorf("pages: неизвестная страница %q", name)
		}
		t, err := set.Clone()
		if err != nil {
			return fmt.Errorf("pages: клонирование %s: %w", name, err)
		}
		t.Funcs(baseFuncs(ctx))

		if err := t.ExecuteTemplate(w, entry, data); err != nil {
			return fmt.Errorf("pages: рендеринг %s: %w", name, err)
		}
		return nil
	})
}

// baseFuncs — функции шаблонов. t, tf и lang читают язык из ctx.
func baseFuncs(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"t": func(key string) string {
			return i18n.T(ctx, key)
		},
		"tf": func(key string, args ...any) string {
			return i18n.Tf(ctx, key, args...)
		},
		"lang": func() string {
			return i18n.LangFromContext(ctx)
		},
		"money":    formatMoney,
		"date":     formatDate,
		"datetime": formatDateTime,
		"pct": func(a model.Amount) string {
			return a.String() + "%"
		},
		"num":      formatNumber,
		"contains": containsID,
		"deref": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
		"checks":  newPermissionChecks,
		"permIDs": model.PermissionIDs,
		"add":     func(a, b int) int { return a + b },
		"sub":     func(a, b int) int { return a - b },
		"str":     func(v any) string { return fmt.Sprint(v) },
	}
}

// permissionChecks — данные блока чекбоксов прав.
type permissionChecks struct {
	Name        string
	Permissions []model.Permission
	Selected    []int64
}

func newPermissionChecks(name string, perms []model.Permission, selected []int64) permissionChecks {
	return permissionChecks{Name: name, Permissions: perms, Selected: selected}
}

// formatMoney форматирует сумму в таках с разделителем разрядов.
func formatMoney(a model.Amount) string {
	s := a.String()
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "৳" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// formatNumber — значение поля формы; ноль — пустое поле.
func formatNumber(v any) string {
	switch x := v.(type) {
	case float64:
		if x == 0 {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		if x == 0 {
			return ""
		}
		return strconv.Itoa(x)
	}
	return fmt.Sprint(v)
}

// formatDate — дата без времени; нулевое значение — прочерк.
func formatDate(ts model.Timestamp) string {
	if ts.IsZero() {
		return "—"
	}
	return ts.Format("2006-01-02")
}

// formatDateTime — дата и время записи журнала или обновления.
func formatDateTime(v any) string {
	var t time.Time
	switch x := v.(type) {
	case model.Timestamp:
		t = x.Time
	case time.Time:
		t = x
	}
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04")
}

// containsID проверяет принадлежность идентификатора набору (отмеченные чекбоксы).
func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
