package pages

import (
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
)

// Виды уведомлений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash — одноразовое уведомление после действия.
// Key — ключ перевода; Text — готовый текст (сообщение backend показывается как есть).
type Flash struct {
	Kind string `json:"k"`
	Key  string `json:"m,omitempty"`
	Text string `json:"x,omitempty"`
}

// Base — общие данные всех страниц за layout.
type Base struct {
	// Title — ключ перевода заголовка
	Title string
	// Active — раздел навигации, подсвеченный в меню
	Active  string
	User    model.SessionUser
	Nav     []NavItem
	Flash   *Flash
	Partial bool
	// Checker — права текущего администратора (кнопки действий)
	Checker *rbac.Checker
}

// IsPartial — рендерить только блок content (HTMX).
func (b Base) IsPartial() bool { return b.Partial }

// Can проверяет право для показа кнопок и ссылок.
func (b Base) Can(key string) bool {
	return b.Checker.HasPermission(rbac.Key(key))
}

// DisplayName — имя администратора в шапке.
func (b Base) DisplayName() string {
	if b.User.Name != "" {
		return b.User.Name
	}
	return b.User.Username
}

// Pager — пагинация списков.
type Pager struct {
	Page       int
	TotalPages int
	TotalCount int
	// Query — параметры фильтров без page (для ссылок)
	Query string
	// Path — адрес списка
	Path string
}

// PagerFrom строит пагинацию по странице backend.
func PagerFrom[T any](p model.Page[T], path, query string) Pager {
	return Pager{
		Page:       p.CurrentPage,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
		Path:       path,
		Query:      query,
	}
}

// HasPrev — есть предыдущая страница.
func (p Pager) HasPrev() bool { return p.Page > 1 }

// HasNext — есть следующая страница.
func (p Pager) HasNext() bool { return p.Page < p.TotalPages }

// Link — адрес страницы n с сохранением фильтров.
func (p Pager) Link(n int) string {
	link := p.Path + "?page=" + itoa(n)
	if p.Query != "" {
		link += "&" + p.Query
	}
	return link
}
