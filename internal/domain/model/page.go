package model

// DefaultPageSize — размер страницы списков по умолчанию.
const DefaultPageSize = 10

// Page — страница списка из backend.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	TotalCount  int
}

// HasPrev — есть ли предыдущая страница.
func (p Page[T]) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext — есть ли следующая страница.
func (p Page[T]) HasNext() bool { return p.CurrentPage < p.TotalPages }

// Normalize подставляет значения по умолчанию для пустых полей пагинации.
func (p Page[T]) Normalize(requested int) Page[T] {
	if p.CurrentPage <= 0 {
		p.CurrentPage = max(requested, 1)
	}
	if p.TotalPages <= 0 {
		p.TotalPages = 1
	}
	if p.TotalCount <= 0 {
		p.TotalCount = len(p.Items)
	}
	return p
}
