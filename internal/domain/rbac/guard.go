package rbac

// DefaultRedirect — куда уводить пользователя без права (главная консоли).
const DefaultRedirect = "/admin/"

// Guard — декларация защищённого раздела UI.
// Guard только улучшает UX: скрывает разделы и уводит со страниц.
// Реальную авторизацию каждого вызова выполняет backend.
type Guard struct {
	// Permission — требуемое право
	Permission Key
	// RedirectTo — адрес перенаправления без права (пусто → DefaultRedirect)
	RedirectTo string
}

// Decision — результат проверки guard.
type Decision struct {
	// Allowed — показывать защищённое содержимое
	Allowed bool
	// RedirectTo — куда перенаправить (пусто, если Allowed)
	RedirectTo string
}

// NewGuard создаёт guard. Неизвестный ключ — паника при объявлении маршрута.
func NewGuard(permission Key, redirectTo string) Guard {
	if redirectTo == "" {
		redirectTo = DefaultRedirect
	}
	return Guard{Permission: MustKnown(permission), RedirectTo: redirectTo}
}

// Decide проверяет доступ принципала.
func (g Guard) Decide(c *Checker) Decision {
	if c.HasPermission(g.Permission) {
		return Decision{Allowed: true}
	}
	target := g.RedirectTo
	if target == "" {
		target = DefaultRedirect
	}
	return Decision{RedirectTo: target}
}
