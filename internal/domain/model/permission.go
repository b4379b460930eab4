// Пакет model — доменные модели консоли администратора Krishibazar.
// Все сущности принадлежат удалённому backend; консоль держит только
// снимки, полученные на время одного запроса.
package model

// Permission — право доступа. Справочные данные backend,
// сопоставление выполняется по PermissionKey.
type Permission struct {
	ID            int64  `json:"id"`
	PermissionKey string `json:"permission_key"`
	Label         string `json:"label"`
}

// Role — именованный набор прав.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// AdminPrincipal — учётная запись администратора консоли.
// EffectivePermissions вычисляет backend: права ролей ∪ прямые права.
type AdminPrincipal struct {
	ID                   int64        `json:"id"`
	Username             string       `json:"username"`
	Name                 string       `json:"name"`
	Email                string       `json:"email"`
	Roles                []Role       `json:"roles,omitempty"`
	DirectPermissions    []Permission `json:"directPermissions,omitempty"`
	EffectivePermissions []Permission `json:"effectivePermissions,omitempty"`
}

// SessionUser — часть принципала, сохраняемая в сессии.
type SessionUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// SessionUser возвращает подмножество принципала для cookie сессии.
func (p AdminPrincipal) SessionUser() SessionUser {
	return SessionUser{ID: p.ID, Username: p.Username, Name: p.Name, Email: p.Email}
}

// PermissionIDs возвращает идентификаторы прав в исходном порядке.
func PermissionIDs(perms []Permission) []int64 {
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}

// RoleIDs возвращает идентификаторы ролей в исходном порядке.
func RoleIDs(roles []Role) []int64 {
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}
