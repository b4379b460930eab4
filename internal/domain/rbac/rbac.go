// Пакет rbac — разрешение прав администратора консоли.
// Правила:
//   - пользователь superadmin имеет все права без проверки списка;
//   - отсутствующий список прав означает отказ (fail closed);
//   - иначе право есть, если в списке найден permission_key.
//
// Эффективные права вычисляет backend (права ролей ∪ прямые права).
// Прямые права только добавляют, отзыв права ролью не моделируется.
package rbac

import (
	"fmt"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// SuperAdminUsername — имя пользователя с безусловным доступом ко всему.
const SuperAdminUsername = "superadmin"

// Key — ключ права. Закрытое перечисление: guard и навигация объявляются
// только через эти константы.
type Key string

const (
	KeyDashboard            Key = "dashboard"
	KeyManageUsers          Key = "manage_users"
	KeyInvestmentManagement Key = "investment_management"
	KeyProjectManagement    Key = "project_management"
	KeyProjectApproval      Key = "project_approval"
	KeyProductManagement    Key = "product_management"
	KeyRBACManagement       Key = "rbac_management"
)

// AllKeys — все известные ключи прав.
var AllKeys = []Key{
	KeyDashboard,
	KeyManageUsers,
	KeyInvestmentManagement,
	KeyProjectManagement,
	KeyProjectApproval,
	KeyProductManagement,
	KeyRBACManagement,
}

// knownKeys — множество для быстрой проверки.
var knownKeys = toSet(AllKeys)

// Known проверяет, входит ли ключ в перечисление.
func (k Key) Known() bool {
	return knownKeys[k]
}

// ParseKey преобразует строку в Key. Неизвестные строки — ошибка.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if !k.Known() {
		return "", fmt.Errorf("неизвестный ключ права: %q", s)
	}
	return k, nil
}

// MustKnown возвращает ключ или паникует на неизвестном значении.
// Используется при регистрации маршрутов, чтобы опечатка ломала старт, а не доступ.
func MustKnown(k Key) Key {
	if !k.Known() {
		panic(fmt.Sprintf("rbac: неизвестный ключ права %q", k))
	}
	return k
}

// Checker — проверка прав одного принципала.
// Нулевой указатель безопасен и отказывает во всём.
type Checker struct {
	username string
	// granted == nil — список прав отсутствует
	granted map[string]struct{}
}

// NewChecker создаёт Checker для пользователя и его кэшированного списка прав.
// permissions == nil трактуется как отсутствие списка.
func NewChecker(username string, permissions []model.Permission) *Checker {
	c := &Checker{username: username}
	if permissions != nil {
		c.granted = make(map[string]struct{}, len(permissions))
		for _, p := range permissions {
			c.granted[p.PermissionKey] = struct{}{}
		}
	}
	return c
}

// IsSuperAdmin возвращает true для пользователя superadmin.
func (c *Checker) IsSuperAdmin() bool {
	return c != nil && c.username == SuperAdminUsername
}

// HasPermission проверяет одно право.
func (c *Checker) HasPermission(key Key) bool {
	if c == nil {
		return false
	}
	if c.IsSuperAdmin() {
		return true
	}
	if c.granted == nil {
		return false
	}
	_, ok := c.granted[string(key)]
	return ok
}

// HasAnyPermission — true, если есть хотя бы одно из прав.
func (c *Checker) HasAnyPermission(keys ...Key) bool {
	for _, k := range keys {
		if c.HasPermission(k) {
			return true
		}
	}
	return false
}

// HasAllPermissions — true, если есть все права (для пустого набора — true).
func (c *Checker) HasAllPermissions(keys ...Key) bool {
	for _, k := range keys {
		if !c.HasPermission(k) {
			return false
		}
	}
	return true
}

// EffectivePermissions объединяет права ролей и прямые права без дубликатов.
// Порядок: сначала права ролей в порядке ролей, затем прямые.
func EffectivePermissions(roles []model.Role, direct []model.Permission) []model.Permission {
	seen := make(map[string]bool)
	var result []model.Permission

	add := func(p model.Permission) {
		if seen[p.PermissionKey] {
			return
		}
		seen[p.PermissionKey] = true
		result = append(result, p)
	}

	for _, r := range roles {
		for _, p := range r.Permissions {
			add(p)
		}
	}
	for _, p := range direct {
		add(p)
	}
	return result
}

// toSet конвертирует срез ключей в map для быстрого поиска.
func toSet(items []Key) map[Key]bool {
	s := make(map[Key]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
