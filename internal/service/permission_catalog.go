// permission_catalog.go — LRU-кэш справочника прав и ролей с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// Prometheus-метрики кэша справочника.
var catalogCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kb_permission_catalog_cache_total",
	Help: "Обращения к кэшу справочника прав и ролей.",
}, []string{"kind", "result"})

// PermissionCatalog — кэш справочника прав и ролей.
// Ключ — отпечаток сессии: backend проверяет право на чтение справочника
// для каждого токена, поэтому ответ одной сессии не отдаётся другой.
// Любое изменение прав или ролей через консоль очищает кэш целиком.
type PermissionCatalog struct {
	permissions *expirable.LRU[string, []model.Permission]
	roles       *expirable.LRU[string, []model.Role]
}

// NewPermissionCatalog создаёт кэш с максимальным размером и TTL записи.
func NewPermissionCatalog(maxSize int, ttl time.Duration) *PermissionCatalog {
	return &PermissionCatalog{
		permissions: expirable.NewLRU[string, []model.Permission](maxSize, nil, ttl),
		roles:       expirable.NewLRU[string, []model.Role](maxSize, nil, ttl),
	}
}

// Permissions возвращает справочник прав для сессии.
func (c *PermissionCatalog) Permissions(sessionKey string) ([]model.Permission, bool) {
	v, ok := c.permissions.Get(sessionKey)
	observeCatalog("permissions", ok)
	return v, ok
}

// SetPermissions сохраняет справочник прав для сессии.
func (c *PermissionCatalog) SetPermissions(sessionKey string, perms []model.Permission) {
	c.permissions.Add(sessionKey, perms)
}

// Roles возвращает справочник ролей для сессии.
func (c *PermissionCatalog) Roles(sessionKey string) ([]model.Role, bool) {
	v, ok := c.roles.Get(sessionKey)
	observeCatalog("roles", ok)
	return v, ok
}

// SetRoles сохраняет справочник ролей для сессии.
func (c *PermissionCatalog) SetRoles(sessionKey string, roles []model.Role) {
	c.roles.Add(sessionKey, roles)
}

// Forget удаляет записи одной сессии (выход из консоли).
func (c *PermissionCatalog) Forget(sessionKey string) {
	c.permissions.Remove(sessionKey)
	c.roles.Remove(sessionKey)
}

// Purge очищает кэш целиком.
func (c *PermissionCatalog) Purge() {
	c.permissions.Purge()
	c.roles.Purge()
}

// Len возвращает число записей (права + роли).
func (c *PermissionCatalog) Len() int {
	return c.permissions.Len() + c.roles.Len()
}

func observeCatalog(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	catalogCacheTotal.WithLabelValues(kind, result).Inc()
}
