package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
)

// RBACBackend — вызовы backend для прав, ролей и администраторов.
type RBACBackend interface {
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	CreatePermission(ctx context.Context, form model.PermissionForm) error
	UpdatePermission(ctx context.Context, id int64, form model.PermissionForm) error
	DeletePermission(ctx context.Context, id int64) error
	ListRoles(ctx context.Context) ([]model.Role, error)
	CreateRole(ctx context.Context, form model.RoleForm) error
	UpdateRole(ctx context.Context, id int64, form model.RoleForm) error
	DeleteRole(ctx context.Context, id int64) error
	ListAdmins(ctx context.Context) ([]model.AdminPrincipal, error)
	GetAdmin(ctx context.Context, id int64) (*model.AdminPrincipal, error)
	CreateAdmin(ctx context.Context, form model.AdminForm) error
	SetAdminRoles(ctx context.Context, id int64, roleIDs []int64) error
	SetAdminPermissions(ctx context.Context, id int64, permissionIDs []int64) error
}

// RBACService — управление правами, ролями и учётными записями администраторов.
type RBACService struct {
	backend RBACBackend
	catalog *PermissionCatalog
	logger  *slog.Logger
}

// NewRBACService создаёт сервис RBAC.
func NewRBACService(b RBACBackend, catalog *PermissionCatalog, logger *slog.Logger) *RBACService {
	return &RBACService{
		backend: b,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "rbac_service")),
	}
}

// --- Справочник ---

// Permissions возвращает справочник прав (через кэш сессии).
func (s *RBACService) Permissions(ctx context.Context) ([]model.Permission, error) {
	key := SessionKey(backend.TokenFromContext(ctx))
	if perms, ok := s.catalog.Permissions(key); ok {
		return perms, nil
	}
	perms, err := s.backend.ListPermissions(ctx)
	if err != nil {
		return nil, mapBackendError("справочник прав", err)
	}
	s.catalog.SetPermissions(key, perms)
	return perms, nil
}

// Roles возвращает роли с их правами (через кэш сессии).
func (s *RBACService) Roles(ctx context.Context) ([]model.Role, error) {
	key := SessionKey(backend.TokenFromContext(ctx))
	if roles, ok := s.catalog.Roles(key); ok {
		return roles, nil
	}
	roles, err := s.backend.ListRoles(ctx)
	if err != nil {
		return nil, mapBackendError("справочник ролей", err)
	}
	s.catalog.SetRoles(key, roles)
	return roles, nil
}

// CreatePermission создаёт право.
func (s *RBACService) CreatePermission(ctx context.Context, form model.PermissionForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание права", err)
	}
	if _, err := rbac.ParseKey(form.PermissionKey); err != nil {
		// Право с новым ключом допустимо в backend, но guard консоли его не знает
		s.logger.Warn("Создаётся право, неизвестное консоли",
			slog.String("permission_key", form.PermissionKey),
		)
	}
	return s.mutateCatalog(ctx, "создание права", func(ctx context.Context) error {
		return s.backend.CreatePermission(ctx, form)
	})
}

// UpdatePermission изменяет право.
func (s *RBACService) UpdatePermission(ctx context.Context, id int64, form model.PermissionForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("изменение права", err)
	}
	return s.mutateCatalog(ctx, "изменение права", func(ctx context.Context) error {
		return s.backend.UpdatePermission(ctx, id, form)
	})
}

// DeletePermission удаляет право.
func (s *RBACService) DeletePermission(ctx context.Context, id int64) error {
	return s.mutateCatalog(ctx, "удаление права", func(ctx context.Context) error {
		return s.backend.DeletePermission(ctx, id)
	})
}

// CreateRole создаёт роль с набором прав.
func (s *RBACService) CreateRole(ctx context.Context, form model.RoleForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание роли", err)
	}
	return s.mutateCatalog(ctx, "создание роли", func(ctx context.Context) error {
		return s.backend.CreateRole(ctx, form)
	})
}

// UpdateRole изменяет роль и её права.
func (s *RBACService) UpdateRole(ctx context.Context, id int64, form model.RoleForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("изменение роли", err)
	}
	return s.mutateCatalog(ctx, "изменение роли", func(ctx context.Context) error {
		return s.backend.UpdateRole(ctx, id, form)
	})
}

// DeleteRole удаляет роль.
func (s *RBACService) DeleteRole(ctx context.Context, id int64) error {
	return s.mutateCatalog(ctx, "удаление роли", func(ctx context.Context) error {
		return s.backend.DeleteRole(ctx, id)
	})
}

// mutateCatalog выполняет изменение справочника и очищает кэш при успехе.
func (s *RBACService) mutateCatalog(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return mapBackendError(op, err)
	}
	s.catalog.Purge()
	s.logger.Info("Справочник RBAC изменён", slog.String("operation", op))
	return nil
}

// --- Администраторы ---

// Admins возвращает список администраторов.
func (s *RBACService) Admins(ctx context.Context) ([]model.AdminPrincipal, error) {
	admins, err := s.backend.ListAdmins(ctx)
	if err != nil {
		return nil, mapBackendError("список администраторов", err)
	}
	for i := range admins {
		fillEffective(&admins[i])
	}
	return admins, nil
}

// AdminEditor — данные страницы назначения ролей и прав администратору.
type AdminEditor struct {
	Admin       *model.AdminPrincipal
	Roles       []model.Role
	Permissions []model.Permission
}

// Admin загружает администратора вместе со справочниками ролей и прав.
// Три запроса выполняются параллельно.
func (s *RBACService) Admin(ctx context.Context, id int64) (*AdminEditor, error) {
	var editor AdminEditor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		admin, err := s.backend.GetAdmin(gctx, id)
		if err != nil {
			return mapBackendError(fmt.Sprintf("администратор %d", id), err)
		}
		fillEffective(admin)
		editor.Admin = admin
		return nil
	})
	g.Go(func() error {
		roles, err := s.Roles(gctx)
		editor.Roles = roles
		return err
	})
	g.Go(func() error {
		perms, err := s.Permissions(gctx)
		editor.Permissions = perms
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &editor, nil
}

// CreateAdmin создаёт учётную запись администратора.
func (s *RBACService) CreateAdmin(ctx context.Context, form model.AdminForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание администратора", err)
	}
	if err := s.backend.CreateAdmin(ctx, form); err != nil {
		return mapBackendError("создание администратора", err)
	}
	s.logger.Info("Администратор создан", slog.String("username", form.Username))
	return nil
}

// AssignRoles заменяет набор ролей администратора.
func (s *RBACService) AssignRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if err := s.backend.SetAdminRoles(ctx, id, roleIDs); err != nil {
		return mapBackendError("назначение ролей", err)
	}
	s.logger.Info("Роли администратора изменены",
		slog.Int64("admin_id", id),
		slog.Int("roles", len(roleIDs)),
	)
	return nil
}

// AssignPermissions заменяет набор прямых прав администратора.
// Прямые права только добавляют доступ к правам ролей.
func (s *RBACService) AssignPermissions(ctx context.Context, id int64, permissionIDs []int64) error {
	if err := s.backend.SetAdminPermissions(ctx, id, permissionIDs); err != nil {
		return mapBackendError("назначение прямых прав", err)
	}
	s.logger.Info("Прямые права администратора изменены",
		slog.Int64("admin_id", id),
		slog.Int("permissions", len(permissionIDs)),
	)
	return nil
}

// fillEffective вычисляет эффективные права, если backend их не прислал.
func fillEffective(a *model.AdminPrincipal) {
	if len(a.EffectivePermissions) == 0 {
		a.EffectivePermissions = rbac.EffectivePermissions(a.Roles, a.DirectPermissions)
	}
}
