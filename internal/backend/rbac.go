package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// --- Permissions API ---

// ListPermissions возвращает справочник прав.
func (c *Client) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := c.getJSON(ctx, "/admin/rbac/permissions", nil, &perms); err != nil {
		return nil, fmt.Errorf("ListPermissions: %w", err)
	}
	return perms, nil
}

// CreatePermission создаёт право.
func (c *Client) CreatePermission(ctx context.Context, form model.PermissionForm) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/rbac/permissions", form, nil); err != nil {
		return fmt.Errorf("CreatePermission: %w", err)
	}
	return nil
}

// UpdatePermission изменяет ключ и название права.
func (c *Client) UpdatePermission(ctx context.Context, id int64, form model.PermissionForm) error {
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/rbac/permissions/%d", id), form, nil); err != nil {
		return fmt.Errorf("UpdatePermission: %w", err)
	}
	return nil
}

// DeletePermission удаляет право.
func (c *Client) DeletePermission(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/rbac/permissions/%d", id), nil, nil); err != nil {
		return fmt.Errorf("DeletePermission: %w", err)
	}
	return nil
}

// --- Roles API ---

// ListRoles возвращает роли с их правами.
func (c *Client) ListRoles(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	if err := c.getJSON(ctx, "/admin/rbac/roles", nil, &roles); err != nil {
		return nil, fmt.Errorf("ListRoles: %w", err)
	}
	return roles, nil
}

// CreateRole создаёт роль.
func (c *Client) CreateRole(ctx context.Context, form model.RoleForm) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/rbac/roles", form, nil); err != nil {
		return fmt.Errorf("CreateRole: %w", err)
	}
	return nil
}

// UpdateRole изменяет название и состав роли.
func (c *Client) UpdateRole(ctx context.Context, id int64, form model.RoleForm) error {
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/rbac/roles/%d", id), form, nil); err != nil {
		return fmt.Errorf("UpdateRole: %w", err)
	}
	return nil
}

// DeleteRole удаляет роль.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/rbac/roles/%d", id), nil, nil); err != nil {
		return fmt.Errorf("DeleteRole: %w", err)
	}
	return nil
}

// --- Admins API ---

// ListAdmins возвращает администраторов консоли с ролями и правами.
func (c *Client) ListAdmins(ctx context.Context) ([]model.AdminPrincipal, error) {
	var admins []model.AdminPrincipal
	if err := c.getJSON(ctx, "/admin/rbac/admins", nil, &admins); err != nil {
		return nil, fmt.Errorf("ListAdmins: %w", err)
	}
	return admins, nil
}

// GetAdmin возвращает администратора по ID.
func (c *Client) GetAdmin(ctx context.Context, id int64) (*model.AdminPrincipal, error) {
	var admin model.AdminPrincipal
	if err := c.getJSON(ctx, fmt.Sprintf("/admin/rbac/admins/%d", id), nil, &admin); err != nil {
		return nil, fmt.Errorf("GetAdmin: %w", err)
	}
	return &admin, nil
}

// CreateAdmin создаёт администратора.
func (c *Client) CreateAdmin(ctx context.Context, form model.AdminForm) error {
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/rbac/admins", form, nil); err != nil {
		return fmt.Errorf("CreateAdmin: %w", err)
	}
	return nil
}

// SetAdminRoles заменяет набор ролей администратора.
func (c *Client) SetAdminRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	body := map[string][]int64{"role_ids": roleIDs}
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/rbac/admins/%d/roles", id), body, nil); err != nil {
		return fmt.Errorf("SetAdminRoles: %w", err)
	}
	return nil
}

// SetAdminPermissions заменяет набор прямых прав администратора.
func (c *Client) SetAdminPermissions(ctx context.Context, id int64, permissionIDs []int64) error {
	if permissionIDs == nil {
		permissionIDs = []int64{}
	}
	body := map[string][]int64{"permission_ids": permissionIDs}
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/rbac/admins/%d/permissions", id), body, nil); err != nil {
		return fmt.Errorf("SetAdminPermissions: %w", err)
	}
	return nil
}
