// rbac.go — справочник прав, роли и учётные записи администраторов.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

const (
	permissionsPath = "/admin/rbac/permissions"
	rolesPath       = "/admin/rbac/roles"
	adminsPath      = "/admin/rbac/admins"
)

// RBACManager — операции RBAC. Реализуется service.RBACService.
type RBACManager interface {
	Permissions(ctx context.Context) ([]model.Permission, error)
	Roles(ctx context.Context) ([]model.Role, error)
	CreatePermission(ctx context.Context, form model.PermissionForm) error
	UpdatePermission(ctx context.Context, id int64, form model.PermissionForm) error
	DeletePermission(ctx context.Context, id int64) error
	CreateRole(ctx context.Context, form model.RoleForm) error
	UpdateRole(ctx context.Context, id int64, form model.RoleForm) error
	DeleteRole(ctx context.Context, id int64) error
	Admins(ctx context.Context) ([]model.AdminPrincipal, error)
	Admin(ctx context.Context, id int64) (*service.AdminEditor, error)
	CreateAdmin(ctx context.Context, form model.AdminForm) error
	AssignRoles(ctx context.Context, id int64, roleIDs []int64) error
	AssignPermissions(ctx context.Context, id int64, permissionIDs []int64) error
}

// RBACHandler — обработчики раздела RBAC.
type RBACHandler struct {
	page
	rbac RBACManager
}

// NewRBACHandler создаёт RBACHandler.
func NewRBACHandler(env Env, m RBACManager) *RBACHandler {
	return &RBACHandler{page: newPage(env, "ui.rbac"), rbac: m}
}

// --- Права ---

// HandlePermissions обрабатывает GET /admin/rbac/permissions.
func (h *RBACHandler) HandlePermissions(w http.ResponseWriter, r *http.Request) {
	data := pages.RBACPermissionsData{
		Base:      h.base(w, r, "rbac.permissions", pages.SectionRBAC),
		KnownKeys: knownKeys(),
	}
	items, err := list(h.page, r, "rbac_permissions", h.rbac.Permissions)
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	data.Items = items
	h.render(w, r, pages.RBACPermissions(data))
}

// HandleCreatePermission обрабатывает POST /admin/rbac/permissions.
func (h *RBACHandler) HandleCreatePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.rbac.CreatePermission(r.Context(), permissionForm(r)); err != nil {
		h.fail(w, r, err, permissionsPath)
		return
	}
	h.done(w, r, "flash.created", permissionsPath)
}

// HandleUpdatePermission обрабатывает POST /admin/rbac/permissions/{id}.
func (h *RBACHandler) HandleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.rbac.UpdatePermission(r.Context(), id, permissionForm(r)); err != nil {
		h.fail(w, r, err, permissionsPath)
		return
	}
	h.done(w, r, "flash.saved", permissionsPath)
}

// HandleDeletePermission обрабатывает POST /admin/rbac/permissions/{id}/delete.
func (h *RBACHandler) HandleDeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.rbac.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, r, err, permissionsPath)
		return
	}
	h.done(w, r, "flash.deleted", permissionsPath)
}

// --- Роли ---

// HandleRoles обрабатывает GET /admin/rbac/roles.
func (h *RBACHandler) HandleRoles(w http.ResponseWriter, r *http.Request) {
	data := pages.RBACRolesData{Base: h.base(w, r, "rbac.roles", pages.SectionRBAC)}
	type rolesView struct {
		roles []model.Role
		perms []model.Permission
	}
	v, err := list(h.page, r, "rbac_roles", func(ctx context.Context) (rolesView, error) {
		var v rolesView
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			v.roles, err = h.rbac.Roles(gctx)
			return err
		})
		g.Go(func() (err error) {
			v.perms, err = h.rbac.Permissions(gctx)
			return err
		})
		return v, g.Wait()
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = v.roles
		data.Permissions = v.perms
	}
	h.render(w, r, pages.RBACRoles(data))
}

// HandleCreateRole обрабатывает POST /admin/rbac/roles.
func (h *RBACHandler) HandleCreateRole(w http.ResponseWriter, r *http.Request) {
	if err := h.rbac.CreateRole(r.Context(), roleForm(r)); err != nil {
		h.fail(w, r, err, rolesPath)
		return
	}
	h.done(w, r, "flash.created", rolesPath)
}

// HandleUpdateRole обрабатывает POST /admin/rbac/roles/{id}.
// Набор прав заменяется целиком: снятые чекбоксы отзывают права.
func (h *RBACHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.rbac.UpdateRole(r.Context(), id, roleForm(r)); err != nil {
		h.fail(w, r, err, rolesPath)
		return
	}
	h.done(w, r, "flash.saved", rolesPath)
}

// HandleDeleteRole обрабатывает POST /admin/rbac/roles/{id}/delete.
func (h *RBACHandler) HandleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.rbac.DeleteRole(r.Context(), id); err != nil {
		h.fail(w, r, err, rolesPath)
		return
	}
	h.done(w, r, "flash.deleted", rolesPath)
}

// --- Администраторы ---

// HandleAdmins обрабатывает GET /admin/rbac/admins.
func (h *RBACHandler) HandleAdmins(w http.ResponseWriter, r *http.Request) {
	data := pages.RBACAdminsData{Base: h.base(w, r, "rbac.admins", pages.SectionRBAC)}
	if err := h.loadAdmins(r, &data); err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	h.render(w, r, pages.RBACAdmins(data))
}

func (h *RBACHandler) loadAdmins(r *http.Request, data *pages.RBACAdminsData) error {
	type adminsView struct {
		admins []model.AdminPrincipal
		roles  []model.Role
		perms  []model.Permission
	}
	v, err := list(h.page, r, "rbac_admins", func(ctx context.Context) (adminsView, error) {
		var v adminsView
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			v.admins, err = h.rbac.Admins(gctx)
			return err
		})
		g.Go(func() (err error) {
			v.roles, err = h.rbac.Roles(gctx)
			return err
		})
		g.Go(func() (err error) {
			v.perms, err = h.rbac.Permissions(gctx)
			return err
		})
		return v, g.Wait()
	})
	if err != nil {
		return err
	}
	data.Items = v.admins
	data.Roles = v.roles
	data.Permissions = v.perms
	return nil
}

// HandleCreateAdmin обрабатывает POST /admin/rbac/admins.
// Ошибки проверки полей показываются на той же странице с раскрытой формой.
func (h *RBACHandler) HandleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	form := model.AdminForm{
		Name:          strings.TrimSpace(r.FormValue("name")),
		Username:      strings.TrimSpace(r.FormValue("username")),
		Email:         strings.TrimSpace(r.FormValue("email")),
		Password:      r.FormValue("password"),
		RoleIDs:       formIDs(r, "role_ids"),
		PermissionIDs: formIDs(r, "permission_ids"),
	}
	err := h.rbac.CreateAdmin(r.Context(), form)
	if err == nil {
		h.done(w, r, "flash.created", adminsPath)
		return
	}

	var te *lifecycle.TransitionError
	if !errors.As(err, &te) || len(te.Fields) == 0 {
		h.fail(w, r, err, adminsPath)
		return
	}
	h.logError(r, err)
	data := pages.RBACAdminsData{
		Base:   h.base(w, r, "rbac.admins", pages.SectionRBAC),
		Fields: te.Fields,
	}
	if err := h.loadAdmins(r, &data); err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	h.renderStatus(w, r, http.StatusUnprocessableEntity, pages.RBACAdmins(data))
}

// HandleAdmin обрабатывает GET /admin/rbac/admins/{id}.
func (h *RBACHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	editor, err := h.rbac.Admin(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, adminsPath)
		return
	}
	h.render(w, r, pages.RBACAdmin(pages.RBACAdminData{
		Base:        h.base(w, r, "rbac.admins", pages.SectionRBAC),
		Admin:       *editor.Admin,
		Roles:       editor.Roles,
		Permissions: editor.Permissions,
		RoleIDs:     model.RoleIDs(editor.Admin.Roles),
		DirectIDs:   model.PermissionIDs(editor.Admin.DirectPermissions),
	}))
}

// HandleAssignRoles обрабатывает POST /admin/rbac/admins/{id}/roles.
func (h *RBACHandler) HandleAssignRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	target := itemURL(adminsPath, id)
	if err := h.rbac.AssignRoles(r.Context(), id, formIDs(r, "role_ids")); err != nil {
		h.fail(w, r, err, target)
		return
	}
	h.done(w, r, "flash.saved", target)
}

// HandleAssignPermissions обрабатывает POST /admin/rbac/admins/{id}/permissions.
func (h *RBACHandler) HandleAssignPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	target := itemURL(adminsPath, id)
	if err := h.rbac.AssignPermissions(r.Context(), id, formIDs(r, "permission_ids")); err != nil {
		h.fail(w, r, err, target)
		return
	}
	h.done(w, r, "flash.saved", target)
}

func permissionForm(r *http.Request) model.PermissionForm {
	return model.PermissionForm{
		PermissionKey: strings.TrimSpace(r.FormValue("permission_key")),
		Label:         strings.TrimSpace(r.FormValue("label")),
	}
}

func roleForm(r *http.Request) model.RoleForm {
	return model.RoleForm{
		Name:          strings.TrimSpace(r.FormValue("name")),
		PermissionIDs: formIDs(r, "permission_ids"),
	}
}

func knownKeys() []string {
	keys := make([]string, 0, len(rbac.AllKeys))
	for _, k := range rbac.AllKeys {
		keys = append(keys, string(k))
	}
	return keys
}
