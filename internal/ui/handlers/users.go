package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

const usersPath = "/admin/users"

// UserDirectory — пользователи платформы. Реализуется service.UserService.
type UserDirectory interface {
	List(ctx context.Context, f service.UserFilter) (model.Page[model.User], error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Approve(ctx context.Context, id int64) error
}

// UsersHandler — обработчики раздела пользователей.
type UsersHandler struct {
	page
	users UserDirectory
}

// NewUsersHandler создаёт UsersHandler.
func NewUsersHandler(env Env, users UserDirectory) *UsersHandler {
	return &UsersHandler{page: newPage(env, "ui.users"), users: users}
}

// HandleList обрабатывает GET /admin/users (q, approval, page).
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := pages.UserFilter{Search: strings.TrimSpace(q.Get("q"))}
	switch a := q.Get("approval"); a {
	case "pending", "approved":
		filter.Approval = a
	}

	data := pages.UsersData{
		Base:   h.base(w, r, "users.title", pages.SectionUsers),
		Filter: filter,
	}
	result, err := list(h.page, r, "users", func(ctx context.Context) (model.Page[model.User], error) {
		return h.users.List(ctx, service.UserFilter{
			Approval: filter.Approval,
			Search:   filter.Search,
			Page:     queryPage(r),
		})
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = result.Items
		data.Pager = pages.PagerFrom(result, usersPath,
			encodeQuery("approval", filter.Approval, "q", filter.Search))
	}
	h.render(w, r, pages.Users(data))
}

// HandleDetail обрабатывает GET /admin/users/{id}.
func (h *UsersHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, usersPath)
		return
	}
	h.render(w, r, pages.UserDetail(pages.UserDetailData{
		Base:        h.base(w, r, "users.detail", pages.SectionUsers),
		User:        *u,
		NIDFrontURL: h.assetURL(u.NIDFront),
		NIDBackURL:  h.assetURL(u.NIDBack),
	}))
}

// HandleApprove обрабатывает POST /admin/users/{id}/approve.
func (h *UsersHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	target := localTarget(r.FormValue("return_to"), itemURL(usersPath, id))
	if err := h.users.Approve(r.Context(), id); err != nil {
		h.fail(w, r, err, target)
		return
	}
	h.done(w, r, "flash.user_approved", target)
}
