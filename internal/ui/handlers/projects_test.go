package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

type mockProjects struct {
	page      model.Page[model.Project]
	project   *model.Project
	updatable []model.Project
	err       error

	filter       model.ProjectFilter
	createdForm  model.ProjectForm
	createdFiles []backend.FilePart
	action       lifecycle.ProjectAction
	reject       lifecycle.RejectInput
}

func (m *mockProjects) List(_ context.Context, f model.ProjectFilter) (model.Page[model.Project], error) {
	m.filter = f
	return m.page, m.err
}

func (m *mockProjects) Get(context.Context, int64) (*model.Project, error) {
	return m.project, m.err
}

func (m *mockProjects) Create(_ context.Context, form model.ProjectForm, files []backend.FilePart) error {
	m.createdForm = form
	m.createdFiles = files
	return m.err
}

func (m *mockProjects) Update(_ context.Context, _ int64, form model.ProjectForm, files []backend.FilePart) error {
	m.createdForm = form
	m.createdFiles = files
	return m.err
}

func (m *mockProjects) Delete(context.Context, int64) error { return m.err }

func (m *mockProjects) Transition(
	_ context.Context, _ int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput,
) (*model.Project, error) {
	m.action = action
	m.reject = reject
	return m.project, m.err
}

func (m *mockProjects) UpdatableProjects(context.Context) ([]model.Project, error) {
	return m.updatable, nil
}

type mockUpdates struct {
	items     []model.ProjectUpdate
	projectID int64
	created   *model.ProjectUpdateForm
	err       error
}

func (m *mockUpdates) List(_ context.Context, projectID int64, _ int) ([]model.ProjectUpdate, error) {
	m.projectID = projectID
	return m.items, m.err
}

func (m *mockUpdates) Create(_ context.Context, form model.ProjectUpdateForm, _ []backend.FilePart) error {
	m.created = &form
	return m.err
}

type mockCategories struct {
	items      []model.Category
	activeOnly bool
}

func (m *mockCategories) Categories(_ context.Context, activeOnly bool) ([]model.Category, error) {
	m.activeOnly = activeOnly
	return m.items, nil
}

func newProjectsHandler(p *mockProjects, u *mockUpdates) *ProjectsHandler {
	if u == nil {
		u = &mockUpdates{}
	}
	return NewProjectsHandler(testEnv(), p, u, &mockCategories{items: []model.Category{{ID: 1, Name: "Rice"}}}, nil)
}

func TestProjectsList_FiltersPassedThrough(t *testing.T) {
	p := &mockProjects{page: model.Page[model.Project]{
		Items: []model.Project{{ID: 7, ProjectName: "Boro rice"}},
		CurrentPage: 2, TotalPages: 2, TotalCount: 11,
	}}
	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/projects?status=running&q=+rice+&page=2", nil),
		rbac.KeyProjectManagement)
	rec := httptest.NewRecorder()
	newProjectsHandler(p, nil).HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа %d", rec.Code)
	}
	if p.filter.Status != lifecycle.ProjectRunning || p.filter.Search != "rice" || p.filter.Page != 2 {
		t.Errorf("фильтр = %+v", p.filter)
	}
	if !strings.Contains(rec.Body.String(), "Boro rice") {
		t.Error("проект не показан в списке")
	}
}

func TestProjectsList_UnknownStatusIgnored(t *testing.T) {
	p := &mockProjects{}
	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/projects?status=bogus", nil))
	newProjectsHandler(p, nil).HandleList(httptest.NewRecorder(), req)

	if p.filter.Status != "" {
		t.Errorf("неизвестный статус передан в сервис: %q", p.filter.Status)
	}
}

func TestProjectsList_Superseded(t *testing.T) {
	p := &mockProjects{err: fmt.Errorf("список: %w", service.ErrSuperseded)}
	rec := httptest.NewRecorder()
	newProjectsHandler(p, nil).HandleList(rec, withSession(httptest.NewRequest(http.MethodGet, "/admin/projects", nil)))

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("устаревший ответ отправлен: %d, %d байт", rec.Code, rec.Body.Len())
	}
}

func TestProjectsList_BackendDown(t *testing.T) {
	p := &mockProjects{err: fmt.Errorf("список: %w", service.ErrBackendUnavailable)}
	rec := httptest.NewRecorder()
	newProjectsHandler(p, nil).HandleList(rec, withSession(httptest.NewRequest(http.MethodGet, "/admin/projects", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "flash.backend_unavailable") {
		t.Error("нет уведомления о недоступности backend")
	}
}

func TestProjectTransition(t *testing.T) {
	tests := []struct {
		name       string
		action     lifecycle.ProjectAction
		form       url.Values
		err        error
		wantTarget string
		wantFlash  pages.Flash
	}{
		{
			name:       "одобрение из очереди",
			action:     lifecycle.ProjectActionApprove,
			form:       url.Values{"return_to": {"/admin/projects/pending"}},
			wantTarget: "/admin/projects/pending",
			wantFlash:  pages.Flash{Kind: pages.FlashSuccess, Key: "flash.action_done"},
		},
		{
			name:       "внешний адрес возврата",
			action:     lifecycle.ProjectActionStart,
			form:       url.Values{"return_to": {"https://evil.example/"}},
			wantTarget: "/admin/projects/5",
			wantFlash:  pages.Flash{Kind: pages.FlashSuccess, Key: "flash.action_done"},
		},
		{
			name:   "отклонение без причины",
			action: lifecycle.ProjectActionReject,
			form:   url.Values{"rejection_reason": {"  "}},
			err: fmt.Errorf("переход: %w: %w", service.ErrValidation, &lifecycle.TransitionError{
				Code: lifecycle.CodeInputRequired, Message: "укажите причину отклонения",
			}),
			wantTarget: "/admin/projects/5",
			wantFlash:  pages.Flash{Kind: pages.FlashError, Text: "укажите причину отклонения"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProjects{err: tt.err}
			h := newProjectsHandler(p, nil)
			rec := serve(http.MethodPost, "/admin/projects/{id}/"+string(tt.action),
				h.HandleTransition(tt.action), postForm("/admin/projects/5/"+string(tt.action), tt.form))

			if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != tt.wantTarget {
				t.Fatalf("ответ %d, Location %q", rec.Code, rec.Header().Get("Location"))
			}
			if p.action != tt.action {
				t.Errorf("действие %q", p.action)
			}
			f := flashFrom(t, rec)
			if f == nil || *f != tt.wantFlash {
				t.Errorf("уведомление = %+v, ожидалось %+v", f, tt.wantFlash)
			}
		})
	}
}

func TestProjectCreate_InvalidFormRerendered(t *testing.T) {
	p := &mockProjects{err: fmt.Errorf("создание: %w: %w", service.ErrValidation, &lifecycle.TransitionError{
		Code:    lifecycle.CodeInputRequired,
		Message: "форма заполнена не полностью",
		Fields:  []string{"ProjectName"},
	})}
	form := url.Values{
		"farmer_name":        {"Rahim"},
		"per_unit_price":     {"1000"},
		"earning_percentage": {"15"},
		"last_edited":        {model.FieldEarningPercentage},
	}
	rec := httptest.NewRecorder()
	newProjectsHandler(p, nil).HandleCreate(rec, postForm("/admin/projects/new", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("код ответа %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="invalid"`) {
		t.Error("поле с ошибкой не подсвечено")
	}
	if !strings.Contains(body, `value="Rahim"`) {
		t.Error("введённые значения потеряны")
	}
	if p.createdForm.TotalReturnablePerUnit != 1150 {
		t.Errorf("сумма возврата не согласована: %v", p.createdForm.TotalReturnablePerUnit)
	}
}

func TestProjectCreate_Success(t *testing.T) {
	p := &mockProjects{}
	rec := httptest.NewRecorder()
	newProjectsHandler(p, nil).HandleCreate(rec, postForm("/admin/projects/new", url.Values{"project_name": {"Boro"}}))

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != projectsPath {
		t.Fatalf("ответ %d, Location %q", rec.Code, rec.Header().Get("Location"))
	}
	if p.createdForm.ProjectName != "Boro" {
		t.Errorf("форма = %+v", p.createdForm)
	}
}

func TestProjectEarningFragment(t *testing.T) {
	form := url.Values{
		"per_unit_price":            {"1000"},
		"total_returnable_per_unit": {"1200"},
		"earning_percentage":        {"15"},
		"last_edited":               {model.FieldTotalReturnable},
	}
	req := postForm("/admin/projects/earning", form)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	newProjectsHandler(&mockProjects{}, nil).HandleEarning(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `value="1200"`) || !strings.Contains(body, `value="20"`) {
		t.Errorf("доходность не пересчитана: %s", body)
	}
}

func TestProjectAddUpdate(t *testing.T) {
	u := &mockUpdates{}
	form := url.Values{
		"title":       {"  Посев завершён "},
		"update_type": {"milestone"},
		"return_to":   {"/admin/project-updates?project_id=5"},
	}
	h := newProjectsHandler(&mockProjects{}, u)
	rec := serve(http.MethodPost, "/admin/projects/{id}/updates", h.HandleAddUpdate,
		postForm("/admin/projects/5/updates", form))

	if rec.Header().Get("Location") != "/admin/project-updates?project_id=5" {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if u.created == nil || u.created.ProjectID != 5 || u.created.Title != "Посев завершён" {
		t.Errorf("обновление = %+v", u.created)
	}
}

func TestUpdatesFeed_SelectionLimitedToUpdatable(t *testing.T) {
	p := &mockProjects{updatable: []model.Project{{ID: 3, ProjectName: "Jute"}}}
	u := &mockUpdates{}
	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/project-updates?project_id=9", nil))
	rec := httptest.NewRecorder()
	newProjectsHandler(p, u).HandleUpdatesFeed(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа %d", rec.Code)
	}
	if u.projectID != 0 {
		t.Errorf("лента загружена для недоступного проекта %d", u.projectID)
	}
}
