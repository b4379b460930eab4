// projects.go — проекты: списки, форма с файлами, карточка, переходы статусов
// и лента обновлений.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

// projectsPath — список проектов.
const projectsPath = "/admin/projects"

// pendingPath — проекты, ожидающие решения.
const pendingPath = "/admin/projects/pending"

// journalDetailLimit — записей журнала на карточке сущности.
const journalDetailLimit = 20

// ProjectManager — операции над проектами. Реализуется service.ProjectService.
type ProjectManager interface {
	List(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error)
	Get(ctx context.Context, id int64) (*model.Project, error)
	Create(ctx context.Context, form model.ProjectForm, files []backend.FilePart) error
	Update(ctx context.Context, id int64, form model.ProjectForm, files []backend.FilePart) error
	Delete(ctx context.Context, id int64) error
	Transition(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) (*model.Project, error)
	UpdatableProjects(ctx context.Context) ([]model.Project, error)
}

// UpdateFeed — лента обновлений проектов. Реализуется service.ProjectUpdateService.
type UpdateFeed interface {
	List(ctx context.Context, projectID int64, page int) ([]model.ProjectUpdate, error)
	Create(ctx context.Context, form model.ProjectUpdateForm, media []backend.FilePart) error
}

// CategoryLister — категории для выбора в формах. Реализуется service.CatalogService.
type CategoryLister interface {
	Categories(ctx context.Context, activeOnly bool) ([]model.Category, error)
}

// ProjectsHandler — обработчики раздела проектов.
type ProjectsHandler struct {
	page
	projects   ProjectManager
	updates    UpdateFeed
	categories CategoryLister
	journal    JournalReader
}

// NewProjectsHandler создаёт ProjectsHandler. journal может быть nil.
func NewProjectsHandler(
	env Env,
	projects ProjectManager,
	updates UpdateFeed,
	categories CategoryLister,
	journal JournalReader,
) *ProjectsHandler {
	return &ProjectsHandler{
		page:       newPage(env, "ui.projects"),
		projects:   projects,
		updates:    updates,
		categories: categories,
		journal:    journal,
	}
}

// --- Списки ---

// HandleList обрабатывает GET /admin/projects (фильтры status, q, page).
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := pages.ProjectFilter{Search: strings.TrimSpace(q.Get("q"))}
	if st, err := lifecycle.ParseProjectStatus(q.Get("status")); err == nil {
		filter.Status = string(st)
	}

	data := pages.ProjectsData{
		Base:     h.base(w, r, "projects.title", pages.SectionProjects),
		Statuses: projectStatuses(),
		Filter:   filter,
	}
	h.loadList(w, r, "projects", &data, model.ProjectFilter{
		Status: lifecycle.ProjectStatus(filter.Status),
		Search: filter.Search,
		Page:   queryPage(r),
	}, projectsPath, encodeQuery("status", filter.Status, "q", filter.Search))
}

// HandlePending обрабатывает GET /admin/projects/pending.
func (h *ProjectsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	data := pages.ProjectsData{
		Base:        h.base(w, r, "projects.pending_title", pages.SectionPending),
		PendingView: true,
		Filter:      pages.ProjectFilter{Status: string(lifecycle.ProjectPending)},
	}
	h.loadList(w, r, "projects_pending", &data, model.ProjectFilter{
		Status: lifecycle.ProjectPending,
		Page:   queryPage(r),
	}, pendingPath, "")
}

func (h *ProjectsHandler) loadList(
	w http.ResponseWriter, r *http.Request,
	view string, data *pages.ProjectsData, f model.ProjectFilter, path, query string,
) {
	result, err := list(h.page, r, view, func(ctx context.Context) (model.Page[model.Project], error) {
		return h.projects.List(ctx, f)
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = result.Items
		data.Pager = pages.PagerFrom(result, path, query)
	}
	h.render(w, r, pages.Projects(*data))
}

// --- Форма ---

// HandleNew обрабатывает GET /admin/projects/new.
func (h *ProjectsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	data := pages.ProjectFormData{Base: h.base(w, r, "project.new", pages.SectionProjects)}
	data.Categories = h.loadCategories(r)
	h.render(w, r, pages.ProjectForm(data))
}

// HandleCreate обрабатывает POST /admin/projects/new (multipart).
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, files, ok := h.readForm(w, r)
	if !ok {
		return
	}
	if err := h.projects.Create(r.Context(), form, files); err != nil {
		h.formFailed(w, r, err, pages.ProjectFormData{Form: form, LastEdited: r.FormValue("last_edited")}, "project.new")
		return
	}
	h.done(w, r, "flash.created", projectsPath)
}

// HandleEdit обрабатывает GET /admin/projects/{id}/edit.
func (h *ProjectsHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	p, err := h.projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, projectsPath)
		return
	}

	data := h.editData(*p)
	data.Base = h.base(w, r, "project.edit", pages.SectionProjects)
	data.Form = model.FormFromProject(*p)
	data.Categories = h.loadCategories(r)
	h.render(w, r, pages.ProjectForm(data))
}

// HandleUpdate обрабатывает POST /admin/projects/{id}/edit (multipart).
// Новые файлы заменяют прежние, без файлов прежние сохраняются.
func (h *ProjectsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	form, files, ok := h.readForm(w, r)
	if !ok {
		return
	}
	if err := h.projects.Update(r.Context(), id, form, files); err != nil {
		data := pages.ProjectFormData{ID: id, Form: form, LastEdited: r.FormValue("last_edited")}
		if p, getErr := h.projects.Get(r.Context(), id); getErr == nil {
			current := h.editData(*p)
			data.CurrentNIDFront, data.CurrentNIDBack, data.CurrentImages =
				current.CurrentNIDFront, current.CurrentNIDBack, current.CurrentImages
		}
		h.formFailed(w, r, err, data, "project.edit")
		return
	}
	h.done(w, r, "flash.saved", itemURL(projectsPath, id))
}

// HandleEarning обрабатывает POST /admin/projects/earning — фрагмент формы
// с согласованными доходностью и суммой возврата.
func (h *ProjectsHandler) HandleEarning(w http.ResponseWriter, r *http.Request) {
	edited := r.FormValue("last_edited")
	price := formFloat(r, "per_unit_price")
	returnable, pct := model.ReconcileEarning(
		price,
		formFloat(r, "total_returnable_per_unit"),
		formFloat(r, "earning_percentage"),
		edited,
	)

	h.render(w, r, pages.EarningFields(pages.ProjectFormData{
		Form: model.ProjectForm{
			PerUnitPrice:           price,
			TotalReturnablePerUnit: returnable,
			EarningPercentage:      pct,
		},
		LastEdited: edited,
	}))
}

// readForm разбирает поля и файлы формы проекта.
func (h *ProjectsHandler) readForm(w http.ResponseWriter, r *http.Request) (model.ProjectForm, []backend.FilePart, bool) {
	if err := parseUpload(w, r); err != nil {
		h.logger.Warn("Ошибка разбора формы проекта", slog.String("error", err.Error()))
		http.Error(w, "Некорректная форма", http.StatusBadRequest)
		return model.ProjectForm{}, nil, false
	}

	form := model.ProjectForm{
		ProjectName:            strings.TrimSpace(r.FormValue("project_name")),
		FarmerName:             strings.TrimSpace(r.FormValue("farmer_name")),
		FarmerPhone:            strings.TrimSpace(r.FormValue("farmer_phone")),
		FarmerAddress:          strings.TrimSpace(r.FormValue("farmer_address")),
		PerUnitPrice:           formFloat(r, "per_unit_price"),
		TotalReturnablePerUnit: formFloat(r, "total_returnable_per_unit"),
		ProjectDuration:        formInt(r, "project_duration"),
		TotalUnits:             formInt(r, "total_units"),
		EarningPercentage:      formFloat(r, "earning_percentage"),
		WhyFundWithKrishibazar: strings.TrimSpace(r.FormValue("why_fund_with_krishibazar")),
	}
	if cid := formInt64(r, "category_id"); cid > 0 {
		form.CategoryID = &cid
	}
	form.TotalReturnablePerUnit, form.EarningPercentage = model.ReconcileEarning(
		form.PerUnitPrice, form.TotalReturnablePerUnit, form.EarningPercentage, r.FormValue("last_edited"),
	)

	files, err := collectFiles(r, backend.FieldNIDCardFront, backend.FieldNIDCardBack, backend.FieldProjectImages)
	if err != nil {
		h.logger.Warn("Ошибка чтения файлов проекта", slog.String("error", err.Error()))
		http.Error(w, "Некорректный файл", http.StatusBadRequest)
		return model.ProjectForm{}, nil, false
	}
	return form, files, true
}

// formFailed повторно показывает форму с введёнными значениями.
// Незаполненные поля подсвечиваются, текст backend показывается как есть.
func (h *ProjectsHandler) formFailed(w http.ResponseWriter, r *http.Request, err error, data pages.ProjectFormData, title string) {
	if h.stopped(w, r, err) {
		return
	}
	h.logError(r, err)

	data.Base = h.base(w, r, title, pages.SectionProjects)
	data.Categories = h.loadCategories(r)

	status := http.StatusUnprocessableEntity
	var te *lifecycle.TransitionError
	switch {
	case errors.As(err, &te):
		data.Fields = te.Fields
		data.Notice = te.Message
	default:
		notice := noticeFor(err)
		data.Flash = &notice
		if !errors.Is(err, service.ErrValidation) {
			status = http.StatusBadGateway
		}
	}
	h.renderStatus(w, r, status, pages.ProjectForm(data))
}

// loadCategories — категории для выбора; сбой не мешает показать форму.
func (h *ProjectsHandler) loadCategories(r *http.Request) []model.Category {
	if h.categories == nil {
		return nil
	}
	items, err := h.categories.Categories(r.Context(), true)
	if err != nil {
		h.logger.Warn("Категории недоступны", slog.String("error", err.Error()))
		return nil
	}
	return items
}

// editData — адреса уже загруженных файлов проекта.
func (h *ProjectsHandler) editData(p model.Project) pages.ProjectFormData {
	return pages.ProjectFormData{
		ID:              p.ID,
		CurrentNIDFront: h.assetURL(p.NIDCardFront),
		CurrentNIDBack:  h.assetURL(p.NIDCardBack),
		CurrentImages:   h.assetURLs(p.ProjectImages),
	}
}

func (h *ProjectsHandler) assetURLs(files []string) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		if u := h.assetURL(f); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// --- Карточка ---

// HandleDetail обрабатывает GET /admin/projects/{id}.
// Лента обновлений и журнал необязательны: их сбой только логируется.
func (h *ProjectsHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	p, err := h.projects.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, projectsPath)
		return
	}

	data := pages.ProjectDetailData{
		Base:         h.base(w, r, "project.detail", pages.SectionProjects),
		Project:      *p,
		Actions:      projectActions(p.Status),
		NIDFrontURL:  h.assetURL(p.NIDCardFront),
		NIDBackURL:   h.assetURL(p.NIDCardBack),
		Images:       h.assetURLs(p.ProjectImages),
		Available:    p.AvailableUnits(),
		CanAddUpdate: p.Status.AcceptsUpdates(),
		UpdateTypes:  updateTypes(),
	}

	if items, err := h.updates.List(r.Context(), id, 1); err != nil {
		if h.stopped(w, r, err) {
			return
		}
		h.logger.Warn("Лента обновлений недоступна", slog.Int64("project_id", id), slog.String("error", err.Error()))
	} else {
		data.Updates = h.updateItems(items)
	}

	if h.journal != nil && h.journal.Enabled() {
		entries, err := h.journal.ForEntity(r.Context(), model.JournalEntityProject, id, journalDetailLimit)
		if err != nil {
			h.logger.Warn("Журнал проекта недоступен", slog.Int64("project_id", id), slog.String("error", err.Error()))
		}
		data.Journal = entries
	}

	h.render(w, r, pages.ProjectDetail(data))
}

// HandleTransition возвращает обработчик POST /admin/projects/{id}/{action}
// для approve, reject, start и complete. Статус проверяется по свежим данным backend.
func (h *ProjectsHandler) HandleTransition(action lifecycle.ProjectAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idOr404(w, r)
		if !ok {
			return
		}
		target := localTarget(r.FormValue("return_to"), itemURL(projectsPath, id))
		reject := lifecycle.RejectInput{RejectionReason: strings.TrimSpace(r.FormValue("rejection_reason"))}

		if _, err := h.projects.Transition(r.Context(), id, action, reject); err != nil {
			h.fail(w, r, err, target)
			return
		}
		h.logger.Info("Статус проекта изменён",
			slog.Int64("project_id", id),
			slog.String("action", string(action)),
		)
		h.done(w, r, "flash.action_done", target)
	}
}

// HandleDelete обрабатывает POST /admin/projects/{id}/delete.
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, itemURL(projectsPath, id))
		return
	}
	h.done(w, r, "flash.deleted", projectsPath)
}

// --- Лента обновлений ---

// HandleAddUpdate обрабатывает POST /admin/projects/{id}/updates (multipart media_files).
// return_to — страница консоли, куда вернуться; по умолчанию карточка проекта.
func (h *ProjectsHandler) HandleAddUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := parseUpload(w, r); err != nil {
		h.logger.Warn("Ошибка разбора формы обновления", slog.String("error", err.Error()))
		http.Error(w, "Некорректная форма", http.StatusBadRequest)
		return
	}
	target := localTarget(r.FormValue("return_to"), itemURL(projectsPath, id))

	media, err := formFiles(r, backend.FieldMediaFiles)
	if err != nil {
		h.fail(w, r, err, target)
		return
	}
	form := model.ProjectUpdateForm{
		ProjectID:       id,
		Title:           strings.TrimSpace(r.FormValue("title")),
		UpdateType:      r.FormValue("update_type"),
		Description:     strings.TrimSpace(r.FormValue("description")),
		MilestoneStatus: strings.TrimSpace(r.FormValue("milestone_status")),
		FarmerNotes:     strings.TrimSpace(r.FormValue("farmer_notes")),
	}
	if err := h.updates.Create(r.Context(), form, media); err != nil {
		h.fail(w, r, err, target)
		return
	}
	h.done(w, r, "flash.update_added", target)
}

// HandleUpdatesFeed обрабатывает GET /admin/project-updates?project_id=.
// Выбор проекта ограничен одобренными и запущенными проектами.
func (h *ProjectsHandler) HandleUpdatesFeed(w http.ResponseWriter, r *http.Request) {
	data := pages.ProjectUpdatesData{
		Base:            h.base(w, r, "updates.title", pages.SectionUpdates),
		SelectedProject: queryInt64(r, "project_id"),
		UpdateTypes:     updateTypes(),
	}

	projects, err := h.projects.UpdatableProjects(r.Context())
	switch {
	case err != nil:
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	case !containsProject(projects, data.SelectedProject):
		data.SelectedProject = 0
	}
	data.Projects = projects

	items, err := list(h.page, r, "project_updates", func(ctx context.Context) ([]model.ProjectUpdate, error) {
		return h.updates.List(ctx, data.SelectedProject, queryPage(r))
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	data.Items = h.updateItems(items)

	h.render(w, r, pages.ProjectUpdates(data))
}

func (h *ProjectsHandler) updateItems(items []model.ProjectUpdate) []pages.UpdateItem {
	result := make([]pages.UpdateItem, 0, len(items))
	for _, u := range items {
		result = append(result, pages.UpdateItem{ProjectUpdate: u, Media: h.assetURLs(u.MediaFiles)})
	}
	return result
}

func containsProject(projects []model.Project, id int64) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func projectStatuses() []string {
	result := make([]string, 0, len(lifecycle.ProjectStatuses))
	for _, s := range lifecycle.ProjectStatuses {
		result = append(result, string(s))
	}
	return result
}

func projectActions(status lifecycle.ProjectStatus) []string {
	actions := lifecycle.AvailableProjectActions(status)
	result := make([]string, 0, len(actions))
	for _, a := range actions {
		result = append(result, string(a))
	}
	return result
}

func updateTypes() []string {
	result := make([]string, 0, len(model.UpdateTypes))
	for _, t := range model.UpdateTypes {
		result = append(result, string(t))
	}
	return result
}
