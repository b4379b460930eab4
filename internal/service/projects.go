package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// ProjectBackend — вызовы backend, нужные сервису проектов.
type ProjectBackend interface {
	ListProjects(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error)
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	CreateProject(ctx context.Context, form model.ProjectForm, files []backend.FilePart) error
	UpdateProject(ctx context.Context, id int64, form model.ProjectForm, files []backend.FilePart) error
	DeleteProject(ctx context.Context, id int64) error
	TransitionProject(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) error
}

// ProjectService — проекты и их жизненный цикл.
// Переход всегда проверяется по свежему статусу из backend, выполняется
// одним вызовом без повторов и завершается повторным чтением записи.
type ProjectService struct {
	backend  ProjectBackend
	journal  *JournalService
	pageSize int
	logger   *slog.Logger
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(b ProjectBackend, journal *JournalService, pageSize int, logger *slog.Logger) *ProjectService {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &ProjectService{
		backend:  b,
		journal:  journal,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "project_service")),
	}
}

// List возвращает страницу проектов.
func (s *ProjectService) List(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error) {
	if f.Limit <= 0 {
		f.Limit = s.pageSize
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	page, err := s.backend.ListProjects(ctx, f)
	if err != nil {
		return model.Page[model.Project]{}, mapBackendError("список проектов", err)
	}
	return page, nil
}

// updatableLimit — сколько проектов каждого статуса попадает в выбор ленты обновлений.
const updatableLimit = 100

// UpdatableProjects возвращает проекты, принимающие записи ленты:
// одобренные и запущенные. Оба списка запрашиваются параллельно.
func (s *ProjectService) UpdatableProjects(ctx context.Context) ([]model.Project, error) {
	statuses := []lifecycle.ProjectStatus{lifecycle.ProjectApproved, lifecycle.ProjectRunning}
	pages := make([]model.Page[model.Project], len(statuses))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range statuses {
		g.Go(func() error {
			page, err := s.backend.ListProjects(gctx, model.ProjectFilter{Status: st, Page: 1, Limit: updatableLimit})
			if err != nil {
				return mapBackendError(fmt.Sprintf("проекты %s", st), err)
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]model.Project, 0, len(pages[0].Items)+len(pages[1].Items))
	for _, p := range pages {
		result = append(result, p.Items...)
	}
	return result, nil
}

// Get возвращает проект по ID.
func (s *ProjectService) Get(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.backend.GetProject(ctx, id)
	if err != nil {
		return nil, mapBackendError(fmt.Sprintf("проект %d", id), err)
	}
	return p, nil
}

// Create создаёт проект. Новый проект всегда в статусе pending.
func (s *ProjectService) Create(ctx context.Context, form model.ProjectForm, files []backend.FilePart) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание проекта", err)
	}
	if err := s.backend.CreateProject(ctx, form, files); err != nil {
		return mapBackendError("создание проекта", err)
	}
	s.logger.Info("Проект создан", slog.String("project_name", form.ProjectName))
	return nil
}

// Update изменяет поля проекта. Разрешено только в статусах pending и approved.
func (s *ProjectService) Update(ctx context.Context, id int64, form model.ProjectForm, files []backend.FilePart) error {
	action := lifecycle.ProjectActionEdit

	if err := lifecycle.ValidateForm(form); err != nil {
		s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
		return validation("изменение проекта", err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := lifecycle.NextProjectStatus(current.Status, action); err != nil {
		s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
		return validation("изменение проекта", err)
	}

	err = s.backend.UpdateProject(ctx, id, form, files)
	s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
	if err != nil {
		return mapBackendError("изменение проекта", err)
	}
	return nil
}

// Delete удаляет проект (допустимо в любом статусе).
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	err := s.backend.DeleteProject(ctx, id)
	s.journal.Record(ctx, model.JournalEntityProject, id, string(lifecycle.ProjectActionDelete), err)
	if err != nil {
		return mapBackendError("удаление проекта", err)
	}
	return nil
}

// Transition выполняет approve, reject, start или complete.
// Ввод проверяется до любого сетевого вызова. Возвращает перечитанный проект;
// если повторное чтение не удалось, проект nil, а переход считается выполненным.
func (s *ProjectService) Transition(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) (*model.Project, error) {
	switch action {
	case lifecycle.ProjectActionApprove, lifecycle.ProjectActionReject,
		lifecycle.ProjectActionStart, lifecycle.ProjectActionComplete:
	default:
		return nil, validation("переход проекта", &lifecycle.TransitionError{
			Code:    lifecycle.CodeInvalidTransition,
			Message: fmt.Sprintf("действие %s не является переходом статуса", action),
		})
	}

	if err := lifecycle.ValidateProjectInput(action, reject); err != nil {
		s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
		return nil, validation("переход проекта", err)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := lifecycle.NextProjectStatus(current.Status, action); err != nil {
		s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
		return nil, validation("переход проекта", err)
	}

	err = s.backend.TransitionProject(ctx, id, action, reject)
	s.journal.Record(ctx, model.JournalEntityProject, id, string(action), err)
	if err != nil {
		return nil, mapBackendError(fmt.Sprintf("переход проекта %s", action), err)
	}

	s.logger.Info("Статус проекта изменён",
		slog.Int64("project_id", id),
		slog.String("action", string(action)),
		slog.String("from", string(current.Status)),
	)

	updated, err := s.backend.GetProject(ctx, id)
	if err != nil {
		s.logger.Warn("Не удалось перечитать проект после перехода",
			slog.Int64("project_id", id),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return updated, nil
}
