package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// ProjectUpdateBackend — вызовы backend ленты обновлений.
type ProjectUpdateBackend interface {
	GetProject(ctx context.Context, id int64) (*model.Project, error)
	ListProjectUpdates(ctx context.Context, projectID int64, page, limit int) ([]model.ProjectUpdate, error)
	CreateProjectUpdate(ctx context.Context, form model.ProjectUpdateForm, media []backend.FilePart) error
}

// ProjectUpdateService — лента обновлений проекта (только добавление).
type ProjectUpdateService struct {
	backend  ProjectUpdateBackend
	pageSize int
	logger   *slog.Logger
}

// NewProjectUpdateService создаёт сервис ленты обновлений.
func NewProjectUpdateService(b ProjectUpdateBackend, pageSize int, logger *slog.Logger) *ProjectUpdateService {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &ProjectUpdateService{
		backend:  b,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "project_update_service")),
	}
}

// List возвращает записи ленты. projectID == 0 — по всем проектам.
func (s *ProjectUpdateService) List(ctx context.Context, projectID int64, page int) ([]model.ProjectUpdate, error) {
	if page <= 0 {
		page = 1
	}
	items, err := s.backend.ListProjectUpdates(ctx, projectID, page, s.pageSize)
	if err != nil {
		return nil, mapBackendError("лента обновлений", err)
	}
	return items, nil
}

// Create добавляет запись. Проект должен быть в статусе approved или running.
func (s *ProjectUpdateService) Create(ctx context.Context, form model.ProjectUpdateForm, media []backend.FilePart) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("запись ленты", err)
	}

	p, err := s.backend.GetProject(ctx, form.ProjectID)
	if err != nil {
		return mapBackendError(fmt.Sprintf("проект %d", form.ProjectID), err)
	}
	if !p.Status.AcceptsUpdates() {
		return validation("запись ленты", &lifecycle.TransitionError{
			Code:    lifecycle.CodeInvalidTransition,
			Message: fmt.Sprintf("обновления принимаются только для одобренных и запущенных проектов (статус %s)", p.Status),
		})
	}

	if err := s.backend.CreateProjectUpdate(ctx, form, media); err != nil {
		return mapBackendError("запись ленты", err)
	}
	s.logger.Info("Запись ленты добавлена",
		slog.Int64("project_id", form.ProjectID),
		slog.String("update_type", form.UpdateType),
		slog.Int("media", len(media)),
	)
	return nil
}
