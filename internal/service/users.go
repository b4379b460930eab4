package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// UserBackend — вызовы backend для пользователей платформы.
type UserBackend interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ApproveUser(ctx context.Context, id int64) error
}

// UserFilter — фильтры списка пользователей.
type UserFilter struct {
	// Approval: "" — все, "pending" — ждут одобрения, "approved" — одобренные
	Approval string
	Search   string
	Page     int
}

// UserService — пользователи платформы (фермеры и инвесторы).
type UserService struct {
	backend  UserBackend
	pageSize int
	logger   *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(b UserBackend, pageSize int, logger *slog.Logger) *UserService {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &UserService{
		backend:  b,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает страницу пользователей.
// Backend отдаёт весь список, фильтры и пагинация применяются здесь.
func (s *UserService) List(ctx context.Context, f UserFilter) (model.Page[model.User], error) {
	users, err := s.backend.ListUsers(ctx)
	if err != nil {
		return model.Page[model.User]{}, mapBackendError("список пользователей", err)
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	filtered := make([]model.User, 0, len(users))
	for _, u := range users {
		switch f.Approval {
		case "pending":
			if bool(u.IsApproved) {
				continue
			}
		case "approved":
			if !bool(u.IsApproved) {
				continue
			}
		}
		if search != "" && !matchesUser(u, search) {
			continue
		}
		filtered = append(filtered, u)
	}

	return paginate(filtered, f.Page, s.pageSize), nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.backend.GetUser(ctx, id)
	if err != nil {
		return nil, mapBackendError(fmt.Sprintf("пользователь %d", id), err)
	}
	return u, nil
}

// Approve одобряет пользователя. Повторное одобрение отклоняется без вызова backend.
func (s *UserService) Approve(ctx context.Context, id int64) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.IsApproved {
		return validation("одобрение пользователя", &lifecycle.TransitionError{
			Code:    lifecycle.CodeInvalidTransition,
			Message: fmt.Sprintf("пользователь %s уже одобрен", u.DisplayName()),
		})
	}
	if err := s.backend.ApproveUser(ctx, id); err != nil {
		return mapBackendError("одобрение пользователя", err)
	}
	s.logger.Info("Пользователь одобрен", slog.Int64("user_id", id))
	return nil
}

// PendingCount возвращает число пользователей, ожидающих одобрения.
func (s *UserService) PendingCount(ctx context.Context) (int, error) {
	p, err := s.List(ctx, UserFilter{Approval: "pending", Page: 1})
	if err != nil {
		return 0, err
	}
	return p.TotalCount, nil
}

func matchesUser(u model.User, search string) bool {
	for _, v := range []string{u.DisplayName(), u.Email, u.Phone} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// paginate режет срез на страницы размера size.
func paginate[T any](items []T, page, size int) model.Page[T] {
	total := len(items)
	pages := max(1, (total+size-1)/size)
	page = min(max(page, 1), pages)

	start := (page - 1) * size
	end := min(start+size, total)
	return model.Page[T]{
		Items:       items[start:end],
		CurrentPage: page,
		TotalPages:  pages,
		TotalCount:  total,
	}
}
