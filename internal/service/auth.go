package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// AuthBackend — вызовы backend для входа и прав текущего администратора.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResult, error)
	MyPermissions(ctx context.Context) ([]model.Permission, error)
}

// LoginInput — данные формы входа.
type LoginInput struct {
	Username string `validate:"required,notblank,max=100"`
	Password string `validate:"required,max=256"`
}

// Session — результат входа: токен, пользователь и его права.
type Session struct {
	Token       string
	User        model.SessionUser
	Permissions []model.Permission
}

// AuthService — вход администратора и восстановление списка прав.
type AuthService struct {
	backend AuthBackend
	logger  *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(b AuthBackend, logger *slog.Logger) *AuthService {
	return &AuthService{
		backend: b,
		logger:  logger.With(slog.String("component", "auth_service")),
	}
}

// Login аутентифицирует администратора в backend.
// Если backend не вернул права, они запрашиваются отдельно с новым токеном;
// ошибка этого запроса не прерывает вход (права восстановятся при следующем запросе).
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := lifecycle.ValidateForm(in); err != nil {
		return nil, validation("вход", err)
	}

	res, err := s.backend.Login(ctx, in.Username, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrUnavailable):
			return nil, mapBackendError("вход", err)
		case backend.IsStatus(err, http.StatusUnauthorized),
			backend.IsStatus(err, http.StatusBadRequest),
			backend.IsStatus(err, http.StatusForbidden),
			backend.IsStatus(err, http.StatusNotFound):
			s.logger.Info("Неудачная попытка входа", slog.String("username", in.Username))
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, mapBackendError("вход", err)
	}

	sess := &Session{
		Token:       res.Token,
		User:        res.User.SessionUser(),
		Permissions: res.Permissions,
	}
	if len(sess.Permissions) == 0 {
		sess.Permissions = res.User.EffectivePermissions
	}
	if len(sess.Permissions) == 0 {
		perms, err := s.backend.MyPermissions(backend.WithToken(ctx, res.Token))
		if err != nil {
			s.logger.Warn("Не удалось получить права после входа",
				slog.String("username", sess.User.Username),
				slog.String("error", err.Error()),
			)
		} else {
			sess.Permissions = perms
		}
	}
	if sess.Permissions == nil {
		sess.Permissions = []model.Permission{}
	}

	s.logger.Info("Администратор вошёл в консоль",
		slog.String("username", sess.User.Username),
		slog.Int("permissions", len(sess.Permissions)),
	)
	return sess, nil
}

// RefreshPermissions запрашивает права текущего администратора.
// Токен и обработчик 401 берутся из контекста запроса.
func (s *AuthService) RefreshPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.backend.MyPermissions(ctx)
	if err != nil {
		return nil, mapBackendError("права администратора", err)
	}
	return perms, nil
}
