// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — backend отказал в доступе (403).
	ErrForbidden = errors.New("недостаточно прав")
	// ErrBackendUnavailable — backend недоступен (сеть, 502/503/504).
	ErrBackendUnavailable = errors.New("backend недоступен")
	// ErrSuperseded — ответ устарел: тот же список уже запрошен заново.
	ErrSuperseded = errors.New("запрос заменён более новым")
	// ErrInvalidCredentials — неверные имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")
	// ErrUnauthorized — сессия недействительна, выполнен принудительный выход.
	ErrUnauthorized = backend.ErrUnauthorized
)

// mapBackendError переводит ошибку backend в ошибку сервисного слоя.
// Исходная ошибка остаётся в цепочке: текст backend доступен через errors.As.
func mapBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, backend.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
	case backend.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case backend.IsForbidden(err):
		return fmt.Errorf("%s: %w: %w", op, ErrForbidden, err)
	case backend.IsStatus(err, http.StatusBadRequest), backend.IsStatus(err, http.StatusUnprocessableEntity):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// validation оборачивает ошибку проверки ввода в ErrValidation.
func validation(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
}

// NoticeText возвращает текст, который можно показать пользователю как есть:
// сообщение backend или описание ошибки перехода. ok == false — текста нет,
// UI показывает общее сообщение.
func NoticeText(err error) (text string, ok bool) {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return te.Message, true
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}
