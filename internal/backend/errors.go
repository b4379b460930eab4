package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxPlainMessage — предел текста ошибки из тела без JSON, в байтах.
const maxPlainMessage = 512

var (
	// ErrUnauthorized — backend отклонил токен сессии (401).
	ErrUnauthorized = errors.New("сессия недействительна")
	// ErrUnavailable — транспортная ошибка: backend недоступен или не ответил.
	ErrUnavailable = errors.New("backend недоступен")
)

// APIError — ответ backend с ошибкой (не-2xx или success=false).
// Message — текст backend без изменений, показывается пользователю как есть.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus проверяет, что err — APIError с указанным HTTP-статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsForbidden — backend запретил действие (403).
func IsForbidden(err error) bool {
	return IsStatus(err, http.StatusForbidden)
}

// IsNotFound — сущность не найдена (404).
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// retryable определяет, можно ли повторить идемпотентный запрос.
// Повторяются только транспортные ошибки и 502/503/504.
func retryable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// newAPIError строит ошибку из тела ответа: message из JSON, иначе текст тела,
// иначе стандартный текст статуса.
func newAPIError(status int, body []byte) *APIError {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.Message
		if msg == "" {
			msg = env.Error
		}
	} else {
		msg = truncateUTF8(strings.TrimSpace(string(body)), maxPlainMessage)
	}
	if msg == "" {
		msg = fmt.Sprintf("backend: %d %s", status, http.StatusText(status))
	}
	return &APIError{StatusCode: status, Message: msg}
}

// truncateUTF8 обрезает s до n байт, не разрывая символ.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
