package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// envelope — общий формат ответа backend.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decodeEnvelope разбирает конверт {success, data, message}.
// success=false превращается в APIError с текстом backend.
// target == nil — содержимое data не нужно.
func decodeEnvelope(body []byte, target any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("декодирование ответа backend: %w", err)
	}

	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "backend отклонил запрос"
		}
		return &APIError{StatusCode: http.StatusOK, Message: msg}
	}

	if target == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("декодирование data: %w", err)
	}
	return nil
}

// decodeRaw разбирает ответ без конверта (login, пользователи платформы).
func decodeRaw(body []byte, target any) error {
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("декодирование ответа backend: %w", err)
	}
	return nil
}

// pageData — data списочных endpoint'ов.
// Имя поля с элементами зависит от сущности (projects, investments, ...).
type pageData struct {
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	TotalCount  int `json:"totalCount"`
	Total       int `json:"total"`
}

// decodePage разбирает data списка: элементы под ключом itemsKey и счётчики страниц.
func decodePage[T any](data json.RawMessage, itemsKey string) ([]T, pageData, error) {
	var meta pageData
	if len(data) == 0 {
		return nil, meta, nil
	}

	// Часть endpoint'ов отдаёт в data сразу массив
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, meta, fmt.Errorf("декодирование списка: %w", err)
		}
		return items, meta, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, meta, fmt.Errorf("декодирование списка: %w", err)
	}
	if err := json.Unmarshal(trimmed, &meta); err != nil {
		return nil, meta, fmt.Errorf("декодирование пагинации: %w", err)
	}
	if meta.TotalCount == 0 {
		meta.TotalCount = meta.Total
	}

	var items []T
	if raw, ok := fields[itemsKey]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, meta, fmt.Errorf("декодирование %s: %w", itemsKey, err)
		}
	}
	return items, meta, nil
}
