package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// LoginResult — ответ на вход администратора (без конверта).
type LoginResult struct {
	Token       string               `json:"token"`
	User        model.AdminPrincipal `json:"user"`
	Permissions []model.Permission   `json:"permissions"`
	Message     string               `json:"message"`
}

// Login аутентифицирует администратора.
// 401 здесь означает неверные учётные данные и не вызывает принудительный выход.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	data, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("сериализация запроса входа: %w", err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/auth/login",
		body:        bytes.NewReader(data),
		contentType: "application/json",
		public:      true,
	})
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := decodeRaw(body, &result); err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	if result.Token == "" {
		msg := result.Message
		if msg == "" {
			msg = "backend не вернул токен"
		}
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: msg}
	}
	return &result, nil
}

// MyPermissions возвращает эффективные права текущего администратора.
func (c *Client) MyPermissions(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	if err := c.getJSON(ctx, "/admin/rbac/me/permissions", nil, &perms); err != nil {
		return nil, fmt.Errorf("MyPermissions: %w", err)
	}
	if perms == nil {
		perms = []model.Permission{}
	}
	return perms, nil
}
