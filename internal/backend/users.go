package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// ListUsers возвращает всех пользователей платформы.
// Ответ без конверта: {users: [...]}.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var resp struct {
		Users []model.User `json:"users"`
	}
	if err := c.getRaw(ctx, "/admin/users/all-users", &resp); err != nil {
		return nil, fmt.Errorf("ListUsers: %w", err)
	}
	return resp.Users, nil
}

// GetUser возвращает пользователя платформы. Backend отдаёт {user: [u]}.
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var resp struct {
		User []model.User `json:"user"`
	}
	if err := c.getRaw(ctx, fmt.Sprintf("/admin/users/details/%d", id), &resp); err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	if len(resp.User) == 0 {
		return nil, fmt.Errorf("GetUser: %w", &APIError{StatusCode: http.StatusNotFound, Message: "пользователь не найден"})
	}
	return &resp.User[0], nil
}

// ApproveUser одобряет пользователя платформы.
// Backend принимает одобрение через GET, но запрос меняет состояние,
// поэтому выполняется без повторов.
func (c *Client) ApproveUser(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/admin/users/approve/%d", id),
	})
	if err != nil {
		return fmt.Errorf("ApproveUser: %w", err)
	}
	return nil
}
