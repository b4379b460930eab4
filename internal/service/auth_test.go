package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

func loginOK(perms []model.Permission) func(context.Context, string, string) (*backend.LoginResult, error) {
	return func(context.Context, string, string) (*backend.LoginResult, error) {
		return &backend.LoginResult{
			Token:       "jwt-token",
			User:        model.AdminPrincipal{ID: 1, Username: "moderator", Name: "Moderator"},
			Permissions: perms,
		}, nil
	}
}

func TestLogin_ValidationBeforeNetwork(t *testing.T) {
	b := &mockAuthBackend{loginFn: loginOK(nil)}
	svc := NewAuthService(b, testLogger())

	for _, in := range []LoginInput{{}, {Username: "  ", Password: "x"}, {Username: "admin"}} {
		if _, err := svc.Login(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Errorf("Login(%+v): ожидали ErrValidation, получили %v", in, err)
		}
	}
	if b.total() != 0 {
		t.Errorf("backend вызван %d раз, ожидали 0", b.total())
	}
}

func TestLogin_Success(t *testing.T) {
	perms := []model.Permission{{ID: 1, PermissionKey: "dashboard"}}
	b := &mockAuthBackend{loginFn: loginOK(perms)}
	svc := NewAuthService(b, testLogger())

	sess, err := svc.Login(context.Background(), LoginInput{Username: "moderator", Password: "secret"})
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if sess.Token != "jwt-token" || sess.User.Username != "moderator" {
		t.Errorf("сессия = %+v", sess)
	}
	if len(sess.Permissions) != 1 {
		t.Errorf("Permissions = %v", sess.Permissions)
	}
	if b.count("MyPermissions") != 0 {
		t.Error("MyPermissions не должен вызываться, если права пришли во входе")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			b := &mockAuthBackend{loginFn: func(context.Context, string, string) (*backend.LoginResult, error) {
				return nil, &backend.APIError{StatusCode: status, Message: "Invalid credentials"}
			}}
			svc := NewAuthService(b, testLogger())

			_, err := svc.Login(context.Background(), LoginInput{Username: "a", Password: "b"})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("ожидали ErrInvalidCredentials, получили %v", err)
			}
			if text, _ := NoticeText(err); text != "Invalid credentials" {
				t.Errorf("NoticeText() = %q", text)
			}
		})
	}
}

func TestLogin_BackendUnavailable(t *testing.T) {
	b := &mockAuthBackend{loginFn: func(context.Context, string, string) (*backend.LoginResult, error) {
		return nil, fmt.Errorf("dial: %w", backend.ErrUnavailable)
	}}
	svc := NewAuthService(b, testLogger())

	_, err := svc.Login(context.Background(), LoginInput{Username: "a", Password: "b"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("ожидали ErrBackendUnavailable, получили %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("недоступность backend не должна выглядеть как неверный пароль")
	}
}

// TestLogin_FetchesPermissionsWithNewToken проверяет дозапрос прав с токеном входа.
func TestLogin_FetchesPermissionsWithNewToken(t *testing.T) {
	var gotToken string
	b := &mockAuthBackend{
		loginFn: loginOK(nil),
		myFn: func(ctx context.Context) ([]model.Permission, error) {
			gotToken = backend.TokenFromContext(ctx)
			return []model.Permission{{PermissionKey: "manage_users"}}, nil
		},
	}
	svc := NewAuthService(b, testLogger())

	sess, err := svc.Login(context.Background(), LoginInput{Username: "a", Password: "b"})
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if gotToken != "jwt-token" {
		t.Errorf("MyPermissions получил токен %q", gotToken)
	}
	if len(sess.Permissions) != 1 || sess.Permissions[0].PermissionKey != "manage_users" {
		t.Errorf("Permissions = %v", sess.Permissions)
	}
}

// TestLogin_PermissionsFetchFailure проверяет, что сбой дозапроса не мешает входу.
func TestLogin_PermissionsFetchFailure(t *testing.T) {
	b := &mockAuthBackend{
		loginFn: loginOK(nil),
		myFn: func(context.Context) ([]model.Permission, error) {
			return nil, &backend.APIError{StatusCode: 500, Message: "boom"}
		},
	}
	svc := NewAuthService(b, testLogger())

	sess, err := svc.Login(context.Background(), LoginInput{Username: "a", Password: "b"})
	if err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	if sess.Permissions == nil || len(sess.Permissions) != 0 {
		t.Errorf("ожидали пустой ненулевой список, получили %#v", sess.Permissions)
	}
}

func TestRefreshPermissions_Unauthorized(t *testing.T) {
	b := &mockAuthBackend{myFn: func(context.Context) ([]model.Permission, error) {
		return nil, backend.ErrUnauthorized
	}}
	svc := NewAuthService(b, testLogger())

	if _, err := svc.RefreshPermissions(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ожидали ErrUnauthorized, получили %v", err)
	}
}
