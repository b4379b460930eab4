package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/krishibazar/admin-console/internal/api/handlers"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
	uihandlers "github.com/krishibazar/admin-console/internal/ui/handlers"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
)

type okChecker struct{}

func (okChecker) CheckReady() (string, string) { return "ok", "" }

type stubDashboard struct{}

func (stubDashboard) Load(context.Context, *rbac.Checker) (*service.Dashboard, error) {
	return &service.Dashboard{}, nil
}

type testRouter struct {
	handler  http.Handler
	sessions *auth.SessionManager
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sm, err := auth.NewSessionManager("server-test-secret-0123456789", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}
	env := uihandlers.Env{Logger: logger, Sequencer: service.NewSequencer()}
	ui := &UIComponents{
		Env:            env,
		AuthMiddleware: uimiddleware.NewUIAuth(sm, nil, nil, logger),
		Auth:           uihandlers.NewAuthHandler(env, nil, sm, nil),
		Dashboard:      uihandlers.NewDashboardHandler(env, stubDashboard{}, nil),
		Projects:       uihandlers.NewProjectsHandler(env, nil, nil, nil, nil),
		Investments:    uihandlers.NewInvestmentsHandler(env, nil, nil),
		Users:          uihandlers.NewUsersHandler(env, nil),
		Catalog:        uihandlers.NewCatalogHandler(env, nil),
		RBAC:           uihandlers.NewRBACHandler(env, nil),
	}
	return &testRouter{
		handler:  NewRouter("en", logger, handlers.NewHealthHandler(okChecker{}, nil), ui),
		sessions: sm,
	}
}

// withSession добавляет cookie сессии администратора с указанными правами.
func (tr *testRouter) withSession(t *testing.T, req *http.Request, keys ...rbac.Key) *http.Request {
	t.Helper()
	s := &auth.SessionData{Token: "jwt-token", User: model.SessionUser{ID: 1, Username: "moderator"}}
	for i, k := range keys {
		s.Permissions = append(s.Permissions, model.Permission{ID: int64(i + 1), PermissionKey: string(k)})
	}
	rec := httptest.NewRecorder()
	if err := tr.sessions.Login(rec, s); err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func (tr *testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	tr.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	tr := newTestRouter(t)
	tests := []struct {
		path     string
		wantCode int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/static/css/console.css", http.StatusOK},
		{"/admin/login", http.StatusOK},
		{"/", http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := tr.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("код ответа %d, ожидалось %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	rec := newTestRouter(t).do(httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("код ответа %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"NOT_FOUND"`) {
		t.Errorf("тело = %s", rec.Body.String())
	}
}

func TestRouter_RequiresSession(t *testing.T) {
	tr := newTestRouter(t)
	for _, path := range []string{"/admin/", "/admin/projects", "/admin/rbac/roles"} {
		t.Run(path, func(t *testing.T) {
			rec := tr.do(httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != auth.LoginPath {
				t.Errorf("ответ %d, Location %q", rec.Code, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRouter_SectionGuards(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		keys         []rbac.Key
		wantCode     int
		wantLocation string
	}{
		{"очередь без права решения", "/admin/projects/pending", []rbac.Key{rbac.KeyProjectManagement}, http.StatusSeeOther, "/admin/"},
		{"инвестиции без права", "/admin/investments", []rbac.Key{rbac.KeyDashboard}, http.StatusSeeOther, "/admin/"},
		{"RBAC без права", "/admin/rbac/admins", []rbac.Key{rbac.KeyManageUsers}, http.StatusSeeOther, "/admin/"},
		{"главная без права", "/admin/", []rbac.Key{rbac.KeyManageUsers}, http.StatusForbidden, ""},
		{"главная с правом", "/admin/", []rbac.Key{rbac.KeyDashboard}, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestRouter(t)
			req := tr.withSession(t, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.keys...)
			rec := tr.do(req)

			if rec.Code != tt.wantCode {
				t.Errorf("код ответа %d, ожидалось %d", rec.Code, tt.wantCode)
			}
			if rec.Header().Get("Location") != tt.wantLocation {
				t.Errorf("Location = %q, ожидалось %q", rec.Header().Get("Location"), tt.wantLocation)
			}
		})
	}
}
