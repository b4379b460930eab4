package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessions(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("middleware-test-secret-0123456789", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}
	return sm
}

// sessionRequest строит запрос с cookie сессии.
func sessionRequest(t *testing.T, sm *auth.SessionManager, s *auth.SessionData, path string) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := sm.Login(rec, s); err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func moderatorSession(perms ...string) *auth.SessionData {
	s := &auth.SessionData{
		Token: "jwt-token",
		User:  model.SessionUser{ID: 2, Username: "moderator"},
	}
	s.Permissions = []model.Permission{}
	for _, p := range perms {
		s.Permissions = append(s.Permissions, model.Permission{PermissionKey: p})
	}
	return s
}

type mockRefresher struct {
	mu    sync.Mutex
	calls int
	perms []model.Permission
	err   error
}

func (m *mockRefresher) RefreshPermissions(context.Context) ([]model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.perms, m.err
}

// clearedCookies считает cookie, удалённые ответом.
func clearedCookies(rec *httptest.ResponseRecorder) int {
	n := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			n++
		}
	}
	return n
}

func TestUIAuth_NoSession(t *testing.T) {
	ua := NewUIAuth(newTestSessions(t), &mockRefresher{}, nil, testLogger())
	called := false
	h := ua.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/projects", nil))

	if called {
		t.Error("обработчик вызван без сессии")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != auth.LoginPath {
		t.Errorf("ответ %d, Location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestUIAuth_TamperedCookie(t *testing.T) {
	ua := NewUIAuth(newTestSessions(t), &mockRefresher{}, nil, testLogger())
	h := ua.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("обработчик вызван с повреждённой сессией")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || clearedCookies(rec) != 3 {
		t.Errorf("ответ %d, очищено cookie %d", rec.Code, clearedCookies(rec))
	}
}

func TestUIAuth_ValidSession(t *testing.T) {
	sm := newTestSessions(t)
	refresher := &mockRefresher{}
	ua := NewUIAuth(sm, refresher, nil, testLogger())

	h := ua.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if backend.TokenFromContext(ctx) != "jwt-token" {
			t.Errorf("токен в контексте = %q", backend.TokenFromContext(ctx))
		}
		if service.ActorFromContext(ctx) != "moderator" {
			t.Errorf("автор = %q", service.ActorFromContext(ctx))
		}
		if !CheckerFromContext(ctx).HasPermission(rbac.KeyDashboard) {
			t.Error("нет права dashboard")
		}
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest(t, sm, moderatorSession("dashboard"), "/admin/"))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("ответ %d %q", rec.Code, rec.Body.String())
	}
	if refresher.calls != 0 {
		t.Error("права запрошены при непустом списке")
	}
}

func TestUIAuth_SelfHeal(t *testing.T) {
	sm := newTestSessions(t)
	refresher := &mockRefresher{perms: []model.Permission{{PermissionKey: "manage_users"}}}
	ua := NewUIAuth(sm, refresher, nil, testLogger())

	var sawPermission bool
	h := ua.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		sawPermission = CheckerFromContext(r.Context()).HasPermission(rbac.KeyManageUsers)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest(t, sm, moderatorSession(), "/admin/users"))

	if refresher.calls != 1 {
		t.Errorf("RefreshPermissions вызван %d раз, ожидали 1", refresher.calls)
	}
	if !sawPermission {
		t.Error("обработчик не увидел восстановленные права")
	}
	persisted := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.PermissionsCookieName && c.MaxAge > 0 {
			persisted = true
		}
	}
	if !persisted {
		t.Error("восстановленные права не сохранены в cookie")
	}
}

// TestUIAuth_SelfHealFailure проверяет, что ошибка восстановления не ломает запрос
// и доступ остаётся закрытым.
func TestUIAuth_SelfHealFailure(t *testing.T) {
	sm := newTestSessions(t)
	refresher := &mockRefresher{err: errors.New("timeout")}
	ua := NewUIAuth(sm, refresher, nil, testLogger())

	h := ua.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CheckerFromContext(r.Context()).HasPermission(rbac.KeyDashboard) {
			t.Error("без прав доступ должен быть закрыт")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest(t, sm, moderatorSession(), "/admin/"))
	if rec.Code != http.StatusOK {
		t.Errorf("статус = %d", rec.Code)
	}
}

// unauthorizedBackend — backend, отвечающий 401 на всё.
func unauthorizedBackend(t *testing.T) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Token expired"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL}, srv.Client(), testLogger())
	if err != nil {
		t.Fatalf("backend.New() ошибка: %v", err)
	}
	return client
}

// TestUIAuth_ConcurrentUnauthorized проверяет, что несколько параллельных 401
// дают ровно один выход и один ответ.
func TestUIAuth_ConcurrentUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		htmx bool
	}{
		{"обычный запрос", false},
		{"HTMX", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := newTestSessions(t)
			client := unauthorizedBackend(t)
			ua := NewUIAuth(sm, &mockRefresher{}, nil, testLogger())
			before := testutil.ToFloat64(forcedLogoutsTotal.WithLabelValues("unauthorized"))

			h := ua.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var wg sync.WaitGroup
				for range 5 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := client.ListUsers(r.Context())
						if !errors.Is(err, backend.ErrUnauthorized) {
							t.Errorf("ожидали ErrUnauthorized, получили %v", err)
						}
					}()
				}
				wg.Wait()
				if !LoggedOut(r.Context()) {
					t.Error("LoggedOut() = false после 401")
				}
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<table>stale</table>"))
			}))

			req := sessionRequest(t, sm, moderatorSession("manage_users"), "/admin/users")
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := testutil.ToFloat64(forcedLogoutsTotal.WithLabelValues("unauthorized")) - before; got != 1 {
				t.Errorf("принудительных выходов %v, ожидали 1", got)
			}
			if rec.Body.String() == "<table>stale</table>" {
				t.Error("ответ обработчика не отброшен")
			}
			if clearedCookies(rec) != 3 {
				t.Errorf("очищено cookie %d, ожидали 3", clearedCookies(rec))
			}
			if tt.htmx {
				if rec.Header().Get("HX-Redirect") != auth.LoginPath {
					t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
				}
			} else if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != auth.LoginPath {
				t.Errorf("ответ %d, Location %q", rec.Code, rec.Header().Get("Location"))
			}
		})
	}
}

// TestUIAuth_SelfHealUnauthorized проверяет выход, если 401 пришёл при восстановлении прав.
func TestUIAuth_SelfHealUnauthorized(t *testing.T) {
	sm := newTestSessions(t)
	client := unauthorizedBackend(t)
	ua := NewUIAuth(sm, service.NewAuthService(client, testLogger()), nil, testLogger())

	h := ua.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("обработчик вызван после 401")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest(t, sm, moderatorSession(), "/admin/"))

	if rec.Code != http.StatusSeeOther || clearedCookies(rec) != 3 {
		t.Errorf("ответ %d, очищено cookie %d", rec.Code, clearedCookies(rec))
	}
}

func TestUIAuth_ExpiredToken(t *testing.T) {
	sm := newTestSessions(t)
	inspector, err := auth.NewTokenInspector("", "", time.Second, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	ua := NewUIAuth(sm, &mockRefresher{}, inspector, testLogger())

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatal(err)
	}
	s := moderatorSession("dashboard")
	s.Token = expired

	h := ua.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("обработчик вызван с истёкшим токеном")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, sessionRequest(t, sm, s, "/admin/"))

	if rec.Code != http.StatusSeeOther || clearedCookies(rec) != 3 {
		t.Errorf("ответ %d, очищено cookie %d", rec.Code, clearedCookies(rec))
	}
}
