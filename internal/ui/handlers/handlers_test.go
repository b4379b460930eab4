package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/auth"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEnv() Env {
	return Env{
		Logger: testLogger(),
		AssetURL: func(name string) string {
			if name == "" {
				return ""
			}
			return "/files/" + name
		},
		Sequencer: service.NewSequencer(),
	}
}

// withSession добавляет в запрос сессию, как это делает UIAuth.
func withSession(r *http.Request, keys ...rbac.Key) *http.Request {
	s := &auth.SessionData{
		Token: "jwt-token",
		User:  model.SessionUser{ID: 1, Username: "admin"},
	}
	for i, k := range keys {
		s.Permissions = append(s.Permissions, model.Permission{ID: int64(i + 1), PermissionKey: string(k)})
	}
	return r.WithContext(context.WithValue(r.Context(), uimiddleware.ContextKeyUISession, s))
}

// postForm строит POST-запрос с urlencoded-формой.
func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withSession(req)
}

// serve выполняет запрос через chi, чтобы заполнить параметры пути.
func serve(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// flashFrom декодирует уведомление из ответа.
func flashFrom(t *testing.T, rec *httptest.ResponseRecorder) *pages.Flash {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name != flashCookieName || c.MaxAge < 0 {
			continue
		}
		data, err := base64.RawURLEncoding.DecodeString(c.Value)
		if err != nil {
			t.Fatalf("cookie уведомления не декодируется: %v", err)
		}
		var f pages.Flash
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("уведомление не разбирается: %v", err)
		}
		return &f
	}
	return nil
}

func TestFlash_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	long := strings.Repeat("ঋ", flashTextLimit+50)
	setFlash(rec, pages.Flash{Kind: pages.FlashError, Text: long}, false)

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	f := popFlash(out, req, false)
	if f == nil {
		t.Fatal("уведомление потеряно")
	}
	if f.Kind != pages.FlashError {
		t.Errorf("Kind = %q", f.Kind)
	}
	if n := len([]rune(f.Text)); n != flashTextLimit+1 {
		t.Errorf("длина текста %d, ожидалось %d", n, flashTextLimit+1)
	}

	cleared := false
	for _, c := range out.Result().Cookies() {
		if c.Name == flashCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("cookie уведомления не удалена после чтения")
	}
}

func TestFlash_Garbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "%%%"})
	if f := popFlash(httptest.NewRecorder(), req, false); f != nil {
		t.Errorf("повреждённое уведомление принято: %+v", f)
	}
}

func TestLocalTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/admin/projects/pending", "/admin/projects/pending"},
		{"", "/fallback"},
		{"https://evil.example/admin/", "/fallback"},
		{"//evil.example/admin/", "/fallback"},
		{"/admin/\\evil", "/fallback"},
		{"/static/app.js", "/fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := localTarget(tt.raw, "/fallback"); got != tt.want {
				t.Errorf("localTarget(%q) = %q, ожидалось %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		path   string
		wantOK bool
	}{
		{"/x/42", true},
		{"/x/0", false},
		{"/x/-3", false},
		{"/x/abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var got int64
			var ok bool
			serve(http.MethodGet, "/x/{id}", func(w http.ResponseWriter, r *http.Request) {
				got, ok = idOr404(w, r)
			}, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, ожидалось %v", ok, tt.wantOK)
			}
			if ok && got != 42 {
				t.Errorf("id = %d", got)
			}
		})
	}
}

func TestNoticeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKey  string
		wantText string
	}{
		{"не найдено", fmt.Errorf("x: %w", service.ErrNotFound), "flash.not_found", ""},
		{"нет прав", fmt.Errorf("x: %w", service.ErrForbidden), "flash.forbidden", ""},
		{"backend недоступен", fmt.Errorf("x: %w", service.ErrBackendUnavailable), "flash.backend_unavailable", ""},
		{"валидация", fmt.Errorf("x: %w", service.ErrValidation), "flash.invalid_input", ""},
		{"прочее", errors.New("boom"), "flash.error", ""},
		{
			"ошибка перехода",
			fmt.Errorf("x: %w: %w", service.ErrValidation, &lifecycle.TransitionError{Message: "нужна причина"}),
			"", "нужна причина",
		},
		{
			"текст backend",
			&backend.APIError{StatusCode: http.StatusConflict, Message: "Project already approved"},
			"", "Project already approved",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := noticeFor(tt.err)
			if f.Kind != pages.FlashError || f.Key != tt.wantKey || f.Text != tt.wantText {
				t.Errorf("noticeFor() = %+v", f)
			}
		})
	}
}

func TestEncodeQuery(t *testing.T) {
	got := encodeQuery("status", "running", "q", "", "payment_status", "paid")
	if got != "payment_status=paid&status=running" {
		t.Errorf("encodeQuery() = %q", got)
	}
}

func TestFormIDs(t *testing.T) {
	req := postForm("/x", url.Values{"role_ids": {"3", "x", "-1", "7"}})
	ids := formIDs(req, "role_ids")
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Errorf("formIDs() = %v", ids)
	}
}

func TestRender_PartialForHTMX(t *testing.T) {
	h := NewDashboardHandler(testEnv(), &mockDashboard{d: &service.Dashboard{}}, nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/admin/", nil), rbac.KeyDashboard)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "content")
	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("фрагмент содержит layout")
	}
	if rec.Header().Get("Vary") != "HX-Request" {
		t.Errorf("Vary = %q", rec.Header().Get("Vary"))
	}
}

type mockDashboard struct {
	d   *service.Dashboard
	err error
}

func (m *mockDashboard) Load(context.Context, *rbac.Checker) (*service.Dashboard, error) {
	return m.d, m.err
}
