package handlers

import (
	"context"
	"net/http"

	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
	"github.com/krishibazar/admin-console/internal/service"
	uimiddleware "github.com/krishibazar/admin-console/internal/ui/middleware"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

// DashboardLoader загружает счётчики главной. Реализуется service.DashboardService.
type DashboardLoader interface {
	Load(ctx context.Context, checker *rbac.Checker) (*service.Dashboard, error)
}

// JournalReader читает журнал действий. Реализуется service.JournalService.
type JournalReader interface {
	Enabled() bool
	ForEntity(ctx context.Context, entity string, entityID int64, limit int) ([]*model.JournalEntry, error)
}

// DashboardHandler — обработчик главной страницы.
type DashboardHandler struct {
	page
	dashboard DashboardLoader
	journal   JournalReader
}

// NewDashboardHandler создаёт DashboardHandler. journal может быть nil.
func NewDashboardHandler(env Env, dashboard DashboardLoader, journal JournalReader) *DashboardHandler {
	return &DashboardHandler{
		page:      newPage(env, "ui.dashboard"),
		dashboard: dashboard,
		journal:   journal,
	}
}

// HandleDashboard обрабатывает GET /admin/.
// Недоступный счётчик показывается прочерком, остальные загружаются независимо.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := pages.DashboardData{
		Base:           h.base(w, r, "dashboard.title", pages.SectionDashboard),
		JournalEnabled: h.journal != nil && h.journal.Enabled(),
	}

	d, err := h.dashboard.Load(r.Context(), uimiddleware.CheckerFromContext(r.Context()))
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Counters = make([]pages.CounterCard, 0, len(d.Counters))
		for _, c := range d.Counters {
			data.Counters = append(data.Counters, pages.CounterCard{
				Label:     c.Key,
				Value:     c.Value,
				Available: c.Available,
				Link:      c.Link,
			})
		}
		data.Journal = d.Journal
	}

	h.render(w, r, pages.Dashboard(data))
}
