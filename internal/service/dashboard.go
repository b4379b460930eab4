package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/domain/rbac"
)

// Ключи счётчиков главной страницы (совпадают с ключами переводов).
const (
	CounterPendingProjects    = "dashboard.pending_projects"
	CounterRunningProjects    = "dashboard.running_projects"
	CounterPendingInvestments = "dashboard.pending_investments"
	CounterPaidInvestments    = "dashboard.paid_investments"
	CounterPendingUsers       = "dashboard.pending_users"
	CounterProducts           = "dashboard.products"
)

// journalDashboardLimit — сколько записей журнала показывает главная.
const journalDashboardLimit = 10

// Counter — один счётчик главной страницы.
type Counter struct {
	Key   string
	Value int
	// Available == false — backend не ответил, UI показывает прочерк
	Available bool
	// Link — раздел, куда ведёт карточка
	Link string
}

// Dashboard — данные главной страницы.
type Dashboard struct {
	Counters []Counter
	Journal  []*model.JournalEntry
}

// counterSource — счётчик и право, без которого он не загружается.
type counterSource struct {
	key   string
	perms []rbac.Key
	link  string
	load  func(ctx context.Context) (int, error)
}

// DashboardService собирает счётчики главной страницы параллельно.
type DashboardService struct {
	projects    *ProjectService
	investments *InvestmentService
	users       *UserService
	catalog     *CatalogService
	journal     *JournalService
	logger      *slog.Logger
}

// NewDashboardService создаёт сервис главной страницы.
func NewDashboardService(
	projects *ProjectService,
	investments *InvestmentService,
	users *UserService,
	catalog *CatalogService,
	journal *JournalService,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		projects:    projects,
		investments: investments,
		users:       users,
		catalog:     catalog,
		journal:     journal,
		logger:      logger.With(slog.String("component", "dashboard_service")),
	}
}

func (s *DashboardService) sources() []counterSource {
	return []counterSource{
		{
			key:   CounterPendingProjects,
			perms: []rbac.Key{rbac.KeyProjectApproval, rbac.KeyProjectManagement},
			link:  "/admin/projects/pending",
			load: func(ctx context.Context) (int, error) {
				p, err := s.projects.List(ctx, model.ProjectFilter{Status: lifecycle.ProjectPending, Limit: 1})
				return p.TotalCount, err
			},
		},
		{
			key:   CounterRunningProjects,
			perms: []rbac.Key{rbac.KeyProjectManagement},
			link:  "/admin/projects?status=running",
			load: func(ctx context.Context) (int, error) {
				p, err := s.projects.List(ctx, model.ProjectFilter{Status: lifecycle.ProjectRunning, Limit: 1})
				return p.TotalCount, err
			},
		},
		{
			key:   CounterPendingInvestments,
			perms: []rbac.Key{rbac.KeyInvestmentManagement},
			link:  "/admin/investments?status=pending",
			load: func(ctx context.Context) (int, error) {
				p, err := s.investments.List(ctx, model.InvestmentFilter{Status: lifecycle.InvestmentPending, Limit: 1})
				return p.TotalCount, err
			},
		},
		{
			key:   CounterPaidInvestments,
			perms: []rbac.Key{rbac.KeyInvestmentManagement},
			link:  "/admin/payments",
			load: func(ctx context.Context) (int, error) {
				p, err := s.investments.List(ctx, model.InvestmentFilter{PaymentStatus: lifecycle.PaymentPaid, Limit: 1})
				return p.TotalCount, err
			},
		},
		{
			key:   CounterPendingUsers,
			perms: []rbac.Key{rbac.KeyManageUsers},
			link:  "/admin/users?approval=pending",
			load:  s.users.PendingCount,
		},
		{
			key:   CounterProducts,
			perms: []rbac.Key{rbac.KeyProductManagement},
			link:  "/admin/products",
			load: func(ctx context.Context) (int, error) {
				p, err := s.catalog.Products(ctx, "", 1)
				return p.TotalCount, err
			},
		},
	}
}

// Load загружает счётчики, доступные принципалу, и последние записи журнала.
// Сбой одного счётчика не мешает остальным. 401 прерывает загрузку:
// сессия уже закрыта обработчиком принудительного выхода.
func (s *DashboardService) Load(ctx context.Context, checker *rbac.Checker) (*Dashboard, error) {
	var visible []counterSource
	for _, src := range s.sources() {
		if checker.HasAnyPermission(src.perms...) {
			visible = append(visible, src)
		}
	}

	d := &Dashboard{Counters: make([]Counter, len(visible))}

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range visible {
		d.Counters[i] = Counter{Key: src.key, Link: src.link}
		g.Go(func() error {
			n, err := src.load(gctx)
			if err != nil {
				if errors.Is(err, ErrUnauthorized) {
					return err
				}
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn("Счётчик главной страницы недоступен",
						slog.String("counter", src.key),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			d.Counters[i].Value = n
			d.Counters[i].Available = true
			return nil
		})
	}

	g.Go(func() error {
		entries, err := s.journal.Recent(gctx, journalDashboardLimit)
		if err != nil {
			s.logger.Warn("Журнал действий недоступен", slog.String("error", err.Error()))
			return nil
		}
		d.Journal = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
