package pages

import (
	"strconv"

	"github.com/krishibazar/admin-console/internal/domain/rbac"
)

// Разделы навигации.
const (
	SectionDashboard   = "dashboard"
	SectionProjects    = "projects"
	SectionPending     = "pending"
	SectionUpdates     = "updates"
	SectionInvestments = "investments"
	SectionPayments    = "payments"
	SectionUsers       = "users"
	SectionCategories  = "categories"
	SectionProducts    = "products"
	SectionOrders      = "orders"
	SectionRBAC        = "rbac"
)

// NavItem — пункт бокового меню.
type NavItem struct {
	Section string
	// Label — ключ перевода
	Label  string
	Href   string
	Active bool
}

// navEntry — пункт меню и право, без которого он скрыт.
type navEntry struct {
	section string
	label   string
	href    string
	perm    rbac.Key
}

var navEntries = []navEntry{
	{SectionDashboard, "nav.dashboard", "/admin/", rbac.KeyDashboard},
	{SectionProjects, "nav.projects", "/admin/projects", rbac.KeyProjectManagement},
	{SectionPending, "nav.pending", "/admin/projects/pending", rbac.KeyProjectApproval},
	{SectionUpdates, "nav.updates", "/admin/project-updates", rbac.KeyProjectManagement},
	{SectionInvestments, "nav.investments", "/admin/investments", rbac.KeyInvestmentManagement},
	{SectionPayments, "nav.payments", "/admin/payments", rbac.KeyInvestmentManagement},
	{SectionUsers, "nav.users", "/admin/users", rbac.KeyManageUsers},
	{SectionCategories, "nav.categories", "/admin/categories", rbac.KeyProductManagement},
	{SectionProducts, "nav.products", "/admin/products", rbac.KeyProductManagement},
	{SectionOrders, "nav.orders", "/admin/orders", rbac.KeyProductManagement},
	{SectionRBAC, "nav.rbac", "/admin/rbac/admins", rbac.KeyRBACManagement},
}

// Navigation возвращает пункты меню, доступные принципалу.
// Фильтрация идёт через тот же Checker, что и guard маршрутов:
// superadmin видит всё, без списка прав меню пустое.
func Navigation(checker *rbac.Checker, active string) []NavItem {
	items := make([]NavItem, 0, len(navEntries))
	for _, e := range navEntries {
		if !checker.HasPermission(e.perm) {
			continue
		}
		items = append(items, NavItem{
			Section: e.section,
			Label:   e.label,
			Href:    e.href,
			Active:  e.section == active,
		})
	}
	return items
}

func itoa(n int) string { return strconv.Itoa(n) }
