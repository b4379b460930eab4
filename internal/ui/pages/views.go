package pages

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// --- Вход и служебные страницы ---

// LoginData — данные страницы входа.
type LoginData struct {
	Base
	Username string
	// ErrorKey — ключ перевода ошибки (неверные данные, backend недоступен)
	ErrorKey string
	// ErrorText — текст ошибки, который показывается как есть
	ErrorText string
}

// Login — страница входа.
func Login(d LoginData) templ.Component { return render("login", d) }

// DeniedData — страница «Доступ запрещён».
type DeniedData struct {
	Base
}

// AccessDenied — страница отказа guard.
func AccessDenied(d DeniedData) templ.Component { return render("denied", d) }

// --- Главная ---

// CounterCard — карточка счётчика главной страницы.
type CounterCard struct {
	// Label — ключ перевода
	Label     string
	Value     int
	Available bool
	Link      string
}

// DashboardData — данные главной страницы.
type DashboardData struct {
	Base
	Counters []CounterCard
	Journal  []*model.JournalEntry
	// JournalEnabled == false — журнал не настроен, блок скрыт
	JournalEnabled bool
}

// Dashboard — главная страница.
func Dashboard(d DashboardData) templ.Component { return render("dashboard", d) }

// --- Проекты ---

// ProjectFilter — текущие фильтры списка проектов.
type ProjectFilter struct {
	Status string
	Search string
}

// ProjectsData — список проектов (общий или ожидающие решения).
type ProjectsData struct {
	Base
	Items    []model.Project
	Statuses []string
	Filter   ProjectFilter
	Pager    Pager
	// PendingView — страница «Ожидают одобрения»: фильтр статуса скрыт
	PendingView bool
}

// Projects — список проектов.
func Projects(d ProjectsData) templ.Component { return render("projects", d) }

// ProjectFormData — форма создания и редактирования проекта.
type ProjectFormData struct {
	Base
	// ID == 0 — новый проект
	ID         int64
	Form       model.ProjectForm
	Categories []model.Category
	// Fields — поля, не прошедшие проверку
	Fields []string
	Notice string
	// LastEdited — поле доходности, изменённое последним
	LastEdited string
	// Current* — уже загруженные файлы (при редактировании)
	CurrentNIDFront string
	CurrentNIDBack  string
	CurrentImages   []string
}

// IsNew — форма создания.
func (d ProjectFormData) IsNew() bool { return d.ID == 0 }

// Invalid — поле не прошло проверку.
func (d ProjectFormData) Invalid(field string) bool {
	for _, f := range d.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ProjectForm — форма проекта.
func ProjectForm(d ProjectFormData) templ.Component { return render("project_form", d) }

// EarningFields — фрагмент формы с согласованными доходностью и суммой возврата.
func EarningFields(d ProjectFormData) templ.Component {
	return renderEntry("project_form", "earning_fields", d)
}

// UpdateItem — запись ленты обновлений с адресами медиафайлов.
type UpdateItem struct {
	model.ProjectUpdate
	Media []string
}

// ProjectDetailData — карточка проекта.
type ProjectDetailData struct {
	Base
	Project     model.Project
	Actions     []string
	NIDFrontURL string
	NIDBackURL  string
	Images      []string
	Available   int
	Updates     []UpdateItem
	// CanAddUpdate — проект принимает новости (approved, running)
	CanAddUpdate bool
	UpdateTypes  []string
	Journal      []*model.JournalEntry
}

// HasAction — действие доступно в текущем статусе.
func (d ProjectDetailData) HasAction(action string) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ProjectDetail — карточка проекта.
func ProjectDetail(d ProjectDetailData) templ.Component { return render("project_detail", d) }

// ProjectUpdatesData — лента обновлений выбранного проекта.
type ProjectUpdatesData struct {
	Base
	// Projects — проекты, принимающие обновления
	Projects        []model.Project
	SelectedProject int64
	Items           []UpdateItem
	UpdateTypes     []string
}

// ProjectUpdates — страница ленты обновлений.
func ProjectUpdates(d ProjectUpdatesData) templ.Component { return render("project_updates", d) }

// --- Инвестиции ---

// InvestmentFilter — текущие фильтры списка инвестиций.
type InvestmentFilter struct {
	Status        string
	PaymentStatus string
}

// InvestmentsData — список инвестиций или оплаченные платежи.
type InvestmentsData struct {
	Base
	Items           []model.Investment
	Statuses        []string
	PaymentStatuses []string
	Filter          InvestmentFilter
	Pager           Pager
	// PaymentsView — страница платежей: только оплаченные, фильтры скрыты
	PaymentsView bool
}

// Investments — список инвестиций.
func Investments(d InvestmentsData) templ.Component { return render("investments", d) }

// InvestmentDetailData — карточка инвестиции с формами переходов.
type InvestmentDetailData struct {
	Base
	Investment     model.Investment
	Actions        []string
	PaymentMethods []string
	DefaultMethod  string
	Journal        []*model.JournalEntry
}

// HasAction — действие доступно в текущем статусе.
func (d InvestmentDetailData) HasAction(action string) bool {
	for _, a := range d.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// InvestmentDetail — карточка инвестиции.
func InvestmentDetail(d InvestmentDetailData) templ.Component {
	return render("investment_detail", d)
}

// --- Пользователи ---

// UserFilter — текущие фильтры списка пользователей.
type UserFilter struct {
	Search   string
	Approval string
}

// UsersData — список пользователей платформы.
type UsersData struct {
	Base
	Items  []model.User
	Filter UserFilter
	Pager  Pager
}

// Users — список пользователей.
func Users(d UsersData) templ.Component { return render("users", d) }

// UserDetailData — карточка пользователя.
type UserDetailData struct {
	Base
	User        model.User
	NIDFrontURL string
	NIDBackURL  string
}

// UserDetail — карточка пользователя.
func UserDetail(d UserDetailData) templ.Component { return render("user_detail", d) }

// --- Каталог ---

// CategoriesData — категории и форма создания.
type CategoriesData struct {
	Base
	Items []model.Category
}

// Categories — страница категорий.
func Categories(d CategoriesData) templ.Component { return render("categories", d) }

// ProductItem — товар с адресом первого изображения.
type ProductItem struct {
	model.Product
	ImageURL string
}

// ProductsData — список товаров.
type ProductsData struct {
	Base
	Items  []ProductItem
	Search string
	Pager  Pager
}

// EditLink — адрес формы изменения товара. Страница и поиск списка
// передаются форме: по ним товар находится заново.
func (d ProductsData) EditLink(id int64) string {
	q := url.Values{}
	if d.Pager.Page > 1 {
		q.Set("page", itoa(d.Pager.Page))
	}
	if d.Search != "" {
		q.Set("q", d.Search)
	}
	link := "/admin/products/" + strconv.FormatInt(id, 10) + "/edit"
	if len(q) > 0 {
		link += "?" + q.Encode()
	}
	return link
}

// Products — список товаров.
func Products(d ProductsData) templ.Component { return render("products", d) }

// ProductFormData — форма создания и изменения товара.
type ProductFormData struct {
	Base
	// ID == 0 — новый товар
	ID         int64
	Form       model.ProductForm
	// CurrentImages — адреса сохранённых изображений
	CurrentImages []string
	Categories []model.Category
	Fields     []string
	Notice     string
}

// IsNew — форма создания.
func (d ProductFormData) IsNew() bool { return d.ID == 0 }

// Invalid — поле не прошло проверку.
func (d ProductFormData) Invalid(field string) bool {
	for _, f := range d.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// ProductForm — форма товара.
func ProductForm(d ProductFormData) templ.Component { return render("product_form", d) }

// OrdersData — заказы с фильтром статуса.
type OrdersData struct {
	Base
	Items    []model.Order
	Statuses []string
	Filter   string
}

// Orders — список заказов.
func Orders(d OrdersData) templ.Component { return render("orders", d) }

// --- RBAC ---

// RBACPermissionsData — справочник прав.
type RBACPermissionsData struct {
	Base
	Items []model.Permission
	// KnownKeys — ключи, на которые ссылаются разделы консоли
	KnownKeys []string
}

// RBACPermissions — страница прав.
func RBACPermissions(d RBACPermissionsData) templ.Component { return render("rbac_permissions", d) }

// RBACRolesData — роли и их права.
type RBACRolesData struct {
	Base
	Items       []model.Role
	Permissions []model.Permission
}

// RBACRoles — страница ролей.
func RBACRoles(d RBACRolesData) templ.Component { return render("rbac_roles", d) }

// RBACAdminsData — учётные записи администраторов и форма создания.
type RBACAdminsData struct {
	Base
	Items       []model.AdminPrincipal
	Roles       []model.Role
	Permissions []model.Permission
	Fields      []string
}

// RBACAdmins — список администраторов.
func RBACAdmins(d RBACAdminsData) templ.Component { return render("rbac_admins", d) }

// RBACAdminData — назначение ролей и прямых прав администратору.
type RBACAdminData struct {
	Base
	Admin       model.AdminPrincipal
	Roles       []model.Role
	Permissions []model.Permission
	RoleIDs     []int64
	DirectIDs   []int64
}

// RBACAdmin — страница администратора.
func RBACAdmin(d RBACAdminData) templ.Component { return render("rbac_admin", d) }
