package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/repository"
)

// testLogger — логгер, отбрасывающий вывод.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callLog считает вызовы методов мока (потокобезопасно).
type callLog struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
}

func (c *callLog) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *callLog) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// --- Mock ProjectBackend / ProjectUpdateBackend ---

type mockProjectBackend struct {
	callLog
	listFn       func(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error)
	getFn        func(ctx context.Context, id int64) (*model.Project, error)
	createFn     func(ctx context.Context, form model.ProjectForm, files []backend.FilePart) error
	updateFn     func(ctx context.Context, id int64, form model.ProjectForm, files []backend.FilePart) error
	deleteFn     func(ctx context.Context, id int64) error
	transitionFn func(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) error
	listUpdFn    func(ctx context.Context, projectID int64, page, limit int) ([]model.ProjectUpdate, error)
	createUpdFn  func(ctx context.Context, form model.ProjectUpdateForm, media []backend.FilePart) error
}

func (m *mockProjectBackend) ListProjects(ctx context.Context, f model.ProjectFilter) (model.Page[model.Project], error) {
	m.add("ListProjects")
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return model.Page[model.Project]{}, nil
}

func (m *mockProjectBackend) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	m.add("GetProject")
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, &backend.APIError{StatusCode: 404, Message: "Project not found"}
}

func (m *mockProjectBackend) CreateProject(ctx context.Context, form model.ProjectForm, files []backend.FilePart) error {
	m.add("CreateProject")
	if m.createFn != nil {
		return m.createFn(ctx, form, files)
	}
	return nil
}

func (m *mockProjectBackend) UpdateProject(ctx context.Context, id int64, form model.ProjectForm, files []backend.FilePart) error {
	m.add("UpdateProject")
	if m.updateFn != nil {
		return m.updateFn(ctx, id, form, files)
	}
	return nil
}

func (m *mockProjectBackend) DeleteProject(ctx context.Context, id int64) error {
	m.add("DeleteProject")
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProjectBackend) TransitionProject(ctx context.Context, id int64, action lifecycle.ProjectAction, reject lifecycle.RejectInput) error {
	m.add("TransitionProject")
	if m.transitionFn != nil {
		return m.transitionFn(ctx, id, action, reject)
	}
	return nil
}

func (m *mockProjectBackend) ListProjectUpdates(ctx context.Context, projectID int64, page, limit int) ([]model.ProjectUpdate, error) {
	m.add("ListProjectUpdates")
	if m.listUpdFn != nil {
		return m.listUpdFn(ctx, projectID, page, limit)
	}
	return nil, nil
}

func (m *mockProjectBackend) CreateProjectUpdate(ctx context.Context, form model.ProjectUpdateForm, media []backend.FilePart) error {
	m.add("CreateProjectUpdate")
	if m.createUpdFn != nil {
		return m.createUpdFn(ctx, form, media)
	}
	return nil
}

// statefulProjects — мок, в котором переход действительно меняет статус.
func statefulProjects(status lifecycle.ProjectStatus) *mockProjectBackend {
	var mu sync.Mutex
	current := status
	m := &mockProjectBackend{}
	m.getFn = func(_ context.Context, id int64) (*model.Project, error) {
		mu.Lock()
		defer mu.Unlock()
		return &model.Project{ID: id, ProjectName: "Томаты", Status: current}, nil
	}
	m.transitionFn = func(_ context.Context, _ int64, action lifecycle.ProjectAction, _ lifecycle.RejectInput) error {
		mu.Lock()
		defer mu.Unlock()
		next, err := lifecycle.NextProjectStatus(current, action)
		if err != nil {
			return &backend.APIError{StatusCode: 400, Message: "Invalid status transition"}
		}
		current = next
		return nil
	}
	return m
}

// --- Mock InvestmentBackend ---

type mockInvestmentBackend struct {
	callLog
	mu         sync.Mutex
	status     lifecycle.InvestmentStatus
	listFn     func(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error)
	actionErr  error
	lastAction string
	lastBody   any
}

func (m *mockInvestmentBackend) ListInvestments(ctx context.Context, f model.InvestmentFilter) (model.Page[model.Investment], error) {
	m.add("ListInvestments")
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return model.Page[model.Investment]{}, nil
}

func (m *mockInvestmentBackend) GetInvestment(_ context.Context, id int64) (*model.Investment, error) {
	m.add("GetInvestment")
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.Investment{ID: id, Status: m.status, PaymentStatus: lifecycle.PaymentPending}, nil
}

func (m *mockInvestmentBackend) apply(action lifecycle.InvestmentAction, body any) error {
	m.add(string(action))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAction = string(action)
	m.lastBody = body
	if m.actionErr != nil {
		return m.actionErr
	}
	next, err := lifecycle.NextInvestmentStatus(m.status, action)
	if err != nil {
		return &backend.APIError{StatusCode: 400, Message: "Invalid status transition"}
	}
	m.status = next
	return nil
}

func (m *mockInvestmentBackend) ConfirmInvestment(_ context.Context, _ int64, in lifecycle.ConfirmInput) error {
	return m.apply(lifecycle.InvestmentActionConfirm, in)
}

func (m *mockInvestmentBackend) CancelInvestment(_ context.Context, _ int64, in lifecycle.CancelInput) error {
	return m.apply(lifecycle.InvestmentActionCancel, in)
}

func (m *mockInvestmentBackend) CompleteInvestment(_ context.Context, _ int64, in lifecycle.CompleteInput) error {
	return m.apply(lifecycle.InvestmentActionComplete, in)
}

// --- Mock ActionJournalRepository ---

type mockJournalRepo struct {
	mu      sync.Mutex
	entries []*model.JournalEntry
	err     error
}

func (m *mockJournalRepo) Record(_ context.Context, e *model.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournalRepo) Recent(_ context.Context, limit int) ([]*model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]*model.JournalEntry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.entries[i])
	}
	return result, nil
}

func (m *mockJournalRepo) ListByEntity(_ context.Context, entity string, entityID int64, limit int) ([]*model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.JournalEntry
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.entries[i].Entity == entity && m.entries[i].EntityID == entityID {
			result = append(result, m.entries[i])
		}
	}
	return result, nil
}

func (m *mockJournalRepo) Get(_ context.Context, id string) (*model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockJournalRepo) last() *model.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1]
}

func (m *mockJournalRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// --- Mock UserBackend ---

type mockUserBackend struct {
	callLog
	users     []model.User
	listErr   error
	approveFn func(ctx context.Context, id int64) error
}

func (m *mockUserBackend) ListUsers(context.Context) ([]model.User, error) {
	m.add("ListUsers")
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.users, nil
}

func (m *mockUserBackend) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.add("GetUser")
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, &backend.APIError{StatusCode: 404, Message: "User not found"}
}

func (m *mockUserBackend) ApproveUser(ctx context.Context, id int64) error {
	m.add("ApproveUser")
	if m.approveFn != nil {
		return m.approveFn(ctx, id)
	}
	return nil
}

// --- Mock CatalogBackend ---

type mockCatalogBackend struct {
	callLog
	products    model.Page[model.Product]
	productsErr error
	orders      []model.Order
	lastStatus  model.OrderStatus
	updatedID   int64
	images      int
}

func (m *mockCatalogBackend) ListCategories(context.Context, bool) ([]model.Category, error) {
	m.add("ListCategories")
	return []model.Category{{ID: 1, Name: "Овощи", IsActive: true}}, nil
}

func (m *mockCatalogBackend) CreateCategory(context.Context, model.CategoryForm) error {
	m.add("CreateCategory")
	return nil
}

func (m *mockCatalogBackend) UpdateCategory(context.Context, int64, model.CategoryForm) error {
	m.add("UpdateCategory")
	return nil
}

func (m *mockCatalogBackend) DeleteCategory(context.Context, int64) error {
	m.add("DeleteCategory")
	return nil
}

func (m *mockCatalogBackend) ListProducts(_ context.Context, _ string, _, _ int) (model.Page[model.Product], error) {
	m.add("ListProducts")
	return m.products, m.productsErr
}

func (m *mockCatalogBackend) CreateProduct(context.Context, model.ProductForm, []backend.FilePart) error {
	m.add("CreateProduct")
	return nil
}

func (m *mockCatalogBackend) UpdateProduct(_ context.Context, id int64, _ model.ProductForm, images []backend.FilePart) error {
	m.add("UpdateProduct")
	m.updatedID = id
	m.images = len(images)
	return nil
}

func (m *mockCatalogBackend) DeleteProduct(context.Context, int64) error {
	m.add("DeleteProduct")
	return nil
}

func (m *mockCatalogBackend) ListOrders(_ context.Context, status model.OrderStatus) ([]model.Order, error) {
	m.add("ListOrders")
	m.lastStatus = status
	return m.orders, nil
}

func (m *mockCatalogBackend) UpdateOrderStatus(_ context.Context, _ int64, status model.OrderStatus) error {
	m.add("UpdateOrderStatus")
	m.lastStatus = status
	return nil
}

// --- Mock RBACBackend ---

type mockRBACBackend struct {
	callLog
	permissions []model.Permission
	roles       []model.Role
	admin       *model.AdminPrincipal
	mutateErr   error
}

func (m *mockRBACBackend) ListPermissions(context.Context) ([]model.Permission, error) {
	m.add("ListPermissions")
	return m.permissions, nil
}

func (m *mockRBACBackend) CreatePermission(context.Context, model.PermissionForm) error {
	m.add("CreatePermission")
	return m.mutateErr
}

func (m *mockRBACBackend) UpdatePermission(context.Context, int64, model.PermissionForm) error {
	m.add("UpdatePermission")
	return m.mutateErr
}

func (m *mockRBACBackend) DeletePermission(context.Context, int64) error {
	m.add("DeletePermission")
	return m.mutateErr
}

func (m *mockRBACBackend) ListRoles(context.Context) ([]model.Role, error) {
	m.add("ListRoles")
	return m.roles, nil
}

func (m *mockRBACBackend) CreateRole(context.Context, model.RoleForm) error {
	m.add("CreateRole")
	return m.mutateErr
}

func (m *mockRBACBackend) UpdateRole(context.Context, int64, model.RoleForm) error {
	m.add("UpdateRole")
	return m.mutateErr
}

func (m *mockRBACBackend) DeleteRole(context.Context, int64) error {
	m.add("DeleteRole")
	return m.mutateErr
}

func (m *mockRBACBackend) ListAdmins(context.Context) ([]model.AdminPrincipal, error) {
	m.add("ListAdmins")
	if m.admin == nil {
		return nil, nil
	}
	return []model.AdminPrincipal{*m.admin}, nil
}

func (m *mockRBACBackend) GetAdmin(_ context.Context, id int64) (*model.AdminPrincipal, error) {
	m.add("GetAdmin")
	if m.admin == nil || m.admin.ID != id {
		return nil, &backend.APIError{StatusCode: 404, Message: "Admin not found"}
	}
	a := *m.admin
	return &a, nil
}

func (m *mockRBACBackend) CreateAdmin(context.Context, model.AdminForm) error {
	m.add("CreateAdmin")
	return m.mutateErr
}

func (m *mockRBACBackend) SetAdminRoles(context.Context, int64, []int64) error {
	m.add("SetAdminRoles")
	return m.mutateErr
}

func (m *mockRBACBackend) SetAdminPermissions(context.Context, int64, []int64) error {
	m.add("SetAdminPermissions")
	return m.mutateErr
}

// --- Mock AuthBackend ---

type mockAuthBackend struct {
	callLog
	loginFn func(ctx context.Context, username, password string) (*backend.LoginResult, error)
	myFn    func(ctx context.Context) ([]model.Permission, error)
}

func (m *mockAuthBackend) Login(ctx context.Context, username, password string) (*backend.LoginResult, error) {
	m.add("Login")
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthBackend) MyPermissions(ctx context.Context) ([]model.Permission, error) {
	m.add("MyPermissions")
	if m.myFn != nil {
		return m.myFn(ctx)
	}
	return nil, nil
}
