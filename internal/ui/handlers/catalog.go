// catalog.go — категории, товары и заказы.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
	"github.com/krishibazar/admin-console/internal/service"
	"github.com/krishibazar/admin-console/internal/ui/pages"
)

const (
	categoriesPath = "/admin/categories"
	productsPath   = "/admin/products"
	ordersPath     = "/admin/orders"
)

// CatalogManager — операции каталога. Реализуется service.CatalogService.
type CatalogManager interface {
	CategoryLister
	CreateCategory(ctx context.Context, form model.CategoryForm) error
	UpdateCategory(ctx context.Context, id int64, form model.CategoryForm) error
	DeleteCategory(ctx context.Context, id int64) error
	Products(ctx context.Context, search string, page int) (model.Page[model.Product], error)
	Product(ctx context.Context, id int64, search string, page int) (*model.Product, error)
	CreateProduct(ctx context.Context, form model.ProductForm, images []backend.FilePart) error
	UpdateProduct(ctx context.Context, id int64, form model.ProductForm, images []backend.FilePart) error
	DeleteProduct(ctx context.Context, id int64) error
	Orders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error
}

// CatalogHandler — обработчики разделов каталога.
type CatalogHandler struct {
	page
	catalog CatalogManager
}

// NewCatalogHandler создаёт CatalogHandler.
func NewCatalogHandler(env Env, catalog CatalogManager) *CatalogHandler {
	return &CatalogHandler{page: newPage(env, "ui.catalog"), catalog: catalog}
}

// --- Категории ---

// HandleCategories обрабатывает GET /admin/categories.
func (h *CatalogHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	data := pages.CategoriesData{Base: h.base(w, r, "categories.title", pages.SectionCategories)}
	items, err := list(h.page, r, "categories", func(ctx context.Context) ([]model.Category, error) {
		return h.catalog.Categories(ctx, false)
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	data.Items = items
	h.render(w, r, pages.Categories(data))
}

// HandleCreateCategory обрабатывает POST /admin/categories.
func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.CreateCategory(r.Context(), categoryForm(r)); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	h.done(w, r, "flash.created", categoriesPath)
}

// HandleUpdateCategory обрабатывает POST /admin/categories/{id}.
func (h *CatalogHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.catalog.UpdateCategory(r.Context(), id, categoryForm(r)); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	h.done(w, r, "flash.saved", categoriesPath)
}

func categoryForm(r *http.Request) model.CategoryForm {
	return model.CategoryForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Icon:        strings.TrimSpace(r.FormValue("icon")),
		IsActive:    formBool(r, "is_active"),
	}
}

// HandleToggleCategory обрабатывает POST /admin/categories/{id}/toggle.
// Backend принимает только полную запись, поэтому категория сначала читается из списка.
func (h *CatalogHandler) HandleToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	items, err := h.catalog.Categories(r.Context(), false)
	if err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	var current *model.Category
	for i := range items {
		if items[i].ID == id {
			current = &items[i]
			break
		}
	}
	if current == nil {
		h.fail(w, r, service.ErrNotFound, categoriesPath)
		return
	}

	form := model.FormFromCategory(*current)
	form.IsActive = !form.IsActive
	if err := h.catalog.UpdateCategory(r.Context(), id, form); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	h.done(w, r, "flash.saved", categoriesPath)
}

// HandleDeleteCategory обрабатывает POST /admin/categories/{id}/delete.
func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, err, categoriesPath)
		return
	}
	h.done(w, r, "flash.deleted", categoriesPath)
}

// --- Товары ---

// HandleProducts обрабатывает GET /admin/products (q, page).
func (h *CatalogHandler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	data := pages.ProductsData{
		Base:   h.base(w, r, "products.title", pages.SectionProducts),
		Search: search,
	}
	result, err := list(h.page, r, "products", func(ctx context.Context) (model.Page[model.Product], error) {
		return h.catalog.Products(ctx, search, queryPage(r))
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	} else {
		data.Items = make([]pages.ProductItem, 0, len(result.Items))
		for _, p := range result.Items {
			item := pages.ProductItem{Product: p}
			if len(p.ProductImages) > 0 {
				item.ImageURL = h.assetURL(p.ProductImages[0])
			}
			data.Items = append(data.Items, item)
		}
		data.Pager = pages.PagerFrom(result, productsPath, encodeQuery("q", search))
	}
	h.render(w, r, pages.Products(data))
}

// HandleNewProduct обрабатывает GET /admin/products/new.
func (h *CatalogHandler) HandleNewProduct(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, pages.ProductForm(pages.ProductFormData{
		Base:       h.base(w, r, "products.new", pages.SectionProducts),
		Form:       model.ProductForm{MinOrder: 1, InStock: true},
		Categories: h.activeCategories(r),
	}))
}

// HandleCreateProduct обрабатывает POST /admin/products/new (multipart).
func (h *CatalogHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	form, images, err := readProductForm(w, r)
	if err == nil {
		err = h.catalog.CreateProduct(r.Context(), form, images)
	}
	if err != nil {
		h.productFailed(w, r, err, pages.ProductFormData{Form: form})
		return
	}
	h.done(w, r, "flash.created", productsPath)
}

// HandleEditProduct обрабатывает GET /admin/products/{id}/edit (q, page — страница списка с товаром).
func (h *CatalogHandler) HandleEditProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	p, err := h.catalog.Product(r.Context(), id, search, queryPage(r))
	if err != nil {
		h.fail(w, r, err, productsPath)
		return
	}

	data := h.productEditData(*p)
	data.Base = h.base(w, r, "products.edit", pages.SectionProducts)
	data.Categories = h.activeCategories(r)
	h.render(w, r, pages.ProductForm(data))
}

// HandleUpdateProduct обрабатывает POST /admin/products/{id}/edit (multipart).
// Новые изображения заменяют прежние, без файлов прежние сохраняются.
func (h *CatalogHandler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	form, images, err := readProductForm(w, r)
	if err == nil {
		err = h.catalog.UpdateProduct(r.Context(), id, form, images)
	}
	if err != nil {
		h.productFailed(w, r, err, pages.ProductFormData{ID: id, Form: form})
		return
	}
	h.done(w, r, "flash.saved", productsPath)
}

func (h *CatalogHandler) productEditData(p model.Product) pages.ProductFormData {
	data := pages.ProductFormData{ID: p.ID, Form: model.FormFromProduct(p)}
	for _, f := range p.ProductImages {
		data.CurrentImages = append(data.CurrentImages, h.assetURL(f))
	}
	return data
}

// readProductForm разбирает multipart-форму товара.
func readProductForm(w http.ResponseWriter, r *http.Request) (model.ProductForm, []backend.FilePart, error) {
	if err := parseUpload(w, r); err != nil {
		return model.ProductForm{}, nil, service.ErrValidation
	}
	form := model.ProductForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Price:       formFloat(r, "price"),
		Unit:        strings.TrimSpace(r.FormValue("unit")),
		MinOrder:    formInt(r, "min_order"),
		MaxOrder:    formInt(r, "max_order"),
		InStock:     formBool(r, "in_stock"),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	images, err := formFiles(r, backend.FieldProductImage)
	if err != nil {
		return form, nil, err
	}
	return form, images, nil
}

// productFailed повторно показывает форму товара с введёнными значениями.
func (h *CatalogHandler) productFailed(w http.ResponseWriter, r *http.Request, err error, data pages.ProductFormData) {
	if h.stopped(w, r, err) {
		return
	}
	h.logError(r, err)

	title := "products.new"
	if !data.IsNew() {
		title = "products.edit"
	}
	data.Base = h.base(w, r, title, pages.SectionProducts)
	data.Categories = h.activeCategories(r)
	status := http.StatusUnprocessableEntity
	var te *lifecycle.TransitionError
	switch {
	case errors.As(err, &te):
		data.Fields = te.Fields
		data.Notice = te.Message
	default:
		notice := noticeFor(err)
		data.Flash = &notice
		if !errors.Is(err, service.ErrValidation) {
			status = http.StatusBadGateway
		}
	}
	h.renderStatus(w, r, status, pages.ProductForm(data))
}

func (h *CatalogHandler) activeCategories(r *http.Request) []model.Category {
	items, err := h.catalog.Categories(r.Context(), true)
	if err != nil {
		h.logger.Warn("Категории для формы товара недоступны")
		return nil
	}
	return items
}

// HandleDeleteProduct обрабатывает POST /admin/products/{id}/delete.
func (h *CatalogHandler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, r, err, productsPath)
		return
	}
	h.done(w, r, "flash.deleted", productsPath)
}

// --- Заказы ---

// HandleOrders обрабатывает GET /admin/orders (status). Неизвестный статус игнорируется.
func (h *CatalogHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !model.ValidOrderStatus(status) {
		status = ""
	}
	data := pages.OrdersData{
		Base:     h.base(w, r, "orders.title", pages.SectionOrders),
		Statuses: orderStatuses(),
		Filter:   status,
	}
	items, err := list(h.page, r, "orders", func(ctx context.Context) ([]model.Order, error) {
		return h.catalog.Orders(ctx, model.OrderStatus(status))
	})
	if err != nil {
		if h.loadFailed(w, r, err, &data.Base) {
			return
		}
	}
	data.Items = items
	h.render(w, r, pages.Orders(data))
}

// HandleOrderStatus обрабатывает POST /admin/orders/{id}/status (order_status).
func (h *CatalogHandler) HandleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idOr404(w, r)
	if !ok {
		return
	}
	status := model.OrderStatus(r.FormValue("order_status"))
	if err := h.catalog.UpdateOrderStatus(r.Context(), id, status); err != nil {
		h.fail(w, r, err, ordersPath)
		return
	}
	h.done(w, r, "flash.saved", ordersPath)
}

func orderStatuses() []string {
	result := make([]string, 0, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		result = append(result, string(s))
	}
	return result
}
