package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/krishibazar/admin-console/internal/domain/model"
)

// FieldProductImage — поле изображения товара в multipart-запросе.
const FieldProductImage = "product_image"

// --- Categories API ---

// ListCategories возвращает категории. activeOnly — только активные.
func (c *Client) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	var q url.Values
	if activeOnly {
		q = url.Values{"is_active": {"true"}}
	}

	var cats []model.Category
	if err := c.getJSON(ctx, "/admin/categories", q, &cats); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return cats, nil
}

// CreateCategory создаёт категорию.
func (c *Client) CreateCategory(ctx context.Context, form model.CategoryForm) error {
	if err := c.sendForm(ctx, http.MethodPost, "/admin/categories", categoryFields(form), nil, nil); err != nil {
		return fmt.Errorf("CreateCategory: %w", err)
	}
	return nil
}

// UpdateCategory изменяет категорию.
func (c *Client) UpdateCategory(ctx context.Context, id int64, form model.CategoryForm) error {
	if err := c.sendForm(ctx, http.MethodPut, fmt.Sprintf("/admin/categories/%d", id), categoryFields(form), nil, nil); err != nil {
		return fmt.Errorf("UpdateCategory: %w", err)
	}
	return nil
}

// DeleteCategory удаляет категорию.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/categories/%d", id), nil, nil); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return nil
}

func categoryFields(f model.CategoryForm) []Field {
	return []Field{
		{"name", f.Name},
		{"description", f.Description},
		{"icon", f.Icon},
		{"is_active", strconv.FormatBool(f.IsActive)},
	}
}

// --- Products API ---

// ListProducts возвращает страницу товаров.
func (c *Client) ListProducts(ctx context.Context, search string, page, limit int) (model.Page[model.Product], error) {
	q := pageQuery(page, limit)
	if search != "" {
		q.Set("search", search)
	}

	var data json.RawMessage
	if err := c.getJSON(ctx, "/admin/products", q, &data); err != nil {
		return model.Page[model.Product]{}, fmt.Errorf("ListProducts: %w", err)
	}
	items, meta, err := decodePage[model.Product](data, "products")
	if err != nil {
		return model.Page[model.Product]{}, fmt.Errorf("ListProducts: %w", err)
	}
	return toPage(items, meta, page), nil
}

// CreateProduct создаёт товар. Изображения — части product_image.
func (c *Client) CreateProduct(ctx context.Context, form model.ProductForm, images []FilePart) error {
	if err := c.sendForm(ctx, http.MethodPost, "/admin/products", productFields(form), withField(images, FieldProductImage), nil); err != nil {
		return fmt.Errorf("CreateProduct: %w", err)
	}
	return nil
}

// UpdateProduct изменяет товар. Без новых изображений прежние сохраняются.
func (c *Client) UpdateProduct(ctx context.Context, id int64, form model.ProductForm, images []FilePart) error {
	path := fmt.Sprintf("/admin/products/%d", id)
	if err := c.sendForm(ctx, http.MethodPut, path, productFields(form), withField(images, FieldProductImage), nil); err != nil {
		return fmt.Errorf("UpdateProduct: %w", err)
	}
	return nil
}

// DeleteProduct удаляет товар.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/admin/products/%d", id), nil, nil); err != nil {
		return fmt.Errorf("DeleteProduct: %w", err)
	}
	return nil
}

func productFields(f model.ProductForm) []Field {
	fields := []Field{
		{"name", f.Name},
		{"category", f.Category},
		{"price", formatFloat(f.Price)},
		{"unit", f.Unit},
		{"min_order", strconv.Itoa(f.MinOrder)},
		{"in_stock", strconv.FormatBool(f.InStock)},
	}
	if f.MaxOrder > 0 {
		fields = append(fields, Field{"max_order", strconv.Itoa(f.MaxOrder)})
	}
	if f.Description != "" {
		fields = append(fields, Field{"description", f.Description})
	}
	return fields
}

// --- Orders API ---

// ListOrders возвращает заказы. status == "" — все статусы.
func (c *Client) ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"order_status": {string(status)}}
	}

	var data json.RawMessage
	if err := c.getJSON(ctx, "/admin/orders", q, &data); err != nil {
		return nil, fmt.Errorf("ListOrders: %w", err)
	}
	items, _, err := decodePage[model.Order](data, "orders")
	if err != nil {
		return nil, fmt.Errorf("ListOrders: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus меняет статус заказа.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	body := map[string]string{"order_status": string(status)}
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/orders/%d", id), body, nil); err != nil {
		return fmt.Errorf("UpdateOrderStatus: %w", err)
	}
	return nil
}

// withField проставляет имя поля всем файлам.
func withField(files []FilePart, field string) []FilePart {
	for i := range files {
		files[i].Field = field
	}
	return files
}
