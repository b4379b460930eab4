package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

// CatalogBackend — вызовы backend для категорий, товаров и заказов.
type CatalogBackend interface {
	ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error)
	CreateCategory(ctx context.Context, form model.CategoryForm) error
	UpdateCategory(ctx context.Context, id int64, form model.CategoryForm) error
	DeleteCategory(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, search string, page, limit int) (model.Page[model.Product], error)
	CreateProduct(ctx context.Context, form model.ProductForm, images []backend.FilePart) error
	UpdateProduct(ctx context.Context, id int64, form model.ProductForm, images []backend.FilePart) error
	DeleteProduct(ctx context.Context, id int64) error
	ListOrders(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error
}

// CatalogService — категории, товары и заказы.
type CatalogService struct {
	backend  CatalogBackend
	pageSize int
	logger   *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(b CatalogBackend, pageSize int, logger *slog.Logger) *CatalogService {
	if pageSize <= 0 {
		pageSize = model.DefaultPageSize
	}
	return &CatalogService{
		backend:  b,
		pageSize: pageSize,
		logger:   logger.With(slog.String("component", "catalog_service")),
	}
}

// --- Категории ---

// Categories возвращает категории. activeOnly — только активные (для форм проекта).
func (s *CatalogService) Categories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	cats, err := s.backend.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, mapBackendError("список категорий", err)
	}
	return cats, nil
}

// CreateCategory создаёт категорию.
func (s *CatalogService) CreateCategory(ctx context.Context, form model.CategoryForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание категории", err)
	}
	if err := s.backend.CreateCategory(ctx, form); err != nil {
		return mapBackendError("создание категории", err)
	}
	s.logger.Info("Категория создана", slog.String("name", form.Name))
	return nil
}

// UpdateCategory изменяет категорию.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, form model.CategoryForm) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("изменение категории", err)
	}
	if err := s.backend.UpdateCategory(ctx, id, form); err != nil {
		return mapBackendError("изменение категории", err)
	}
	s.logger.Info("Категория изменена", slog.Int64("category_id", id))
	return nil
}

// DeleteCategory удаляет категорию.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		return mapBackendError("удаление категории", err)
	}
	s.logger.Info("Категория удалена", slog.Int64("category_id", id))
	return nil
}

// --- Товары ---

// Products возвращает страницу товаров.
func (s *CatalogService) Products(ctx context.Context, search string, page int) (model.Page[model.Product], error) {
	if page <= 0 {
		page = 1
	}
	p, err := s.backend.ListProducts(ctx, search, page, s.pageSize)
	if err != nil {
		return model.Page[model.Product]{}, mapBackendError("список товаров", err)
	}
	return p, nil
}

// CreateProduct создаёт товар с изображениями.
func (s *CatalogService) CreateProduct(ctx context.Context, form model.ProductForm, images []backend.FilePart) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("создание товара", err)
	}
	if err := s.backend.CreateProduct(ctx, form, images); err != nil {
		return mapBackendError("создание товара", err)
	}
	s.logger.Info("Товар создан", slog.String("name", form.Name), slog.Int("images", len(images)))
	return nil
}

// Product ищет товар на странице списка page с поиском search.
// Отдельного чтения товара backend не даёт: товар, которого нет на странице, — ErrNotFound.
func (s *CatalogService) Product(ctx context.Context, id int64, search string, page int) (*model.Product, error) {
	p, err := s.Products(ctx, search, page)
	if err != nil {
		return nil, err
	}
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i], nil
		}
	}
	return nil, fmt.Errorf("товар %d: %w", id, ErrNotFound)
}

// UpdateProduct изменяет товар. Новые изображения заменяют прежние.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, form model.ProductForm, images []backend.FilePart) error {
	if err := lifecycle.ValidateForm(form); err != nil {
		return validation("изменение товара", err)
	}
	if err := s.backend.UpdateProduct(ctx, id, form, images); err != nil {
		return mapBackendError("изменение товара", err)
	}
	s.logger.Info("Товар изменён", slog.Int64("product_id", id), slog.Int("images", len(images)))
	return nil
}

// DeleteProduct удаляет товар.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return mapBackendError("удаление товара", err)
	}
	s.logger.Info("Товар удалён", slog.Int64("product_id", id))
	return nil
}

// --- Заказы ---

// Orders возвращает заказы. status == "" — все.
func (s *CatalogService) Orders(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	if status != "" && !model.ValidOrderStatus(string(status)) {
		return nil, validation("список заказов", fmt.Errorf("неизвестный статус заказа %q", status))
	}
	orders, err := s.backend.ListOrders(ctx, status)
	if err != nil {
		return nil, mapBackendError("список заказов", err)
	}
	return orders, nil
}

// UpdateOrderStatus меняет статус заказа.
func (s *CatalogService) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	if !model.ValidOrderStatus(string(status)) {
		return validation("статус заказа", &lifecycle.TransitionError{
			Code:    lifecycle.CodeInputRequired,
			Message: fmt.Sprintf("неизвестный статус заказа %q", status),
			Fields:  []string{"OrderStatus"},
		})
	}
	if err := s.backend.UpdateOrderStatus(ctx, id, status); err != nil {
		return mapBackendError("статус заказа", err)
	}
	s.logger.Info("Статус заказа изменён",
		slog.Int64("order_id", id),
		slog.String("status", string(status)),
	)
	return nil
}
