package service

import (
	"context"
	"errors"
	"testing"

	"github.com/krishibazar/admin-console/internal/backend"
	"github.com/krishibazar/admin-console/internal/domain/lifecycle"
	"github.com/krishibazar/admin-console/internal/domain/model"
)

func TestCatalogOrders_StatusFilter(t *testing.T) {
	b := &mockCatalogBackend{orders: []model.Order{{ID: 1, OrderStatus: model.OrderShipped}}}
	svc := NewCatalogService(b, 10, testLogger())

	orders, err := svc.Orders(context.Background(), model.OrderShipped)
	if err != nil {
		t.Fatalf("Orders() ошибка: %v", err)
	}
	if len(orders) != 1 || b.lastStatus != model.OrderShipped {
		t.Errorf("orders=%v status=%s", orders, b.lastStatus)
	}

	if _, err := svc.Orders(context.Background(), "lost"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили %v", err)
	}
	if n := b.count("ListOrders"); n != 1 {
		t.Errorf("ListOrders вызван %d раз, ожидали 1", n)
	}
}

func TestCatalogUpdateOrderStatus(t *testing.T) {
	b := &mockCatalogBackend{}
	svc := NewCatalogService(b, 10, testLogger())

	if err := svc.UpdateOrderStatus(context.Background(), 3, model.OrderConfirmed); err != nil {
		t.Fatalf("UpdateOrderStatus() ошибка: %v", err)
	}
	err := svc.UpdateOrderStatus(context.Background(), 3, "teleported")
	if !lifecycle.IsInputRequired(err) {
		t.Errorf("ожидали INPUT_REQUIRED, получили %v", err)
	}
	if n := b.count("UpdateOrderStatus"); n != 1 {
		t.Errorf("UpdateOrderStatus вызван %d раз, ожидали 1", n)
	}
}

func TestCatalogCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		form  model.ProductForm
		valid bool
	}{
		{"корректный", model.ProductForm{Name: "Семена", Category: "seeds", Price: 120, Unit: "kg", MinOrder: 1}, true},
		{"нулевая цена", model.ProductForm{Name: "Семена", Category: "seeds", Unit: "kg", MinOrder: 1}, false},
		{"max меньше min", model.ProductForm{Name: "Семена", Category: "seeds", Price: 1, Unit: "kg", MinOrder: 5, MaxOrder: 2}, false},
		{"без единицы", model.ProductForm{Name: "Семена", Category: "seeds", Price: 1, MinOrder: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockCatalogBackend{}
			svc := NewCatalogService(b, 10, testLogger())

			err := svc.CreateProduct(context.Background(), tt.form, nil)
			if tt.valid && err != nil {
				t.Fatalf("CreateProduct() ошибка: %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrValidation) {
				t.Fatalf("ожидали ErrValidation, получили %v", err)
			}
			if !tt.valid && b.total() != 0 {
				t.Errorf("backend вызван %d раз", b.total())
			}
		})
	}
}

func TestCatalogCategories(t *testing.T) {
	b := &mockCatalogBackend{}
	svc := NewCatalogService(b, 10, testLogger())

	if err := svc.CreateCategory(context.Background(), model.CategoryForm{Name: ""}); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили %v", err)
	}
	if err := svc.CreateCategory(context.Background(), model.CategoryForm{Name: "Фрукты", IsActive: true}); err != nil {
		t.Errorf("CreateCategory() ошибка: %v", err)
	}
	cats, err := svc.Categories(context.Background(), true)
	if err != nil || len(cats) != 1 {
		t.Errorf("Categories() = %v, %v", cats, err)
	}
}

func TestCatalogProduct_FromListPage(t *testing.T) {
	b := &mockCatalogBackend{products: model.Page[model.Product]{
		Items: []model.Product{{ID: 4, Name: "Mango"}, {ID: 7, Name: "Rice"}},
	}}
	svc := NewCatalogService(b, 10, testLogger())

	p, err := svc.Product(context.Background(), 7, "", 1)
	if err != nil {
		t.Fatalf("Product() ошибка: %v", err)
	}
	if p.Name != "Rice" {
		t.Errorf("товар = %+v", p)
	}
	if _, err := svc.Product(context.Background(), 99, "", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestCatalogUpdateProduct(t *testing.T) {
	b := &mockCatalogBackend{}
	svc := NewCatalogService(b, 10, testLogger())

	err := svc.UpdateProduct(context.Background(), 7, model.ProductForm{Name: "Rice"}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидали ErrValidation, получили %v", err)
	}
	if b.total() != 0 {
		t.Fatalf("некорректная форма дошла до backend")
	}

	form := model.ProductForm{Name: "Rice", Category: "grain", Price: 60, Unit: "kg", MinOrder: 10}
	images := []backend.FilePart{{Filename: "rice.jpg", Data: []byte("x")}}
	if err := svc.UpdateProduct(context.Background(), 7, form, images); err != nil {
		t.Fatalf("UpdateProduct() ошибка: %v", err)
	}
	if b.updatedID != 7 || b.images != 1 {
		t.Errorf("backend получил id=%d изображений=%d", b.updatedID, b.images)
	}
}
