package model

// Category — категория проектов и товаров.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// CategoryForm — данные создания и изменения категории.
type CategoryForm struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Icon        string `json:"icon" validate:"max=16"`
	IsActive    bool   `json:"is_active"`
}

// Product — товар или сельхозпоставка.
type Product struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Price         Amount   `json:"price"`
	Unit          string   `json:"unit"`
	MinOrder      int      `json:"min_order"`
	MaxOrder      *int     `json:"max_order,omitempty"`
	InStock       bool     `json:"in_stock"`
	Description   string   `json:"description,omitempty"`
	ProductImages FileList `json:"product_images,omitempty"`
}

// OrderStatus — статус заказа товара.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses — все статусы заказа в порядке выполнения.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderCompleted, OrderCancelled,
}

// ValidOrderStatus проверяет, что строка — известный статус заказа.
func ValidOrderStatus(s string) bool {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// Order — заказ товара покупателем.
type Order struct {
	ID            int64       `json:"id"`
	ProductName   string      `json:"product_name"`
	Category      string      `json:"category,omitempty"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	OrderQuantity int         `json:"order_quantity"`
	TotalPrice    Amount      `json:"total_price"`
	OrderStatus   OrderStatus `json:"order_status"`
	PaymentStatus string      `json:"payment_status,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     Timestamp   `json:"created_at"`
}

// ProductForm — данные создания и изменения товара. Изображения передаются отдельно.
type ProductForm struct {
	Name        string  `validate:"required,notblank,max=255"`
	Category    string  `validate:"required,notblank,max=100"`
	Price       float64 `validate:"gt=0"`
	Unit        string  `validate:"required,notblank,max=32"`
	MinOrder    int     `validate:"gte=1"`
	MaxOrder    int     `validate:"omitempty,gtefield=MinOrder"`
	InStock     bool
	Description string `validate:"max=5000"`
}

// FormFromProduct заполняет форму изменения значениями товара.
func FormFromProduct(p Product) ProductForm {
	f := ProductForm{
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price.Float64(),
		Unit:        p.Unit,
		MinOrder:    p.MinOrder,
		InStock:     p.InStock,
		Description: p.Description,
	}
	if p.MaxOrder != nil {
		f.MaxOrder = *p.MaxOrder
	}
	return f
}

// FormFromCategory заполняет форму изменения значениями категории.
func FormFromCategory(c Category) CategoryForm {
	return CategoryForm{Name: c.Name, Description: c.Description, Icon: c.Icon, IsActive: c.IsActive}
}
