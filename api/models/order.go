// api/models/order.go
package models

import "time"

// Order item types
const (
	ItemRetail  = "RETAIL"
	ItemService = "SERVICE"
)

// Cart item types
const (
	CartProduct  = "PRODUCT"
	CartPrintJob = "PRINT_JOB"
)

// Product is a retail item sold at the counter
type Product struct {
	ID            string  `json:"id" yaml:"-"`
	Name          string  `json:"name" yaml:"name" binding:"required"`
	Barcode       string  `json:"barcode" yaml:"barcode" binding:"required"`
	Price         float64 `json:"price" yaml:"price"`
	StockQuantity int     `json:"stock_quantity" yaml:"stock_quantity"`
}

// Order is a completed sale
type Order struct {
	ID            string      `json:"id"`
	TotalAmount   float64     `json:"total_amount"`
	PaymentMethod string      `json:"payment_method"` // CASH, M-PESA
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
}

// OrderItem snapshots what was sold and at which price
type OrderItem struct {
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	ItemType    string  `json:"item_type"` // RETAIL, SERVICE
}

// CartItem is one line of a checkout request
type CartItem struct {
	Type     string `json:"type" binding:"required"` // PRODUCT or PRINT_JOB
	ID       string `json:"id" binding:"required"`   // barcode or job code
	Quantity int    `json:"quantity"`
}

// CheckoutRequest is the POS cart
type CheckoutRequest struct {
	PaymentMethod string     `json:"payment_method"`
	Items         []CartItem `json:"items" binding:"required,min=1"`
}

// Checkout is the resolved cart committed in one CHECKOUT command
type Checkout struct {
	Order         *Order         `json:"order"`
	ProductCounts map[string]int `json:"product_counts"` // product ID -> units sold
	CollectedJobs []string       `json:"collected_jobs"` // print job IDs
}

// Setting is a key/value system setting such as a price
type Setting struct {
	Key         string `json:"key" yaml:"key" binding:"required"`
	Value       string `json:"value" yaml:"value" binding:"required"`
	Description string `json:"description" yaml:"description"`
}
