package types

import "time"

// OrderStatus is the internal lifecycle state of an order. Transitions from
// provider payment statuses are mapped in the payments package.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order tracks a user's purchase. TotalAmount is kept as a string to preserve
// the currency formatting the catalog stores prices in.
type Order struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	OrderNumber string      `json:"order_number" example:"48213"`
	TotalAmount string      `json:"total_amount"`
	Currency    string      `json:"currency" example:"RUB"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem is one product line within an order.
type OrderItem struct {
	ID        int    `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Size      string `json:"size,omitempty"`
}

// Payment is the local record of a provider-side payment object.
type Payment struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
