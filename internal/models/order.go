package models

import "time"

// Order status values.
const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
)

// Order represents a placed order
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Status        string      `json:"status"`
	PayedPrice    float64     `json:"payed_price"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem represents one line of an order
type OrderItem struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"-"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
