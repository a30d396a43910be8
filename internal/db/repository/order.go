package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cordwell/shopapi/internal/models"
)

var (
	// ErrInsufficientStock is returned when an approval would drive stock negative
	ErrInsufficientStock = errors.New("insufficient product stock")

	// ErrOrderNotPending is returned when approving an order that is not pending
	ErrOrderNotPending = errors.New("order is not pending")
)

// OrderRepository handles order data access
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems creates an order and its items in one transaction
func (r *OrderRepository) CreateWithItems(order *models.Order) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, user_id, status, payed_price, payment_method)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(query,
		order.ID,
		order.UserID,
		order.Status,
		order.PayedPrice,
		order.PaymentMethod,
	); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := tx.Exec(
			`INSERT INTO order_items (id, order_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
			item.ID, order.ID, item.ProductID, item.Quantity,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves an order with its items
func (r *OrderRepository) GetByID(id string) (*models.Order, error) {
	query := `
		SELECT id, user_id, status, payed_price, payment_method, created_at, updated_at
		FROM orders
		WHERE id = ?
	`

	order := &models.Order{}
	err := r.db.QueryRow(query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.PayedPrice,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.attachItems(order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListByUser lists a user's orders, newest first, with items
func (r *OrderRepository) ListByUser(userID string) ([]*models.Order, error) {
	return r.list(`WHERE user_id = ?`, userID)
}

// ListAll lists every order, newest first, with items
func (r *OrderRepository) ListAll() ([]*models.Order, error) {
	return r.list(``)
}

// ApprovedBetween lists approved orders created inside [start, end], with items
func (r *OrderRepository) ApprovedBetween(start, end time.Time) ([]*models.Order, error) {
	// created_at is stored as a UTC CURRENT_TIMESTAMP string; compare in the
	// same format to keep the range check exact.
	const layout = "2006-01-02 15:04:05"
	return r.list(`WHERE status = 'approved' AND created_at >= ? AND created_at <= ?`,
		start.UTC().Format(layout), end.UTC().Format(layout))
}

// Approve marks a pending order approved and decrements product stock for each
// item in the same transaction. Fails without side effects if any product lacks
// stock.
func (r *OrderRepository) Approve(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if status != models.OrderStatusPending {
		return ErrOrderNotPending
	}

	rows, err := tx.Query(`SELECT product_id, quantity FROM order_items WHERE order_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}

	type line struct {
		productID string
		quantity  int64
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}

	for _, l := range lines {
		result, err := tx.Exec(
			`UPDATE products SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND stock >= ?`,
			l.quantity, l.productID, l.quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}
	}

	if _, err := tx.Exec(
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		models.OrderStatusApproved, id,
	); err != nil {
		return fmt.Errorf("failed to approve order: %w", err)
	}

	return tx.Commit()
}

func (r *OrderRepository) list(where string, args ...any) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, status, payed_price, payment_method, created_at, updated_at
		FROM orders ` + where + `
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order

	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.PayedPrice,
			&order.PaymentMethod,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	for _, order := range orders {
		if err := r.attachItems(order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *OrderRepository) attachItems(order *models.Order) error {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.created_at, oi.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ?
	`

	rows, err := r.db.Query(query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	order.Items = []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}
