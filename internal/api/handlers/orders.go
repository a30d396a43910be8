package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api/middleware"
	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

// OrderHandler handles order placement, listing, approval and sales reporting
type OrderHandler struct {
	orders   *repository.OrderRepository
	products *repository.ProductRepository
	audit    *repository.AuditRepository
	log      *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *repository.OrderRepository, products *repository.ProductRepository, audit *repository.AuditRepository, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		products: products,
		audit:    audit,
		log:      log,
	}
}

// OrderItemRequest represents one requested order line
type OrderItemRequest struct {
	ProductID string `json:"productid" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest represents an order placement request
type PlaceOrderRequest struct {
	ProductList   []OrderItemRequest `json:"productlist" binding:"required,min=1"`
	PaymentMethod string             `json:"paymentmethod" binding:"required"`
}

// SalesEntry represents one product's sales in a report
type SalesEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	ImageURL    string   `json:"imgUrl"`
	SalesAmount float64  `json:"salesAmount"`
	Category    []string `json:"category"`
}

// PlaceOrder places a new order for the caller
// POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	claims := middleware.GetClaims(c)

	var totalPrice float64
	items := make([]models.OrderItem, 0, len(req.ProductList))
	for _, line := range req.ProductList {
		product, err := h.products.GetByID(line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				RespondError(c, http.StatusBadRequest, "invalid_product", "Invalid product ID.")
				return
			}
			h.log.WithError(err).Error("failed to look up product")
			RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
			return
		}

		if product.Stock < line.Quantity {
			RespondError(c, http.StatusBadRequest, "insufficient_stock", "Not sufficient Product Stock")
			return
		}

		totalPrice += product.Price * float64(line.Quantity)
		items = append(items, models.OrderItem{
			ID:        uuid.NewString(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		UserID:        claims.Subject,
		Status:        models.OrderStatusPending,
		PayedPrice:    totalPrice,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	}

	if err := h.orders.CreateWithItems(order); err != nil {
		h.log.WithError(err).Error("failed to create order")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to create order")
		return
	}

	RespondSuccess(c, gin.H{"message": "Order placed successfully", "order_id": order.ID})
}

// ListOrders lists orders: clients see their own, admins see all
// GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var (
		orders []*models.Order
		err    error
	)
	if claims.IsAdmin {
		orders, err = h.orders.ListAll()
	} else {
		orders, err = h.orders.ListByUser(claims.Subject)
	}
	if err != nil {
		h.log.WithError(err).Error("failed to list orders")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to fetch orders")
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}
	RespondSuccess(c, orders)
}

// ListAllOrders lists every order regardless of owner
// GET /admin/orders
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	orders, err := h.orders.ListAll()
	if err != nil {
		h.log.WithError(err).Error("failed to list orders")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to fetch orders")
		return
	}

	if orders == nil {
		orders = []*models.Order{}
	}
	RespondSuccess(c, orders)
}

// ApproveOrder marks a pending order approved and decrements product stock
// PUT /admin/orders/:id/approve
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	orderID := c.Param("id")

	if err := h.orders.Approve(orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			RespondError(c, http.StatusNotFound, "order_not_found", "Order not found")
		case errors.Is(err, repository.ErrOrderNotPending):
			RespondError(c, http.StatusBadRequest, "order_not_pending", "Order is not pending")
		case errors.Is(err, repository.ErrInsufficientStock):
			RespondError(c, http.StatusBadRequest, "insufficient_stock", "Not sufficient Product Stock")
		default:
			h.log.WithError(err).Error("failed to approve order")
			RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		}
		return
	}

	claims := middleware.GetClaims(c)
	h.audit.Create(&models.AuditLog{
		Action:   models.ActionOrderApprove,
		UserID:   claims.Subject,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	order, err := h.orders.GetByID(orderID)
	if err != nil {
		h.log.WithError(err).Error("failed to look up order")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, order)
}

// SalesReport aggregates approved orders in a date range by product
// GET /admin/sales?start_date=&end_date=
func (h *OrderHandler) SalesReport(c *gin.Context) {
	start := time.Unix(0, 0).UTC()
	if s := c.Query("start_date"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			start = parsed
		}
	}

	end := time.Now().UTC()
	if s := c.Query("end_date"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			// Include the whole end day
			end = parsed.Add(24*time.Hour - time.Second)
		}
	}

	orders, err := h.orders.ApprovedBetween(start, end)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch approved orders")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to fetch orders")
		return
	}

	productSales := map[string]float64{}
	for _, order := range orders {
		for _, item := range order.Items {
			productSales[item.ProductID] += float64(item.Quantity)
		}
	}

	report := make([]SalesEntry, 0, len(productSales))
	for productID, amount := range productSales {
		product, err := h.products.GetByID(productID)
		if err != nil {
			// Product deleted since the sale; skip it
			continue
		}

		categories := product.Categories
		if categories == nil {
			categories = []string{}
		}
		report = append(report, SalesEntry{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			ImageURL:    product.ImageURL,
			SalesAmount: amount,
			Category:    categories,
		})
	}

	RespondSuccess(c, report)
}
