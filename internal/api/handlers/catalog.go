package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

// CatalogHandler handles category and product endpoints
type CatalogHandler struct {
	categories *repository.CategoryRepository
	products   *repository.ProductRepository
	log        *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(categories *repository.CategoryRepository, products *repository.ProductRepository, log *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		categories: categories,
		products:   products,
		log:        log,
	}
}

// CategoryRequest represents a category create/update request
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ProductRequest represents a product create/update request
type ProductRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	ImageURL    string   `json:"image_url"`
	Stock       int64    `json:"stock" binding:"gte=0"`
	CategoryIDs []string `json:"category_ids"`
}

// ListCategories lists all categories
// GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List()
	if err != nil {
		h.log.WithError(err).Error("failed to list categories")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	if categories == nil {
		categories = []*models.Category{}
	}
	RespondSuccess(c, categories)
}

// ListProducts lists all products
// GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.products.List()
	if err != nil {
		h.log.WithError(err).Error("failed to list products")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	if products == nil {
		products = []*models.Product{}
	}
	RespondSuccess(c, products)
}

// CreateCategory creates a category
// POST /admin/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	category := &models.Category{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.categories.Create(category); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			RespondError(c, http.StatusConflict, "category_exists", "Category already exists")
			return
		}
		h.log.WithError(err).Error("failed to create category")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates a category
// PUT /admin/categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	category := &models.Category{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.categories.Update(category); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "category_not_found", "Category not found")
			return
		}
		if errors.Is(err, repository.ErrConflict) {
			RespondError(c, http.StatusConflict, "category_exists", "Category name already in use")
			return
		}
		h.log.WithError(err).Error("failed to update category")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, category)
}

// DeleteCategory deletes a category
// DELETE /admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "category_not_found", "Category not found")
			return
		}
		h.log.WithError(err).Error("failed to delete category")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, gin.H{"message": "Category deleted successfully"})
}

// CreateProduct creates a product
// POST /admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	product := &models.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}

	if err := h.products.Create(product, req.CategoryIDs); err != nil {
		h.log.WithError(err).Error("failed to create product")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates a product
// PUT /admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	product := &models.Product{
		ID:          c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}

	if err := h.products.Update(product, req.CategoryIDs); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "product_not_found", "Product not found")
			return
		}
		h.log.WithError(err).Error("failed to update product")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, product)
}

// DeleteProduct deletes a product
// DELETE /admin/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "product_not_found", "Product not found")
			return
		}
		h.log.WithError(err).Error("failed to delete product")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, gin.H{"message": "Product deleted successfully"})
}
