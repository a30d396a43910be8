package repository

import (
	"database/sql"
	"fmt"

	"github.com/cordwell/shopapi/internal/models"
)

// ProductRepository handles product data access
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product and links it to the given categories
func (r *ProductRepository) Create(product *models.Product, categoryIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (id, name, description, price, image_url, stock)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.Stock,
	); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := linkCategories(tx, product.ID, categoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a product by ID with its category names
func (r *ProductRepository) GetByID(id string) (*models.Product, error) {
	query := `
		SELECT id, name, description, price, image_url, stock, created_at, updated_at
		FROM products
		WHERE id = ?
	`

	product := &models.Product{}
	err := r.db.QueryRow(query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	categories, err := r.categoryNames(product.ID)
	if err != nil {
		return nil, err
	}
	product.Categories = categories

	return product, nil
}

// List lists all products with their category names
func (r *ProductRepository) List() ([]*models.Product, error) {
	query := `
		SELECT id, name, description, price, image_url, stock, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.ImageURL,
			&product.Stock,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	for _, product := range products {
		categories, err := r.categoryNames(product.ID)
		if err != nil {
			return nil, err
		}
		product.Categories = categories
	}

	return products, nil
}

// Update updates a product and replaces its category links
func (r *ProductRepository) Update(product *models.Product, categoryIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE products
		SET name = ?, description = ?, price = ?, image_url = ?, stock = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := tx.Exec(query,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.Stock,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM product_categories WHERE product_id = ?`, product.ID); err != nil {
		return fmt.Errorf("failed to unlink categories: %w", err)
	}
	if err := linkCategories(tx, product.ID, categoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete deletes a product
func (r *ProductRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *ProductRepository) categoryNames(productID string) ([]string, error) {
	query := `
		SELECT c.name
		FROM categories c
		JOIN product_categories pc ON pc.category_id = c.id
		WHERE pc.product_id = ?
		ORDER BY c.name
	`

	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func linkCategories(tx *sql.Tx, productID string, categoryIDs []string) error {
	for _, categoryID := range categoryIDs {
		if _, err := tx.Exec(
			`INSERT INTO product_categories (product_id, category_id) VALUES (?, ?)`,
			productID, categoryID,
		); err != nil {
			return fmt.Errorf("failed to link category %s: %w", categoryID, err)
		}
	}
	return nil
}
