package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/cordwell/shopapi/internal/models"
)

// CategoryRepository handles category data access
type CategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// Create creates a new category. Returns ErrConflict if the name is taken.
func (r *CategoryRepository) Create(category *models.Category) error {
	query := `INSERT INTO categories (id, name, description) VALUES (?, ?, ?)`

	_, err := r.db.Exec(query, category.ID, category.Name, category.Description)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by ID
func (r *CategoryRepository) GetByID(id string) (*models.Category, error) {
	category := &models.Category{}

	err := r.db.QueryRow(`SELECT id, name, description FROM categories WHERE id = ?`, id).
		Scan(&category.ID, &category.Name, &category.Description)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// List lists all categories
func (r *CategoryRepository) List() ([]*models.Category, error) {
	rows, err := r.db.Query(`SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category

	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// Update updates a category
func (r *CategoryRepository) Update(category *models.Category) error {
	result, err := r.db.Exec(`UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		category.Name, category.Description, category.ID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete deletes a category
func (r *CategoryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
