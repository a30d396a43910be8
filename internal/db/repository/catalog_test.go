package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/shopapi/internal/models"
)

func TestCategoryCRUD(t *testing.T) {
	database := newTestDB(t)
	repo := NewCategoryRepository(database.DB)

	category := &models.Category{ID: uuid.NewString(), Name: "Books", Description: "Printed matter"}
	require.NoError(t, repo.Create(category))

	assert.ErrorIs(t, repo.Create(&models.Category{ID: uuid.NewString(), Name: "Books"}), ErrConflict)

	got, err := repo.GetByID(category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Name)

	category.Description = "All printed matter"
	require.NoError(t, repo.Update(category))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "All printed matter", list[0].Description)

	require.NoError(t, repo.Delete(category.ID))
	assert.ErrorIs(t, repo.Delete(category.ID), ErrNotFound)
}

func TestProductWithCategories(t *testing.T) {
	database := newTestDB(t)
	categories := NewCategoryRepository(database.DB)
	products := NewProductRepository(database.DB)

	books := &models.Category{ID: uuid.NewString(), Name: "Books"}
	games := &models.Category{ID: uuid.NewString(), Name: "Games"}
	require.NoError(t, categories.Create(books))
	require.NoError(t, categories.Create(games))

	product := &models.Product{
		ID:    uuid.NewString(),
		Name:  "Chess Set",
		Price: 29.99,
		Stock: 4,
	}
	require.NoError(t, products.Create(product, []string{books.ID, games.ID}))

	got, err := products.GetByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Games"}, got.Categories)

	// Update replaces the links
	require.NoError(t, products.Update(product, []string{games.ID}))
	got, err = products.GetByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Games"}, got.Categories)

	list, err := products.List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, products.Delete(product.ID))
	_, err = products.GetByID(product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductUpdateMissing(t *testing.T) {
	database := newTestDB(t)
	products := NewProductRepository(database.DB)

	err := products.Update(&models.Product{ID: "missing", Name: "X", Price: 1}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
